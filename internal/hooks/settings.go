package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Marker identifies vibe-replay entries inside Claude Code settings so
// install/uninstall never touch hooks owned by other tools.
const Marker = "vibe-replay"

// Manager edits the Claude Code settings file to register capture hooks.
type Manager struct {
	settingsPath string
}

// NewManager creates a Manager for the given settings file. An empty path
// defaults to ~/.claude/settings.json.
func NewManager(settingsPath string) (*Manager, error) {
	if settingsPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		settingsPath = filepath.Join(homeDir, ".claude", "settings.json")
	}
	return &Manager{settingsPath: settingsPath}, nil
}

// InstalledHook describes one registered vibe-replay hook entry.
type InstalledHook struct {
	Type    string
	Command string
}

// Status reports the current installation state.
type Status struct {
	Installed    bool
	Hooks        []InstalledHook
	SettingsPath string
}

// InstallResult describes the hook entries Install registered.
type InstallResult struct {
	CaptureHook  string
	StopHook     string
	SettingsPath string
}

// Install registers PostToolUse and Stop hooks that invoke the given
// command. Existing vibe-replay entries are replaced; everything else in
// the settings file is preserved.
func (m *Manager) Install(command string) (*InstallResult, error) {
	settings, err := m.readSettings()
	if err != nil {
		return nil, err
	}

	hooks := settingsHooks(settings)

	captureCmd := fmt.Sprintf("%s capture  # %s", command, Marker)
	stopCmd := fmt.Sprintf("%s capture --stop  # %s", command, Marker)

	hooks["PostToolUse"] = append(removeOwnEntries(hooks["PostToolUse"]), hookEntry(captureCmd))
	hooks["Stop"] = append(removeOwnEntries(hooks["Stop"]), hookEntry(stopCmd))
	settings["hooks"] = hooks

	if err := m.writeSettings(settings); err != nil {
		return nil, err
	}
	return &InstallResult{
		CaptureHook:  captureCmd,
		StopHook:     stopCmd,
		SettingsPath: m.settingsPath,
	}, nil
}

// Uninstall removes all vibe-replay hook entries. Returns the number of
// entries removed.
func (m *Manager) Uninstall() (int, error) {
	settings, err := m.readSettings()
	if err != nil {
		return 0, err
	}

	hooks := settingsHooks(settings)
	removed := 0
	for eventType, entries := range hooks {
		kept := removeOwnEntries(entries)
		removed += len(entries) - len(kept)
		hooks[eventType] = kept
	}
	settings["hooks"] = hooks

	if err := m.writeSettings(settings); err != nil {
		return 0, err
	}
	return removed, nil
}

// Check reports whether vibe-replay hooks are registered.
func (m *Manager) Check() (*Status, error) {
	settings, err := m.readSettings()
	if err != nil {
		return nil, err
	}

	status := &Status{SettingsPath: m.settingsPath}
	for eventType, entries := range settingsHooks(settings) {
		for _, cmd := range ownCommands(entries) {
			status.Hooks = append(status.Hooks, InstalledHook{Type: eventType, Command: cmd})
		}
	}
	status.Installed = len(status.Hooks) > 0
	return status, nil
}

// readSettings parses the settings file, treating a missing or corrupted
// file as empty settings. Unknown fields survive round-tripping because
// the whole document is held as a generic map.
func (m *Manager) readSettings() (map[string]any, error) {
	data, err := os.ReadFile(m.settingsPath)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return map[string]any{}, nil
	}
	return settings, nil
}

func (m *Manager) writeSettings(settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(m.settingsPath), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	// Back up the previous settings before rewriting
	if prev, err := os.ReadFile(m.settingsPath); err == nil {
		_ = os.WriteFile(m.settingsPath+".bak", prev, 0644)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return os.WriteFile(m.settingsPath, append(data, '\n'), 0644)
}

// settingsHooks returns the hooks section as eventType -> entry list,
// creating it if absent.
func settingsHooks(settings map[string]any) map[string][]any {
	result := make(map[string][]any)
	raw, ok := settings["hooks"].(map[string]any)
	if !ok {
		return result
	}
	for eventType, v := range raw {
		if entries, ok := v.([]any); ok {
			result[eventType] = entries
		}
	}
	return result
}

func hookEntry(command string) map[string]any {
	return map[string]any{
		"matcher": "",
		"hooks": []any{
			map[string]any{
				"type":    "command",
				"command": command,
			},
		},
	}
}

// removeOwnEntries drops entries whose inner hooks carry the vibe-replay
// marker, keeping entries owned by other tools untouched.
func removeOwnEntries(entries []any) []any {
	var kept []any
	for _, entry := range entries {
		if len(ownCommands([]any{entry})) == 0 {
			kept = append(kept, entry)
		}
	}
	return kept
}

// ownCommands extracts vibe-replay hook commands from entry maps.
func ownCommands(entries []any) []string {
	var commands []string
	for _, entry := range entries {
		entryMap, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		inner, ok := entryMap["hooks"].([]any)
		if !ok {
			continue
		}
		for _, h := range inner {
			hookMap, ok := h.(map[string]any)
			if !ok {
				continue
			}
			cmd, _ := hookMap["command"].(string)
			if strings.Contains(cmd, Marker) {
				commands = append(commands, cmd)
			}
		}
	}
	return commands
}
