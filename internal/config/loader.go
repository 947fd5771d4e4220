package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	globalConfigDir  = ".vibe-replay"
	projectConfigDir = ".vibe-replay"
	configFileName   = "config.yaml"
)

// Loader handles loading and merging configuration files
type Loader struct {
	globalPath  string
	projectPath string
}

// NewLoader creates a new configuration loader
func NewLoader(projectDir string) (*Loader, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	if projectDir == "" {
		projectDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	return &Loader{
		globalPath:  filepath.Join(homeDir, globalConfigDir, configFileName),
		projectPath: filepath.Join(projectDir, projectConfigDir, configFileName),
	}, nil
}

// Load loads and merges configuration from all sources
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	globalCfg, err := l.loadFile(l.globalPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}
	if globalCfg != nil {
		cfg = mergeConfigs(cfg, globalCfg)
	}

	projectCfg, err := l.loadFile(l.projectPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}
	if projectCfg != nil {
		cfg = mergeConfigs(cfg, projectCfg)
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func (l *Loader) LoadFromFile(path string) (*Config, error) {
	return l.loadFile(path)
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// mergeConfigs merges two configurations, with override taking precedence
func mergeConfigs(base, override *Config) *Config {
	result := &Config{
		Version: coalesce(override.Version, base.Version),
		Settings: Settings{
			LogLevel: coalesce(override.Settings.LogLevel, base.Settings.LogLevel),
			LogFile:  coalesce(override.Settings.LogFile, base.Settings.LogFile),
			BaseDir:  coalesce(override.Settings.BaseDir, base.Settings.BaseDir),
		},
		Capture: CaptureSettings{
			MaxCommandLength: coalesceInt(override.Capture.MaxCommandLength, base.Capture.MaxCommandLength),
			MaxOutputBytes:   coalesceInt(override.Capture.MaxOutputBytes, base.Capture.MaxOutputBytes),
			MaxDiffBytes:     coalesceInt(override.Capture.MaxDiffBytes, base.Capture.MaxDiffBytes),
			MaxDetailBytes:   coalesceInt(override.Capture.MaxDetailBytes, base.Capture.MaxDetailBytes),
		},
		Server: ServerSettings{
			Host: coalesce(override.Server.Host, base.Server.Host),
			Port: coalesceInt(override.Server.Port, base.Server.Port),
		},
		Share: ShareSettings{
			Repo:        coalesce(override.Share.Repo, base.Share.Repo),
			OpenBrowser: base.Share.OpenBrowser,
		},
		MCP: MCPSettings{
			SessionLimit: coalesceInt(override.MCP.SessionLimit, base.MCP.SessionLimit),
		},
	}

	// Override OpenBrowser only when the override file configures sharing at all.
	// A bare bool can't distinguish "not set" from "set to false".
	if override.Share.Repo != "" {
		result.Share.OpenBrowser = override.Share.OpenBrowser
	}

	return result
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func coalesceInt(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
