// Package capture transforms Claude Code hook payloads into structured
// session events ready for storage and analysis.
package capture

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zzhiyuann/vibe-replay/internal/config"
	"github.com/zzhiyuann/vibe-replay/internal/hooks"
	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

// Tools whose calls count as code changes
var codeChangeTools = map[string]bool{
	"Edit":         true,
	"Write":        true,
	"NotebookEdit": true,
}

// ParsePayload parses the JSON a Claude Code hook delivers on stdin.
// Unparseable input yields an error payload rather than a failure, so a
// broken hook invocation is still recorded.
func ParsePayload(data []byte) *hooks.Payload {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		preview := string(data)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return &hooks.Payload{
			SessionID: "unknown",
			Error:     fmt.Sprintf("failed to parse hook input: %s", preview),
		}
	}

	payload := &hooks.Payload{
		SessionID:      stringField(raw, "session_id"),
		TranscriptPath: stringField(raw, "transcript_path"),
		Cwd:            stringField(raw, "cwd"),
		HookEventName:  stringField(raw, "hook_event_name"),
		ToolName:       stringField(raw, "tool_name"),
		Message:        stringField(raw, "message"),
		Error:          stringField(raw, "error"),
	}
	if payload.SessionID == "" {
		payload.SessionID = "unknown"
	}
	if input, ok := raw["tool_input"].(map[string]any); ok {
		payload.ToolInput = input
	}
	// Senders disagree on the response field name
	for _, field := range []string{"tool_response", "tool_result", "tool_output"} {
		if v, ok := raw[field]; ok && v != nil {
			payload.ToolOutput = v
			break
		}
	}
	return payload
}

// EventFromPayload builds an Event from a parsed hook payload.
func EventFromPayload(payload *hooks.Payload, limits config.CaptureSettings) replay.Event {
	event := replay.Event{
		Timestamp:     time.Now(),
		SessionID:     payload.SessionID,
		ToolName:      payload.ToolName,
		FilesAffected: filesAffected(payload.ToolInput),
	}

	switch {
	case hooks.EventType(payload.HookEventName) == hooks.Stop:
		event.EventType = replay.SessionEnd
		event.Summary = "Session ended"
	case hooks.EventType(payload.HookEventName) == hooks.SessionStart:
		event.EventType = replay.SessionStart
		event.Summary = "Session started"
	case hooks.EventType(payload.HookEventName) == hooks.Notification:
		event.EventType = replay.Notification
		event.Summary = payload.Message
		if event.Summary == "" {
			event.Summary = "Notification"
		}
	case payload.Error != "":
		event.EventType = replay.Error
		event.Summary = "Error: " + clip(payload.Error, 200)
	default:
		if codeChangeTools[payload.ToolName] {
			event.EventType = replay.CodeChange
		} else {
			event.EventType = replay.ToolCall
		}
		event.Summary = summarizeToolCall(payload.ToolName, payload.ToolInput, limits)
	}

	event.CodeDiff = extractCodeDiff(payload.ToolName, payload.ToolInput, limits)
	event.Details = buildDetails(payload.ToolInput, payload.ToolOutput, limits)
	return event
}

// summarizeToolCall produces the one-line human summary stored with the
// event. These strings feed the keyword classifier, so file names and
// command text are preserved verbatim (within limits).
func summarizeToolCall(toolName string, toolInput map[string]any, limits config.CaptureSettings) string {
	if len(toolInput) == 0 {
		return "Called " + toolName
	}

	switch toolName {
	case "Edit":
		return "Edited " + baseName(stringField(toolInput, "file_path"))
	case "Write":
		return "Created/wrote " + baseName(stringField(toolInput, "file_path"))
	case "Read":
		return "Read " + baseName(stringField(toolInput, "file_path"))
	case "Bash":
		return "Ran: " + clip(stringField(toolInput, "command"), limits.MaxCommandLength)
	case "Glob":
		return "Searched for files: " + stringOr(toolInput, "pattern", "?")
	case "Grep":
		return "Searched content: " + stringOr(toolInput, "pattern", "?")
	case "WebSearch":
		return "Web search: " + stringOr(toolInput, "query", "?")
	case "WebFetch":
		return "Fetched: " + stringOr(toolInput, "url", "?")
	case "Task":
		return "Delegated task: " + clip(stringField(toolInput, "prompt"), limits.MaxCommandLength)
	case "NotebookEdit":
		mode := stringOr(toolInput, "edit_mode", "replace")
		return fmt.Sprintf("Edited notebook %s (%s)", baseName(stringField(toolInput, "notebook_path")), mode)
	}
	return "Called " + toolName
}

// extractCodeDiff captures the textual change Edit/Write tools carry in
// their input.
func extractCodeDiff(toolName string, toolInput map[string]any, limits config.CaptureSettings) string {
	if len(toolInput) == 0 {
		return ""
	}

	switch toolName {
	case "Edit":
		oldStr := stringField(toolInput, "old_string")
		newStr := stringField(toolInput, "new_string")
		if oldStr == "" && newStr == "" {
			return ""
		}
		return fmt.Sprintf("--- old\n+++ new\n-%s\n+%s", oldStr, newStr)
	case "Write":
		return truncate("+++ new file\n"+stringField(toolInput, "content"), limits.MaxDiffBytes)
	}
	return ""
}

// filesAffected extracts the file path a tool call touches. The wire
// format carries at most one path per call.
func filesAffected(toolInput map[string]any) []string {
	for _, field := range []string{"file_path", "path", "notebook_path"} {
		if v := stringField(toolInput, field); v != "" {
			return []string{v}
		}
	}
	return nil
}

// buildDetails assembles the opaque details payload, truncating strings
// and capping the total stored size.
func buildDetails(toolInput map[string]any, toolOutput any, limits config.CaptureSettings) map[string]any {
	details := make(map[string]any)
	if len(toolInput) > 0 {
		details["input"] = toolInput
	}
	switch out := toolOutput.(type) {
	case nil:
	case string:
		details["output"] = truncate(out, limits.MaxOutputBytes)
	case map[string]any:
		details["output"] = out
	default:
		details["output"] = truncate(fmt.Sprint(out), limits.MaxOutputBytes)
	}
	if len(details) == 0 {
		return nil
	}
	return sanitizeDetails(details, limits.MaxDetailBytes)
}

// sanitizeDetails enforces a total size budget across detail entries.
// Entries that would exceed the budget are replaced by a truncation note.
func sanitizeDetails(details map[string]any, maxBytes int) map[string]any {
	sanitized := make(map[string]any, len(details))
	total := 0
	for _, key := range []string{"input", "output"} {
		value, ok := details[key]
		if !ok {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			continue
		}
		if total+len(encoded) > maxBytes {
			sanitized[key] = "[truncated: too large]"
			continue
		}
		total += len(encoded)
		sanitized[key] = value
	}
	return sanitized
}

// clip shortens single-line summary text with a plain ellipsis.
func clip(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	return text[:runeBoundary(text, maxLen)] + "..."
}

func truncate(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	return text[:runeBoundary(text, maxLen)] + fmt.Sprintf("\n... [truncated, %d chars total]", len(text))
}

// runeBoundary backs a byte offset off to the nearest rune start so a
// cut never splits a multibyte character.
func runeBoundary(s string, i int) int {
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

func baseName(path string) string {
	if path == "" {
		return "?"
	}
	return filepath.Base(path)
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return strings.TrimSpace(v)
}

func stringOr(m map[string]any, key, fallback string) string {
	if v := stringField(m, key); v != "" {
		return v
	}
	return fallback
}
