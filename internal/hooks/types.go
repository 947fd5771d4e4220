package hooks

// EventType represents the type of Claude Code hook event
type EventType string

// Hook event types vibe-replay subscribes to
const (
	PreToolUse   EventType = "PreToolUse"
	PostToolUse  EventType = "PostToolUse"
	Stop         EventType = "Stop"
	Notification EventType = "Notification"
	SessionStart EventType = "SessionStart"
	SessionEnd   EventType = "SessionEnd"
)

// Payload is the hook input vibe-replay receives on stdin from Claude Code.
// Field names follow the hook wire format; ToolOutput is filled from either
// tool_response, tool_result, or tool_output depending on the sender.
type Payload struct {
	SessionID      string         `json:"session_id"`
	TranscriptPath string         `json:"transcript_path,omitempty"`
	Cwd            string         `json:"cwd,omitempty"`
	HookEventName  string         `json:"hook_event_name,omitempty"`
	ToolName       string         `json:"tool_name,omitempty"`
	ToolInput      map[string]any `json:"tool_input,omitempty"`
	ToolOutput     any            `json:"tool_response,omitempty"`
	Message        string         `json:"message,omitempty"`
	Error          string         `json:"error,omitempty"`
}
