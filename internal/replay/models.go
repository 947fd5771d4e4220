package replay

import "time"

// EventType classifies a captured event.
type EventType string

// Event types captured during a coding session
const (
	ToolCall     EventType = "tool_call"
	CodeChange   EventType = "code_change"
	Decision     EventType = "decision"
	Error        EventType = "error"
	UserMessage  EventType = "user_message"
	SessionStart EventType = "session_start"
	SessionEnd   EventType = "session_end"
	Notification EventType = "notification"
)

// SessionPhase is a coarse activity label assigned by the analyzer.
type SessionPhase string

// Phases of a coding session
const (
	Exploration    SessionPhase = "exploration"
	Implementation SessionPhase = "implementation"
	Debugging      SessionPhase = "debugging"
	Testing        SessionPhase = "testing"
	Refactoring    SessionPhase = "refactoring"
	Configuration  SessionPhase = "configuration"
	Documentation  SessionPhase = "documentation"
	Unknown        SessionPhase = "unknown"
)

// InsightType classifies a mined insight.
type InsightType string

// Insight types
const (
	InsightDecision     InsightType = "decision"
	InsightLearning     InsightType = "learning"
	InsightMistake      InsightType = "mistake"
	InsightPattern      InsightType = "pattern"
	InsightTurningPoint InsightType = "turning_point"
)

// Event is a single captured action from a coding session.
// Events are appended to a session's JSONL log in timestamp order; all
// analyzer indices are zero-based offsets into that order.
type Event struct {
	Timestamp     time.Time      `json:"timestamp"`
	SessionID     string         `json:"session_id"`
	EventType     EventType      `json:"event_type"`
	ToolName      string         `json:"tool_name,omitempty"`
	Summary       string         `json:"summary"`
	Details       map[string]any `json:"details,omitempty"`
	CodeDiff      string         `json:"code_diff,omitempty"`
	FilesAffected []string       `json:"files_affected,omitempty"`
}

// SessionMetadata is the denormalized per-session summary record.
type SessionMetadata struct {
	SessionID       string         `json:"session_id"`
	Project         string         `json:"project,omitempty"`
	ProjectPath     string         `json:"project_path,omitempty"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	DurationSeconds float64        `json:"duration_seconds,omitempty"`
	EventCount      int            `json:"event_count"`
	Summary         string         `json:"summary,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	FilesModified   []string       `json:"files_modified,omitempty"`
	ToolsUsed       map[string]int `json:"tools_used,omitempty"`
}

// Insight is a scored observation mined from the event stream.
type Insight struct {
	InsightType      InsightType `json:"insight_type"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	SupportingEvents []int       `json:"supporting_events,omitempty"`
	Confidence       float64     `json:"confidence"`
}

// TimelinePhase is a contiguous run of events sharing one phase label.
// StartIndex/EndIndex are inclusive offsets into the event sequence.
type TimelinePhase struct {
	Phase      SessionPhase `json:"phase"`
	StartIndex int          `json:"start_index"`
	EndIndex   int          `json:"end_index"`
	StartTime  time.Time    `json:"start_time"`
	EndTime    time.Time    `json:"end_time"`
	EventCount int          `json:"event_count"`
	Summary    string       `json:"summary,omitempty"`
	KeyEvents  []int        `json:"key_events,omitempty"`
}

// SessionReplay is the root analysis output for one session. It is
// immutable once built; each analysis run fully replaces the cached copy.
type SessionReplay struct {
	Metadata            SessionMetadata `json:"metadata"`
	Timeline            []TimelinePhase `json:"timeline"`
	Insights            []Insight       `json:"insights"`
	KeyDecisionIndices  []int           `json:"key_decision_indices"`
	TurningPointIndices []int           `json:"turning_point_indices"`
	Statistics          map[string]any  `json:"statistics"`
}
