// Package analyzer reconstructs a narrative timeline from a session's
// raw event log: phases, insights, key moments, and statistics.
package analyzer

import (
	"strings"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

// toolPhases maps tool names to the phase they suggest when event text
// gives no stronger signal.
var toolPhases = map[string]replay.SessionPhase{
	"Read":         replay.Exploration,
	"Glob":         replay.Exploration,
	"Grep":         replay.Exploration,
	"WebSearch":    replay.Exploration,
	"WebFetch":     replay.Exploration,
	"Edit":         replay.Implementation,
	"Write":        replay.Implementation,
	"NotebookEdit": replay.Implementation,
	"Task":         replay.Implementation,
	"Bash":         replay.Testing,
}

var debugKeywords = []string{
	"error", "fail", "bug", "fix", "debug", "traceback", "exception",
	"broken", "crash", "issue", "wrong", "problem", "unexpected",
}

var testKeywords = []string{
	"test", "pytest", "assert", "spec", "coverage", "mock", "fixture",
}

var configKeywords = []string{
	"config", "setup", "install", "dependency", "pyproject", "package",
	"requirements", "env", "docker", "deploy",
}

var docKeywords = []string{
	"readme", "doc", "comment", "docstring",
}

// classifyEvent assigns a phase to a single event. Keyword signals in
// the summary override the tool-based default, with debugging taking
// priority over testing and the rest.
func classifyEvent(event *replay.Event) replay.SessionPhase {
	text := strings.ToLower(event.Summary)

	if containsAny(text, debugKeywords) {
		return replay.Debugging
	}
	if containsAny(text, testKeywords) {
		return replay.Testing
	}
	if containsAny(text, configKeywords) {
		return replay.Configuration
	}
	if containsAny(text, docKeywords) {
		return replay.Documentation
	}

	if phase, ok := toolPhases[event.ToolName]; ok {
		return phase
	}
	return replay.Unknown
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
