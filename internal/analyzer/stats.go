package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

// computeStatistics aggregates session-level counts and durations.
func computeStatistics(events []replay.Event) map[string]any {
	toolCounts := map[string]int{}
	var toolOrder []string
	eventTypeCounts := map[string]int{}
	fileSet := map[string]struct{}{}

	for i := range events {
		event := &events[i]
		if event.ToolName != "" {
			if _, seen := toolCounts[event.ToolName]; !seen {
				toolOrder = append(toolOrder, event.ToolName)
			}
			toolCounts[event.ToolName]++
		}
		eventTypeCounts[string(event.EventType)]++
		for _, f := range event.FilesAffected {
			fileSet[f] = struct{}{}
		}
	}

	var duration float64
	if len(events) > 0 {
		duration = events[len(events)-1].Timestamp.Sub(events[0].Timestamp).Seconds()
	}

	files := make([]string, 0, len(fileSet))
	for f := range fileSet {
		files = append(files, f)
	}
	sort.Strings(files)

	var mostUsed any
	if tool := mostUsedTool(toolCounts, toolOrder); tool != "" {
		mostUsed = tool
	}

	return map[string]any{
		"total_events":       len(events),
		"duration_seconds":   duration,
		"duration_human":     FormatDuration(duration),
		"tools_used":         toolCounts,
		"event_types":        eventTypeCounts,
		"files_affected":     files,
		"file_count":         len(files),
		"most_used_tool":     mostUsed,
		"code_changes":       eventTypeCounts[string(replay.CodeChange)],
		"errors_encountered": eventTypeCounts[string(replay.Error)],
	}
}

// mostUsedTool picks the highest count; ties go to the tool seen first.
func mostUsedTool(counts map[string]int, order []string) string {
	best := ""
	bestCount := 0
	for _, tool := range order {
		if counts[tool] > bestCount {
			best = tool
			bestCount = counts[tool]
		}
	}
	return best
}

// FormatDuration renders a duration in seconds as a compact human
// string: "45s", "3m 20s", or "1h 5m". Components truncate.
func FormatDuration(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", int(seconds))
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", int(seconds)/60, int(seconds)%60)
	default:
		return fmt.Sprintf("%dh %dm", int(seconds)/3600, (int(seconds)%3600)/60)
	}
}

// Generic directory names that never identify a project.
var skipDirs = map[string]bool{
	"": true, "Users": true, "home": true, "root": true, "var": true,
	"tmp": true, "etc": true, "opt": true, "usr": true, "src": true,
	"lib": true, "bin": true, "projects": true, "repos": true,
	"code": true, "workspace": true,
}

// DetectProjectName guesses the project from absolute file paths: the
// first path segment past the root and username that is not a generic
// directory, kept only when enough paths agree on it.
func DetectProjectName(events []replay.Event) string {
	var allPaths []string
	for i := range events {
		for _, p := range events[i].FilesAffected {
			if strings.HasPrefix(p, "/") {
				allPaths = append(allPaths, p)
			}
		}
	}
	if len(allPaths) == 0 {
		return ""
	}

	counts := map[string]int{}
	var order []string
	for _, p := range allPaths {
		parts := strings.Split(strings.Trim(p, "/"), "/")
		for i, part := range parts {
			if skipDirs[part] || strings.HasPrefix(part, ".") {
				continue
			}
			if i <= 1 {
				continue
			}
			if _, seen := counts[part]; !seen {
				order = append(order, part)
			}
			counts[part]++
			break
		}
	}

	best := ""
	bestCount := 0
	for _, name := range order {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	if best != "" && (bestCount >= 2 || len(allPaths) < 5) {
		return best
	}
	return ""
}

func pathBase(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
