// Package render generates shareable outputs from analyzed sessions:
// a self-contained HTML page, a Markdown summary, and a JSON export.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

var phaseEmoji = map[replay.SessionPhase]string{
	replay.Exploration:    "🔍",
	replay.Implementation: "🔨",
	replay.Debugging:      "🐛",
	replay.Testing:        "🧪",
	replay.Refactoring:    "♻️",
	replay.Configuration:  "⚙️",
	replay.Documentation:  "📝",
}

var insightIcon = map[replay.InsightType]string{
	replay.InsightDecision:     "🎯",
	replay.InsightLearning:     "💡",
	replay.InsightMistake:      "⚠️",
	replay.InsightPattern:      "🔄",
	replay.InsightTurningPoint: "🔀",
}

// Markdown renders a session summary as Markdown.
func Markdown(r *replay.SessionReplay, events []replay.Event) string {
	var b strings.Builder
	meta := r.Metadata

	title := meta.Project
	if title == "" {
		title = meta.SessionID
	}
	fmt.Fprintf(&b, "# Session Replay: %s\n\n", title)
	fmt.Fprintf(&b, "**Date:** %s\n", meta.StartTime.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**Duration:** %s\n", durationHuman(r))
	fmt.Fprintf(&b, "**Events:** %d\n", meta.EventCount)
	fmt.Fprintf(&b, "**Files modified:** %d\n\n", len(meta.FilesModified))

	if meta.Summary != "" {
		fmt.Fprintf(&b, "> %s\n\n", meta.Summary)
	}

	b.WriteString("## Timeline\n\n")
	decisions := indexSet(r.KeyDecisionIndices)
	turnings := indexSet(r.TurningPointIndices)
	for _, phase := range r.Timeline {
		emoji := phaseEmoji[phase.Phase]
		if emoji == "" {
			emoji = "📌"
		}
		fmt.Fprintf(&b, "### %s %s (%s - %s)\n",
			emoji, titleCase(string(phase.Phase)),
			phase.StartTime.Format("15:04"), phase.EndTime.Format("15:04"))
		fmt.Fprintf(&b, "_%s_\n\n", phase.Summary)

		lo, hi := clampBounds(phase.StartIndex, phase.EndIndex, len(events))
		phaseEvents := events[lo:hi]
		shown := phaseEvents
		if len(shown) > 10 {
			shown = shown[:10]
		}
		for i, e := range shown {
			globalIdx := lo + i
			marker := ""
			if _, ok := decisions[globalIdx]; ok {
				marker = " **[KEY DECISION]**"
			} else if _, ok := turnings[globalIdx]; ok {
				marker = " **[TURNING POINT]**"
			}
			fmt.Fprintf(&b, "- %s%s\n", e.Summary, marker)
		}
		if len(phaseEvents) > 10 {
			fmt.Fprintf(&b, "- _...and %d more events_\n", len(phaseEvents)-10)
		}
		b.WriteString("\n")
	}

	if len(r.Insights) > 0 {
		b.WriteString("## Insights\n\n")
		for _, insight := range r.Insights {
			icon := insightIcon[insight.InsightType]
			if icon == "" {
				icon = "•"
			}
			fmt.Fprintf(&b, "### %s %s\n%s\n\n", icon, insight.Title, insight.Description)
		}
	}

	b.WriteString("## Statistics\n\n")
	if tools := toolCounts(r); len(tools) > 0 {
		b.WriteString("| Tool | Count |\n")
		b.WriteString("|------|-------|\n")
		for _, tc := range tools {
			fmt.Fprintf(&b, "| %s | %d |\n", tc.Name, tc.Count)
		}
	}
	b.WriteString("\n---\n")
	b.WriteString("*Generated by [Vibe Replay](https://github.com/zzhiyuann/vibe-replay)*")

	return b.String()
}

type toolCount struct {
	Name  string
	Count int
}

// toolCounts returns tool usage most-frequent-first, names breaking ties.
func toolCounts(r *replay.SessionReplay) []toolCount {
	raw, _ := r.Statistics["tools_used"].(map[string]int)
	if raw == nil {
		// Statistics decoded from JSON carry generic types.
		if m, ok := r.Statistics["tools_used"].(map[string]any); ok {
			raw = map[string]int{}
			for k, v := range m {
				if f, ok := v.(float64); ok {
					raw[k] = int(f)
				}
			}
		}
	}
	result := make([]toolCount, 0, len(raw))
	for name, count := range raw {
		result = append(result, toolCount{name, count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func durationHuman(r *replay.SessionReplay) string {
	if s, ok := r.Statistics["duration_human"].(string); ok && s != "" {
		return s
	}
	return "Unknown"
}

// clampBounds converts an inclusive [start, end] index range into slice
// bounds clamped to a sequence of n elements. A cached replay can carry
// indices past the end of an event log that lost lines since analysis.
func clampBounds(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	hi := end + 1
	if hi > n {
		hi = n
	}
	if start > hi {
		start = hi
	}
	return start, hi
}

func indexSet(indices []int) map[int]struct{} {
	set := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		set[i] = struct{}{}
	}
	return set
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
