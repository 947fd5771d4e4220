package analyzer

import (
	"fmt"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

var explorationTools = map[string]bool{
	"Read":      true,
	"Glob":      true,
	"Grep":      true,
	"WebSearch": true,
}

// mineInsights scans the event sequence for recurring patterns and
// returns scored insight records.
func mineInsights(events []replay.Event) []replay.Insight {
	var insights []replay.Insight

	var errorIndices []int
	type errorFix struct{ errIdx, fixIdx int }
	var fixesAfterError []errorFix
	toolSequence := make([]string, 0, len(events))
	filesTouched := map[string][]int{}
	var fileOrder []string

	for i := range events {
		event := &events[i]
		toolSequence = append(toolSequence, event.ToolName)

		for _, f := range event.FilesAffected {
			if _, seen := filesTouched[f]; !seen {
				fileOrder = append(fileOrder, f)
			}
			filesTouched[f] = append(filesTouched[f], i)
		}

		switch {
		case event.EventType == replay.Error:
			errorIndices = append(errorIndices, i)
		case len(errorIndices) > 0 && event.EventType == replay.CodeChange:
			fixesAfterError = append(fixesAfterError, errorFix{errorIndices[len(errorIndices)-1], i})
		}
	}

	// Debugging detours: an error followed by a long stretch of
	// investigation before the next code change.
	for _, pair := range fixesAfterError {
		gap := pair.fixIdx - pair.errIdx
		if gap > 5 {
			insights = append(insights, replay.Insight{
				InsightType: replay.InsightMistake,
				Title:       "Debugging detour detected",
				Description: fmt.Sprintf(
					"An error at event #%d led to %d events of investigation before a fix at event #%d. Error: %s",
					pair.errIdx, gap, pair.fixIdx, events[pair.errIdx].Summary,
				),
				SupportingEvents: []int{pair.errIdx, pair.fixIdx},
				Confidence:       0.6,
			})
		}
	}

	// Hotspot files, in first-touched order for determinism.
	for _, filePath := range fileOrder {
		indices := filesTouched[filePath]
		if len(indices) < 4 {
			continue
		}
		supporting := indices
		if len(supporting) > 5 {
			supporting = supporting[:5]
		}
		insights = append(insights, replay.Insight{
			InsightType: replay.InsightPattern,
			Title:       "Hotspot file: " + pathBase(filePath),
			Description: fmt.Sprintf(
				"%s was modified %d times during the session, suggesting it's a central piece.",
				filePath, len(indices),
			),
			SupportingEvents: supporting,
			Confidence:       0.7,
		})
	}

	// Exploration bursts: runs of 5+ consecutive read/search tools.
	explorationRuns := 0
	currentRun := 0
	for _, tool := range toolSequence {
		if explorationTools[tool] {
			currentRun++
			continue
		}
		if currentRun >= 5 {
			explorationRuns++
		}
		currentRun = 0
	}
	if currentRun >= 5 {
		explorationRuns++
	}
	if explorationRuns >= 2 {
		insights = append(insights, replay.Insight{
			InsightType: replay.InsightPattern,
			Title:       "Multiple exploration phases",
			Description: fmt.Sprintf(
				"The session had %d significant exploration phases (5+ consecutive read/search operations), suggesting an iterative discovery process.",
				explorationRuns,
			),
			Confidence: 0.7,
		})
	}

	// Tool usage imbalance.
	toolCounts := map[string]int{}
	total := 0
	for _, tool := range toolSequence {
		if tool != "" {
			toolCounts[tool]++
			total++
		}
	}
	if total > 0 {
		readTools := toolCounts["Read"] + toolCounts["Grep"] + toolCounts["Glob"]
		if float64(readTools)/float64(total) > 0.6 {
			insights = append(insights, replay.Insight{
				InsightType: replay.InsightPattern,
				Title:       "Read-heavy session",
				Description: fmt.Sprintf(
					"%d/%d events (%d%%) were reading/searching operations. This session was primarily about understanding existing code.",
					readTools, total, readTools*100/total,
				),
				Confidence: 0.8,
			})
		}

		writeTools := toolCounts["Edit"] + toolCounts["Write"]
		if total > 5 && float64(writeTools)/float64(total) > 0.5 {
			insights = append(insights, replay.Insight{
				InsightType: replay.InsightPattern,
				Title:       "Implementation-heavy session",
				Description: fmt.Sprintf(
					"%d/%d events (%d%%) were code modifications. This was a focused implementation session.",
					writeTools, total, writeTools*100/total,
				),
				Confidence: 0.8,
			})
		}
	}

	return insights
}
