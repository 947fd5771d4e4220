package analyzer

import (
	"sort"
	"strings"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

var testCommandKeywords = []string{"test", "pytest", "npm test"}

// findDecisionPoints returns indices where the direction of work
// changed: a phase transition into implementation, or the first code
// change touching a previously untouched file.
func findDecisionPoints(events []replay.Event) []int {
	indices := map[int]struct{}{}
	seenFiles := map[string]struct{}{}

	for i := range events {
		event := &events[i]

		if i > 0 {
			prev := classifyEvent(&events[i-1])
			curr := classifyEvent(event)
			if prev != curr && curr == replay.Implementation {
				indices[i] = struct{}{}
			}
		}

		if event.EventType == replay.CodeChange && len(event.FilesAffected) > 0 {
			for _, f := range event.FilesAffected {
				if _, seen := seenFiles[f]; !seen {
					indices[i] = struct{}{}
					break
				}
			}
		}

		for _, f := range event.FilesAffected {
			seenFiles[f] = struct{}{}
		}
	}

	return sortedIndices(indices)
}

// findTurningPoints returns indices of errors and test-run commands.
func findTurningPoints(events []replay.Event) []int {
	indices := map[int]struct{}{}

	for i := range events {
		event := &events[i]
		if event.EventType == replay.Error {
			indices[i] = struct{}{}
		}
		if event.ToolName == "Bash" {
			summary := strings.ToLower(event.Summary)
			if containsAny(summary, testCommandKeywords) {
				indices[i] = struct{}{}
			}
		}
	}

	return sortedIndices(indices)
}

func sortedIndices(set map[int]struct{}) []int {
	result := make([]int, 0, len(set))
	for i := range set {
		result = append(result, i)
	}
	sort.Ints(result)
	return result
}
