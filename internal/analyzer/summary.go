package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

// generateSummary builds a one-sentence narrative of the session from
// its timeline phases.
func generateSummary(events []replay.Event, timeline []replay.TimelinePhase) string {
	if len(events) == 0 {
		return "Session recorded"
	}

	var activities []string
	for _, phase := range timeline {
		fileSet := map[string]struct{}{}
		for _, e := range events[phase.StartIndex : phase.EndIndex+1] {
			for _, f := range e.FilesAffected {
				fileSet[f] = struct{}{}
			}
		}
		shortFiles := make([]string, 0, len(fileSet))
		for f := range fileSet {
			shortFiles = append(shortFiles, pathBase(f))
		}
		sort.Strings(shortFiles)
		if len(shortFiles) > 3 {
			shortFiles = shortFiles[:3]
		}
		fileList := strings.Join(shortFiles, ", ")

		switch phase.Phase {
		case replay.Exploration:
			if fileList != "" {
				activities = append(activities, "explored "+fileList)
			} else {
				activities = append(activities, "explored the codebase")
			}
		case replay.Implementation:
			if fileList != "" {
				activities = append(activities, "built "+fileList)
			} else {
				activities = append(activities, "implemented new code")
			}
		case replay.Debugging:
			activities = append(activities, "debugged issues")
		case replay.Testing:
			activities = append(activities, "ran tests")
		case replay.Configuration:
			if fileList != "" {
				activities = append(activities, "configured "+fileList)
			} else {
				activities = append(activities, "set up configuration")
			}
		case replay.Refactoring:
			activities = append(activities, "refactored code")
		case replay.Documentation:
			activities = append(activities, "updated documentation")
		}
	}

	seen := map[string]struct{}{}
	var unique []string
	for _, a := range activities {
		if _, ok := seen[a]; !ok {
			seen[a] = struct{}{}
			unique = append(unique, a)
		}
	}

	var narrative string
	switch {
	case len(unique) == 0:
		narrative = "worked on files"
	case len(unique) == 1:
		narrative = unique[0]
	case len(unique) == 2:
		narrative = unique[0] + ", then " + unique[1]
	default:
		narrative = strings.Join(unique[:len(unique)-1], ", ") + ", and " + unique[len(unique)-1]
	}

	narrative = strings.ToUpper(narrative[:1]) + narrative[1:]

	errorCount := 0
	for i := range events {
		if events[i].EventType == replay.Error {
			errorCount++
		}
	}
	if errorCount >= 3 {
		narrative += fmt.Sprintf(" (encountered %d errors along the way)", errorCount)
	}

	return narrative
}
