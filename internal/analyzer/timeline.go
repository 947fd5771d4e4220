package analyzer

import (
	"fmt"
	"strings"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

// buildTimeline groups events into phase runs, then smooths the result
// through several passes: blip suppression, absorbing tiny runs into
// their predecessor, consolidating adjacent same-phase runs, and
// capping the total run count.
func buildTimeline(events []replay.Event) []replay.TimelinePhase {
	if len(events) == 0 {
		return nil
	}

	phases := make([]replay.SessionPhase, len(events))
	for i := range events {
		phases[i] = classifyEvent(&events[i])
	}

	// Raw runs, with single-event blips relabeled when at least the
	// next two events continue the current phase.
	var runs []replay.TimelinePhase
	current := phases[0]
	startIdx := 0
	for i := 1; i < len(phases); i++ {
		if phases[i] == current {
			continue
		}

		lookAhead := i + 3
		if lookAhead > len(phases) {
			lookAhead = len(phases)
		}
		if lookAhead-i >= 2 && allPhase(phases[i+1:lookAhead], current) {
			phases[i] = current
			continue
		}

		runs = append(runs, newRun(current, startIdx, i-1, events))
		current = phases[i]
		startIdx = i
	}
	runs = append(runs, newRun(current, startIdx, len(phases)-1, events))

	// Absorb tiny runs into the previous one. The first run is exempt.
	var merged []replay.TimelinePhase
	for _, run := range runs {
		duration := run.EndTime.Sub(run.StartTime).Seconds()
		if len(merged) > 0 && (run.EventCount < 3 || duration < 120) {
			merged[len(merged)-1] = mergeRuns(merged[len(merged)-1], run, merged[len(merged)-1].Phase)
		} else {
			merged = append(merged, run)
		}
	}

	// Consolidate adjacent runs that ended up with the same phase.
	var consolidated []replay.TimelinePhase
	for _, run := range merged {
		if n := len(consolidated); n > 0 && consolidated[n-1].Phase == run.Phase {
			consolidated[n-1] = mergeRuns(consolidated[n-1], run, run.Phase)
		} else {
			consolidated = append(consolidated, run)
		}
	}

	// Cap the run count, long sessions get a higher ceiling.
	var totalDuration float64
	if len(consolidated) > 0 {
		totalDuration = consolidated[len(consolidated)-1].EndTime.Sub(consolidated[0].StartTime).Seconds()
	}
	maxPhases := 6
	if totalDuration > 3600 {
		maxPhases = 8
	}
	for len(consolidated) > maxPhases {
		minIdx := 0
		for i, run := range consolidated {
			if run.EventCount < consolidated[minIdx].EventCount {
				minIdx = i
			}
		}

		var mergeWith int
		switch {
		case minIdx == 0:
			mergeWith = 1
		case minIdx == len(consolidated)-1:
			mergeWith = minIdx - 1
		default:
			if consolidated[minIdx-1].EventCount <= consolidated[minIdx+1].EventCount {
				mergeWith = minIdx - 1
			} else {
				mergeWith = minIdx + 1
			}
		}

		a, b := minIdx, mergeWith
		if a > b {
			a, b = b, a
		}
		pa, pb := consolidated[a], consolidated[b]
		keep := pb.Phase
		if pa.EventCount >= pb.EventCount {
			keep = pa.Phase
		}
		consolidated[a] = mergeRuns(pa, pb, keep)
		consolidated = append(consolidated[:b], consolidated[b+1:]...)
	}

	return consolidated
}

func newRun(phase replay.SessionPhase, start, end int, events []replay.Event) replay.TimelinePhase {
	return replay.TimelinePhase{
		Phase:      phase,
		StartIndex: start,
		EndIndex:   end,
		StartTime:  events[start].Timestamp,
		EndTime:    events[end].Timestamp,
		EventCount: end - start + 1,
	}
}

func mergeRuns(a, b replay.TimelinePhase, phase replay.SessionPhase) replay.TimelinePhase {
	return replay.TimelinePhase{
		Phase:      phase,
		StartIndex: a.StartIndex,
		EndIndex:   b.EndIndex,
		StartTime:  a.StartTime,
		EndTime:    b.EndTime,
		EventCount: a.EventCount + b.EventCount,
		KeyEvents:  append(append([]int{}, a.KeyEvents...), b.KeyEvents...),
	}
}

func allPhase(phases []replay.SessionPhase, want replay.SessionPhase) bool {
	for _, p := range phases {
		if p != want {
			return false
		}
	}
	return true
}

// summarizeTimeline attaches a one-line description and key event
// indices to each run.
func summarizeTimeline(timeline []replay.TimelinePhase, events []replay.Event) []replay.TimelinePhase {
	result := make([]replay.TimelinePhase, 0, len(timeline))
	for _, phase := range timeline {
		phaseEvents := events[phase.StartIndex : phase.EndIndex+1]

		tools := map[string]int{}
		files := map[string]struct{}{}
		for _, e := range phaseEvents {
			if e.ToolName != "" {
				tools[e.ToolName]++
			}
			for _, f := range e.FilesAffected {
				files[f] = struct{}{}
			}
		}

		var parts []string
		switch phase.Phase {
		case replay.Exploration:
			parts = append(parts, fmt.Sprintf("Explored %d file(s)", len(files)))
			if n := tools["Grep"]; n > 0 {
				parts = append(parts, fmt.Sprintf("searched %d time(s)", n))
			}
		case replay.Implementation:
			parts = append(parts, fmt.Sprintf("Modified %d file(s)", len(files)))
		case replay.Debugging:
			parts = append(parts, "Investigated and fixed issues")
		case replay.Testing:
			parts = append(parts, "Ran tests")
		case replay.Configuration:
			parts = append(parts, "Set up configuration")
		case replay.Documentation:
			parts = append(parts, "Updated documentation")
		}
		parts = append(parts, fmt.Sprintf("%d event(s)", phase.EventCount))

		var keyIndices []int
		for i, e := range phaseEvents {
			if e.EventType == replay.CodeChange || e.EventType == replay.Error {
				keyIndices = append(keyIndices, phase.StartIndex+i)
			}
		}
		if len(keyIndices) > 10 {
			keyIndices = keyIndices[:10]
		}

		phase.Summary = strings.Join(parts, " | ")
		phase.KeyEvents = keyIndices
		result = append(result, phase)
	}
	return result
}
