package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zzhiyuann/vibe-replay/internal/logger"
	"github.com/zzhiyuann/vibe-replay/internal/replay"
	"github.com/zzhiyuann/vibe-replay/internal/store"
)

// Analyzer runs full-session analysis against a store.
type Analyzer struct {
	store *store.Store
}

// New creates an analyzer backed by the given store.
func New(s *store.Store) *Analyzer {
	return &Analyzer{store: s}
}

// Analyze loads a session's events, runs full analysis, persists the
// refreshed metadata and replay, and returns the replay.
func (a *Analyzer) Analyze(sessionID string) (*replay.SessionReplay, error) {
	events, err := a.store.Events(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	metadata, err := a.store.Metadata(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	if metadata == nil {
		metadata = synthesizeMetadata(sessionID, events)
	}

	result := BuildReplay(events, metadata)

	if err := a.store.SaveMetadata(&result.Metadata); err != nil {
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}
	if err := a.store.SaveReplay(result); err != nil {
		return nil, fmt.Errorf("failed to save replay: %w", err)
	}

	logger.Debug().
		Str("session", sessionID).
		Int("events", len(events)).
		Int("phases", len(result.Timeline)).
		Int("insights", len(result.Insights)).
		Msg("Analyzed session")

	return result, nil
}

// BuildReplay runs the analysis passes over an event sequence and
// merges their outputs with refreshed metadata into one replay record.
func BuildReplay(events []replay.Event, metadata *replay.SessionMetadata) *replay.SessionReplay {
	timeline := buildTimeline(events)
	timeline = summarizeTimeline(timeline, events)

	insights := mineInsights(events)
	decisionPoints := findDecisionPoints(events)
	turningPoints := findTurningPoints(events)
	stats := computeStatistics(events)

	meta := *metadata
	meta.EventCount = len(events)
	if len(events) > 0 {
		endTime := events[len(events)-1].Timestamp
		meta.EndTime = &endTime
	}
	meta.DurationSeconds = stats["duration_seconds"].(float64)

	fileSet := map[string]struct{}{}
	toolCounts := map[string]int{}
	for i := range events {
		for _, f := range events[i].FilesAffected {
			fileSet[f] = struct{}{}
		}
		if events[i].ToolName != "" {
			toolCounts[events[i].ToolName]++
		}
	}
	files := make([]string, 0, len(fileSet))
	for f := range fileSet {
		files = append(files, f)
	}
	sort.Strings(files)
	meta.FilesModified = files
	meta.ToolsUsed = toolCounts

	if meta.Project == "" && len(events) > 0 {
		meta.Project = DetectProjectName(events)
	}
	if meta.Summary == "" && len(events) > 0 {
		meta.Summary = generateSummary(events, timeline)
	}

	return &replay.SessionReplay{
		Metadata:            meta,
		Timeline:            timeline,
		Insights:            insights,
		KeyDecisionIndices:  decisionPoints,
		TurningPointIndices: turningPoints,
		Statistics:          stats,
	}
}

// AggregateLearnings collects insights from the most recent sessions'
// cached replays, deduplicated by title and sorted by confidence.
func (a *Analyzer) AggregateLearnings(limit int) ([]replay.Insight, error) {
	sessions, err := a.store.ListSessions("", limit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var all []replay.Insight
	for _, meta := range sessions {
		r, err := a.store.Replay(meta.SessionID)
		if err != nil {
			return nil, err
		}
		if r != nil {
			all = append(all, r.Insights...)
		}
	}

	seen := map[string]struct{}{}
	var unique []replay.Insight
	for _, insight := range all {
		key := strings.ToLower(strings.TrimSpace(insight.Title))
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			unique = append(unique, insight)
		}
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Confidence > unique[j].Confidence
	})
	return unique, nil
}

func synthesizeMetadata(sessionID string, events []replay.Event) *replay.SessionMetadata {
	meta := &replay.SessionMetadata{
		SessionID:  sessionID,
		StartTime:  time.Now(),
		EventCount: len(events),
	}
	if len(events) > 0 {
		meta.StartTime = events[0].Timestamp
		endTime := events[len(events)-1].Timestamp
		meta.EndTime = &endTime
	}
	return meta
}
