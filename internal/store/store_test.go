package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testEvent(sessionID string, i int) *replay.Event {
	return &replay.Event{
		Timestamp: time.Date(2026, 1, 15, 10, i, 0, 0, time.UTC),
		SessionID: sessionID,
		EventType: replay.ToolCall,
		ToolName:  "Read",
		Summary:   "Viewed notes.txt",
	}
}

func TestOpenCreatesLayout(t *testing.T) {
	baseDir := t.TempDir()
	s, err := Open(baseDir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := os.Stat(filepath.Join(baseDir, "sessions")); err != nil {
		t.Error("Sessions directory was not created")
	}
	if _, err := os.Stat(filepath.Join(baseDir, "index.db")); err != nil {
		t.Error("Index database was not created")
	}
}

func TestAppendAndReadEvents(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.AppendEvent(testEvent("sess-1", i)); err != nil {
			t.Fatalf("Failed to append event: %v", err)
		}
	}

	events, err := s.Events("sess-1")
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Got %d events, want 3", len(events))
	}
	if !events[0].Timestamp.Before(events[2].Timestamp) {
		t.Error("Events should come back in append order")
	}

	count, err := s.EventCount("sess-1")
	if err != nil {
		t.Fatalf("Failed to count events: %v", err)
	}
	if count != 3 {
		t.Errorf("EventCount = %d, want 3", count)
	}
}

func TestEventsMissingSession(t *testing.T) {
	s := newTestStore(t)

	events, err := s.Events("no-such-session")
	if err != nil {
		t.Fatalf("Missing log should not error: %v", err)
	}
	if events != nil {
		t.Errorf("Expected no events, got %d", len(events))
	}
}

func TestEventsSkipsMalformedLines(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendEvent(testEvent("sess-1", 0)); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}

	f, err := os.OpenFile(s.eventsPath("sess-1"), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("Failed to open log: %v", err)
	}
	if _, err := f.WriteString("{not json\n"); err != nil {
		t.Fatalf("Failed to write garbage: %v", err)
	}
	_ = f.Close()
	if err := s.AppendEvent(testEvent("sess-1", 1)); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}

	events, err := s.Events("sess-1")
	if err != nil {
		t.Fatalf("Failed to read events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Got %d events, want 2 (malformed line skipped)", len(events))
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)

	endTime := time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC)
	meta := &replay.SessionMetadata{
		SessionID:       "sess-1",
		Project:         "myapp",
		StartTime:       time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		EndTime:         &endTime,
		DurationSeconds: 3600,
		EventCount:      42,
		Summary:         "Explored the codebase",
		FilesModified:   []string{"/src/a.go"},
		ToolsUsed:       map[string]int{"Read": 30, "Edit": 12},
	}
	if err := s.SaveMetadata(meta); err != nil {
		t.Fatalf("Failed to save metadata: %v", err)
	}

	got, err := s.Metadata("sess-1")
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	if got == nil {
		t.Fatal("Expected metadata, got nil")
	}
	if got.Project != "myapp" || got.EventCount != 42 {
		t.Errorf("Round-trip mismatch: %+v", got)
	}
	if got.EndTime == nil || !got.EndTime.Equal(endTime) {
		t.Errorf("EndTime = %v, want %v", got.EndTime, endTime)
	}
}

func TestMetadataMissingAndCorrupt(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Metadata("no-such-session")
	if err != nil || got != nil {
		t.Errorf("Missing metadata should be (nil, nil), got (%v, %v)", got, err)
	}

	if err := s.EnsureSession("sess-1"); err != nil {
		t.Fatalf("Failed to create session dir: %v", err)
	}
	if err := os.WriteFile(s.metadataPath("sess-1"), []byte("{broken"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	got, err = s.Metadata("sess-1")
	if err != nil || got != nil {
		t.Errorf("Corrupt metadata should be treated as absent, got (%v, %v)", got, err)
	}
}

func TestReplayRoundTrip(t *testing.T) {
	s := newTestStore(t)

	r := &replay.SessionReplay{
		Metadata: replay.SessionMetadata{
			SessionID: "sess-1",
			StartTime: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		},
		Insights: []replay.Insight{
			{InsightType: replay.InsightPattern, Title: "Read-heavy session", Confidence: 0.8},
		},
		Statistics: map[string]any{"total_events": 4},
	}
	if err := s.SaveReplay(r); err != nil {
		t.Fatalf("Failed to save replay: %v", err)
	}

	got, err := s.Replay("sess-1")
	if err != nil {
		t.Fatalf("Failed to read replay: %v", err)
	}
	if got == nil {
		t.Fatal("Expected replay, got nil")
	}
	if len(got.Insights) != 1 || got.Insights[0].Title != "Read-heavy session" {
		t.Errorf("Round-trip mismatch: %+v", got.Insights)
	}
}

func TestListSessionsOrderAndFilter(t *testing.T) {
	s := newTestStore(t)

	for i, row := range []struct {
		id      string
		project string
		hour    int
	}{
		{"sess-a", "alpha", 8},
		{"sess-b", "beta", 10},
		{"sess-c", "alpha", 9},
	} {
		meta := &replay.SessionMetadata{
			SessionID: row.id,
			Project:   row.project,
			StartTime: time.Date(2026, 1, 15, row.hour, 0, 0, 0, time.UTC),
			EventCount: i + 1,
		}
		if err := s.SaveMetadata(meta); err != nil {
			t.Fatalf("Failed to save metadata: %v", err)
		}
	}

	all, err := s.ListSessions("", 10, 0)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Got %d sessions, want 3", len(all))
	}
	if all[0].SessionID != "sess-b" || all[2].SessionID != "sess-a" {
		t.Errorf("Sessions not newest-first: %s, %s, %s",
			all[0].SessionID, all[1].SessionID, all[2].SessionID)
	}

	alpha, err := s.ListSessions("alpha", 10, 0)
	if err != nil {
		t.Fatalf("Failed to list filtered sessions: %v", err)
	}
	if len(alpha) != 2 {
		t.Errorf("Got %d alpha sessions, want 2", len(alpha))
	}

	limited, err := s.ListSessions("", 1, 0)
	if err != nil {
		t.Fatalf("Failed to list limited sessions: %v", err)
	}
	if len(limited) != 1 || limited[0].SessionID != "sess-b" {
		t.Errorf("Limit 1 should return only the newest session")
	}
}

func TestSearchSessions(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveMetadata(&replay.SessionMetadata{
		SessionID: "sess-1",
		Project:   "myapp",
		StartTime: time.Now(),
		Summary:   "Explored the parser and fixed a crash",
	}); err != nil {
		t.Fatalf("Failed to save metadata: %v", err)
	}
	if err := s.SaveMetadata(&replay.SessionMetadata{
		SessionID: "sess-2",
		Project:   "other",
		StartTime: time.Now(),
		Summary:   "Updated documentation",
	}); err != nil {
		t.Fatalf("Failed to save metadata: %v", err)
	}

	got, err := s.SearchSessions("parser", 10)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "sess-1" {
		t.Errorf("Search by summary returned %d sessions", len(got))
	}

	got, err = s.SearchSessions("other", 10)
	if err != nil {
		t.Fatalf("Failed to search: %v", err)
	}
	if len(got) != 1 || got[0].SessionID != "sess-2" {
		t.Errorf("Search by project returned %d sessions", len(got))
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendEvent(testEvent("sess-1", 0)); err != nil {
		t.Fatalf("Failed to append event: %v", err)
	}
	if err := s.SaveMetadata(&replay.SessionMetadata{SessionID: "sess-1", StartTime: time.Now()}); err != nil {
		t.Fatalf("Failed to save metadata: %v", err)
	}

	deleted, err := s.DeleteSession("sess-1")
	if err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if !deleted {
		t.Error("Expected deletion to report true")
	}
	if s.SessionExists("sess-1") {
		t.Error("Session directory still exists after deletion")
	}
	sessions, err := s.ListSessions("", 10, 0)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("Index row survived deletion: %d sessions", len(sessions))
	}

	deleted, err = s.DeleteSession("sess-1")
	if err != nil {
		t.Fatalf("Second delete errored: %v", err)
	}
	if deleted {
		t.Error("Deleting a missing session should report false")
	}
}

func TestResolveSessionID(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"abc123-full", "abd456-full"} {
		if err := s.EnsureSession(id); err != nil {
			t.Fatalf("Failed to create session dir: %v", err)
		}
	}

	got, err := s.ResolveSessionID("abc123-full")
	if err != nil || got != "abc123-full" {
		t.Errorf("Exact match failed: (%q, %v)", got, err)
	}

	got, err = s.ResolveSessionID("abc")
	if err != nil || got != "abc123-full" {
		t.Errorf("Prefix match failed: (%q, %v)", got, err)
	}

	if _, err = s.ResolveSessionID("ab"); err == nil {
		t.Error("Ambiguous prefix should error")
	}

	if _, err = s.ResolveSessionID("zzz"); err == nil {
		t.Error("Unknown prefix should error")
	}
}
