package analyzer

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

var testBase = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

// evt builds an event i minutes after the session start.
func evt(i int, tool string, eventType replay.EventType, summary string, files ...string) replay.Event {
	return replay.Event{
		Timestamp:     testBase.Add(time.Duration(i) * time.Minute),
		SessionID:     "test-session",
		EventType:     eventType,
		ToolName:      tool,
		Summary:       summary,
		FilesAffected: files,
	}
}

func TestClassifyEvent(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		summary string
		want    replay.SessionPhase
	}{
		{"read tool", "Read", "Viewed notes.txt", replay.Exploration},
		{"glob tool", "Glob", "Searched for files: *.go", replay.Exploration},
		{"edit tool", "Edit", "Changed parser logic", replay.Implementation},
		{"write tool", "Write", "Created handler.go", replay.Implementation},
		{"bash tool", "Bash", "Ran: go generate ./...", replay.Testing},
		{"unknown tool", "Mystery", "Did something", replay.Unknown},
		{"debug keyword beats tool", "Read", "Looking for the bug in parser", replay.Debugging},
		{"error keyword", "Edit", "Fixed error handling", replay.Debugging},
		{"test keyword", "Edit", "Added test coverage", replay.Testing},
		{"config keyword", "Edit", "Updated deploy settings", replay.Configuration},
		{"docs keyword", "Edit", "Rewrote readme", replay.Documentation},
		{"debug beats test keyword", "Bash", "Fix failing test run", replay.Debugging},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := evt(0, tt.tool, replay.ToolCall, tt.summary)
			if got := classifyEvent(&event); got != tt.want {
				t.Errorf("classifyEvent(%q/%q) = %s, want %s", tt.tool, tt.summary, got, tt.want)
			}
		})
	}
}

func TestBuildTimelineEmpty(t *testing.T) {
	if got := buildTimeline(nil); got != nil {
		t.Errorf("Expected nil timeline for no events, got %v", got)
	}
}

func TestBuildTimelinePartition(t *testing.T) {
	// Eight raw runs of five events each, alternating phases.
	summaries := []struct {
		tool, summary string
	}{
		{"Read", "Viewed notes.txt"},
		{"Edit", "Changed parser logic"},
		{"Read", "Tracked down the crash"},
		{"Bash", "Ran: go generate ./..."},
	}
	var events []replay.Event
	for block := 0; block < 8; block++ {
		s := summaries[block%len(summaries)]
		for j := 0; j < 5; j++ {
			events = append(events, evt(len(events), s.tool, replay.ToolCall, s.summary))
		}
	}

	timeline := buildTimeline(events)
	if len(timeline) == 0 {
		t.Fatal("Expected a non-empty timeline")
	}

	// Runs partition the event sequence with no gaps or overlaps.
	if timeline[0].StartIndex != 0 {
		t.Errorf("First run starts at %d, want 0", timeline[0].StartIndex)
	}
	for i := 1; i < len(timeline); i++ {
		if timeline[i].StartIndex != timeline[i-1].EndIndex+1 {
			t.Errorf("Run %d starts at %d, previous ended at %d",
				i, timeline[i].StartIndex, timeline[i-1].EndIndex)
		}
	}
	if last := timeline[len(timeline)-1]; last.EndIndex != len(events)-1 {
		t.Errorf("Last run ends at %d, want %d", last.EndIndex, len(events)-1)
	}

	total := 0
	for _, run := range timeline {
		total += run.EventCount
		if run.EventCount != run.EndIndex-run.StartIndex+1 {
			t.Errorf("Run event count %d disagrees with bounds [%d,%d]",
				run.EventCount, run.StartIndex, run.EndIndex)
		}
	}
	if total != len(events) {
		t.Errorf("Run counts sum to %d, want %d", total, len(events))
	}

	// Session under an hour gets at most six runs.
	if len(timeline) > 6 {
		t.Errorf("Expected at most 6 runs, got %d", len(timeline))
	}
}

func TestBuildTimelineBlipSuppression(t *testing.T) {
	// A lone edit inside a reading stretch is relabeled, leaving one run.
	var events []replay.Event
	for i := 0; i < 4; i++ {
		events = append(events, evt(i, "Read", replay.ToolCall, "Viewed notes.txt"))
	}
	events = append(events, evt(4, "Edit", replay.CodeChange, "Changed parser logic"))
	for i := 5; i < 8; i++ {
		events = append(events, evt(i, "Read", replay.ToolCall, "Viewed notes.txt"))
	}

	timeline := buildTimeline(events)
	if len(timeline) != 1 {
		t.Fatalf("Expected 1 run after blip suppression, got %d", len(timeline))
	}
	if timeline[0].Phase != replay.Exploration {
		t.Errorf("Expected exploration run, got %s", timeline[0].Phase)
	}
}

func TestBuildTimelineFirstRunExemptFromAbsorb(t *testing.T) {
	// A tiny opening run survives; later tiny runs would be absorbed.
	var events []replay.Event
	events = append(events, evt(0, "Read", replay.ToolCall, "Viewed notes.txt"))
	events = append(events, evt(3, "Read", replay.ToolCall, "Viewed notes.txt"))
	for i := 0; i < 10; i++ {
		events = append(events, evt(6+3*i, "Edit", replay.CodeChange, "Changed parser logic", "parser.go"))
	}

	timeline := buildTimeline(events)
	if len(timeline) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(timeline))
	}
	if timeline[0].Phase != replay.Exploration || timeline[1].Phase != replay.Implementation {
		t.Errorf("Expected exploration then implementation, got %s then %s",
			timeline[0].Phase, timeline[1].Phase)
	}
	if timeline[0].EventCount != 2 {
		t.Errorf("Opening run has %d events, want 2", timeline[0].EventCount)
	}
}

func TestBuildTimelineAbsorbsTinyRun(t *testing.T) {
	// A short late run folds into its predecessor, keeping its phase.
	var events []replay.Event
	for i := 0; i < 10; i++ {
		events = append(events, evt(3*i, "Read", replay.ToolCall, "Viewed notes.txt"))
	}
	events = append(events, evt(30, "Edit", replay.CodeChange, "Changed parser logic", "parser.go"))
	events = append(events, evt(31, "Edit", replay.CodeChange, "Changed parser logic", "parser.go"))

	timeline := buildTimeline(events)
	if len(timeline) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(timeline))
	}
	if timeline[0].Phase != replay.Exploration {
		t.Errorf("Absorbed run should keep the previous phase, got %s", timeline[0].Phase)
	}
	if timeline[0].EventCount != 12 {
		t.Errorf("Merged run has %d events, want 12", timeline[0].EventCount)
	}
}

func TestSummarizeTimeline(t *testing.T) {
	events := []replay.Event{
		evt(0, "Read", replay.ToolCall, "Viewed a.go", "/src/a.go"),
		evt(1, "Grep", replay.ToolCall, "Searched content: handler"),
		evt(2, "Read", replay.ToolCall, "Viewed b.go", "/src/b.go"),
	}
	timeline := summarizeTimeline(buildTimeline(events), events)
	if len(timeline) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(timeline))
	}

	want := "Explored 2 file(s) | searched 1 time(s) | 3 event(s)"
	if timeline[0].Summary != want {
		t.Errorf("Summary = %q, want %q", timeline[0].Summary, want)
	}
}

func TestSummarizeTimelineKeyEvents(t *testing.T) {
	var events []replay.Event
	for i := 0; i < 15; i++ {
		events = append(events, evt(i, "Edit", replay.CodeChange, "Changed parser logic", "parser.go"))
	}
	timeline := summarizeTimeline(buildTimeline(events), events)
	if len(timeline) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(timeline))
	}
	if len(timeline[0].KeyEvents) != 10 {
		t.Errorf("Key events capped at 10, got %d", len(timeline[0].KeyEvents))
	}
	if timeline[0].KeyEvents[0] != 0 || timeline[0].KeyEvents[9] != 9 {
		t.Errorf("Key events should be the first ten change indices, got %v", timeline[0].KeyEvents)
	}
}

func TestMineInsightsDetour(t *testing.T) {
	var events []replay.Event
	events = append(events, replay.Event{
		Timestamp: testBase,
		SessionID: "test-session",
		EventType: replay.Error,
		Summary:   "Error: nil pointer in parser",
	})
	for i := 1; i < 7; i++ {
		events = append(events, evt(i, "Read", replay.ToolCall, "Viewed parser.go"))
	}
	events = append(events, evt(7, "Edit", replay.CodeChange, "Changed parser logic", "parser.go"))

	insights := mineInsights(events)
	detour := findInsight(insights, "Debugging detour detected")
	if detour == nil {
		t.Fatalf("Expected a detour insight, got %v", insightTitles(insights))
	}
	if detour.Confidence != 0.6 {
		t.Errorf("Detour confidence = %v, want 0.6", detour.Confidence)
	}
	if !reflect.DeepEqual(detour.SupportingEvents, []int{0, 7}) {
		t.Errorf("Supporting events = %v, want [0 7]", detour.SupportingEvents)
	}
	if !strings.Contains(detour.Description, "event #0") || !strings.Contains(detour.Description, "event #7") {
		t.Errorf("Description should reference both indices: %q", detour.Description)
	}
}

func TestMineInsightsNoDetourForShortGap(t *testing.T) {
	events := []replay.Event{
		{Timestamp: testBase, SessionID: "s", EventType: replay.Error, Summary: "Error: boom"},
		evt(1, "Edit", replay.CodeChange, "Changed parser logic", "parser.go"),
	}
	if insight := findInsight(mineInsights(events), "Debugging detour detected"); insight != nil {
		t.Error("A two-event gap should not count as a detour")
	}
}

func TestMineInsightsHotspot(t *testing.T) {
	var events []replay.Event
	for i := 0; i < 5; i++ {
		events = append(events, evt(i, "Edit", replay.CodeChange, "Changed parser logic", "/src/internal/parser.go"))
	}

	insights := mineInsights(events)
	hotspot := findInsight(insights, "Hotspot file: parser.go")
	if hotspot == nil {
		t.Fatalf("Expected a hotspot insight, got %v", insightTitles(insights))
	}
	if hotspot.Confidence != 0.7 {
		t.Errorf("Hotspot confidence = %v, want 0.7", hotspot.Confidence)
	}
	if !reflect.DeepEqual(hotspot.SupportingEvents, []int{0, 1, 2, 3, 4}) {
		t.Errorf("Supporting events = %v, want first five indices", hotspot.SupportingEvents)
	}
}

func TestMineInsightsExplorationBursts(t *testing.T) {
	var events []replay.Event
	for i := 0; i < 5; i++ {
		events = append(events, evt(i, "Read", replay.ToolCall, "Viewed notes.txt"))
	}
	events = append(events, evt(5, "Edit", replay.CodeChange, "Changed parser logic", "parser.go"))
	for i := 6; i < 11; i++ {
		events = append(events, evt(i, "Grep", replay.ToolCall, "Searched content: handler"))
	}

	insights := mineInsights(events)
	burst := findInsight(insights, "Multiple exploration phases")
	if burst == nil {
		t.Fatalf("Expected an exploration-burst insight, got %v", insightTitles(insights))
	}
	if !strings.Contains(burst.Description, "2 significant exploration") {
		t.Errorf("Description should count two bursts: %q", burst.Description)
	}
}

func TestMineInsightsReadHeavy(t *testing.T) {
	var events []replay.Event
	for i := 0; i < 7; i++ {
		events = append(events, evt(i, "Read", replay.ToolCall, "Viewed notes.txt"))
	}
	for i := 7; i < 10; i++ {
		events = append(events, evt(i, "Edit", replay.CodeChange, "Changed parser logic", "parser.go"))
	}

	insights := mineInsights(events)
	readHeavy := findInsight(insights, "Read-heavy session")
	if readHeavy == nil {
		t.Fatalf("Expected a read-heavy insight, got %v", insightTitles(insights))
	}
	if readHeavy.Confidence != 0.8 {
		t.Errorf("Read-heavy confidence = %v, want 0.8", readHeavy.Confidence)
	}
	if !strings.Contains(readHeavy.Description, "7/10 events (70%)") {
		t.Errorf("Percentage must truncate to an integer: %q", readHeavy.Description)
	}
}

func TestMineInsightsImplementationHeavy(t *testing.T) {
	var events []replay.Event
	for i := 0; i < 2; i++ {
		events = append(events, evt(i, "Read", replay.ToolCall, "Viewed notes.txt"))
	}
	for i := 2; i < 9; i++ {
		events = append(events, evt(i, "Edit", replay.CodeChange, "Changed parser logic", "parser.go"))
	}

	insights := mineInsights(events)
	writeHeavy := findInsight(insights, "Implementation-heavy session")
	if writeHeavy == nil {
		t.Fatalf("Expected an implementation-heavy insight, got %v", insightTitles(insights))
	}
	if !strings.Contains(writeHeavy.Description, "7/9 events (77%)") {
		t.Errorf("Percentage must truncate to an integer: %q", writeHeavy.Description)
	}
}

func TestFindDecisionPoints(t *testing.T) {
	events := []replay.Event{
		evt(0, "Read", replay.ToolCall, "Viewed app.go", "/src/app.go"),
		evt(1, "Edit", replay.CodeChange, "Changed handler logic", "/src/handler.go"),
	}
	got := findDecisionPoints(events)
	if !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Decision points = %v, want [1]", got)
	}
}

func TestFindDecisionPointsKnownFile(t *testing.T) {
	// An edit to an already-seen file with no phase change is not a decision.
	events := []replay.Event{
		evt(0, "Edit", replay.CodeChange, "Changed handler logic", "/src/handler.go"),
		evt(1, "Edit", replay.CodeChange, "Changed handler logic", "/src/handler.go"),
	}
	got := findDecisionPoints(events)
	if !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Decision points = %v, want [0]", got)
	}
}

func TestFindTurningPoints(t *testing.T) {
	events := []replay.Event{
		evt(0, "Read", replay.ToolCall, "Viewed app.go"),
		{Timestamp: testBase.Add(time.Minute), SessionID: "s", EventType: replay.Error, Summary: "Error: boom"},
		evt(2, "Bash", replay.ToolCall, "Ran: pytest tests/"),
		evt(3, "Bash", replay.ToolCall, "Ran: ls -la"),
	}
	got := findTurningPoints(events)
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Turning points = %v, want [1 2]", got)
	}
}

func TestComputeStatistics(t *testing.T) {
	events := []replay.Event{
		evt(0, "Read", replay.ToolCall, "Viewed app.go", "/src/b.go"),
		evt(1, "Edit", replay.CodeChange, "Changed handler logic", "/src/a.go"),
		evt(2, "Edit", replay.CodeChange, "Changed handler logic", "/src/a.go"),
	}
	stats := computeStatistics(events)

	if stats["total_events"] != 3 {
		t.Errorf("total_events = %v, want 3", stats["total_events"])
	}
	if stats["duration_seconds"] != 120.0 {
		t.Errorf("duration_seconds = %v, want 120", stats["duration_seconds"])
	}
	if stats["duration_human"] != "2m 0s" {
		t.Errorf("duration_human = %v, want 2m 0s", stats["duration_human"])
	}
	if !reflect.DeepEqual(stats["files_affected"], []string{"/src/a.go", "/src/b.go"}) {
		t.Errorf("files_affected = %v, want sorted distinct paths", stats["files_affected"])
	}
	if stats["file_count"] != 2 {
		t.Errorf("file_count = %v, want 2", stats["file_count"])
	}
	if stats["most_used_tool"] != "Edit" {
		t.Errorf("most_used_tool = %v, want Edit", stats["most_used_tool"])
	}
	if stats["code_changes"] != 2 {
		t.Errorf("code_changes = %v, want 2", stats["code_changes"])
	}
	if stats["errors_encountered"] != 0 {
		t.Errorf("errors_encountered = %v, want 0", stats["errors_encountered"])
	}
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := computeStatistics(nil)
	if stats["total_events"] != 0 {
		t.Errorf("total_events = %v, want 0", stats["total_events"])
	}
	if stats["duration_seconds"] != 0.0 {
		t.Errorf("duration_seconds = %v, want 0", stats["duration_seconds"])
	}
	if stats["most_used_tool"] != nil {
		t.Errorf("most_used_tool = %v, want nil", stats["most_used_tool"])
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{30, "30s"},
		{59.9, "59s"},
		{90, "1m 30s"},
		{3599, "59m 59s"},
		{3660, "1h 1m"},
		{7322, "2h 2m"},
		{0, "0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestDetectProjectName(t *testing.T) {
	events := []replay.Event{
		evt(0, "Edit", replay.CodeChange, "Changed main logic", "/Users/jane/projects/myapp/main.go"),
		evt(1, "Edit", replay.CodeChange, "Changed util logic", "/Users/jane/projects/myapp/util.go"),
	}
	if got := DetectProjectName(events); got != "myapp" {
		t.Errorf("DetectProjectName = %q, want myapp", got)
	}
}

func TestDetectProjectNameSkipsHidden(t *testing.T) {
	events := []replay.Event{
		evt(0, "Edit", replay.CodeChange, "Changed settings", "/home/jane/.dotfiles/zshrc"),
	}
	// Hidden segments are skipped, leaving "zshrc" at index 3.
	if got := DetectProjectName(events); got != "zshrc" {
		t.Errorf("DetectProjectName = %q, want zshrc", got)
	}
}

func TestDetectProjectNameNoAbsolutePaths(t *testing.T) {
	events := []replay.Event{
		evt(0, "Edit", replay.CodeChange, "Changed main logic", "main.go"),
	}
	if got := DetectProjectName(events); got != "" {
		t.Errorf("DetectProjectName = %q, want empty", got)
	}
}

func TestGenerateSummary(t *testing.T) {
	events := []replay.Event{
		evt(0, "Read", replay.ToolCall, "Viewed app.go", "/src/app.go"),
		evt(1, "Read", replay.ToolCall, "Viewed util.go", "/src/util.go"),
	}
	timeline := buildTimeline(events)
	got := generateSummary(events, timeline)
	if got != "Explored app.go, util.go" {
		t.Errorf("generateSummary = %q", got)
	}
}

func TestGenerateSummaryEmpty(t *testing.T) {
	if got := generateSummary(nil, nil); got != "Session recorded" {
		t.Errorf("generateSummary = %q, want Session recorded", got)
	}
}

func TestGenerateSummaryErrorSuffix(t *testing.T) {
	var events []replay.Event
	for i := 0; i < 3; i++ {
		events = append(events, replay.Event{
			Timestamp: testBase.Add(time.Duration(i) * time.Minute),
			SessionID: "s",
			EventType: replay.Error,
			Summary:   "Error: boom",
		})
	}
	timeline := buildTimeline(events)
	got := generateSummary(events, timeline)
	if !strings.HasSuffix(got, "(encountered 3 errors along the way)") {
		t.Errorf("generateSummary = %q, want error suffix", got)
	}
}

func TestBuildReplayEndToEnd(t *testing.T) {
	events := []replay.Event{
		evt(0, "Read", replay.ToolCall, "Viewed app.py", "/Users/jane/projects/myapp/app.py"),
		evt(1, "Edit", replay.CodeChange, "Changed app.py", "/Users/jane/projects/myapp/app.py"),
		evt(2, "Bash", replay.ToolCall, "Ran: pytest tests/"),
		{Timestamp: testBase.Add(3 * time.Minute), SessionID: "test-session", EventType: replay.Error, Summary: "Error: assertion failed"},
	}
	meta := &replay.SessionMetadata{SessionID: "test-session", StartTime: testBase}

	r := BuildReplay(events, meta)

	if r.Metadata.EventCount != 4 {
		t.Errorf("EventCount = %d, want 4", r.Metadata.EventCount)
	}
	if r.Metadata.EndTime == nil || !r.Metadata.EndTime.Equal(events[3].Timestamp) {
		t.Errorf("EndTime = %v, want last event timestamp", r.Metadata.EndTime)
	}
	if r.Metadata.DurationSeconds != 180 {
		t.Errorf("DurationSeconds = %v, want 180", r.Metadata.DurationSeconds)
	}
	if !reflect.DeepEqual(r.Metadata.FilesModified, []string{"/Users/jane/projects/myapp/app.py"}) {
		t.Errorf("FilesModified = %v", r.Metadata.FilesModified)
	}
	if r.Metadata.Project != "myapp" {
		t.Errorf("Project = %q, want myapp", r.Metadata.Project)
	}
	if r.Metadata.Summary == "" {
		t.Error("Expected a generated summary")
	}

	if len(r.Timeline) != 1 {
		t.Fatalf("Timeline has %d runs, want 1 (tiny runs absorbed)", len(r.Timeline))
	}
	if r.Timeline[0].StartIndex != 0 || r.Timeline[0].EndIndex != 3 {
		t.Errorf("Run bounds [%d,%d], want [0,3]", r.Timeline[0].StartIndex, r.Timeline[0].EndIndex)
	}
	if !reflect.DeepEqual(r.Timeline[0].KeyEvents, []int{1, 3}) {
		t.Errorf("KeyEvents = %v, want [1 3]", r.Timeline[0].KeyEvents)
	}

	if !containsIndex(r.KeyDecisionIndices, 1) {
		t.Errorf("Decision indices = %v, want to include 1", r.KeyDecisionIndices)
	}
	if !reflect.DeepEqual(r.TurningPointIndices, []int{2, 3}) {
		t.Errorf("Turning points = %v, want [2 3]", r.TurningPointIndices)
	}

	if r.Statistics["total_events"] != 4 {
		t.Errorf("total_events = %v, want 4", r.Statistics["total_events"])
	}
	if r.Statistics["errors_encountered"] != 1 {
		t.Errorf("errors_encountered = %v, want 1", r.Statistics["errors_encountered"])
	}
}

func TestBuildReplayDeterministic(t *testing.T) {
	var events []replay.Event
	for i := 0; i < 20; i++ {
		tool := "Read"
		etype := replay.ToolCall
		files := []string{fmt.Sprintf("/src/pkg/file%d.go", i%3)}
		if i%4 == 0 {
			tool = "Edit"
			etype = replay.CodeChange
		}
		events = append(events, evt(i, tool, etype, "Viewed notes.txt", files...))
	}
	meta := &replay.SessionMetadata{SessionID: "test-session", StartTime: testBase}

	first := BuildReplay(events, meta)
	second := BuildReplay(events, meta)
	if !reflect.DeepEqual(first, second) {
		t.Error("BuildReplay must be deterministic for identical input")
	}
}

func TestBuildReplayPreservesExistingProjectAndSummary(t *testing.T) {
	events := []replay.Event{
		evt(0, "Edit", replay.CodeChange, "Changed main logic", "/Users/jane/projects/other/main.go"),
	}
	meta := &replay.SessionMetadata{
		SessionID: "test-session",
		StartTime: testBase,
		Project:   "kept",
		Summary:   "existing summary",
	}
	r := BuildReplay(events, meta)
	if r.Metadata.Project != "kept" {
		t.Errorf("Project = %q, existing value must win", r.Metadata.Project)
	}
	if r.Metadata.Summary != "existing summary" {
		t.Errorf("Summary = %q, existing value must win", r.Metadata.Summary)
	}
}

func findInsight(insights []replay.Insight, title string) *replay.Insight {
	for i := range insights {
		if insights[i].Title == title {
			return &insights[i]
		}
	}
	return nil
}

func insightTitles(insights []replay.Insight) []string {
	titles := make([]string, 0, len(insights))
	for _, insight := range insights {
		titles = append(titles, insight.Title)
	}
	return titles
}

func containsIndex(indices []int, want int) bool {
	for _, i := range indices {
		if i == want {
			return true
		}
	}
	return false
}
