package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

//go:embed templates/*.html
var templateFS embed.FS

var replayTemplate = template.Must(template.ParseFS(templateFS, "templates/replay.html"))

// maxDetailJSONBytes caps the per-event detail blob embedded in the page.
const maxDetailJSONBytes = 5000

type eventView struct {
	Index       int
	Time        string
	EventType   string
	ToolName    string
	Summary     string
	Files       []string
	HasDiff     bool
	CodeDiff    string
	DetailsJSON string
	IsDecision  bool
	IsTurning   bool
}

type phaseView struct {
	Phase      string
	Display    string
	Emoji      string
	StartTime  string
	EndTime    string
	EventCount int
	Summary    string
	Events     []eventView
}

type insightView struct {
	Icon        string
	Type        string
	Title       string
	Description string
	Confidence  int
}

type pageView struct {
	Project    string
	SessionID  string
	StartTime  string
	Duration   string
	EventCount int
	FileCount  int
	Summary    string
	Phases     []phaseView
	Insights   []insightView
	Tools      []toolCount
	ShareURL   string
}

// HTML renders a self-contained replay page for one analyzed session.
func HTML(r *replay.SessionReplay, events []replay.Event, shareURL string) (string, error) {
	decisions := indexSet(r.KeyDecisionIndices)
	turnings := indexSet(r.TurningPointIndices)

	eventViews := make([]eventView, len(events))
	for i := range events {
		e := &events[i]
		var detailsJSON string
		if len(e.Details) > 0 {
			if data, err := json.MarshalIndent(e.Details, "", "  "); err == nil {
				detailsJSON = string(data)
				if len(detailsJSON) > maxDetailJSONBytes {
					detailsJSON = detailsJSON[:maxDetailJSONBytes]
				}
			}
		}
		_, isDecision := decisions[i]
		_, isTurning := turnings[i]
		eventViews[i] = eventView{
			Index:       i,
			Time:        e.Timestamp.Format("15:04:05"),
			EventType:   string(e.EventType),
			ToolName:    e.ToolName,
			Summary:     e.Summary,
			Files:       e.FilesAffected,
			HasDiff:     e.CodeDiff != "",
			CodeDiff:    e.CodeDiff,
			DetailsJSON: detailsJSON,
			IsDecision:  isDecision,
			IsTurning:   isTurning,
		}
	}

	phases := make([]phaseView, 0, len(r.Timeline))
	for _, phase := range r.Timeline {
		emoji := phaseEmoji[phase.Phase]
		if emoji == "" {
			emoji = "📌"
		}
		lo, hi := clampBounds(phase.StartIndex, phase.EndIndex, len(eventViews))
		phases = append(phases, phaseView{
			Phase:      string(phase.Phase),
			Display:    titleCase(string(phase.Phase)),
			Emoji:      emoji,
			StartTime:  phase.StartTime.Format("15:04:05"),
			EndTime:    phase.EndTime.Format("15:04:05"),
			EventCount: phase.EventCount,
			Summary:    phase.Summary,
			Events:     eventViews[lo:hi],
		})
	}

	insights := make([]insightView, 0, len(r.Insights))
	for _, insight := range r.Insights {
		icon := insightIcon[insight.InsightType]
		if icon == "" {
			icon = "•"
		}
		insights = append(insights, insightView{
			Icon:        icon,
			Type:        string(insight.InsightType),
			Title:       insight.Title,
			Description: insight.Description,
			Confidence:  int(insight.Confidence * 100),
		})
	}

	project := r.Metadata.Project
	if project == "" {
		project = "Unknown Project"
	}

	page := pageView{
		Project:    project,
		SessionID:  r.Metadata.SessionID,
		StartTime:  r.Metadata.StartTime.Format("2006-01-02 15:04"),
		Duration:   durationHuman(r),
		EventCount: r.Metadata.EventCount,
		FileCount:  fileCount(r),
		Summary:    r.Metadata.Summary,
		Phases:     phases,
		Insights:   insights,
		Tools:      toolCounts(r),
		ShareURL:   shareURL,
	}

	var buf bytes.Buffer
	if err := replayTemplate.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("failed to render replay page: %w", err)
	}
	return buf.String(), nil
}

func fileCount(r *replay.SessionReplay) int {
	switch v := r.Statistics["file_count"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
