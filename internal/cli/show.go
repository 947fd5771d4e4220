package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zzhiyuann/vibe-replay/internal/analyzer"
	"github.com/zzhiyuann/vibe-replay/internal/replay"
	"github.com/zzhiyuann/vibe-replay/internal/store"
)

var phaseLabels = map[replay.SessionPhase]string{
	replay.Exploration:    "EXPLORE",
	replay.Implementation: "IMPLEMENT",
	replay.Debugging:      "DEBUG",
	replay.Testing:        "TEST",
	replay.Refactoring:    "REFACTOR",
	replay.Configuration:  "CONFIG",
	replay.Documentation:  "DOCS",
}

var insightLabels = map[replay.InsightType]string{
	replay.InsightDecision:     "DECISION",
	replay.InsightLearning:     "LEARNING",
	replay.InsightMistake:      "DETOUR",
	replay.InsightPattern:      "PATTERN",
	replay.InsightTurningPoint: "TURNING",
}

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session summary in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	sessionID, err := s.ResolveSessionID(args[0])
	if err != nil {
		return err
	}

	r, err := loadOrAnalyze(s, sessionID)
	if err != nil {
		return err
	}
	meta := r.Metadata

	title := meta.Project
	if title == "" {
		title = meta.SessionID
	}
	fmt.Println()
	fmt.Println(title)
	fmt.Printf("  Session:  %s\n", meta.SessionID)
	fmt.Printf("  Date:     %s\n", meta.StartTime.Format("2006-01-02 15:04"))
	fmt.Printf("  Duration: %s\n", statString(r, "duration_human"))
	fmt.Printf("  Events: %d | Files: %d | Changes: %v\n",
		meta.EventCount, len(meta.FilesModified), r.Statistics["code_changes"])
	if meta.Summary != "" {
		fmt.Printf("\n  %s\n", meta.Summary)
	}

	if len(r.Timeline) > 0 {
		fmt.Println("\nTimeline")
		for _, phase := range r.Timeline {
			label := phaseLabels[phase.Phase]
			if label == "" {
				label = "OTHER"
			}
			fmt.Printf("  %9s  %s-%s (%d events) %s\n",
				label,
				phase.StartTime.Format("15:04"), phase.EndTime.Format("15:04"),
				phase.EventCount, phase.Summary)
		}
	}

	if len(r.Insights) > 0 {
		fmt.Println("\nInsights")
		for _, insight := range r.Insights {
			fmt.Printf("  [%s] %s\n", insightLabels[insight.InsightType], insight.Title)
			fmt.Printf("    %s\n", insight.Description)
		}
	}

	if len(meta.ToolsUsed) > 0 {
		fmt.Println("\nTools Used")
		type toolUse struct {
			name  string
			count int
		}
		tools := make([]toolUse, 0, len(meta.ToolsUsed))
		for name, count := range meta.ToolsUsed {
			tools = append(tools, toolUse{name, count})
		}
		sort.Slice(tools, func(i, j int) bool {
			if tools[i].count != tools[j].count {
				return tools[i].count > tools[j].count
			}
			return tools[i].name < tools[j].name
		})
		if len(tools) > 8 {
			tools = tools[:8]
		}
		for _, t := range tools {
			width := t.count
			if width > 40 {
				width = 40
			}
			fmt.Printf("  %12s %s %d\n", t.name, strings.Repeat("|", width), t.count)
		}
	}

	fmt.Println()
	return nil
}

// loadOrAnalyze returns the cached replay, running analysis when none
// exists yet.
func loadOrAnalyze(s *store.Store, sessionID string) (*replay.SessionReplay, error) {
	r, err := s.Replay(sessionID)
	if err != nil {
		return nil, err
	}
	if r != nil {
		return r, nil
	}
	return analyzer.New(s).Analyze(sessionID)
}

func statString(r *replay.SessionReplay, key string) string {
	if s, ok := r.Statistics[key].(string); ok && s != "" {
		return s
	}
	return "?"
}
