package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zzhiyuann/vibe-replay/internal/analyzer"
)

var (
	sessionsProject string
	sessionsLimit   int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List captured sessions",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsProject, "project", "p", "", "Filter by project name")
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Number of sessions to show")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	sessions, err := s.ListSessions(sessionsProject, sessionsLimit, 0)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions captured yet.")
		fmt.Println("Make sure hooks are installed: vibe-replay install")
		return nil
	}

	fmt.Printf("%-22s %-18s %-10s %7s %6s  %s\n",
		"SESSION", "WHEN", "DURATION", "EVENTS", "FILES", "SUMMARY")
	for _, meta := range sessions {
		id := meta.SessionID
		if len(id) > 20 {
			id = id[:18] + ".."
		}
		duration := "?"
		if meta.DurationSeconds > 0 {
			duration = analyzer.FormatDuration(meta.DurationSeconds)
		}
		summary := meta.Summary
		if len(summary) > 48 {
			summary = summary[:45] + "..."
		}
		if summary == "" {
			summary = "-"
		}
		fmt.Printf("%-22s %-18s %-10s %7d %6d  %s\n",
			id,
			humanize.Time(meta.StartTime),
			duration,
			meta.EventCount,
			len(meta.FilesModified),
			summary,
		)
	}
	return nil
}
