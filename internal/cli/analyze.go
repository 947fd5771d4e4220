package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zzhiyuann/vibe-replay/internal/analyzer"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <session-id>",
	Short: "Run or re-run analysis on a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var wisdomLimit int

var wisdomCmd = &cobra.Command{
	Use:   "wisdom",
	Short: "Show aggregated learnings across all sessions",
	RunE:  runWisdom,
}

func init() {
	wisdomCmd.Flags().IntVarP(&wisdomLimit, "limit", "n", 50, "Sessions to consider")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(wisdomCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	r, err := analyzer.New(s).Analyze(sessionID)
	if err != nil {
		return err
	}

	fmt.Println("Analysis complete.")
	fmt.Printf("  Phases: %d | Insights: %d | Decisions: %d | Turning points: %d\n",
		len(r.Timeline), len(r.Insights),
		len(r.KeyDecisionIndices), len(r.TurningPointIndices))
	return nil
}

func runWisdom(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	insights, err := analyzer.New(s).AggregateLearnings(wisdomLimit)
	if err != nil {
		return err
	}

	if len(insights) == 0 {
		fmt.Println("No insights found yet. Capture some sessions first!")
		return nil
	}

	fmt.Printf("Aggregated wisdom from up to %d sessions\n", wisdomLimit)
	fmt.Printf("%d unique insight(s) found\n", len(insights))
	for _, insight := range insights {
		fmt.Printf("\n  [%s] %s\n", insightLabels[insight.InsightType], insight.Title)
		fmt.Printf("  %s\n", insight.Description)
		fmt.Printf("  Confidence: %.0f%%\n", insight.Confidence*100)
	}
	return nil
}
