// Package cli wires the vibe-replay commands: hook management, session
// capture, analysis, export, serving, and sharing.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zzhiyuann/vibe-replay/internal/config"
	"github.com/zzhiyuann/vibe-replay/internal/logger"
	"github.com/zzhiyuann/vibe-replay/internal/store"
)

// Version information set via ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	verbose    bool
	configFile string
	baseDir    string
)

var rootCmd = &cobra.Command{
	Use:   "vibe-replay",
	Short: "Capture, reflect, and share your AI coding sessions",
	Long: `Vibe Replay captures Claude Code sessions through hooks and turns
them into narrative replays: timeline phases, insights, key decisions,
and shareable session pages.

Configure in:
  - ~/.vibe-replay/config.yaml (global)
  - .vibe-replay/config.yaml (project-specific)`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vibe-replay %s\n", Version)
		fmt.Printf("  commit: %s\n", Commit)
		fmt.Printf("  built:  %s\n", Date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Override config file path")
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "", "Override storage directory")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads configuration and initializes logging from it.
func loadConfig() *config.Config {
	loader, err := config.NewLoader("")
	if err != nil {
		logger.InitQuiet()
		return config.DefaultConfig()
	}

	var cfg *config.Config
	if configFile != "" {
		cfg, err = loader.LoadFromFile(configFile)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}

	if verbose {
		_ = logger.Init("debug", cfg.Settings.LogFile)
	} else if cfg.Settings.LogLevel != "" {
		_ = logger.Init(cfg.Settings.LogLevel, cfg.Settings.LogFile)
	} else {
		logger.InitQuiet()
	}

	if baseDir != "" {
		cfg.Settings.BaseDir = baseDir
	}
	return cfg
}

// openStore opens the session store for the active configuration.
func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.BaseDir())
}
