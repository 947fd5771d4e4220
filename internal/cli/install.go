package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zzhiyuann/vibe-replay/internal/hooks"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install capture hooks into Claude Code",
	RunE:  runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove capture hooks from Claude Code",
	RunE:  runUninstall,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether capture hooks are installed",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(statusCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	loadConfig()

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	manager, err := hooks.NewManager("")
	if err != nil {
		return err
	}

	result, err := manager.Install(executable)
	if err != nil {
		return err
	}

	fmt.Println("Hooks installed successfully.")
	fmt.Printf("  Capture hook: %s\n", result.CaptureHook)
	fmt.Printf("  Stop hook:    %s\n", result.StopHook)
	fmt.Printf("  Settings:     %s\n", result.SettingsPath)
	fmt.Println()
	fmt.Println("Your Claude Code sessions will now be captured automatically.")
	fmt.Println("Run 'vibe-replay sessions' to see captured sessions.")
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	loadConfig()

	manager, err := hooks.NewManager("")
	if err != nil {
		return err
	}

	removed, err := manager.Uninstall()
	if err != nil {
		return err
	}

	fmt.Printf("Hooks removed. (%d hook(s) removed)\n", removed)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	loadConfig()

	manager, err := hooks.NewManager("")
	if err != nil {
		return err
	}

	status, err := manager.Check()
	if err != nil {
		return err
	}

	if status.Installed {
		fmt.Println("Vibe Replay hooks are installed.")
		for _, hook := range status.Hooks {
			fmt.Printf("  %s: %s\n", hook.Type, hook.Command)
		}
	} else {
		fmt.Println("Vibe Replay hooks are not installed.")
		fmt.Println("Run 'vibe-replay install' to set up.")
	}
	return nil
}
