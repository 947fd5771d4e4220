package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/zzhiyuann/vibe-replay/internal/archive"
	"github.com/zzhiyuann/vibe-replay/internal/render"
	"github.com/zzhiyuann/vibe-replay/internal/store"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session replay",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var replayCmd = &cobra.Command{
	Use:   "replay <session-id>",
	Short: "Generate HTML replay and open in browser",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "html", "Export format: html, md, json, or archive")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(replayCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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

	shortID := sessionID
	if len(shortID) > 12 {
		shortID = shortID[:12]
	}

	if exportFormat == "archive" {
		outPath := exportOutput
		if outPath == "" {
			outPath = archive.DefaultArchiveName(sessionID)
		}
		written, err := archive.Archive(s.SessionDir(sessionID), outPath)
		if err != nil {
			return err
		}
		fmt.Printf("Exported to: %s\n", written)
		return nil
	}

	r, err := loadOrAnalyze(s, sessionID)
	if err != nil {
		return err
	}
	events, err := s.Events(sessionID)
	if err != nil {
		return err
	}

	var content, ext string
	switch exportFormat {
	case "html":
		content, err = render.HTML(r, events, "")
		ext = ".html"
	case "md":
		content = render.Markdown(r, events)
		ext = ".md"
	case "json":
		content, err = render.JSON(r, events)
		ext = ".json"
	default:
		return fmt.Errorf("unknown format: %s (expected html, md, json, or archive)", exportFormat)
	}
	if err != nil {
		return err
	}

	outPath := exportOutput
	if outPath == "" {
		outPath = fmt.Sprintf("replay-%s%s", shortID, ext)
	}
	if err := os.WriteFile(outPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	fmt.Printf("Exported to: %s\n", outPath)
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
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

	html, err := renderSessionHTML(s, sessionID)
	if err != nil {
		return err
	}

	outPath := filepath.Join(os.TempDir(), fmt.Sprintf("vibe-replay-%s.html", sessionID))
	if err := os.WriteFile(outPath, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write replay: %w", err)
	}

	fmt.Printf("Replay saved to: %s\n", outPath)
	if err := openBrowser("file://" + outPath); err != nil {
		fmt.Printf("Open the file manually: %s\n", outPath)
	}
	return nil
}

func renderSessionHTML(s *store.Store, sessionID string) (string, error) {
	r, err := loadOrAnalyze(s, sessionID)
	if err != nil {
		return "", err
	}
	events, err := s.Events(sessionID)
	if err != nil {
		return "", err
	}
	return render.HTML(r, events, "")
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Start()
}
