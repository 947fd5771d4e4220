package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zzhiyuann/vibe-replay/internal/capture"
	"github.com/zzhiyuann/vibe-replay/internal/hooks"
	"github.com/zzhiyuann/vibe-replay/internal/logger"
)

var captureStop bool

var captureCmd = &cobra.Command{
	Use:    "capture",
	Short:  "Capture a hook event from Claude Code (reads JSON from stdin)",
	Hidden: true,
	Run:    runCapture,
}

func init() {
	captureCmd.Flags().BoolVar(&captureStop, "stop", false, "Record a session-end event")
	rootCmd.AddCommand(captureCmd)
}

// runCapture never fails: an error in the capture path must not break
// the Claude Code session that triggered the hook.
func runCapture(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to read hook input")
		return
	}

	payload := capture.ParsePayload(input)
	if captureStop {
		payload.HookEventName = string(hooks.Stop)
	}

	event := capture.EventFromPayload(payload, cfg.Capture)

	s, err := openStore(cfg)
	if err != nil {
		logger.Debug().Err(err).Msg("Failed to open store")
		return
	}
	defer func() { _ = s.Close() }()

	if err := s.AppendEvent(&event); err != nil {
		logger.Debug().Err(err).Msg("Failed to append event")
		return
	}

	logger.Debug().
		Str("session", event.SessionID).
		Str("type", string(event.EventType)).
		Str("tool", event.ToolName).
		Msg("Captured event")
}
