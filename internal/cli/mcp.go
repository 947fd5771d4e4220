package cli

import (
	"github.com/spf13/cobra"

	"github.com/zzhiyuann/vibe-replay/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server for session queries over stdio",
	Long: `Run an MCP server exposing captured sessions to MCP clients.

Tools: search_sessions, get_learnings, get_session_summary,
list_recent_sessions.

Add to ~/.claude/settings.json under mcpServers to let Claude Code
query past sessions.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	return mcpserver.New(s, Version).Serve()
}
