// Package mcpserver exposes captured sessions to MCP clients over
// stdio: searching history, listing recent sessions, and retrieving
// summaries and aggregated learnings.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zzhiyuann/vibe-replay/internal/analyzer"
	"github.com/zzhiyuann/vibe-replay/internal/replay"
	"github.com/zzhiyuann/vibe-replay/internal/store"
)

// Server wraps an MCP stdio server over a session store.
type Server struct {
	store     *store.Store
	analyzer  *analyzer.Analyzer
	mcpServer *server.MCPServer
}

// New creates an MCP server bound to the given store.
func New(s *store.Store, version string) *Server {
	srv := &Server{
		store:    s,
		analyzer: analyzer.New(s),
	}

	srv.mcpServer = server.NewMCPServer(
		"vibe-replay",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	srv.registerTools()
	return srv
}

// Serve runs the server over stdin/stdout until the client disconnects.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	searchTool := mcp.NewTool("search_sessions",
		mcp.WithDescription("Search past coding sessions by keyword, date, or project."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search keyword")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 10)")),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchSessions)

	learningsTool := mcp.NewTool("get_learnings",
		mcp.WithDescription("Get aggregated learnings and patterns from past sessions."),
		mcp.WithNumber("limit", mcp.Description("Max sessions to consider (default 30)")),
	)
	s.mcpServer.AddTool(learningsTool, s.handleGetLearnings)

	summaryTool := mcp.NewTool("get_session_summary",
		mcp.WithDescription("Get detailed summary of a specific session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID (full or partial)")),
	)
	s.mcpServer.AddTool(summaryTool, s.handleGetSessionSummary)

	recentTool := mcp.NewTool("list_recent_sessions",
		mcp.WithDescription("List the most recent captured sessions."),
		mcp.WithNumber("limit", mcp.Description("Number of sessions (default 10)")),
	)
	s.mcpServer.AddTool(recentTool, s.handleListRecentSessions)
}

func (s *Server) handleSearchSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	limit := request.GetInt("limit", 10)

	sessions, err := s.store.SearchSessions(query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}

	results := make([]map[string]any, 0, len(sessions))
	for _, meta := range sessions {
		results = append(results, map[string]any{
			"session_id":  meta.SessionID,
			"project":     meta.Project,
			"start_time":  meta.StartTime.Format(time.RFC3339),
			"event_count": meta.EventCount,
			"summary":     meta.Summary,
		})
	}
	return jsonResult(results)
}

func (s *Server) handleGetLearnings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 30)

	insights, err := s.analyzer.AggregateLearnings(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Aggregation failed: %v", err)), nil
	}

	results := make([]map[string]any, 0, len(insights))
	for _, insight := range insights {
		results = append(results, map[string]any{
			"type":        string(insight.InsightType),
			"title":       insight.Title,
			"description": insight.Description,
			"confidence":  insight.Confidence,
		})
	}
	return jsonResult(results)
}

func (s *Server) handleGetSessionSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	partial := request.GetString("session_id", "")
	if partial == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	sessionID, err := s.store.ResolveSessionID(partial)
	if err != nil {
		return mcp.NewToolResultError("Session not found"), nil
	}

	r, err := s.store.Replay(sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load replay: %v", err)), nil
	}
	if r == nil {
		r, err = s.analyzer.Analyze(sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
		}
	}

	phases := make([]map[string]any, 0, len(r.Timeline))
	for _, phase := range r.Timeline {
		phases = append(phases, map[string]any{
			"phase":       string(phase.Phase),
			"event_count": phase.EventCount,
			"summary":     phase.Summary,
		})
	}
	insights := make([]map[string]any, 0, len(r.Insights))
	for _, insight := range r.Insights {
		insights = append(insights, map[string]any{
			"type":        string(insight.InsightType),
			"title":       insight.Title,
			"description": insight.Description,
		})
	}

	return jsonResult(map[string]any{
		"session_id":     r.Metadata.SessionID,
		"project":        r.Metadata.Project,
		"summary":        r.Metadata.Summary,
		"start_time":     r.Metadata.StartTime.Format(time.RFC3339),
		"duration":       durationHuman(r),
		"event_count":    r.Metadata.EventCount,
		"phases":         phases,
		"insights":       insights,
		"files_modified": r.Metadata.FilesModified,
		"tools_used":     r.Metadata.ToolsUsed,
	})
}

func (s *Server) handleListRecentSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 10)

	sessions, err := s.store.ListSessions("", limit, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Listing failed: %v", err)), nil
	}

	results := make([]map[string]any, 0, len(sessions))
	for _, meta := range sessions {
		results = append(results, map[string]any{
			"session_id":       meta.SessionID,
			"project":          meta.Project,
			"start_time":       meta.StartTime.Format(time.RFC3339),
			"event_count":      meta.EventCount,
			"summary":          meta.Summary,
			"duration_seconds": meta.DurationSeconds,
		})
	}
	return jsonResult(results)
}

func durationHuman(r *replay.SessionReplay) string {
	if s, ok := r.Statistics["duration_human"].(string); ok && s != "" {
		return s
	}
	return "?"
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
