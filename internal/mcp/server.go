// Package mcp exposes locally stored benchmark results and the log
// analyzer as MCP tools over stdio, for AI-agent consumption.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP server instance.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server over the given results directory.
func NewServer(version, baseDir string) *Server {
	s := server.NewMCPServer("framebench", version, server.WithLogging())

	h := &handlers{baseDir: baseDir}
	registerTools(s, h)

	return &Server{mcpServer: s}
}

// Start runs the server in stdio mode (blocking).
func (s *Server) Start(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.mcpServer)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools adds all supported tools to the server.
func registerTools(s *server.MCPServer, h *handlers) {
	listTool := mcp.NewTool("list_games",
		mcp.WithDescription("List benchmarked games from the local result store, with the systems that have data for each."),
	)
	s.AddTool(listTool, h.handleListGames)

	runsTool := mcp.NewTool("get_runs",
		mcp.WithDescription("Get stored benchmark runs for a game. Returns full RunMetrics per run, newest system layouts and the legacy layout included."),
		mcp.WithNumber("app_id",
			mcp.Required(),
			mcp.Description("Steam App ID of the game (e.g. 1091500 for Cyberpunk 2077)"),
		),
		mcp.WithString("resolution",
			mcp.Description("Resolution filter, WxH (e.g. 1920x1080). Omit for all resolutions."),
		),
		mcp.WithString("system_id",
			mcp.Description("System ID filter (e.g. CachyOS_c21b11a6). Omit for all systems."),
		),
	)
	s.AddTool(runsTool, h.handleGetRuns)

	aggTool := mcp.NewTool("aggregate_runs",
		mcp.WithDescription("Average the FPS metrics across all runs of a game at one resolution. frame_count and duration are summed; run_count reports how many runs were combined."),
		mcp.WithNumber("app_id",
			mcp.Required(),
			mcp.Description("Steam App ID of the game"),
		),
		mcp.WithString("resolution",
			mcp.Required(),
			mcp.Description("Resolution, WxH (e.g. 1920x1080)"),
		),
		mcp.WithString("system_id",
			mcp.Description("System ID filter. Omit to aggregate across systems."),
		),
	)
	s.AddTool(aggTool, h.handleAggregateRuns)

	analyzeTool := mcp.NewTool("analyze_log",
		mcp.WithDescription("Parse and analyze a MangoHud CSV log without storing anything. Returns RunMetrics plus the validation verdict."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute path to the overlay CSV log file"),
		),
	)
	s.AddTool(analyzeTool, h.handleAnalyzeLog)
}
