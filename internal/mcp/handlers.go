package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/framebench/framebench/internal/analyzer"
	"github.com/framebench/framebench/internal/model"
	"github.com/framebench/framebench/internal/parser"
	"github.com/framebench/framebench/internal/storage"
	"github.com/framebench/framebench/internal/validate"
)

// handlers serve the MCP tools against one result store.
type handlers struct {
	baseDir string
}

func (h *handlers) openStore() (*storage.Storage, error) {
	return storage.New(h.baseDir)
}

// handleListGames lists registry entries plus the systems with data.
func (h *handlers) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := h.openStore()
	if err != nil {
		return errResult(fmt.Sprintf("open store: %v", err)), nil
	}
	registry, err := storage.NewRegistry(h.baseDir)
	if err != nil {
		return errResult(fmt.Sprintf("open registry: %v", err)), nil
	}
	// Pick up game folders that predate the registry file.
	registry.SyncFromFolders()

	type gameInfo struct {
		storage.GameEntry
		Systems []string `json:"systems"`
	}

	var games []gameInfo
	for _, entry := range registry.List() {
		data, err := store.GetAllSystemsData(entry.SteamAppID)
		if err != nil {
			continue
		}
		systems := make([]string, 0, len(data))
		for id := range data {
			systems = append(systems, id)
		}
		games = append(games, gameInfo{GameEntry: entry, Systems: systems})
	}

	jsonData, err := json.MarshalIndent(games, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

// handleGetRuns returns stored runs for a game.
func (h *handlers) handleGetRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	appID, ok := intArg(args, "app_id")
	if !ok {
		return errResult("app_id is required"), nil
	}
	resolution := stringArg(args, "resolution", "")
	systemID := stringArg(args, "system_id", "")

	store, err := h.openStore()
	if err != nil {
		return errResult(fmt.Sprintf("open store: %v", err)), nil
	}

	var payload any
	if resolution != "" {
		runs, err := store.GetRuns(appID, resolution, systemID)
		if err != nil {
			return errResult(fmt.Sprintf("load runs: %v", err)), nil
		}
		payload = runs
	} else {
		all, err := store.GetAllResolutions(appID, systemID)
		if err != nil {
			return errResult(fmt.Sprintf("load runs: %v", err)), nil
		}
		payload = all
	}

	jsonData, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

// handleAggregateRuns averages FPS metrics across runs.
func (h *handlers) handleAggregateRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	appID, ok := intArg(args, "app_id")
	if !ok {
		return errResult("app_id is required"), nil
	}
	resolution := stringArg(args, "resolution", "")
	if resolution == "" {
		return errResult("resolution is required"), nil
	}
	systemID := stringArg(args, "system_id", "")

	store, err := h.openStore()
	if err != nil {
		return errResult(fmt.Sprintf("open store: %v", err)), nil
	}
	runs, err := store.GetRuns(appID, resolution, systemID)
	if err != nil {
		return errResult(fmt.Sprintf("load runs: %v", err)), nil
	}
	if len(runs) == 0 {
		return errResult(fmt.Sprintf("no runs for app %d at %s", appID, resolution)), nil
	}

	agg := storage.AggregateRuns(runs)
	jsonData, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

// handleAnalyzeLog parses and analyzes a log file without persisting.
func (h *handlers) handleAnalyzeLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	path := stringArg(args, "path", "")
	if path == "" {
		return errResult("path is required"), nil
	}

	parsed, err := parser.ParseFile(path)
	if err != nil {
		return errResult(fmt.Sprintf("parse log: %v", err)), nil
	}
	metrics, err := analyzer.Analyze(parsed)
	if err != nil {
		return errResult(fmt.Sprintf("analyze log: %v", err)), nil
	}
	validation := validate.Run(parsed.Raw, validate.Options{FPS: &metrics.FPS})
	targets := model.EvaluateTargets(metrics.FPS, nil)

	payload := map[string]any{
		"metrics":     metrics,
		"validation":  validation,
		"fps_targets": targets,
	}
	jsonData, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errResult(fmt.Sprintf("json marshal failed: %v", err)), nil
	}
	return newTextResult(string(jsonData)), nil
}

// getArgs safely extracts the arguments map from a CallToolRequest.
// Returns an empty map if Arguments is nil or not a map.
func getArgs(request mcp.CallToolRequest) map[string]interface{} {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// stringArg extracts a string argument with a default value.
func stringArg(args map[string]interface{}, key, defaultVal string) string {
	val, ok := args[key]
	if !ok || val == nil {
		return defaultVal
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return defaultVal
	}
	return s
}

// intArg extracts a numeric argument (JSON numbers arrive as float64).
func intArg(args map[string]interface{}, key string) (int, bool) {
	val, ok := args[key]
	if !ok || val == nil {
		return 0, false
	}
	f, ok := val.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// newTextResult creates a successful MCP tool result with text content.
func newTextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}

// errResult creates an MCP tool error result (IsError=true).
// This is returned as a tool-level error, not a transport-level JSON-RPC error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: msg,
			},
		},
	}
}
