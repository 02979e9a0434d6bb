package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/framebench/framebench/internal/model"
	"github.com/framebench/framebench/internal/storage"
)

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result content")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return tc.Text
}

func seedStore(t *testing.T) string {
	t.Helper()
	baseDir := t.TempDir()

	store, err := storage.New(baseDir)
	if err != nil {
		t.Fatal(err)
	}
	registry, err := storage.NewRegistry(baseDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := registry.GetOrCreate(1091500, "Cyberpunk 2077", ""); err != nil {
		t.Fatal(err)
	}

	metrics := &model.RunMetrics{
		FPS: model.FPSMetrics{Average: 60, Minimum: 50, Maximum: 70, Median: 60, P1Low: 55, P01Low: 52, FrameCount: 2000, DurationSeconds: 33.3},
		Summary: model.Summary{OverallRating: model.OverallExcellent, Issues: []string{}},
	}
	if _, err := store.SaveRun(1091500, "CachyOS_abc12345", "1920x1080", metrics, storage.SaveRunOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveRun(1091500, "CachyOS_abc12345", "1920x1080", metrics, storage.SaveRunOptions{}); err != nil {
		t.Fatal(err)
	}
	return baseDir
}

func TestHandleListGames(t *testing.T) {
	h := &handlers{baseDir: seedStore(t)}

	res, err := h.handleListGames(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("error result: %s", resultText(t, res))
	}

	text := resultText(t, res)
	if !strings.Contains(text, "Cyberpunk 2077") || !strings.Contains(text, "CachyOS_abc12345") {
		t.Errorf("list_games output missing expected entries:\n%s", text)
	}
}

func TestHandleGetRuns(t *testing.T) {
	h := &handlers{baseDir: seedStore(t)}

	res, err := h.handleGetRuns(context.Background(), callRequest(map[string]interface{}{
		"app_id":     float64(1091500),
		"resolution": "1920x1080",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("error result: %s", resultText(t, res))
	}

	var runs []model.Run
	if err := json.Unmarshal([]byte(resultText(t, res)), &runs); err != nil {
		t.Fatalf("output is not a run list: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}

	// Missing app_id is a tool-level error.
	res, _ = h.handleGetRuns(context.Background(), callRequest(nil))
	if !res.IsError {
		t.Error("missing app_id must produce an error result")
	}
}

func TestHandleAggregateRuns(t *testing.T) {
	h := &handlers{baseDir: seedStore(t)}

	res, err := h.handleAggregateRuns(context.Background(), callRequest(map[string]interface{}{
		"app_id":     float64(1091500),
		"resolution": "1920x1080",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("error result: %s", resultText(t, res))
	}

	var agg storage.AggregatedMetrics
	if err := json.Unmarshal([]byte(resultText(t, res)), &agg); err != nil {
		t.Fatal(err)
	}
	if agg.FPS.RunCount != 2 {
		t.Errorf("run_count = %d, want 2", agg.FPS.RunCount)
	}
	if agg.FPS.Average != 60 {
		t.Errorf("average = %v, want 60", agg.FPS.Average)
	}

	res, _ = h.handleAggregateRuns(context.Background(), callRequest(map[string]interface{}{
		"app_id":     float64(42),
		"resolution": "1920x1080",
	}))
	if !res.IsError {
		t.Error("aggregate over empty store must error")
	}
}

func TestHandleAnalyzeLog(t *testing.T) {
	dir := t.TempDir()
	h := &handlers{baseDir: dir}

	var b strings.Builder
	b.WriteString("fps,frametime\n")
	for i := 0; i < 2000; i++ {
		b.WriteString("60.0,16.67\n")
	}
	logPath := filepath.Join(dir, "run.csv")
	if err := os.WriteFile(logPath, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := h.handleAnalyzeLog(context.Background(), callRequest(map[string]interface{}{
		"path": logPath,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("error result: %s", resultText(t, res))
	}

	var payload struct {
		Metrics    model.RunMetrics `json:"metrics"`
		Validation struct {
			Valid bool `json:"valid"`
		} `json:"validation"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Metrics.FPS.Average < 59 || payload.Metrics.FPS.Average > 61 {
		t.Errorf("average = %v, want ~60", payload.Metrics.FPS.Average)
	}
	if !payload.Validation.Valid {
		t.Error("steady 33s run must validate")
	}

	res, _ = h.handleAnalyzeLog(context.Background(), callRequest(map[string]interface{}{
		"path": filepath.Join(dir, "missing.csv"),
	}))
	if !res.IsError {
		t.Error("missing file must produce an error result")
	}
}
