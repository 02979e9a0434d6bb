package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/framebench/framebench/internal/model"
	"github.com/framebench/framebench/internal/overlay"
	"github.com/framebench/framebench/internal/storage"
	"github.com/framebench/framebench/internal/sysinfo"
)

// fakeLauncher optionally writes a finished overlay log after a delay,
// standing in for the game + overlay producing a recording.
type fakeLauncher struct {
	logDir   string
	delay    time.Duration
	content  string
	launched bool
	fail     bool
}

func (f *fakeLauncher) Launch(ctx context.Context, appID int) error {
	if f.fail {
		return errors.New("steam refused")
	}
	f.launched = true
	if f.content == "" {
		return nil
	}
	go func() {
		time.Sleep(f.delay)
		os.WriteFile(filepath.Join(f.logDir, "game_2024.csv"), []byte(f.content), 0o644)
	}()
	return nil
}

type fakeLaunchOptions struct {
	setCalls     int
	restoreCalls int
	setErr       error
}

func (f *fakeLaunchOptions) Set(string) error { f.setCalls++; return f.setErr }
func (f *fakeLaunchOptions) Restore() error   { f.restoreCalls++; return nil }

type noToolsRunner struct{}

func (noToolsRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return nil, errors.New("not found")
}

func validLogContent(frames int) string {
	var b strings.Builder
	b.WriteString("fps,frametime\n")
	for i := 0; i < frames; i++ {
		b.WriteString("60.0,16.67\n")
	}
	return b.String()
}

// testDeps builds a session wired against temp dirs and fakes.
func testDeps(t *testing.T, launcher *fakeLauncher) (Config, Deps, *fakeLaunchOptions) {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.New(filepath.Join(dir, "results"))
	if err != nil {
		t.Fatal(err)
	}
	registry, err := storage.NewRegistry(store.BaseDir())
	if err != nil {
		t.Fatal(err)
	}

	overlayPath := filepath.Join(dir, "MangoHud.conf")
	os.WriteFile(overlayPath, []byte("fps_limit=60\n"), 0o644)

	logDir := filepath.Join(dir, "logs")
	os.MkdirAll(logDir, 0o755)
	launcher.logDir = logDir

	cfg := DefaultConfig()
	cfg.AppID = 1091500
	cfg.GameName = "Cyberpunk 2077"
	cfg.Resolution = "1920x1080"
	cfg.OutputDir = logDir
	cfg.PollInterval = 10 * time.Millisecond
	cfg.StableSamples = 2
	cfg.Timeout = 5 * time.Second
	cfg.Quiet = true
	cfg.KeepLogCopy = false

	lo := &fakeLaunchOptions{}
	deps := Deps{
		Storage:       store,
		Registry:      registry,
		Sysinfo:       sysinfo.NewCollectorWithRunner(noToolsRunner{}),
		Overlay:       overlay.NewManager(overlayPath),
		Launcher:      launcher,
		LaunchOptions: lo,
	}
	return cfg, deps, lo
}

func TestSessionHappyPath(t *testing.T) {
	launcher := &fakeLauncher{delay: 30 * time.Millisecond, content: validLogContent(2000)}
	cfg, deps, lo := testDeps(t, launcher)

	s := New(cfg, deps)
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.State != StateResults {
		t.Errorf("state = %q, want results", result.State)
	}
	if result.Run == nil || result.Run.RunNumber != 1 {
		t.Fatalf("run = %+v, want run 1", result.Run)
	}
	if result.Run.Resolution != "1920x1080" {
		t.Errorf("resolution = %q", result.Run.Resolution)
	}
	if result.Validation == nil || !result.Validation.Valid {
		t.Errorf("validation = %+v, want valid", result.Validation)
	}
	if !launcher.launched {
		t.Error("game not launched")
	}
	if lo.setCalls != 1 || lo.restoreCalls == 0 {
		t.Errorf("launch options set=%d restore=%d", lo.setCalls, lo.restoreCalls)
	}

	// Overlay config restored.
	data, _ := os.ReadFile(deps.Overlay.ConfigPath())
	if string(data) != "fps_limit=60\n" {
		t.Errorf("overlay config not restored: %q", data)
	}

	// Run persisted where expected.
	runs, err := deps.Storage.GetRuns(cfg.AppID, "1920x1080", result.SystemID)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("persisted runs = %d, want 1", len(runs))
	}
	if runs[0].Metrics.Summary.OverallRating != model.OverallExcellent {
		t.Errorf("overall = %q", runs[0].Metrics.Summary.OverallRating)
	}
}

func TestSessionLaunchFailure(t *testing.T) {
	launcher := &fakeLauncher{fail: true}
	cfg, deps, lo := testDeps(t, launcher)

	s := New(cfg, deps)
	_, err := s.Run(context.Background())
	if CodeOf(err) != CodeLaunchFailed {
		t.Errorf("code = %q, want LAUNCH_FAILED", CodeOf(err))
	}

	// Restoration ran despite the failure.
	data, _ := os.ReadFile(deps.Overlay.ConfigPath())
	if string(data) != "fps_limit=60\n" {
		t.Error("overlay config not restored after launch failure")
	}
	if lo.restoreCalls == 0 {
		t.Error("launch options not restored after launch failure")
	}
	if s.State() != StateIdle {
		t.Errorf("state = %q, want idle", s.State())
	}
}

func TestSessionTimeoutWaitingForRecording(t *testing.T) {
	launcher := &fakeLauncher{} // never writes a log
	cfg, deps, _ := testDeps(t, launcher)
	cfg.Timeout = 100 * time.Millisecond

	s := New(cfg, deps)
	_, err := s.Run(context.Background())
	if CodeOf(err) != CodeTimeoutRecording {
		t.Errorf("code = %q, want TIMEOUT_WAITING_FOR_RECORDING", CodeOf(err))
	}
}

// TestSessionCancellation: a cancel is observed at the next poll and
// triggers restoration.
func TestSessionCancellation(t *testing.T) {
	launcher := &fakeLauncher{} // never writes a log
	cfg, deps, lo := testDeps(t, launcher)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	s := New(cfg, deps)
	_, err := s.Run(ctx)
	if CodeOf(err) != CodeCancelled {
		t.Errorf("code = %q, want CANCELLED", CodeOf(err))
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancel took %v, want within a poll interval", elapsed)
	}
	if lo.restoreCalls == 0 {
		t.Error("restoration skipped on cancel")
	}
}

// TestSessionUnparseableLog: a log with zero retained frames surfaces
// an analysis failure, not a parser failure.
func TestSessionUnparseableLog(t *testing.T) {
	launcher := &fakeLauncher{
		delay:   20 * time.Millisecond,
		content: "frametime\n500\n600\n700\n",
	}
	cfg, deps, _ := testDeps(t, launcher)

	s := New(cfg, deps)
	_, err := s.Run(context.Background())
	if CodeOf(err) != CodeAnalysisFailed {
		t.Errorf("code = %q, want ANALYSIS_FAILED", CodeOf(err))
	}
}

func TestSessionOverlayLockContention(t *testing.T) {
	launcher := &fakeLauncher{delay: 20 * time.Millisecond, content: validLogContent(1500)}
	cfg, deps, _ := testDeps(t, launcher)

	// Another session holds the overlay lock.
	other := overlay.NewManager(deps.Overlay.ConfigPath())
	if err := other.Acquire(overlay.Config{OutputFolder: cfg.OutputDir}); err != nil {
		t.Fatal(err)
	}
	defer other.Release()

	s := New(cfg, deps)
	_, err := s.Run(context.Background())
	if CodeOf(err) != CodePreflightLocked {
		t.Errorf("code = %q, want PREFLIGHT_OVERLAY_LOCKED", CodeOf(err))
	}
}

func TestSessionLaunchOptionsBestEffort(t *testing.T) {
	launcher := &fakeLauncher{delay: 20 * time.Millisecond, content: validLogContent(1500)}
	cfg, deps, lo := testDeps(t, launcher)
	lo.setErr = errors.New("localconfig locked by steam")

	s := New(cfg, deps)
	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("launch-options failure must not abort the session: %v", err)
	}
	found := false
	for _, d := range result.Diagnostics {
		if strings.Contains(d, "launch options") {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want launch options warning", result.Diagnostics)
	}
}

func TestPreflight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GPUPCIAddress = "0000:03:00.0"

	probes := PreflightProbes{
		LookPath:  func(string) (string, error) { return "/usr/bin/mangohud", nil },
		SteamPath: func() (string, error) { return "/usr/bin/steam", nil },
		PCIExists: func(string) bool { return true },
	}
	checks := Preflight(context.Background(), cfg, probes)
	if !PreflightOK(checks) {
		t.Errorf("checks = %+v, want all ok", checks)
	}
	if len(checks) != 3 {
		t.Errorf("checks = %d, want 3 (overlay, steam, gpu)", len(checks))
	}

	probes.LookPath = func(string) (string, error) { return "", fmt.Errorf("not found") }
	probes.PCIExists = func(string) bool { return false }
	checks = Preflight(context.Background(), cfg, probes)
	if PreflightOK(checks) {
		t.Error("want failures")
	}
	codes := map[string]bool{}
	for _, c := range checks {
		if !c.OK {
			codes[c.Code] = true
		}
	}
	if !codes[CodePreflightOverlayMissing] || !codes[CodePreflightBadGPU] {
		t.Errorf("failure codes = %v", codes)
	}
}

func TestWatcherStability(t *testing.T) {
	dir := t.TempDir()
	w := &watcher{dir: dir, interval: 5 * time.Millisecond, stableSamples: 3}

	pre := w.snapshot()
	path := filepath.Join(dir, "log.csv")

	// Grow the file for a while, then stop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		f, _ := os.Create(path)
		for i := 0; i < 5; i++ {
			fmt.Fprintln(f, "16.67")
			f.Sync()
			time.Sleep(10 * time.Millisecond)
		}
		f.Close()
	}()

	deadline := time.Now().Add(2 * time.Second)
	got, err := w.awaitNewLog(context.Background(), deadline, pre)
	if err != nil {
		t.Fatalf("awaitNewLog: %v", err)
	}
	if got != path {
		t.Errorf("log = %q, want %q", got, path)
	}

	if err := w.awaitStable(context.Background(), deadline, path); err != nil {
		t.Fatalf("awaitStable: %v", err)
	}
	<-done
}

// TestWatcherIgnoresPreexisting: a log present before the snapshot never
// triggers Recording.
func TestWatcherIgnoresPreexisting(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.csv")
	os.WriteFile(old, []byte("x"), 0o644)

	w := &watcher{dir: dir, interval: 5 * time.Millisecond, stableSamples: 2}
	pre := w.snapshot()

	deadline := time.Now().Add(60 * time.Millisecond)
	if _, err := w.awaitNewLog(context.Background(), deadline, pre); !errors.Is(err, errTimeout) {
		t.Errorf("err = %v, want timeout (old log must be ignored)", err)
	}

	fresh := filepath.Join(dir, "fresh.csv")
	os.WriteFile(fresh, []byte("y"), 0o644)
	deadline = time.Now().Add(1 * time.Second)
	got, err := w.awaitNewLog(context.Background(), deadline, pre)
	if err != nil || got != fresh {
		t.Errorf("got %q, %v; want fresh log", got, err)
	}
}
