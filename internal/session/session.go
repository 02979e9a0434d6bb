// Package session drives one benchmark recording through its state
// machine:
//
//	Idle -> Setup -> Launching -> Waiting -> Recording -> Analyzing -> Results
//	{any non-terminal} -> Restoring -> Idle on error or cancel
//
// External state (overlay config, Steam launch options) is modified
// only in Setup and restored on every exit path. Restoration failures
// are recorded as diagnostics and never mask the primary error.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/framebench/framebench/internal/analyzer"
	"github.com/framebench/framebench/internal/model"
	"github.com/framebench/framebench/internal/output"
	"github.com/framebench/framebench/internal/overlay"
	"github.com/framebench/framebench/internal/parser"
	"github.com/framebench/framebench/internal/storage"
	"github.com/framebench/framebench/internal/sysinfo"
	"github.com/framebench/framebench/internal/validate"
)

// State names one phase of the benchmark state machine.
type State string

const (
	StateIdle      State = "idle"
	StateSetup     State = "setup"
	StateLaunching State = "launching"
	StateWaiting   State = "waiting"
	StateRecording State = "recording"
	StateAnalyzing State = "analyzing"
	StateResults   State = "results"
	StateRestoring State = "restoring"
)

// Config parameterizes one benchmark session.
type Config struct {
	AppID    int
	GameName string

	// Resolution in "WxH" form. Empty means take it from the log.
	Resolution string

	// DurationSeconds is the user-requested minimum recording length.
	// 0 means manual stop only.
	DurationSeconds int

	ShowHUD       bool
	ManualLogging bool

	// GPUPCIAddress pins the overlay to a device in multi-GPU systems.
	// Empty selects the first discrete GPU automatically.
	GPUPCIAddress string

	// OutputDir is the watched log directory. Defaults to
	// {storage base}/benchmark_session.
	OutputDir string

	// KeepLogCopy stores the raw CSV next to the run record.
	KeepLogCopy bool

	PollInterval  time.Duration
	StableSamples int
	Timeout       time.Duration

	Quiet bool
}

// DefaultConfig returns a Config with the standard timings: 500 ms
// polling, three stability samples (1.5 s), 1800 s session timeout.
func DefaultConfig() Config {
	return Config{
		ShowHUD:       true,
		ManualLogging: true,
		KeepLogCopy:   true,
		PollInterval:  500 * time.Millisecond,
		StableSamples: 3,
		Timeout:       1800 * time.Second,
	}
}

// GameLauncher starts a game. The spawned process is not tracked.
type GameLauncher interface {
	Launch(ctx context.Context, appID int) error
}

// LaunchOptionsManager scopes the game's launch options.
type LaunchOptionsManager interface {
	Set(value string) error
	Restore() error
}

// Deps are the session's collaborators, injectable for tests.
type Deps struct {
	Storage       *storage.Storage
	Registry      *storage.Registry
	Sysinfo       *sysinfo.Collector
	Overlay       *overlay.Manager
	Launcher      GameLauncher
	LaunchOptions LaunchOptionsManager
	Progress      *output.Progress
	Logger        *zerolog.Logger
}

// Result is what a finished (or failed) session reports.
type Result struct {
	State       State                `json:"state"`
	SystemID    string               `json:"system_id,omitempty"`
	LogPath     string               `json:"log_path,omitempty"`
	Run         *model.Run           `json:"run,omitempty"`
	Validation  *validate.Result     `json:"validation,omitempty"`
	Targets     *model.TargetSummary `json:"fps_targets,omitempty"`
	Diagnostics []string             `json:"diagnostics,omitempty"`
}

// Session runs one benchmark. A Session is single-use.
type Session struct {
	cfg      Config
	deps     Deps
	state    State
	progress *output.Progress
	log      zerolog.Logger
}

// New creates a Session. Missing optional deps get defaults.
func New(cfg Config, deps Deps) *Session {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.StableSamples <= 0 {
		cfg.StableSamples = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1800 * time.Second
	}
	if deps.Progress == nil {
		deps.Progress = output.NewProgress(!cfg.Quiet)
	}
	if deps.Sysinfo == nil {
		deps.Sysinfo = sysinfo.NewCollector()
	}
	log := zerolog.Nop()
	if deps.Logger != nil {
		log = *deps.Logger
	}
	return &Session{
		cfg:      cfg,
		deps:     deps,
		state:    StateIdle,
		progress: deps.Progress,
		log:      log,
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

func (s *Session) setState(next State) {
	s.log.Debug().Str("from", string(s.state)).Str("to", string(next)).Msg("state transition")
	s.state = next
}

// Run executes the full session. The context cancels the directory
// watcher within one polling interval; the analyzer itself is not
// cancellable, so a cancel during Analyzing completes the analysis and
// discards the result.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	result := &Result{}
	deadline := time.Now().Add(s.cfg.Timeout)

	// --- Setup ---
	s.setState(StateSetup)
	s.progress.Log("Gathering system information...")
	snapshot := s.deps.Sysinfo.Collect(ctx)
	fp := sysinfo.FingerprintFromSnapshot(snapshot)

	systemID, err := s.deps.Storage.SaveFingerprint(s.cfg.AppID, fp, snapshot)
	if err != nil {
		return s.fail(result, sessionErr(CodeStorageFailed, err))
	}
	result.SystemID = systemID

	if _, err := s.deps.Registry.GetOrCreate(s.cfg.AppID, s.cfg.GameName, ""); err != nil {
		return s.fail(result, sessionErr(CodeStorageFailed, err))
	}

	outputDir := s.cfg.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(s.deps.Storage.BaseDir(), "benchmark_session")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return s.fail(result, sessionErr(CodeStorageFailed, err))
	}

	pci := s.cfg.GPUPCIAddress
	if pci == "" {
		pci = s.deps.Sysinfo.DiscreteGPUPCI(ctx)
	}

	// The overlay's internal timer is imprecise; pad the configured
	// duration by one second so the log never falls short.
	logDuration := s.cfg.DurationSeconds
	if logDuration > 0 {
		logDuration++
	}

	overlayCfg := overlay.Config{
		OutputFolder:  outputDir,
		ShowHUD:       s.cfg.ShowHUD,
		ManualLogging: s.cfg.ManualLogging,
		LogDurationS:  logDuration,
		PCIDevice:     pci,
	}
	s.progress.Log("Configuring overlay logging...")
	if err := s.deps.Overlay.Acquire(overlayCfg); err != nil {
		if errors.Is(err, overlay.ErrLocked) {
			return s.fail(result, sessionErr(CodePreflightLocked, err))
		}
		return s.fail(result, sessionErr(CodeStorageFailed, err))
	}
	// External state is mutated from here on: every exit path below
	// runs the restoration phase.
	defer s.restore(result)

	if s.deps.LaunchOptions != nil {
		if err := s.deps.LaunchOptions.Set("MANGOHUD=1 %command%"); err != nil {
			// Best-effort: the user can set launch options by hand.
			s.progress.Log("Warning: could not set launch options: %v", err)
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("set launch options: %v", err))
		}
	}

	w := &watcher{
		dir:           outputDir,
		interval:      s.cfg.PollInterval,
		stableSamples: s.cfg.StableSamples,
	}
	preexisting := w.snapshot()

	// --- Launching ---
	s.setState(StateLaunching)
	s.progress.Log("Launching %s (app %d)...", s.cfg.GameName, s.cfg.AppID)
	if err := s.deps.Launcher.Launch(ctx, s.cfg.AppID); err != nil {
		return s.fail(result, sessionErr(CodeLaunchFailed, err))
	}

	// --- Waiting ---
	s.setState(StateWaiting)
	if s.cfg.ManualLogging {
		s.progress.Log("Waiting for recording to start (Shift+F2 in game)...")
	} else {
		s.progress.Log("Waiting for recording to start...")
	}
	logPath, err := w.awaitNewLog(ctx, deadline, preexisting)
	if err != nil {
		return s.fail(result, s.watchErr(err, CodeTimeoutRecording))
	}
	result.LogPath = logPath

	// --- Recording ---
	s.setState(StateRecording)
	s.progress.Log("Recording started: %s", filepath.Base(logPath))
	if err := w.awaitStable(ctx, deadline, logPath); err != nil {
		return s.fail(result, s.watchErr(err, CodeTimeoutCompletion))
	}

	// --- Analyzing ---
	s.setState(StateAnalyzing)
	s.progress.Log("Recording complete, analyzing...")

	parsed, err := parser.ParseFile(logPath)
	if err != nil {
		return s.fail(result, sessionErr(CodeAnalysisFailed, err))
	}
	metrics, err := analyzer.Analyze(parsed)
	if err != nil {
		return s.fail(result, sessionErr(CodeAnalysisFailed, err))
	}

	// The analysis is done; a cancel issued meanwhile discards it.
	if ctx.Err() != nil {
		return s.fail(result, sessionErr(CodeCancelled, ctx.Err()))
	}

	validation := validate.Run(parsed.Raw, validate.Options{FPS: &metrics.FPS})
	result.Validation = validation
	targets := model.EvaluateTargets(metrics.FPS, nil)
	result.Targets = &targets

	resolution := s.cfg.Resolution
	if resolution == "" {
		resolution = parsed.Resolution
	}
	if resolution == "" {
		resolution = "unknown"
	}

	opts := storage.SaveRunOptions{Frametimes: parsed.Frametimes}
	if s.cfg.KeepLogCopy {
		opts.LogPath = logPath
	}
	run, err := s.deps.Storage.SaveRun(s.cfg.AppID, systemID, resolution, metrics, opts)
	if err != nil {
		return s.fail(result, sessionErr(CodeStorageFailed, err))
	}
	result.Run = run

	// --- Results ---
	s.setState(StateResults)
	s.progress.Log("Run %d saved (%s, %s): %.1f FPS avg, %s overall",
		run.RunNumber, resolution, systemID,
		metrics.FPS.Average, metrics.Summary.OverallRating)
	result.State = StateResults
	return result, nil
}

// fail records the terminal error; restoration runs via the deferred
// restore call.
func (s *Session) fail(result *Result, err error) (*Result, error) {
	s.log.Error().Err(err).Str("state", string(s.state)).Msg("session failed")
	result.State = s.state
	return result, err
}

// watchErr maps watcher outcomes: deadline expiry gets the phase code,
// a context cancel becomes CANCELLED.
func (s *Session) watchErr(err error, timeoutCode string) error {
	if errors.Is(err, errTimeout) {
		return sessionErr(timeoutCode, err)
	}
	return sessionErr(CodeCancelled, err)
}

// restore releases the overlay config and launch options. Failures are
// appended to the diagnostics; they never replace the primary error.
func (s *Session) restore(result *Result) {
	prior := s.state
	s.setState(StateRestoring)
	s.progress.Log("Restoring overlay config and launch options...")

	if err := s.deps.Overlay.Release(); err != nil {
		s.log.Warn().Err(err).Msg("overlay restore failed")
		result.Diagnostics = append(result.Diagnostics,
			fmt.Sprintf("restore overlay config: %v", err))
	}
	if s.deps.LaunchOptions != nil {
		if err := s.deps.LaunchOptions.Restore(); err != nil {
			s.log.Warn().Err(err).Msg("launch options restore failed")
			result.Diagnostics = append(result.Diagnostics,
				fmt.Sprintf("restore launch options: %v", err))
		}
	}

	if prior == StateResults {
		s.state = StateIdle
		result.State = StateResults
	} else {
		s.setState(StateIdle)
	}
}
