// framebench — Linux gaming benchmark tool.
//
// Configures the MangoHud overlay, launches a Steam game, waits for the
// recording to complete, and turns the frame-time log into a normalized,
// queryable performance record under ~/benchmark_results.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/framebench/framebench/internal/analyzer"
	"github.com/framebench/framebench/internal/model"
	"github.com/framebench/framebench/internal/output"
	"github.com/framebench/framebench/internal/overlay"
	"github.com/framebench/framebench/internal/parser"
	"github.com/framebench/framebench/internal/session"
	"github.com/framebench/framebench/internal/steam"
	"github.com/framebench/framebench/internal/storage"
	"github.com/framebench/framebench/internal/validate"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "framebench",
		Short: "Linux gaming benchmark tool",
		Long: `framebench — frametime analysis and benchmark orchestration for Linux.

Drives a MangoHud-instrumented benchmark session for a Steam game and
stores normalized performance records (FPS statistics, stutter and
consistency ratings, bottleneck analysis) per game, system, and
resolution. Results are kept forever; new hardware gets its own folder.`,
		Version: version,
	}

	rootCmd.AddCommand(
		newBenchCmd(),
		newAnalyzeCmd(),
		newPreflightCmd(),
		newGamesCmd(),
		newRunsCmd(),
		newMCPCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newBenchCmd builds the `bench` command: run one benchmark session.
func newBenchCmd() *cobra.Command {
	var (
		gameName   string
		resolution string
		duration   int
		noHUD      bool
		autoLog    bool
		gpuPCI     string
		baseDir    string
		noLogCopy  bool
		quiet      bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "bench <app-id>",
		Short: "Run a benchmark session for a Steam game",
		Long: `Run one benchmark session: configure the overlay, launch the game,
wait for the recording (Shift+F2 in game with manual logging), analyze
the log and store the run.

The overlay config and the game's Steam launch options are restored on
every exit path, including Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid app id %q", args[0])
			}
			if gameName == "" {
				gameName = "Steam App " + args[0]
			}

			cfg := session.DefaultConfig()
			cfg.AppID = appID
			cfg.GameName = gameName
			cfg.Resolution = resolution
			cfg.DurationSeconds = duration
			cfg.ShowHUD = !noHUD
			cfg.ManualLogging = !autoLog
			cfg.GPUPCIAddress = gpuPCI
			cfg.KeepLogCopy = !noLogCopy
			cfg.Quiet = quiet

			if baseDir == "" {
				baseDir, err = storage.DefaultBaseDir()
				if err != nil {
					return err
				}
			}

			// Pre-flight before any external state is touched.
			checks := session.Preflight(cmd.Context(), cfg, session.DefaultProbes(steam.FindBinary))
			for _, c := range checks {
				if !c.OK {
					return fmt.Errorf("pre-flight failed: %s (%s)", c.Detail, c.Code)
				}
			}

			store, err := storage.New(baseDir)
			if err != nil {
				return err
			}
			registry, err := storage.NewRegistry(baseDir)
			if err != nil {
				return err
			}

			overlayPath, err := overlay.DefaultConfigPath()
			if err != nil {
				return err
			}

			launcher, err := steam.NewLauncher()
			if err != nil {
				return err
			}

			deps := session.Deps{
				Storage:  store,
				Registry: registry,
				Overlay:  overlay.NewManager(overlayPath),
				Launcher: launcher,
			}

			// Launch options are best-effort: a missing localconfig.vdf
			// only means the user sets MANGOHUD=1 %command% by hand.
			if root, err := steam.FindRoot(); err == nil {
				if lo, err := steam.NewLaunchOptions(root, appID); err == nil {
					deps.LaunchOptions = lo
				}
			}

			if verbose {
				logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
					With().Timestamp().Logger()
				deps.Logger = &logger
			}

			// Ctrl-C cancels the watcher at its next poll and triggers
			// restoration.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := session.New(cfg, deps).Run(ctx)
			if result != nil {
				for _, d := range result.Diagnostics {
					fmt.Fprintf(os.Stderr, "warning: %s\n", d)
				}
			}
			if err != nil {
				return err
			}

			return output.WriteJSON(result, "-")
		},
	}

	cmd.Flags().StringVar(&gameName, "name", "", "Display name for the game (defaults to the app id)")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "Benchmark resolution WxH (default: read from the log)")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "Minimum recording duration in seconds (0 = manual stop)")
	cmd.Flags().BoolVar(&noHUD, "no-hud", false, "Hide the on-screen HUD while logging")
	cmd.Flags().BoolVar(&autoLog, "auto-log", false, "Start logging automatically instead of waiting for Shift+F2")
	cmd.Flags().StringVar(&gpuPCI, "gpu-pci", "", "Pin the overlay to a GPU PCI address (multi-GPU systems)")
	cmd.Flags().StringVarP(&baseDir, "output", "o", "", "Results directory (default ~/benchmark_results)")
	cmd.Flags().BoolVar(&noLogCopy, "no-log-copy", false, "Do not copy the raw CSV next to the run record")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

// newAnalyzeCmd builds the `analyze` command: offline log analysis.
func newAnalyzeCmd() *cobra.Command {
	var (
		outPath        string
		overlayVersion string
	)

	cmd := &cobra.Command{
		Use:   "analyze <log.csv>",
		Short: "Analyze an overlay log without running a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parser.ParseFile(args[0])
			if err != nil {
				return err
			}
			metrics, err := analyzer.Analyze(parsed)
			if err != nil {
				return err
			}
			validation := validate.Run(parsed.Raw, validate.Options{
				FPS:            &metrics.FPS,
				OverlayVersion: overlayVersion,
			})
			targets := model.EvaluateTargets(metrics.FPS, nil)

			payload := map[string]any{
				"metrics":     metrics,
				"validation":  validation,
				"fps_targets": targets,
			}
			return output.WriteJSON(payload, outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "-", "Output file path (- for stdout)")
	cmd.Flags().StringVar(&overlayVersion, "overlay-version", "", "MangoHud version to validate against the allowlist")
	return cmd
}

// newPreflightCmd builds the `preflight` command.
func newPreflightCmd() *cobra.Command {
	var gpuPCI string

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check benchmark requirements without touching any state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := session.DefaultConfig()
			cfg.GPUPCIAddress = gpuPCI

			checks := session.Preflight(cmd.Context(), cfg, session.DefaultProbes(steam.FindBinary))
			if err := output.WriteJSON(checks, "-"); err != nil {
				return err
			}
			if !session.PreflightOK(checks) {
				return fmt.Errorf("pre-flight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&gpuPCI, "gpu-pci", "", "GPU PCI address to validate")
	return cmd
}

// newGamesCmd builds the `games` command: registry listing.
func newGamesCmd() *cobra.Command {
	var (
		baseDir string
		sync    bool
	)

	cmd := &cobra.Command{
		Use:   "games",
		Short: "List registered games",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveBaseDir(baseDir)
			if err != nil {
				return err
			}
			registry, err := storage.NewRegistry(dir)
			if err != nil {
				return err
			}
			if sync {
				added, err := registry.SyncFromFolders()
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "synced %d game(s) from folders\n", added)
			}
			return output.WriteJSON(registry.List(), "-")
		},
	}

	cmd.Flags().StringVarP(&baseDir, "output", "o", "", "Results directory (default ~/benchmark_results)")
	cmd.Flags().BoolVar(&sync, "sync", false, "Rebuild registry entries from existing game folders")
	return cmd
}

// newRunsCmd builds the `runs` command: stored run queries.
func newRunsCmd() *cobra.Command {
	var (
		baseDir    string
		resolution string
		systemID   string
		aggregate  bool
	)

	cmd := &cobra.Command{
		Use:   "runs <app-id>",
		Short: "Show stored runs for a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid app id %q", args[0])
			}
			dir, err := resolveBaseDir(baseDir)
			if err != nil {
				return err
			}
			store, err := storage.New(dir)
			if err != nil {
				return err
			}

			if aggregate {
				if resolution == "" {
					return fmt.Errorf("--aggregate requires --resolution")
				}
				runs, err := store.GetRuns(appID, resolution, systemID)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					return fmt.Errorf("no runs for app %d at %s", appID, resolution)
				}
				return output.WriteJSON(storage.AggregateRuns(runs), "-")
			}

			if resolution != "" {
				runs, err := store.GetRuns(appID, resolution, systemID)
				if err != nil {
					return err
				}
				return output.WriteJSON(runs, "-")
			}

			data, err := store.GetAllSystemsData(appID)
			if err != nil {
				return err
			}
			return output.WriteJSON(data, "-")
		},
	}

	cmd.Flags().StringVarP(&baseDir, "output", "o", "", "Results directory (default ~/benchmark_results)")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "Resolution filter WxH")
	cmd.Flags().StringVar(&systemID, "system", "", "System ID filter")
	cmd.Flags().BoolVar(&aggregate, "aggregate", false, "Average FPS metrics across the selected runs")
	return cmd
}

func resolveBaseDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return storage.DefaultBaseDir()
}
