// Package validate applies quality gates to an analyzed benchmark run.
// Validation never blocks local storage; it gates the upload path.
// Error codes are stable identifiers consumed by the upload layer.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/framebench/framebench/internal/model"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"   // blocks upload
	SeverityWarning Severity = "warning" // upload allowed with notice
	SeverityInfo    Severity = "info"    // informational only
)

// Stable issue codes.
const (
	CodeNoData                = "NO_DATA"
	CodeDurationTooShort      = "DURATION_TOO_SHORT"
	CodeTooFewFrames          = "TOO_FEW_FRAMES"
	CodeFPSOutOfRange         = "FPS_OUT_OF_RANGE"
	CodeLoadingScreens        = "LOADING_SCREENS_DETECTED"
	CodeUnknownOverlayVersion = "UNKNOWN_MANGOHUD_VERSION"
)

// Quality gate thresholds.
const (
	MinDurationSeconds = 30
	MinFrameCount      = 1000
	MinFPS             = 1
	MaxFPS             = 1000
	LoadingScreenGapMs = 5000

	maxReportedGaps = 10
)

// knownMangoHudVersions is the overlay-version allowlist.
var knownMangoHudVersions = []string{
	"0.7.0", "0.7.1", "0.7.2", "0.7.3",
	"0.8.0", "0.8.1",
}

// Issue is a single validation finding.
type Issue struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Details  map[string]any `json:"details,omitempty"`
}

// Gap is a loading-screen-sized frametime.
type Gap struct {
	Frame      int     `json:"frame"`
	DurationMs float64 `json:"duration_ms"`
	DurationS  float64 `json:"duration_s"`
}

// LoadingScreens summarizes detected loading-screen gaps.
type LoadingScreens struct {
	Count           int     `json:"count"`
	TotalDurationMs float64 `json:"total_duration_ms"`
}

// Metadata carries the basic run facts alongside the verdict.
type Metadata struct {
	FrameCount      int             `json:"frame_count"`
	DurationSeconds float64         `json:"duration_seconds"`
	FPSAvg          float64         `json:"fps_avg"`
	LoadingScreens  *LoadingScreens `json:"loading_screens,omitempty"`
}

// Result is the validation verdict: valid is false iff any error-level
// issue is present.
type Result struct {
	Valid    bool     `json:"valid"`
	Issues   []Issue  `json:"issues"`
	Metadata Metadata `json:"metadata"`
}

// Errors returns the error-level issues.
func (r *Result) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns the warning-level issues.
func (r *Result) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

func (r *Result) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.Valid = false
	}
}

// Options carries the optional validation inputs.
type Options struct {
	FPS            *model.FPSMetrics // pre-computed FPS summary, if any
	OverlayVersion string            // MangoHud version from the log, if known
}

// Run validates a frametime vector. The vector should be the raw parsed
// frametimes (before the analyzer sanity window) so that loading-screen
// gaps are visible.
func Run(frametimes []float64, opts Options) *Result {
	result := &Result{Valid: true, Issues: []Issue{}}

	if len(frametimes) == 0 {
		result.add(Issue{
			Code:     CodeNoData,
			Message:  "no frametime data present",
			Severity: SeverityError,
		})
		return result
	}

	frameCount := len(frametimes)
	var durationMs float64
	for _, ft := range frametimes {
		durationMs += ft
	}
	durationSeconds := durationMs / 1000.0

	fpsAvg := 0.0
	var fpsMin, fpsMax *float64
	if opts.FPS != nil {
		fpsAvg = opts.FPS.Average
		fpsMin = &opts.FPS.Minimum
		fpsMax = &opts.FPS.Maximum
	} else if durationMs > 0 {
		fpsAvg = 1000.0 / (durationMs / float64(frameCount))
	}

	result.Metadata = Metadata{
		FrameCount:      frameCount,
		DurationSeconds: round2(durationSeconds),
		FPSAvg:          round2(fpsAvg),
	}

	checkDuration(result, durationSeconds)
	checkFrameCount(result, frameCount)
	checkFPSRange(result, fpsAvg, fpsMin, fpsMax)
	checkGaps(result, frametimes)
	checkOverlayVersion(result, opts.OverlayVersion)

	return result
}

func checkDuration(r *Result, durationSeconds float64) {
	if durationSeconds < MinDurationSeconds {
		r.add(Issue{
			Code:     CodeDurationTooShort,
			Message:  fmt.Sprintf("benchmark too short: %.1fs (min. %ds)", durationSeconds, MinDurationSeconds),
			Severity: SeverityError,
			Details: map[string]any{
				"actual":   durationSeconds,
				"required": MinDurationSeconds,
			},
		})
	}
}

func checkFrameCount(r *Result, frameCount int) {
	if frameCount < MinFrameCount {
		r.add(Issue{
			Code:     CodeTooFewFrames,
			Message:  fmt.Sprintf("too few frames: %d (min. %d)", frameCount, MinFrameCount),
			Severity: SeverityError,
			Details: map[string]any{
				"actual":   frameCount,
				"required": MinFrameCount,
			},
		})
	}
}

func checkFPSRange(r *Result, fpsAvg float64, fpsMin, fpsMax *float64) {
	var problems []string

	if fpsAvg < MinFPS {
		problems = append(problems, fmt.Sprintf("avg FPS too low: %.1f", fpsAvg))
	} else if fpsAvg > MaxFPS {
		problems = append(problems, fmt.Sprintf("avg FPS unusually high: %.1f", fpsAvg))
	}
	if fpsMin != nil && *fpsMin < MinFPS {
		problems = append(problems, fmt.Sprintf("min FPS invalid: %.1f", *fpsMin))
	}
	if fpsMax != nil && *fpsMax > MaxFPS {
		problems = append(problems, fmt.Sprintf("max FPS unusually high: %.1f", *fpsMax))
	}

	if len(problems) > 0 {
		details := map[string]any{
			"fps_avg":        fpsAvg,
			"expected_range": fmt.Sprintf("%d-%d", MinFPS, MaxFPS),
		}
		if fpsMin != nil {
			details["fps_min"] = *fpsMin
		}
		if fpsMax != nil {
			details["fps_max"] = *fpsMax
		}
		r.add(Issue{
			Code:     CodeFPSOutOfRange,
			Message:  strings.Join(problems, "; "),
			Severity: SeverityWarning,
			Details:  details,
		})
	}
}

// checkGaps flags frametimes above the loading-screen threshold.
func checkGaps(r *Result, frametimes []float64) {
	var gaps []Gap
	var totalMs float64
	for i, ft := range frametimes {
		if ft > LoadingScreenGapMs {
			gaps = append(gaps, Gap{
				Frame:      i,
				DurationMs: round2(ft),
				DurationS:  round2(ft / 1000.0),
			})
			totalMs += ft
		}
	}

	if len(gaps) == 0 {
		return
	}

	reported := gaps
	if len(reported) > maxReportedGaps {
		reported = reported[:maxReportedGaps]
	}

	r.add(Issue{
		Code:     CodeLoadingScreens,
		Message:  fmt.Sprintf("%d loading screen(s) detected (%.1fs total)", len(gaps), totalMs/1000),
		Severity: SeverityInfo,
		Details: map[string]any{
			"gap_count":    len(gaps),
			"total_gap_ms": round2(totalMs),
			"gaps":         reported,
		},
	})
	r.Metadata.LoadingScreens = &LoadingScreens{
		Count:           len(gaps),
		TotalDurationMs: round2(totalMs),
	}
}

func checkOverlayVersion(r *Result, version string) {
	if version == "" {
		return
	}
	normalized := strings.TrimSpace(strings.TrimPrefix(version, "v"))
	for _, known := range knownMangoHudVersions {
		if normalized == known {
			return
		}
	}
	r.add(Issue{
		Code:     CodeUnknownOverlayVersion,
		Message:  fmt.Sprintf("unknown MangoHud version: %s", version),
		Severity: SeverityWarning,
		Details: map[string]any{
			"version":        version,
			"known_versions": knownMangoHudVersions,
		},
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
