package storage

import (
	"math"

	"github.com/framebench/framebench/internal/model"
)

// AggregatedFPS is the FPS block averaged across runs, with the frame
// and duration totals summed.
type AggregatedFPS struct {
	Average         float64 `json:"average"`
	Minimum         float64 `json:"minimum"`
	Maximum         float64 `json:"maximum"`
	Median          float64 `json:"median"`
	P1Low           float64 `json:"p1_low"`
	P01Low          float64 `json:"p01_low"`
	FrameCount      int     `json:"frame_count"`
	DurationSeconds float64 `json:"duration_seconds"`
	RunCount        int     `json:"run_count"`
}

// AggregatedMetrics combines multiple runs of one (game, system,
// resolution). FPS keys are arithmetic means; the stutter, pacing,
// hardware and summary blocks come from the most recent run since
// ratings and event lists do not combine meaningfully.
type AggregatedMetrics struct {
	FPS         AggregatedFPS        `json:"fps"`
	Stutter     model.StutterMetrics `json:"stutter"`
	FramePacing model.FramePacing    `json:"frame_pacing"`
	Hardware    model.Hardware       `json:"hardware"`
	Summary     model.Summary        `json:"summary"`
}

// AggregateRuns averages the FPS metrics across runs. Aggregating a
// single run reproduces that run's FPS keys with run_count 1.
func AggregateRuns(runs []model.Run) AggregatedMetrics {
	if len(runs) == 0 {
		return AggregatedMetrics{}
	}

	n := float64(len(runs))
	agg := AggregatedFPS{RunCount: len(runs)}
	for _, run := range runs {
		fps := run.Metrics.FPS
		agg.Average += fps.Average
		agg.Minimum += fps.Minimum
		agg.Maximum += fps.Maximum
		agg.Median += fps.Median
		agg.P1Low += fps.P1Low
		agg.P01Low += fps.P01Low
		agg.FrameCount += fps.FrameCount
		agg.DurationSeconds += fps.DurationSeconds
	}
	agg.Average = round2(agg.Average / n)
	agg.Minimum = round2(agg.Minimum / n)
	agg.Maximum = round2(agg.Maximum / n)
	agg.Median = round2(agg.Median / n)
	agg.P1Low = round2(agg.P1Low / n)
	agg.P01Low = round2(agg.P01Low / n)
	agg.DurationSeconds = round2(agg.DurationSeconds)

	latest := runs[len(runs)-1].Metrics
	return AggregatedMetrics{
		FPS:         agg,
		Stutter:     latest.Stutter,
		FramePacing: latest.FramePacing,
		Hardware:    latest.Hardware,
		Summary:     latest.Summary,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
