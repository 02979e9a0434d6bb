package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/framebench/framebench/internal/model"
	"github.com/framebench/framebench/internal/parser"
)

// analyzeBottleneck decides whether the run was GPU- or CPU-limited.
// With GPU load samples the verdict is high confidence, except a balanced
// load which is medium; with CPU load only it degrades to medium/low.
func analyzeBottleneck(log *parser.ParsedLog) model.Bottleneck {
	avgFPS := 0.0
	if len(log.FPS) > 0 {
		avgFPS, _ = stats.Mean(log.FPS)
	}
	avgCPU := 0.0
	if len(log.CPULoad) > 0 {
		avgCPU, _ = stats.Mean(log.CPULoad)
	}
	avgGPU := 0.0
	if len(log.GPULoad) > 0 {
		avgGPU, _ = stats.Mean(log.GPULoad)
	}
	avgPower := 0.0
	if len(log.GPUPower) > 0 {
		avgPower, _ = stats.Mean(log.GPUPower)
	}

	b := model.Bottleneck{
		Type:        model.BottleneckUnknown,
		Confidence:  model.ConfidenceLow,
		CPUAvg:      round1(avgCPU),
		GPUAvg:      round1(avgGPU),
		GPUPowerAvg: round1(avgPower),
	}

	switch {
	case avgGPU > 0:
		switch {
		case avgGPU > 90 && avgCPU < 70:
			b.Type = model.BottleneckGPU
			b.Confidence = model.ConfidenceHigh
			b.Explanation = fmt.Sprintf("GPU at %.0f%% load", avgGPU)
		case avgCPU > 80 && avgGPU < 70:
			b.Type = model.BottleneckCPU
			b.Confidence = model.ConfidenceHigh
			b.Explanation = fmt.Sprintf("CPU at %.0f%% load", avgCPU)
		case avgGPU > 70 && avgCPU > 70:
			b.Type = model.BottleneckBalanced
			b.Confidence = model.ConfidenceMedium
			b.Explanation = fmt.Sprintf("both around %.0f%%/%.0f%%", avgGPU, avgCPU)
		default:
			b.Type = model.BottleneckNone
			b.Confidence = model.ConfidenceHigh
			b.Explanation = "neither CPU nor GPU saturated"
		}

	case avgCPU > 0:
		switch {
		case avgCPU > 80:
			b.Type = model.BottleneckCPU
			b.Confidence = model.ConfidenceMedium
			b.Explanation = fmt.Sprintf("CPU at %.0f%% (GPU load unavailable)", avgCPU)
		case avgCPU < 50 && avgFPS > 100:
			b.Type = model.BottleneckNone
			b.Confidence = model.ConfidenceMedium
			b.Explanation = fmt.Sprintf("CPU only at %.0f%%, FPS very high", avgCPU)
		default:
			b.Explanation = "GPU load unavailable"
		}

	default:
		b.Explanation = "no load telemetry in log"
	}

	return b
}

func sortDescending(s []float64) {
	sort.Sort(sort.Reverse(sort.Float64Slice(s)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
