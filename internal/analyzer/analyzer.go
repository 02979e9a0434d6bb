// Package analyzer turns a parsed frame-time stream into RunMetrics:
// FPS statistics, stutter classification, FPS drop detection, frame
// pacing and bottleneck analysis.
//
// All entry points are pure functions over the input vectors; nothing
// here touches the filesystem or external state.
package analyzer

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/framebench/framebench/internal/model"
	"github.com/framebench/framebench/internal/parser"
)

// ErrNoFrames is returned when the retained frame vector is empty,
// e.g. when every sample fell outside the parser's sanity window.
var ErrNoFrames = errors.New("no frametime data")

const (
	// stutterThresholdMs marks a frame as a stutter/transition event.
	stutterThresholdMs = 50.0
	// transitionWindow is how many frames on each side must look like
	// normal gameplay for a spike to count as a scene transition.
	transitionWindow = 5
	// transitionContextMs is the "normal gameplay" mean for the window.
	transitionContextMs = 20.0
	// sequenceThresholdMs marks frames that form stutter sequences.
	sequenceThresholdMs = 33.0
	// suddenChangeMs is the frame-to-frame delta counted as a sudden change.
	suddenChangeMs = 10.0
	// dropWindow is the rolling-average window for FPS drop detection.
	dropWindow = 60
	// dropThresholdPct is how far below the rolling average counts as a drop.
	dropThresholdPct = 20.0

	maxEvents    = 20
	maxSequences = 10
	maxDrops     = 10
)

// Analyze computes the full RunMetrics for a parsed log.
func Analyze(log *parser.ParsedLog) (*model.RunMetrics, error) {
	if len(log.Frametimes) == 0 {
		return nil, ErrNoFrames
	}

	ft := log.Frametimes

	// Classify transition spikes once up front; every statistic below
	// picks the correct sample vector from this single pass.
	cls := classify(ft)

	fps := fpsMetrics(cls)
	stutter := stutterMetrics(ft, cls)
	pacing := framePacing(cls, fps)
	drops := detectDrops(ft)
	hardware := hardwareMetrics(log)
	summary := model.DeriveSummary(fps, stutter.StutterRating)

	return &model.RunMetrics{
		FPS:         fps,
		Stutter:     stutter,
		FramePacing: pacing,
		FPSDrops:    drops,
		Hardware:    hardware,
		Summary:     summary,
		Resolution:  log.Resolution,
	}, nil
}

// classification is the single up-front transition/stutter split.
type classification struct {
	events       []model.StutterEvent // all frames > stutterThresholdMs, in order
	transitions  int
	stutters     int
	gameplay     []float64 // frametimes with transition spikes removed
	gameplayFPS  []float64
	meanAll      float64
	transitionAt map[int]bool
}

// classify walks the frame vector once, marking each spike above the
// stutter threshold as either a scene transition (normal gameplay on
// both sides) or real gameplay stutter. Spikes too close to either edge
// lack context and are never transitions.
func classify(ft []float64) classification {
	mean, _ := stats.Mean(ft)

	cls := classification{
		meanAll:      mean,
		transitionAt: make(map[int]bool),
	}

	for i, v := range ft {
		if v > stutterThresholdMs {
			ev := model.StutterEvent{
				Frame:       i,
				FrametimeMs: round2(v),
				Severity:    round2(v / mean),
				Type:        "stutter",
			}
			if isTransitionSpike(ft, i) {
				ev.Type = "transition"
				cls.transitionAt[i] = true
				cls.transitions++
			} else {
				cls.stutters++
			}
			cls.events = append(cls.events, ev)
		}
	}

	cls.gameplay = make([]float64, 0, len(ft))
	cls.gameplayFPS = make([]float64, 0, len(ft))
	for i, v := range ft {
		if cls.transitionAt[i] {
			continue
		}
		cls.gameplay = append(cls.gameplay, v)
		cls.gameplayFPS = append(cls.gameplayFPS, 1000.0/v)
	}

	return cls
}

// isTransitionSpike checks whether frame i is an isolated scene load:
// five frames before and after must both average below the normal
// gameplay threshold.
func isTransitionSpike(ft []float64, i int) bool {
	if i < transitionWindow || i >= len(ft)-transitionWindow {
		return false
	}

	var before, after float64
	for _, v := range ft[i-transitionWindow : i] {
		before += v
	}
	for _, v := range ft[i+1 : i+1+transitionWindow] {
		after += v
	}
	before /= transitionWindow
	after /= transitionWindow

	return before < transitionContextMs && after < transitionContextMs
}

// fpsMetrics computes the FPS block over the gameplay vector.
func fpsMetrics(cls classification) model.FPSMetrics {
	gft := cls.gameplay
	gfps := cls.gameplayFPS
	if len(gft) == 0 {
		return model.FPSMetrics{}
	}

	meanFt, _ := stats.Mean(gft)
	minFPS, _ := stats.Min(gfps)
	maxFPS, _ := stats.Max(gfps)
	median, _ := stats.Median(gfps)

	var stdDev float64
	if len(gfps) > 1 {
		stdDev, _ = stats.SampleStandardDeviation(gfps)
	}

	var total float64
	for _, v := range gft {
		total += v
	}

	return model.FPSMetrics{
		Average:         round2(1000.0 / meanFt),
		Minimum:         round2(minFPS),
		Maximum:         round2(maxFPS),
		Median:          round2(median),
		P1Low:           round2(percentileLow(gft, 1.0)),
		P01Low:          round2(percentileLow(gft, 0.1)),
		StdDev:          round2(stdDev),
		FrameCount:      len(gft),
		DurationSeconds: round2(total / 1000.0),
	}
}

// percentileLow computes the integral-method x% low FPS: the FPS value
// the run stays above for (100-x)% of wall-clock time. Sorted worst
// first, frametimes are accumulated until they cover x% of total time;
// the frametime at the cutoff converts to FPS.
func percentileLow(ft []float64, percentile float64) float64 {
	if len(ft) == 0 {
		return 0
	}

	// Descending: worst frames first.
	sorted := make([]float64, len(ft))
	copy(sorted, ft)
	sortDescending(sorted)

	var total float64
	for _, v := range sorted {
		total += v
	}
	target := total * percentile / 100.0

	var cumulative float64
	for _, v := range sorted {
		cumulative += v
		if cumulative >= target {
			return 1000.0 / v
		}
	}
	return 1000.0 / sorted[len(sorted)-1]
}

// stutterMetrics builds the stutter block from the classification plus
// sequence and sudden-change detection over the full vector.
func stutterMetrics(ft []float64, cls classification) model.StutterMetrics {
	var stdAll float64
	if len(ft) > 1 {
		stdAll, _ = stats.SampleStandardDeviation(ft)
	}

	var fullIndex float64
	if cls.meanAll > 0 {
		fullIndex = stdAll / cls.meanAll * 100
	}

	var gameplayIndex float64
	if len(cls.gameplay) > 1 {
		gm, _ := stats.Mean(cls.gameplay)
		gs, _ := stats.SampleStandardDeviation(cls.gameplay)
		if gm > 0 {
			gameplayIndex = gs / gm * 100
		}
	}

	sequences := detectSequences(ft)

	events := cls.events
	if len(events) > maxEvents {
		events = events[:maxEvents]
	}
	if events == nil {
		events = []model.StutterEvent{}
	}
	seqOut := sequences
	if len(seqOut) > maxSequences {
		seqOut = seqOut[:maxSequences]
	}
	if seqOut == nil {
		seqOut = []model.StutterSequence{}
	}

	return model.StutterMetrics{
		StutterIndex:         round2(fullIndex),
		GameplayStutterIndex: round2(gameplayIndex),
		StutterRating: model.RateGameplayStutter(
			cls.stutters, len(sequences), len(cls.gameplay)),
		TransitionCount:      cls.transitions,
		GameplayStutterCount: cls.stutters,
		EventCount:           cls.transitions + cls.stutters,
		Events:               events,
		SequenceCount:        len(sequences),
		Sequences:            seqOut,
		SuddenChangeCount:    countSuddenChanges(ft),
		Variance:             round2(stdAll * stdAll),
	}
}

// detectSequences finds runs of 3+ consecutive frames above the
// sequence threshold.
func detectSequences(ft []float64) []model.StutterSequence {
	var sequences []model.StutterSequence
	start := -1
	var sum, max float64
	var count int

	flush := func(end int) {
		if count >= 3 {
			sequences = append(sequences, model.StutterSequence{
				StartFrame:   start,
				EndFrame:     end,
				Length:       count,
				AvgFrametime: round2(sum / float64(count)),
				MaxFrametime: round2(max),
			})
		}
		start, sum, max, count = -1, 0, 0, 0
	}

	for i, v := range ft {
		if v > sequenceThresholdMs {
			if start < 0 {
				start = i
			}
			sum += v
			if v > max {
				max = v
			}
			count++
		} else if start >= 0 {
			flush(i - 1)
		}
	}
	if start >= 0 {
		flush(len(ft) - 1)
	}

	return sequences
}

// countSuddenChanges counts frame-to-frame deltas above the threshold.
func countSuddenChanges(ft []float64) int {
	count := 0
	for i := 1; i < len(ft); i++ {
		if math.Abs(ft[i]-ft[i-1]) > suddenChangeMs {
			count++
		}
	}
	return count
}

// detectDrops finds sustained dips below 80% of the rolling-average FPS
// using a 60-frame window.
func detectDrops(ft []float64) model.FPSDrops {
	if len(ft) < dropWindow {
		return model.FPSDrops{Drops: []model.FPSDrop{}}
	}

	rolling := make([]float64, 0, len(ft)-dropWindow+1)
	var windowSum float64
	for i := 0; i < dropWindow; i++ {
		windowSum += ft[i]
	}
	rolling = append(rolling, 1000.0/(windowSum/dropWindow))
	for i := dropWindow; i < len(ft); i++ {
		windowSum += ft[i] - ft[i-dropWindow]
		rolling = append(rolling, 1000.0/(windowSum/dropWindow))
	}

	var avg float64
	for _, v := range rolling {
		avg += v
	}
	avg /= float64(len(rolling))
	threshold := avg * (1 - dropThresholdPct/100)

	var drops []model.FPSDrop
	inDrop := false
	dropStart := 0
	totalFrames := 0

	emit := func(start, end int) {
		window := rolling[start:end]
		min, _ := stats.Min(window)
		sum := 0.0
		for _, v := range window {
			sum += v
		}
		drops = append(drops, model.FPSDrop{
			StartFrame:     start,
			EndFrame:       end,
			DurationFrames: end - start,
			MinFPS:         round2(min),
			AvgFPSDuring:   round2(sum / float64(len(window))),
			DropPercent:    round1((1 - min/avg) * 100),
		})
		totalFrames += end - start
	}

	for i, v := range rolling {
		if v < threshold && !inDrop {
			inDrop = true
			dropStart = i
		} else if v >= threshold && inDrop {
			inDrop = false
			emit(dropStart, i)
		}
	}

	out := drops
	if len(out) > maxDrops {
		out = out[:maxDrops]
	}
	if out == nil {
		out = []model.FPSDrop{}
	}

	return model.FPSDrops{
		DropCount:               len(drops),
		TotalDropDurationFrames: totalFrames,
		Drops:                   out,
	}
}

// framePacing analyzes frame-to-frame deltas over the gameplay vector
// and rates consistency against the already-computed FPS block.
func framePacing(cls classification, fps model.FPSMetrics) model.FramePacing {
	gft := cls.gameplay
	if len(gft) < 2 {
		return model.FramePacing{}
	}

	deltas := make([]float64, 0, len(gft)-1)
	var sum, max float64
	for i := 1; i < len(gft); i++ {
		d := math.Abs(gft[i] - gft[i-1])
		deltas = append(deltas, d)
		sum += d
		if d > max {
			max = d
		}
	}
	avgDelta := sum / float64(len(deltas))

	meanFt, _ := stats.Mean(gft)
	var score float64
	if meanFt > 0 {
		score = avgDelta / meanFt * 100
	}

	var cv float64
	if fps.Average > 0 {
		cv = fps.StdDev / fps.Average * 100
	}

	var stability float64
	if fps.Average > 0 {
		stability = fps.P1Low / fps.Average * 100
	}

	return model.FramePacing{
		AvgDeltaMs:        round2(avgDelta),
		MaxDeltaMs:        round2(max),
		ConsistencyScore:  round2(score),
		ConsistencyRating: model.RateConsistency(cv, fps.Average, fps.P1Low),
		CVPercent:         round1(cv),
		FPSStabilityPct:   round1(stability),
	}
}

// hardwareMetrics aggregates the optional telemetry channels and runs
// the bottleneck analysis.
func hardwareMetrics(log *parser.ParsedLog) model.Hardware {
	hw := model.Hardware{
		GPUTemp:  channelStats(log.GPUTemp),
		CPUTemp:  channelStats(log.CPUTemp),
		GPULoad:  channelStats(log.GPULoad),
		CPULoad:  channelStats(log.CPULoad),
		GPUPower: channelStats(log.GPUPower),
		GPUClock: channelStats(log.GPUClock),
		VRAM:     channelStats(log.VRAM),
	}
	hw.Bottleneck = analyzeBottleneck(log)
	return hw
}

func channelStats(samples []float64) *model.ChannelStats {
	if len(samples) == 0 {
		return nil
	}
	min, _ := stats.Min(samples)
	max, _ := stats.Max(samples)
	mean, _ := stats.Mean(samples)
	return &model.ChannelStats{
		Min: round1(min),
		Avg: round1(mean),
		Max: round1(max),
	}
}
