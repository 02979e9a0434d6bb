// Package model defines all data types for benchmark run records.
// These types are serialized to JSON and consumed by the report renderer
// and the upload layer. Schema version: 1.0.0
package model

// Rating grades a single quality dimension of a run.
type Rating string

const (
	RatingExcellent Rating = "Excellent"
	RatingGood      Rating = "Good"
	RatingModerate  Rating = "Moderate"
	RatingPoor      Rating = "Poor"
)

// OverallRating grades the run as a whole.
type OverallRating string

const (
	OverallExcellent  OverallRating = "Excellent"
	OverallGood       OverallRating = "Good"
	OverallAcceptable OverallRating = "Acceptable"
	OverallPoor       OverallRating = "Poor"
)

// BottleneckType identifies which component limits performance.
type BottleneckType string

const (
	BottleneckGPU      BottleneckType = "gpu"
	BottleneckCPU      BottleneckType = "cpu"
	BottleneckBalanced BottleneckType = "balanced"
	BottleneckNone     BottleneckType = "none"
	BottleneckUnknown  BottleneckType = "unknown"
)

// Confidence qualifies a bottleneck verdict.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// --- RunMetrics: analyzer output ---

// RunMetrics is the complete analysis result for one benchmark recording.
type RunMetrics struct {
	FPS         FPSMetrics     `json:"fps"`
	Stutter     StutterMetrics `json:"stutter"`
	FramePacing FramePacing    `json:"frame_pacing"`
	FPSDrops    FPSDrops       `json:"fps_drops"`
	Hardware    Hardware       `json:"hardware"`
	Summary     Summary        `json:"summary"`
	Resolution  string         `json:"resolution,omitempty"`
}

// FPSMetrics holds FPS statistics computed over the gameplay vector
// (scene-transition spikes removed).
type FPSMetrics struct {
	Average         float64 `json:"average"`
	Minimum         float64 `json:"minimum"`
	Maximum         float64 `json:"maximum"`
	Median          float64 `json:"median"`
	P1Low           float64 `json:"p1_low"`
	P01Low          float64 `json:"p01_low"`
	StdDev          float64 `json:"std_dev"`
	FrameCount      int     `json:"frame_count"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// StutterEvent is one frame above the stutter threshold.
type StutterEvent struct {
	Frame       int     `json:"frame"`
	FrametimeMs float64 `json:"frametime_ms"`
	Severity    float64 `json:"severity"` // frametime / mean frametime
	Type        string  `json:"type"`     // "transition" or "stutter"
}

// StutterSequence is a run of 3+ consecutive slow frames.
type StutterSequence struct {
	StartFrame   int     `json:"start_frame"`
	EndFrame     int     `json:"end_frame"`
	Length       int     `json:"length"`
	AvgFrametime float64 `json:"avg_frametime"`
	MaxFrametime float64 `json:"max_frametime"`
}

// StutterMetrics separates scene transitions from real gameplay stutter.
type StutterMetrics struct {
	StutterIndex         float64           `json:"stutter_index"`          // CV% of all frametimes
	GameplayStutterIndex float64           `json:"gameplay_stutter_index"` // CV% with transitions removed
	StutterRating        Rating            `json:"stutter_rating"`
	TransitionCount      int               `json:"transition_count"`
	GameplayStutterCount int               `json:"gameplay_stutter_count"`
	EventCount           int               `json:"event_count"`
	Events               []StutterEvent    `json:"events"`
	SequenceCount        int               `json:"sequence_count"`
	Sequences            []StutterSequence `json:"sequences"`
	SuddenChangeCount    int               `json:"sudden_change_count"`
	Variance             float64           `json:"variance"`
}

// FramePacing rates frame-to-frame stability.
type FramePacing struct {
	AvgDeltaMs        float64 `json:"avg_delta_ms"`
	MaxDeltaMs        float64 `json:"max_delta_ms"`
	ConsistencyScore  float64 `json:"consistency_score"`
	ConsistencyRating Rating  `json:"consistency_rating"`
	CVPercent         float64 `json:"cv_percent"`
	FPSStabilityPct   float64 `json:"fps_stability_pct"`
}

// FPSDrop is one sustained dip below the rolling-average threshold.
type FPSDrop struct {
	StartFrame     int     `json:"start_frame"`
	EndFrame       int     `json:"end_frame"`
	DurationFrames int     `json:"duration_frames"`
	MinFPS         float64 `json:"min_fps"`
	AvgFPSDuring   float64 `json:"avg_fps_during"`
	DropPercent    float64 `json:"drop_percent"`
}

// FPSDrops summarizes all detected drops.
type FPSDrops struct {
	DropCount               int       `json:"drop_count"`
	TotalDropDurationFrames int       `json:"total_drop_duration_frames"`
	Drops                   []FPSDrop `json:"drops"`
}

// ChannelStats aggregates one optional hardware telemetry channel.
type ChannelStats struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	Max float64 `json:"max"`
}

// Hardware aggregates the optional per-frame hardware channels.
type Hardware struct {
	GPUTemp    *ChannelStats `json:"gpu_temp,omitempty"`
	CPUTemp    *ChannelStats `json:"cpu_temp,omitempty"`
	GPULoad    *ChannelStats `json:"gpu_load,omitempty"`
	CPULoad    *ChannelStats `json:"cpu_load,omitempty"`
	GPUPower   *ChannelStats `json:"gpu_power,omitempty"`
	GPUClock   *ChannelStats `json:"gpu_clock,omitempty"`
	VRAM       *ChannelStats `json:"vram,omitempty"`
	Bottleneck Bottleneck    `json:"bottleneck"`
}

// Bottleneck is the CPU-vs-GPU limit verdict.
type Bottleneck struct {
	Type        BottleneckType `json:"type"`
	Confidence  Confidence     `json:"confidence"`
	Explanation string         `json:"explanation"`
	CPUAvg      float64        `json:"cpu_avg,omitempty"`
	GPUAvg      float64        `json:"gpu_avg,omitempty"`
	GPUPowerAvg float64        `json:"gpu_power_avg,omitempty"`
}

// Summary is the human-level verdict on a run.
type Summary struct {
	OverallRating OverallRating `json:"overall_rating"`
	Issues        []string      `json:"issues"`
	Playability   string        `json:"playability"`
}

// --- Run: one persisted benchmark recording ---

// Run is the stable wire format of a saved benchmark run.
// Runs are uniquely addressed by (steam_app_id, system_id, resolution,
// run_number) and are never renumbered or deleted.
type Run struct {
	RunNumber  int        `json:"run_number"`
	Resolution string     `json:"resolution"`
	SystemID   string     `json:"system_id"`
	Timestamp  string     `json:"timestamp"`
	Metrics    RunMetrics `json:"metrics"`
	LogFile    string     `json:"log_file,omitempty"`
	Frametimes []float64  `json:"frametimes,omitempty"` // decimated, every 10th sample
}

// --- FPS target evaluation ---

// TargetEvaluation rates a run against one FPS target.
type TargetEvaluation struct {
	TargetFPS   int    `json:"target_fps"`
	Rating      string `json:"rating"`
	Description string `json:"description"`
	MeetsTarget bool   `json:"meets_target"`
}

// TargetSummary holds all target evaluations plus the best achievable one.
type TargetSummary struct {
	Targets     map[string]TargetEvaluation `json:"targets"`
	Recommended RecommendedTarget           `json:"recommended"`
}

// RecommendedTarget is the highest target the hardware sustains.
type RecommendedTarget struct {
	FPS    int    `json:"fps"`
	Rating string `json:"rating"`
}
