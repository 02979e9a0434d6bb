package model

import (
	"fmt"
	"math"
)

// commonCaps are refresh rates a frame limiter is likely locked to.
var commonCaps = []float64{30, 60, 120, 144, 165, 240}

// capFloors maps a detected cap to the minimum p1-low and the rating
// floor granted when the run is stable under that cap.
var capFloors = []struct {
	cap      float64
	minP1Low float64
	floor    Rating
}{
	{120, 100, RatingGood},
	{60, 50, RatingGood},
	{30, 25, RatingModerate},
}

// RateGameplayStutter rates stutter from actual events, not variance.
// The denominator is the gameplay frame count (transitions excluded).
func RateGameplayStutter(gameplayStutterCount, sequenceCount, gameplayFrames int) Rating {
	if gameplayFrames == 0 {
		return RatingPoor
	}
	if gameplayStutterCount == 0 && sequenceCount == 0 {
		return RatingExcellent
	}

	perThousand := float64(gameplayStutterCount) / float64(gameplayFrames) * 1000

	if perThousand < 0.5 && sequenceCount <= 1 {
		return RatingGood
	}
	if perThousand < 2.0 && sequenceCount <= 3 {
		return RatingModerate
	}
	return RatingPoor
}

// IsCapLocked reports whether avgFPS sits within 2 FPS of a common
// refresh-rate cap, and which cap.
func IsCapLocked(avgFPS float64) (float64, bool) {
	for _, c := range commonCaps {
		if math.Abs(avgFPS-c) < 2 {
			return c, true
		}
	}
	return 0, false
}

// RateConsistency rates frame-to-frame stability from the coefficient of
// variation and the p1-low-vs-average drop, banded by absolute p1 low.
// Cap-locked runs with a stable p1 low are lifted to a rating floor after
// the band rating is computed.
func RateConsistency(cv, avgFPS, p1Low float64) Rating {
	var dropPct float64
	if avgFPS > 0 {
		dropPct = (avgFPS - p1Low) / avgFPS * 100
	}

	rating := rateConsistencyBand(cv, p1Low, dropPct)

	cap, locked := IsCapLocked(avgFPS)
	if locked && dropPct < 15 {
		for _, f := range capFloors {
			if cap == f.cap && p1Low >= f.minP1Low && ratingRank(f.floor) > ratingRank(rating) {
				rating = f.floor
				break
			}
		}
	}
	return rating
}

// rateConsistencyBand applies the p1-low banded decision table.
func rateConsistencyBand(cv, p1Low, dropPct float64) Rating {
	switch {
	case p1Low >= 120:
		if cv < 15 && dropPct < 40 {
			return RatingExcellent
		} else if cv < 30 && dropPct < 60 {
			return RatingGood
		} else if dropPct < 70 {
			return RatingModerate
		}
		return RatingPoor

	case p1Low >= 90:
		if cv < 12 && dropPct < 30 {
			return RatingExcellent
		} else if cv < 25 && dropPct < 50 {
			return RatingGood
		} else if dropPct < 65 {
			return RatingModerate
		}
		return RatingPoor

	case p1Low >= 60:
		if cv < 10 && dropPct < 20 {
			return RatingExcellent
		} else if cv < 20 && dropPct < 35 {
			return RatingGood
		} else if dropPct < 45 {
			return RatingModerate
		}
		return RatingPoor

	case p1Low >= 40:
		if cv < 8 && dropPct < 15 {
			return RatingGood
		} else if cv < 15 && dropPct < 30 {
			return RatingModerate
		}
		return RatingPoor

	default:
		return RatingPoor
	}
}

// ratingRank orders ratings for floor comparisons. Higher is better.
func ratingRank(r Rating) int {
	switch r {
	case RatingExcellent:
		return 3
	case RatingGood:
		return 2
	case RatingModerate:
		return 1
	default:
		return 0
	}
}

// DeriveSummary collects run-level issues and the overall rating.
func DeriveSummary(fps FPSMetrics, stutterRating Rating) Summary {
	issues := []string{}

	if fps.Average < 30 {
		issues = append(issues, "very low fps")
	} else if fps.Average < 60 {
		issues = append(issues, "low fps")
	}

	if fps.P1Low < fps.Average*0.5 {
		issues = append(issues, "significant fps drops")
	}

	switch stutterRating {
	case RatingPoor:
		issues = append(issues, "heavy stutter")
	case RatingModerate:
		issues = append(issues, "noticeable stutter")
	}

	var overall OverallRating
	switch {
	case len(issues) == 0:
		overall = OverallExcellent
	case len(issues) == 1 && issues[0] == "noticeable stutter":
		overall = OverallGood
	case len(issues) <= 2:
		overall = OverallAcceptable
	default:
		overall = OverallPoor
	}

	return Summary{
		OverallRating: overall,
		Issues:        issues,
		Playability:   DescribePlayability(fps.Average, stutterRating),
	}
}

// DescribePlayability renders the run verdict in human terms.
func DescribePlayability(avgFPS float64, stutterRating Rating) string {
	smooth := stutterRating == RatingExcellent || stutterRating == RatingGood
	switch {
	case avgFPS >= 60 && smooth:
		return "Smooth gameplay experience"
	case avgFPS >= 60:
		return "Good FPS but occasional hitches"
	case avgFPS >= 30 && smooth:
		return "Playable, but would benefit from optimization"
	case avgFPS >= 30:
		return "Playable but not optimal experience"
	default:
		return "Below minimum for comfortable gameplay"
	}
}

// DefaultFPSTargets are the refresh rates evaluated by EvaluateTargets.
var DefaultFPSTargets = []int{60, 120, 144, 165, 240}

// EvaluateTargets rates a run against each FPS target. A target is met
// when the 1% low stays within 15% of it.
func EvaluateTargets(fps FPSMetrics, targets []int) TargetSummary {
	if len(targets) == 0 {
		targets = DefaultFPSTargets
	}

	evals := make(map[string]TargetEvaluation, len(targets))
	for _, target := range targets {
		evals[fmt.Sprintf("%d_fps", target)] = evaluateTarget(target, fps.P1Low)
	}

	recommended := RecommendedTarget{FPS: targets[0], Rating: "below_minimum"}
	for _, t := range targets {
		if t < recommended.FPS {
			recommended.FPS = t
		}
	}
	best := -1
	for _, target := range targets {
		e := evals[fmt.Sprintf("%d_fps", target)]
		if e.MeetsTarget && target > best {
			best = target
			recommended = RecommendedTarget{FPS: target, Rating: e.Rating}
		}
	}

	return TargetSummary{Targets: evals, Recommended: recommended}
}

func evaluateTarget(target int, p1Low float64) TargetEvaluation {
	minP1Low := float64(target) * 0.85

	switch {
	case p1Low >= float64(target):
		return TargetEvaluation{
			TargetFPS:   target,
			Rating:      "Excellent",
			Description: fmt.Sprintf("1%% low above %d FPS", target),
			MeetsTarget: true,
		}
	case p1Low >= minP1Low:
		return TargetEvaluation{
			TargetFPS:   target,
			Rating:      "Good",
			Description: fmt.Sprintf("1%% low at %.0f FPS (>%.0f)", p1Low, minP1Low),
			MeetsTarget: true,
		}
	default:
		return TargetEvaluation{
			TargetFPS:   target,
			Rating:      "Not Recommended",
			Description: fmt.Sprintf("1%% low too low (%.0f < %.0f)", p1Low, minP1Low),
			MeetsTarget: false,
		}
	}
}
