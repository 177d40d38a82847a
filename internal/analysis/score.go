// score.go: deterministic performance grading of one analysis
package analysis

import "math"

// Scoring weights: each 1% of filler words costs 5 points, each long or
// excessive pause costs 10 points, and the time tolerance is 20% of the
// target with a 1 second floor.
const (
	fillerPenaltyPerPercent = 5.0
	pausePenaltyPerGap      = 10.0
	timeToleranceFraction   = 0.2
	timeToleranceFloorSec   = 1.0
)

// Score computes the performance grade for an analysis against a project's
// target duration in milliseconds (0 means no target). It is a pure function:
// fully deterministic for fixed inputs, with every factor score and the
// overall grade in [0,100]. The frontend re-derives the same numbers for
// display, so the formula must not drift.
func Score(result *Result, timeframeMs int64) PerformanceMetrics {
	details := PerformanceDetails{
		WordsPerMinute:     result.WPM,
		AverageGapDuration: result.AverageGapDuration,
	}

	// Time factor: full credit when there is no target.
	timeScore := 100.0
	if timeframeMs > 0 {
		goal := float64(timeframeMs) / 1000
		diff := math.Abs(result.DurationSeconds - goal)
		tolerance := math.Max(goal*timeToleranceFraction, timeToleranceFloorSec)
		timeScore = clamp(100-(diff/tolerance)*100, 0, 100)
		details.TimeGoalSeconds = goal
		details.TimeDeltaSeconds = diff
	}

	coherenceScore := clamp(result.OverallCoherenceScore/10*100, 0, 100)

	// Filler factor: 0/0 is treated as 0% filler, so an empty transcript
	// scores full credit rather than dividing by zero.
	fillerPct := 0.0
	if result.WordCount > 0 {
		fillerPct = float64(result.TotalFillerWords) / float64(result.WordCount) * 100
	}
	fillerScore := clamp(100-fillerPct*fillerPenaltyPerPercent, 0, 100)
	details.FillerPercentage = fillerPct

	longPauses := 0
	for i := range result.Gaps {
		if result.Gaps[i].Type == GapLong || result.Gaps[i].Type == GapExcessive {
			longPauses++
		}
	}
	pauseScore := clamp(100-float64(longPauses)*pausePenaltyPerGap, 0, 100)
	details.LongPauseCount = longPauses

	factors := FactorScores{
		Time:      roundScore(timeScore),
		Coherence: roundScore(coherenceScore),
		Filler:    roundScore(fillerScore),
		Pauses:    roundScore(pauseScore),
	}

	grade := roundScore(float64(factors.Time+factors.Coherence+factors.Filler+factors.Pauses) / 4)

	return PerformanceMetrics{
		FactorScores: factors,
		OverallGrade: grade,
		Details:      details,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// roundScore rounds to the nearest integer with ties rounding half up.
func roundScore(v float64) int {
	return int(math.Round(v))
}
