// Package target maps a market score to an equity percentage and filters
// small moves against the previously accepted target.
package target

import (
	"math"

	"github.com/wonny/graham/internal/contracts"
)

// Score range assumed by the mapper
const (
	ScoreMin = -3.0
	ScoreMax = 3.0
)

// DefaultBand is the hysteresis band in percentage points
const DefaultBand = 5

// MapToEquity maps score onto [MinEquity, MaxEquity], adds the tilt, clamps,
// then rounds to a multiple of Step (half to even). The rounded value is not
// re-clamped, so bounds that aren't multiples of Step may be exceeded by up to Step/2.
func MapToEquity(score float64, p contracts.Preferences) int {
	lo, hi := float64(p.MinEquity), float64(p.MaxEquity)

	norm := clamp((score-ScoreMin)/(ScoreMax-ScoreMin), 0, 1)
	equity := lo + norm*(hi-lo)
	equity += float64(p.RiskTiltPct)
	equity = clamp(equity, lo, hi)

	step := float64(p.Step)
	return int(math.RoundToEven(equity/step) * step)
}

// ApplyHysteresis keeps prev when the proposal moves less than band points.
// A move of exactly band is accepted; band 0 accepts everything.
func ApplyHysteresis(prev, proposed, band int) int {
	if abs(proposed-prev) < band {
		return prev
	}
	return proposed
}

// Next maps the score and, when a previous target exists, applies hysteresis.
// With no previous target the proposal is accepted as is.
func Next(prev *int, score float64, p contracts.Preferences, band int) contracts.Recommendation {
	proposed := MapToEquity(score, p)

	rec := contracts.Recommendation{
		Score:       score,
		ProposedPct: proposed,
		FinalPct:    proposed,
		Band:        band,
	}
	if prev == nil {
		return rec
	}

	prevPct := *prev
	rec.PreviousPct = &prevPct
	rec.HysteresisApplied = true
	rec.FinalPct = ApplyHysteresis(prevPct, proposed, band)
	rec.Held = rec.FinalPct == prevPct && proposed != prevPct
	return rec
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
