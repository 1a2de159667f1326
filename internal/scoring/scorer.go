// Package scoring turns a signal set into a signed market score.
// Higher means more equity; the usual range is about -3..+3 and is not clamped here.
package scoring

import (
	"fmt"

	"github.com/wonny/graham/internal/contracts"
)

// Mode selects the scoring variant
type Mode string

const (
	// ModeFull values the market with CAPE (when present) and earnings yield
	ModeFull Mode = "full"
	// ModeEarningsYieldOnly is the reporting variant: earnings yield is the only valuation input
	ModeEarningsYieldOnly Mode = "earnings_yield_only"
)

// ParseMode accepts "full", "earnings_yield_only" and the shorthand "ey"
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(ModeFull):
		return ModeFull, nil
	case string(ModeEarningsYieldOnly), "ey":
		return ModeEarningsYieldOnly, nil
	}
	return "", fmt.Errorf("unknown score mode %q", s)
}

// Signal names used in breakdowns
const (
	SignalEarningsYield = "earnings_yield_pct"
	SignalCAPE          = "cape"
	SignalTrend         = "spx_vs_200d_pct"
	SignalYieldCurve    = "yc_10y_3m_bps"
	SignalVIX           = "vix_level"
	SignalHYOAS         = "hy_oas_bps"
	SignalUnemployment  = "unemp_6m_change_pp"
)

// rule scores one signal; get returns nil when the signal is absent
type rule struct {
	signal string
	get    func(s *contracts.SignalSet) *float64
	score  func(v float64) float64
}

var (
	earningsYieldRule = rule{SignalEarningsYield, func(s *contracts.SignalSet) *float64 { return s.EarningsYieldPct }, earningsYield}
	capeRule          = rule{SignalCAPE, func(s *contracts.SignalSet) *float64 { return s.CAPE }, cape}
	trendRule         = rule{SignalTrend, func(s *contracts.SignalSet) *float64 { return s.SPXvs200dPct }, trend}
	yieldCurveRule    = rule{SignalYieldCurve, func(s *contracts.SignalSet) *float64 { return s.YieldCurve10y3mBps }, yieldCurve}
	vixRule           = rule{SignalVIX, func(s *contracts.SignalSet) *float64 { return s.VIXLevel }, vix}
	hyOASRule         = rule{SignalHYOAS, func(s *contracts.SignalSet) *float64 { return s.HYOASBps }, hyOAS}
	laborStrictRule   = rule{SignalUnemployment, func(s *contracts.SignalSet) *float64 { return s.Unemp6mChangePP }, laborStrict}
	laborRule         = rule{SignalUnemployment, func(s *contracts.SignalSet) *float64 { return s.Unemp6mChangePP }, laborInclusive}
)

// Rules per mode, in evaluation order. Forward P/E is carried by SignalSet but never scored.
var rules = map[Mode][]rule{
	ModeFull:              {capeRule, trendRule, yieldCurveRule, vixRule, hyOASRule, laborStrictRule, earningsYieldRule},
	ModeEarningsYieldOnly: {earningsYieldRule, trendRule, yieldCurveRule, vixRule, hyOASRule, laborRule},
}

// Evaluate scores s with the given variant and lists each present signal's contribution.
// An unknown mode scores as ModeFull.
func Evaluate(s contracts.SignalSet, mode Mode) contracts.ScoreBreakdown {
	rs, ok := rules[mode]
	if !ok {
		rs = rules[ModeFull]
	}

	out := contracts.ScoreBreakdown{Parts: []contracts.Contribution{}}
	for _, r := range rs {
		v := r.get(&s)
		if v == nil {
			continue
		}
		c := r.score(*v)
		out.Parts = append(out.Parts, contracts.Contribution{Signal: r.signal, Value: *v, Contribution: c})
		out.Total += c
	}
	return out
}

// Score is the full scorer
func Score(s contracts.SignalSet) float64 {
	return Evaluate(s, ModeFull).Total
}

// Breakdown is the reporting variant (earnings yield only, no CAPE)
func Breakdown(s contracts.SignalSet) contracts.ScoreBreakdown {
	return Evaluate(s, ModeEarningsYieldOnly)
}
