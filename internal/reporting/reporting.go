// Package reporting renders advisor decisions as text and JSON.
package reporting

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/graham/internal/contracts"
)

// Money formats x as dollars with thousands separators and cents: $12,345.60, $-10,000.00
func Money(x float64) string {
	s := decimal.NewFromFloat(x).StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	return "$" + sign + groupThousands(intPart) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// formatValue prints a signal value as its shortest round-trip form, always with a
// fractional part or exponent: 2.0, -50.0, 0.1, 1e-05
func formatValue(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	abs := math.Abs(v)
	if abs >= 1e16 || (abs != 0 && abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Explain summarizes the final target and the trades of plan
func Explain(rec contracts.Recommendation, plan *contracts.RebalancePlan) string {
	lines := []string{
		fmt.Sprintf("Equity target: %d%% (score=%.2f)", rec.FinalPct, rec.Score),
		fmt.Sprintf("Investable total: %s", Money(plan.InvestableTotal)),
		fmt.Sprintf("Stocks: current %s → target %s → trade %s",
			Money(plan.CurrentStock), Money(plan.TargetStock), Money(plan.StockDelta)),
		fmt.Sprintf("Bonds:  current %s → target %s → trade %s",
			Money(plan.CurrentBond), Money(plan.TargetBond), Money(plan.BondDelta)),
	}
	return strings.Join(lines, "\n")
}

// FormatBreakdown prints one right-aligned line per contribution and the total
func FormatBreakdown(b contracts.ScoreBreakdown) string {
	var sb strings.Builder
	sb.WriteString("— Score breakdown —\n")
	for _, p := range b.Parts {
		fmt.Fprintf(&sb, "%20s: value=%s  contrib=%+.2f\n", p.Signal, formatValue(p.Value), p.Contribution)
	}
	fmt.Fprintf(&sb, "%20s: %+.2f\n", "TOTAL", b.Total)
	return sb.String()
}

// FormatHysteresis prints the proposal and how the previous target filtered it
func FormatHysteresis(rec contracts.Recommendation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Proposed equity %% (no hysteresis): %d\n", rec.ProposedPct)
	if rec.PreviousPct != nil {
		fmt.Fprintf(&sb, "Previous target: %d | Band: ±%dpp | Final (after hysteresis): %d\n",
			*rec.PreviousPct, rec.Band, rec.FinalPct)
	} else {
		fmt.Fprintf(&sb, "No previous target found; using proposed %d\n", rec.FinalPct)
	}
	return sb.String()
}

// Text is the full run report: breakdown, hysteresis, then the explanation when a plan exists
func Text(d *contracts.Decision) string {
	var sb strings.Builder
	sb.WriteString(FormatBreakdown(d.Breakdown))
	sb.WriteString("\n")
	sb.WriteString(FormatHysteresis(d.Recommendation))
	sb.WriteString("\n")
	if d.Plan != nil {
		sb.WriteString(Explain(d.Recommendation, d.Plan))
		sb.WriteString("\n")
	}
	return sb.String()
}

// inputs lists every signal, absent ones as null
type inputs struct {
	CAPE               *float64 `json:"cape"`
	SPXvs200dPct       *float64 `json:"spx_vs_200d_pct"`
	YieldCurve10y3mBps *float64 `json:"yc_10y_3m_bps"`
	VIXLevel           *float64 `json:"vix_level"`
	HYOASBps           *float64 `json:"hy_oas_bps"`
	Unemp6mChangePP    *float64 `json:"unemp_6m_change_pp"`
	ForwardPE          *float64 `json:"forward_pe"`
	EarningsYieldPct   *float64 `json:"earnings_yield_pct"`
}

type recommendationJSON struct {
	Score     float64 `json:"score"`
	EquityPct int     `json:"equity_pct"`
}

// Report is the JSON document of one run
type Report struct {
	ID             string                   `json:"id,omitempty"`
	Inputs         inputs                   `json:"inputs"`
	Recommendation recommendationJSON       `json:"recommendation"`
	Breakdown      contracts.ScoreBreakdown `json:"breakdown"`
	Plan           *contracts.RebalancePlan `json:"plan"`
}

// NewReport builds the JSON document of d
func NewReport(d *contracts.Decision) Report {
	s := d.Signals
	return Report{
		ID: d.ID,
		Inputs: inputs{
			CAPE:               s.CAPE,
			SPXvs200dPct:       s.SPXvs200dPct,
			YieldCurve10y3mBps: s.YieldCurve10y3mBps,
			VIXLevel:           s.VIXLevel,
			HYOASBps:           s.HYOASBps,
			Unemp6mChangePP:    s.Unemp6mChangePP,
			ForwardPE:          s.ForwardPE,
			EarningsYieldPct:   s.EarningsYieldPct,
		},
		Recommendation: recommendationJSON{Score: d.Recommendation.Score, EquityPct: d.Recommendation.FinalPct},
		Breakdown:      d.Breakdown,
		Plan:           d.Plan,
	}
}

// JSON renders d as indented JSON
func JSON(d *contracts.Decision) ([]byte, error) {
	data, err := json.MarshalIndent(NewReport(d), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}
