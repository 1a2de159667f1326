package contracts

import "time"

// Contribution is one signal's share of the score
type Contribution struct {
	Signal       string  `json:"signal"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contrib"`
}

// ScoreBreakdown lists the contributions of the present signals and their sum
type ScoreBreakdown struct {
	Parts []Contribution `json:"parts"`
	Total float64        `json:"total_score"`
}

// Recommendation is the outcome of mapping a score and filtering it against the prior target
type Recommendation struct {
	Score             float64 `json:"score"`
	ProposedPct       int     `json:"proposed_pct"`           // mapper output, before hysteresis
	PreviousPct       *int    `json:"previous_pct,omitempty"` // nil when no prior target exists
	FinalPct          int     `json:"final_pct"`
	Band              int     `json:"band"`
	HysteresisApplied bool    `json:"hysteresis_applied"` // a prior target existed and was compared
	Held              bool    `json:"held"`               // the prior target was kept over a different proposal
}

// RebalancePlan sizes the stock and bond trades. Deltas: positive = buy, negative = sell.
type RebalancePlan struct {
	InvestableTotal float64 `json:"investable_total"`
	EquityTargetPct int     `json:"equity_target_pct"`
	CurrentStock    float64 `json:"current_stock"`
	CurrentBond     float64 `json:"current_bond"`
	TargetStock     float64 `json:"target_stock"`
	TargetBond      float64 `json:"target_bond"`
	StockDelta      float64 `json:"stock_delta"`
	BondDelta       float64 `json:"bond_delta"`
}

// Decision is one complete advisor run
// ⭐ SSOT: what gets recorded, published and returned by the API
type Decision struct {
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	Provider       string         `json:"provider"`
	ScoreMode      string         `json:"score_mode"`
	Signals        SignalSet      `json:"signals"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
	Preferences    Preferences    `json:"preferences"`
	Recommendation Recommendation `json:"recommendation"`
	Plan           *RebalancePlan `json:"plan,omitempty"`
	PolicyHash     string         `json:"policy_hash,omitempty"`
	DryRun         bool           `json:"dry_run"`
}
