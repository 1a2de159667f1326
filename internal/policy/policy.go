// Package policy loads the advisor policy file (YAML)
// ⭐ SSOT: allocation preferences, hysteresis, scoring mode and market source
package policy

import (
	"github.com/wonny/graham/internal/contracts"
)

// Market sources
const (
	SourceManual = "manual"
	SourceLive   = "live"
)

// Policy is the decoded policy file
type Policy struct {
	Preferences contracts.Preferences `yaml:"preferences" json:"preferences"`
	Hysteresis  Hysteresis            `yaml:"hysteresis" json:"hysteresis"`
	Scoring     Scoring               `yaml:"scoring" json:"scoring"`
	Market      Market                `yaml:"market" json:"market"`
	Holdings    Holdings              `yaml:"holdings" json:"holdings"`
	Output      Output                `yaml:"output" json:"output"`
}

// Hysteresis configures the band filter
type Hysteresis struct {
	Band int `yaml:"band" json:"band"` // percentage points
	// PreviousTarget overrides the state store when set
	PreviousTarget *int `yaml:"previous_target" json:"previous_target,omitempty"`
}

// Scoring selects the scorer variant ("full" or "earnings_yield_only")
type Scoring struct {
	Mode string `yaml:"mode" json:"mode"`
}

// Market selects where signals come from
type Market struct {
	Source      string              `yaml:"source" json:"source"` // manual, live
	IncludeCAPE bool                `yaml:"include_cape" json:"include_cape"`
	Manual      contracts.SignalSet `yaml:"manual" json:"manual"` // null or missing = absent
}

// Holdings points at the portfolio file
type Holdings struct {
	Path string `yaml:"path" json:"path"`
}

// Output controls CLI rendering
type Output struct {
	Explain bool `yaml:"explain" json:"explain"`
	JSON    bool `yaml:"json" json:"json"`
}

// Default returns the policy used when no file is given
func Default() *Policy {
	return &Policy{
		Preferences: contracts.DefaultPreferences(),
		Hysteresis:  Hysteresis{Band: 5},
		Scoring:     Scoring{Mode: "full"},
		Market:      Market{Source: SourceManual},
		Holdings:    Holdings{Path: "data/holdings.csv"},
		Output:      Output{Explain: true},
	}
}
