package contracts

// Preferences are the user's allocation bounds and rounding
type Preferences struct {
	RiskTiltPct int  `json:"risk_tilt_pct" yaml:"risk_tilt_pct"` // signed offset added after mapping
	MinEquity   int  `json:"min_equity" yaml:"min_equity"`       // inclusive
	MaxEquity   int  `json:"max_equity" yaml:"max_equity"`       // inclusive
	Step        int  `json:"step" yaml:"step"`                   // rounding granularity
	IncludeCash bool `json:"include_cash" yaml:"include_cash"`   // count Cash in the investable total
}

// DefaultPreferences returns tilt 0, bounds 25..75, step 5, cash included
func DefaultPreferences() Preferences {
	return Preferences{
		RiskTiltPct: 0,
		MinEquity:   25,
		MaxEquity:   75,
		Step:        5,
		IncludeCash: true,
	}
}

// Validate checks bounds and step
func (p Preferences) Validate() error {
	switch {
	case p.MinEquity < 0 || p.MinEquity > 100:
		return &ValidationError{Field: "min_equity", Message: "must be within 0..100"}
	case p.MaxEquity < 0 || p.MaxEquity > 100:
		return &ValidationError{Field: "max_equity", Message: "must be within 0..100"}
	case p.MinEquity > p.MaxEquity:
		return &ValidationError{Field: "min_equity", Message: "must not exceed max_equity"}
	case p.Step <= 0:
		return &ValidationError{Field: "step", Message: "must be positive"}
	}
	return nil
}
