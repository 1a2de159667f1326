package contracts

// SignalSet is one observation of the macro-market signals
// ⭐ SSOT: every field is independently optional; nil means absent, never zero
type SignalSet struct {
	EarningsYieldPct   *float64 `json:"earnings_yield_pct,omitempty" yaml:"earnings_yield_pct,omitempty"` // 100 / forward P/E
	ForwardPE          *float64 `json:"forward_pe,omitempty" yaml:"forward_pe,omitempty"`                 // carried, not scored
	CAPE               *float64 `json:"cape,omitempty" yaml:"cape,omitempty"`                             // Shiller P/E
	SPXvs200dPct       *float64 `json:"spx_vs_200d_pct,omitempty" yaml:"spx_vs_200d_pct,omitempty"`       // S&P 500 vs its 200-day SMA, %
	YieldCurve10y3mBps *float64 `json:"yc_10y_3m_bps,omitempty" yaml:"yc_10y_3m_bps,omitempty"`           // 10y minus 3m Treasury, bps
	VIXLevel           *float64 `json:"vix_level,omitempty" yaml:"vix_level,omitempty"`                   // VIX close
	HYOASBps           *float64 `json:"hy_oas_bps,omitempty" yaml:"hy_oas_bps,omitempty"`                 // high-yield OAS, bps
	Unemp6mChangePP    *float64 `json:"unemp_6m_change_pp,omitempty" yaml:"unemp_6m_change_pp,omitempty"` // unemployment rate change over 6 months, pp
}

// Float returns a pointer to v, for building SignalSet literals
func Float(v float64) *float64 {
	return &v
}

// fields lists the set's slots in canonical order
func (s *SignalSet) fields() []**float64 {
	return []**float64{
		&s.EarningsYieldPct,
		&s.ForwardPE,
		&s.CAPE,
		&s.SPXvs200dPct,
		&s.YieldCurve10y3mBps,
		&s.VIXLevel,
		&s.HYOASBps,
		&s.Unemp6mChangePP,
	}
}

// Present counts the fields that carry a value
func (s SignalSet) Present() int {
	n := 0
	for _, f := range s.fields() {
		if *f != nil {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers can't alias each other's values
func (s SignalSet) Clone() SignalSet {
	var out SignalSet
	src := s.fields()
	dst := out.fields()
	for i, f := range src {
		if *f != nil {
			*dst[i] = Float(**f)
		}
	}
	return out
}

// Overlay returns a copy of s where every field present in o wins.
// Used to put explicit overrides (CLI flags, manual CAPE) on top of fetched data.
func (s SignalSet) Overlay(o SignalSet) SignalSet {
	out := s.Clone()
	dst := out.fields()
	for i, f := range o.fields() {
		if *f != nil {
			*dst[i] = Float(**f)
		}
	}
	return out
}
