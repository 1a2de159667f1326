package policy

import (
	"fmt"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/internal/scoring"
)

// Warning flags a legal but suspicious setting
type Warning struct {
	Code    string
	Message string
}

// Validate checks the hard constraints; a failure stops the run
func Validate(p *Policy) error {
	if err := p.Preferences.Validate(); err != nil {
		if verr, ok := err.(*contracts.ValidationError); ok {
			return &contracts.ValidationError{Field: "preferences." + verr.Field, Message: verr.Message}
		}
		return err
	}

	if p.Hysteresis.Band < 0 {
		return &contracts.ValidationError{Field: "hysteresis.band", Message: "must be >= 0"}
	}
	if prev := p.Hysteresis.PreviousTarget; prev != nil && (*prev < 0 || *prev > 100) {
		return &contracts.ValidationError{Field: "hysteresis.previous_target", Message: "must be within 0..100"}
	}

	if _, err := scoring.ParseMode(p.Scoring.Mode); err != nil {
		return &contracts.ValidationError{Field: "scoring.mode", Message: err.Error()}
	}

	switch p.Market.Source {
	case SourceManual, SourceLive:
	default:
		return &contracts.ValidationError{Field: "market.source", Message: "must be manual or live"}
	}

	return nil
}

// Warn reports settings that are valid but probably not intended
func Warn(p *Policy) []Warning {
	var warnings []Warning
	prefs := p.Preferences

	if span := prefs.MaxEquity - prefs.MinEquity; span > 0 && p.Hysteresis.Band >= span {
		warnings = append(warnings, Warning{
			Code:    "BAND_COVERS_RANGE",
			Message: fmt.Sprintf("band %d >= equity range %d: the target can never move", p.Hysteresis.Band, span),
		})
	}

	if prefs.Step > 0 && (prefs.MinEquity%prefs.Step != 0 || prefs.MaxEquity%prefs.Step != 0) {
		warnings = append(warnings, Warning{
			Code:    "BOUNDS_OFF_STEP",
			Message: fmt.Sprintf("bounds %d..%d are not multiples of step %d; targets may round outside them", prefs.MinEquity, prefs.MaxEquity, prefs.Step),
		})
	}

	if abs(prefs.RiskTiltPct) >= prefs.MaxEquity-prefs.MinEquity && prefs.RiskTiltPct != 0 {
		warnings = append(warnings, Warning{
			Code:    "TILT_SATURATES",
			Message: fmt.Sprintf("risk tilt %+d pins the target to a bound", prefs.RiskTiltPct),
		})
	}

	if p.Market.Source == SourceManual && p.Market.Manual.Present() == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_MANUAL_SIGNALS",
			Message: "manual market source with no signals: score will be 0",
		})
	}

	if p.Market.Source == SourceLive && p.Market.Manual.CAPE != nil && !p.Market.IncludeCAPE {
		warnings = append(warnings, Warning{
			Code:    "CAPE_IGNORED",
			Message: "market.manual.cape is set but include_cape is false",
		})
	}

	return warnings
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
