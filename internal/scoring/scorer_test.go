package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/graham/internal/contracts"
)

var f = contracts.Float

func TestEmptySignalSet(t *testing.T) {
	assert.Equal(t, 0.0, Score(contracts.SignalSet{}))

	for _, mode := range []Mode{ModeFull, ModeEarningsYieldOnly} {
		b := Evaluate(contracts.SignalSet{}, mode)
		assert.Empty(t, b.Parts, mode)
		assert.Equal(t, 0.0, b.Total, mode)
	}
}

func TestEarningsYieldTiers(t *testing.T) {
	tests := []struct {
		ey   float64
		want float64
	}{
		{6.5, 1.0},
		{6.0, 1.0},
		{5.0, 0.3},
		{4.5, 0.3},
		{4.0, -0.3},
		{3.5, -0.3},
		{2.0, -1.0},
	}

	for _, tt := range tests {
		s := contracts.SignalSet{EarningsYieldPct: f(tt.ey)}
		assert.Equal(t, tt.want, Score(s), "full ey=%v", tt.ey)

		b := Breakdown(s)
		require.Len(t, b.Parts, 1)
		assert.Equal(t, SignalEarningsYield, b.Parts[0].Signal)
		assert.Equal(t, tt.want, b.Parts[0].Contribution, "breakdown ey=%v", tt.ey)
	}
}

func TestCAPETiers(t *testing.T) {
	tests := []struct {
		cape float64
		want float64
	}{
		{12, 1.0},
		{15, 0.3},
		{22, 0.3},
		{25, 0.3}, // same as the cheaper tier, kept as historically scored
		{28, 0.3},
		{28.1, -1.0},
		{35, -1.0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Score(contracts.SignalSet{CAPE: f(tt.cape)}), "cape=%v", tt.cape)
	}
}

func TestCAPEIgnoredByBreakdown(t *testing.T) {
	b := Breakdown(contracts.SignalSet{CAPE: f(35)})
	assert.Empty(t, b.Parts)
	assert.Equal(t, 0.0, b.Total)
}

func TestForwardPENeverScored(t *testing.T) {
	s := contracts.SignalSet{ForwardPE: f(30)}
	assert.Equal(t, 0.0, Score(s))
	assert.Empty(t, Breakdown(s).Parts)
}

func TestSingleSignalRules(t *testing.T) {
	tests := []struct {
		name string
		set  contracts.SignalSet
		want float64
	}{
		{"trend above", contracts.SignalSet{SPXvs200dPct: f(0)}, 0.5},
		{"trend below", contracts.SignalSet{SPXvs200dPct: f(-0.01)}, -0.5},
		{"curve inverted", contracts.SignalSet{YieldCurve10y3mBps: f(-10)}, -0.5},
		{"curve flat", contracts.SignalSet{YieldCurve10y3mBps: f(0)}, -0.1},
		{"curve steep", contracts.SignalSet{YieldCurve10y3mBps: f(50)}, 0.2},
		{"vix calm", contracts.SignalSet{VIXLevel: f(14.9)}, 0.25},
		{"vix neutral low", contracts.SignalSet{VIXLevel: f(15)}, 0},
		{"vix neutral high", contracts.SignalSet{VIXLevel: f(25)}, 0},
		{"vix stressed", contracts.SignalSet{VIXLevel: f(25.1)}, -0.5},
		{"hy tight", contracts.SignalSet{HYOASBps: f(349)}, 0.25},
		{"hy neutral", contracts.SignalSet{HYOASBps: f(500)}, 0},
		{"hy wide", contracts.SignalSet{HYOASBps: f(501)}, -0.5},
		{"labor rising", contracts.SignalSet{Unemp6mChangePP: f(0.2)}, -0.25},
		{"labor flat", contracts.SignalSet{Unemp6mChangePP: f(0.1)}, 0},
		{"labor falling", contracts.SignalSet{Unemp6mChangePP: f(-0.3)}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.set))
			assert.Equal(t, tt.want, Breakdown(tt.set).Total)
		})
	}
}

func TestLaborBoundaryDiffersBetweenVariants(t *testing.T) {
	s := contracts.SignalSet{Unemp6mChangePP: f(-0.2)}

	assert.Equal(t, 0.0, Score(s), "full scorer: -0.2 is neutral")
	assert.Equal(t, 0.25, Breakdown(s).Total, "breakdown: -0.2 counts as falling")
}

func TestFullEvaluateMatchesScore(t *testing.T) {
	s := contracts.SignalSet{
		EarningsYieldPct:   f(4.8),
		CAPE:               f(31),
		SPXvs200dPct:       f(3.2),
		YieldCurve10y3mBps: f(-35),
		VIXLevel:           f(13),
		HYOASBps:           f(420),
		Unemp6mChangePP:    f(0.3),
	}

	b := Evaluate(s, ModeFull)
	assert.Equal(t, Score(s), b.Total)
	require.Len(t, b.Parts, 7)
	assert.Equal(t, SignalCAPE, b.Parts[0].Signal)
	assert.Equal(t, SignalEarningsYield, b.Parts[6].Signal)
	assert.InDelta(t, -1.0+0.5-0.5+0.25+0-0.25+0.3, b.Total, 1e-12)

	eyOnly := Breakdown(s)
	require.Len(t, eyOnly.Parts, 6)
	assert.Equal(t, SignalEarningsYield, eyOnly.Parts[0].Signal)
	assert.InDelta(t, 0.3+0.5-0.5+0.25+0-0.25, eyOnly.Total, 1e-12)
}

func TestAbsentSignalsOmitted(t *testing.T) {
	b := Breakdown(contracts.SignalSet{VIXLevel: f(30), HYOASBps: f(600)})
	require.Len(t, b.Parts, 2)
	assert.Equal(t, SignalVIX, b.Parts[0].Signal)
	assert.Equal(t, 30.0, b.Parts[0].Value)
	assert.Equal(t, SignalHYOAS, b.Parts[1].Signal)
	assert.Equal(t, -1.0, b.Total)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	m, err = ParseMode("ey")
	require.NoError(t, err)
	assert.Equal(t, ModeEarningsYieldOnly, m)

	_, err = ParseMode("cape_only")
	assert.Error(t, err)
}
