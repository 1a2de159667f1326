package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/internal/holdings"
	"github.com/wonny/graham/internal/marketdata"
	"github.com/wonny/graham/internal/policy"
	"github.com/wonny/graham/internal/recorder"
	"github.com/wonny/graham/internal/scoring"
	"github.com/wonny/graham/internal/state"
	"github.com/wonny/graham/pkg/logger"
)

// bullish scores 0.3 + 0.5 + 0.2 = 1.0 -> 60%
var bullish = contracts.SignalSet{
	EarningsYieldPct:   contracts.Float(5.0),
	SPXvs200dPct:       contracts.Float(2.0),
	YieldCurve10y3mBps: contracts.Float(60),
}

var balanced = holdings.Static{
	{Symbol: "VTI", AssetClass: contracts.AssetStock, MarketValue: contracts.Float(50000)},
	{Symbol: "BND", AssetClass: contracts.AssetBond, MarketValue: contracts.Float(50000)},
}

type memRecorder struct {
	decisions []*contracts.Decision
	err       error
}

func (r *memRecorder) Record(ctx context.Context, d *contracts.Decision) error {
	r.decisions = append(r.decisions, d)
	return r.err
}

func (r *memRecorder) Close() error { return nil }

type memPublisher struct{ published []*contracts.Decision }

func (p *memPublisher) Publish(d *contracts.Decision) { p.published = append(p.published, d) }

type failingStore struct{ readErr, writeErr error }

func (s failingStore) ReadTarget(ctx context.Context) (int, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	return 0, contracts.ErrNoPreviousTarget
}

func (s failingStore) WriteTarget(ctx context.Context, pct int) error { return s.writeErr }

type failingProvider struct{}

func (failingProvider) Name() string { return "broken" }

func (failingProvider) Fetch(ctx context.Context) (*contracts.SignalSet, error) {
	return nil, errors.New("upstream down")
}

type emptyProvider struct{}

func (emptyProvider) Name() string { return "empty" }

func (emptyProvider) Fetch(ctx context.Context) (*contracts.SignalSet, error) {
	return nil, nil
}

func defaultRun() RunConfig {
	return RunConfig{Preferences: contracts.DefaultPreferences(), Band: 5, Mode: scoring.ModeFull}
}

func TestRun_FirstRun(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	rec := &memRecorder{}
	pub := &memPublisher{}
	fixed := time.Date(2026, 10, 19, 21, 30, 0, 0, time.UTC)

	a := New(marketdata.NewStaticProvider("manual", bullish), balanced, store, rec, logger.Nop(),
		WithPublisher(pub), WithClock(func() time.Time { return fixed }))

	d, err := a.Run(ctx, defaultRun())
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, fixed, d.CreatedAt)
	assert.Equal(t, "manual", d.Provider)
	assert.Equal(t, "full", d.ScoreMode)
	assert.InDelta(t, 1.0, d.Recommendation.Score, 1e-9)
	assert.Equal(t, 60, d.Recommendation.ProposedPct)
	assert.Equal(t, 60, d.Recommendation.FinalPct)
	assert.Nil(t, d.Recommendation.PreviousPct)
	assert.False(t, d.Recommendation.HysteresisApplied)
	assert.Len(t, d.Breakdown.Parts, 3)

	require.NotNil(t, d.Plan)
	assert.Equal(t, 10000.0, d.Plan.StockDelta)
	assert.Equal(t, -10000.0, d.Plan.BondDelta)

	stored, err := store.ReadTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, stored)

	require.Len(t, rec.decisions, 1)
	assert.Same(t, d, rec.decisions[0])
	require.Len(t, pub.published, 1)
}

func TestRun_Hysteresis(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		stored    *int
		override  *int
		band      int
		wantFinal int
		wantHeld  bool
	}{
		{name: "small move is held", stored: intPtr(57), band: 5, wantFinal: 57, wantHeld: true},
		{name: "move of exactly band is accepted", stored: intPtr(55), band: 5, wantFinal: 60},
		{name: "zero band accepts everything", stored: intPtr(59), band: 0, wantFinal: 60},
		{name: "override wins over stored", stored: intPtr(30), override: intPtr(58), band: 5, wantFinal: 58, wantHeld: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.NewMemoryStore()
			if tt.stored != nil {
				require.NoError(t, store.WriteTarget(ctx, *tt.stored))
			}
			a := New(marketdata.NewStaticProvider("manual", bullish), balanced, store, recorder.NoopRecorder{}, logger.Nop())

			cfg := defaultRun()
			cfg.Band = tt.band
			cfg.PreviousOverride = tt.override
			d, err := a.Run(ctx, cfg)
			require.NoError(t, err)

			assert.Equal(t, 60, d.Recommendation.ProposedPct)
			assert.Equal(t, tt.wantFinal, d.Recommendation.FinalPct)
			assert.Equal(t, tt.wantHeld, d.Recommendation.Held)
			assert.True(t, d.Recommendation.HysteresisApplied)
			assert.Equal(t, tt.wantFinal, d.Plan.EquityTargetPct, "plan uses the final target")

			stored, err := store.ReadTarget(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFinal, stored, "state receives the post-hysteresis value")
		})
	}
}

func TestRun_DryRunLeavesState(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	a := New(marketdata.NewStaticProvider("manual", bullish), balanced, store, recorder.NoopRecorder{}, logger.Nop())

	cfg := defaultRun()
	cfg.DryRun = true
	d, err := a.Run(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, d.DryRun)

	_, err = store.ReadTarget(ctx)
	assert.ErrorIs(t, err, contracts.ErrNoPreviousTarget)
}

func TestRun_WithoutHoldings(t *testing.T) {
	a := New(marketdata.NewStaticProvider("manual", bullish), nil, state.NewMemoryStore(), recorder.NoopRecorder{}, logger.Nop())
	d, err := a.Run(context.Background(), defaultRun())
	require.NoError(t, err)
	assert.Nil(t, d.Plan)
	assert.Equal(t, 60, d.Recommendation.FinalPct)
}

func TestRun_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("provider error", func(t *testing.T) {
		store := state.NewMemoryStore()
		a := New(failingProvider{}, balanced, store, recorder.NoopRecorder{}, logger.Nop())
		_, err := a.Run(ctx, defaultRun())
		assert.ErrorContains(t, err, "upstream down")
		_, err = store.ReadTarget(ctx)
		assert.ErrorIs(t, err, contracts.ErrNoPreviousTarget)
	})

	t.Run("provider returns no data", func(t *testing.T) {
		store := state.NewMemoryStore()
		a := New(emptyProvider{}, balanced, store, recorder.NoopRecorder{}, logger.Nop())
		var d *contracts.Decision
		var err error
		require.NotPanics(t, func() { d, err = a.Run(ctx, defaultRun()) })
		assert.Nil(t, d)
		assert.ErrorContains(t, err, "empty returned no data")
		_, err = store.ReadTarget(ctx)
		assert.ErrorIs(t, err, contracts.ErrNoPreviousTarget)
	})

	t.Run("invalid preferences", func(t *testing.T) {
		a := New(marketdata.NewStaticProvider("manual", bullish), balanced, state.NewMemoryStore(), recorder.NoopRecorder{}, logger.Nop())
		cfg := defaultRun()
		cfg.Preferences.Step = 0
		_, err := a.Run(ctx, cfg)
		var verr *contracts.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "step", verr.Field)
	})

	t.Run("holding without value stops before the state write", func(t *testing.T) {
		store := state.NewMemoryStore()
		bad := holdings.Static{{Symbol: "X", AssetClass: contracts.AssetStock}}
		a := New(marketdata.NewStaticProvider("manual", bullish), bad, store, recorder.NoopRecorder{}, logger.Nop())
		_, err := a.Run(ctx, defaultRun())
		assert.ErrorIs(t, err, contracts.ErrMissingValue)
		_, err = store.ReadTarget(ctx)
		assert.ErrorIs(t, err, contracts.ErrNoPreviousTarget)
	})

	t.Run("state read error", func(t *testing.T) {
		store := failingStore{readErr: errors.New("connection refused")}
		a := New(marketdata.NewStaticProvider("manual", bullish), balanced, store, recorder.NoopRecorder{}, logger.Nop())
		_, err := a.Run(ctx, defaultRun())
		assert.ErrorContains(t, err, "read previous target")
	})

	t.Run("state write and record errors are not fatal", func(t *testing.T) {
		store := failingStore{writeErr: errors.New("disk full")}
		rec := &memRecorder{err: errors.New("locked")}
		a := New(marketdata.NewStaticProvider("manual", bullish), balanced, store, rec, logger.Nop())
		d, err := a.Run(ctx, defaultRun())
		require.NoError(t, err)
		assert.Equal(t, 60, d.Recommendation.FinalPct)
	})
}

func TestRun_ScoreModes(t *testing.T) {
	signals := bullish.Clone()
	signals.CAPE = contracts.Float(35) // -1.0 in the full scorer only

	a := New(marketdata.NewStaticProvider("manual", signals), nil, state.NewMemoryStore(), recorder.NoopRecorder{}, logger.Nop())

	full, err := a.Run(context.Background(), RunConfig{Preferences: contracts.DefaultPreferences(), Band: 5, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "full", full.ScoreMode)
	assert.InDelta(t, 0.0, full.Recommendation.Score, 1e-9)
	assert.InDelta(t, 1.0, full.Breakdown.Total, 1e-9, "breakdown never scores CAPE")

	ey, err := a.Run(context.Background(), RunConfig{Preferences: contracts.DefaultPreferences(), Band: 5, Mode: scoring.ModeEarningsYieldOnly, DryRun: true})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ey.Recommendation.Score, 1e-9)
}

func intPtr(v int) *int { return &v }

func TestConfigFromPolicy(t *testing.T) {
	p := policy.Default()
	p.Scoring.Mode = "ey"
	p.Hysteresis.Band = 10
	p.Hysteresis.PreviousTarget = intPtr(45)

	cfg, err := ConfigFromPolicy(p, "abc123")
	require.NoError(t, err)
	assert.Equal(t, scoring.ModeEarningsYieldOnly, cfg.Mode)
	assert.Equal(t, 10, cfg.Band)
	assert.Equal(t, 45, *cfg.PreviousOverride)
	assert.Equal(t, "abc123", cfg.PolicyHash)
	assert.Equal(t, contracts.DefaultPreferences(), cfg.Preferences)

	p.Scoring.Mode = "bogus"
	_, err = ConfigFromPolicy(p, "")
	assert.Error(t, err)
}
