// Package advisor runs the allocation pipeline: signals, score, target,
// hysteresis, rebalance plan, then state, history and broadcast.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/internal/policy"
	"github.com/wonny/graham/internal/rebalance"
	"github.com/wonny/graham/internal/scoring"
	"github.com/wonny/graham/internal/target"
	"github.com/wonny/graham/pkg/logger"
)

// Advisor coordinates one recommendation run
// ⭐ SSOT: pipeline ordering lives here
type Advisor struct {
	provider  contracts.MarketDataProvider
	holdings  contracts.HoldingsProvider // nil: no plan
	state     contracts.StateStore
	recorder  contracts.DecisionRecorder
	publisher contracts.DecisionPublisher // optional

	logger *logger.Logger
	now    func() time.Time
	newID  func() string
}

// Option customizes an Advisor
type Option func(*Advisor)

// WithPublisher broadcasts every decision after it is recorded
func WithPublisher(p contracts.DecisionPublisher) Option {
	return func(a *Advisor) { a.publisher = p }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(a *Advisor) { a.now = now }
}

// New creates an advisor. holdings may be nil, in which case runs stop at the target.
func New(
	provider contracts.MarketDataProvider,
	holdings contracts.HoldingsProvider,
	state contracts.StateStore,
	recorder contracts.DecisionRecorder,
	log *logger.Logger,
	opts ...Option,
) *Advisor {
	a := &Advisor{
		provider: provider,
		holdings: holdings,
		state:    state,
		recorder: recorder,
		logger:   log.WithComponent("advisor"),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunConfig holds the per-run knobs
type RunConfig struct {
	Preferences      contracts.Preferences
	Band             int
	Mode             scoring.Mode
	PreviousOverride *int // compare against this instead of the stored target
	DryRun           bool // skip the state write
	PolicyHash       string
}

// Run executes the pipeline and returns the decision.
// The state store only ever receives the post-hysteresis target.
func (a *Advisor) Run(ctx context.Context, cfg RunConfig) (*contracts.Decision, error) {
	start := time.Now()

	if err := cfg.Preferences.Validate(); err != nil {
		return nil, fmt.Errorf("preferences: %w", err)
	}
	if cfg.Band < 0 {
		return nil, &contracts.ValidationError{Field: "band", Message: "must not be negative"}
	}
	if cfg.Mode == "" {
		cfg.Mode = scoring.ModeFull
	}

	d := &contracts.Decision{
		ID:          a.newID(),
		CreatedAt:   a.now().UTC(),
		Provider:    a.provider.Name(),
		ScoreMode:   string(cfg.Mode),
		Preferences: cfg.Preferences,
		PolicyHash:  cfg.PolicyHash,
		DryRun:      cfg.DryRun,
	}

	log := a.logger.WithFields(map[string]interface{}{
		"decision_id": d.ID,
		"provider":    d.Provider,
		"mode":        d.ScoreMode,
		"dry_run":     cfg.DryRun,
	})
	log.Info("Starting advisor run")

	// 1. Signals
	signals, err := a.provider.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch signals: %w", err)
	}
	if signals == nil {
		return nil, fmt.Errorf("fetch signals: %s returned no data", d.Provider)
	}
	d.Signals = signals.Clone()

	// 2. Score
	d.Breakdown = scoring.Breakdown(d.Signals)
	score := scoring.Evaluate(d.Signals, cfg.Mode).Total

	// 3-5. Target and hysteresis
	prev, err := a.previousTarget(ctx, cfg.PreviousOverride)
	if err != nil {
		return nil, err
	}
	d.Recommendation = target.Next(prev, score, cfg.Preferences, cfg.Band)

	// 6. Plan against the final target
	if a.holdings != nil {
		holdings, err := a.holdings.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load holdings: %w", err)
		}
		plan, err := rebalance.Plan(holdings, d.Recommendation.FinalPct, cfg.Preferences.IncludeCash)
		if err != nil {
			return nil, fmt.Errorf("rebalance plan: %w", err)
		}
		d.Plan = plan
	}

	// 7. Persist the accepted target
	if !cfg.DryRun {
		if err := a.state.WriteTarget(ctx, d.Recommendation.FinalPct); err != nil {
			log.WithError(err).Warn("Failed to persist target; next run will not see it")
		}
	}

	// 8. History and broadcast
	if err := a.recorder.Record(ctx, d); err != nil {
		log.WithError(err).Warn("Failed to record decision")
	}
	if a.publisher != nil {
		a.publisher.Publish(d)
	}

	fields := map[string]interface{}{
		"score":    score,
		"proposed": d.Recommendation.ProposedPct,
		"final":    d.Recommendation.FinalPct,
		"held":     d.Recommendation.Held,
		"signals":  d.Signals.Present(),
		"duration": time.Since(start).String(),
	}
	if d.Plan != nil {
		fields["stock_delta"] = d.Plan.StockDelta
	}
	log.WithFields(fields).Info("Advisor run completed")

	return d, nil
}

// previousTarget returns the override, the stored target, or nil when none was ever accepted
func (a *Advisor) previousTarget(ctx context.Context, override *int) (*int, error) {
	if override != nil {
		v := *override
		return &v, nil
	}

	v, err := a.state.ReadTarget(ctx)
	if errors.Is(err, contracts.ErrNoPreviousTarget) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read previous target: %w", err)
	}
	return &v, nil
}

// ConfigFromPolicy builds the run knobs of a policy file
func ConfigFromPolicy(p *policy.Policy, hash string) (RunConfig, error) {
	mode, err := scoring.ParseMode(p.Scoring.Mode)
	if err != nil {
		return RunConfig{}, err
	}
	return RunConfig{
		Preferences:      p.Preferences,
		Band:             p.Hysteresis.Band,
		Mode:             mode,
		PreviousOverride: p.Hysteresis.PreviousTarget,
		PolicyHash:       hash,
	}, nil
}
