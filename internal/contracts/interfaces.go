package contracts

import "context"

// MarketDataProvider supplies the signal set. Missing signals are nil fields, not errors.
type MarketDataProvider interface {
	Name() string
	Fetch(ctx context.Context) (*SignalSet, error)
}

// HoldingsProvider supplies the portfolio in its stored order
type HoldingsProvider interface {
	Load(ctx context.Context) ([]Holding, error)
}

// StateStore persists the last accepted equity target
// ⭐ SSOT: ReadTarget returns ErrNoPreviousTarget when nothing has been accepted yet
type StateStore interface {
	ReadTarget(ctx context.Context) (int, error)
	WriteTarget(ctx context.Context, pct int) error
}

// DecisionRecorder keeps a history of advisor runs
type DecisionRecorder interface {
	Record(ctx context.Context, d *Decision) error
	Close() error
}

// DecisionPublisher pushes decisions to live subscribers
type DecisionPublisher interface {
	Publish(d *Decision)
}
