// Package recorder keeps the history of advisor decisions
package recorder

import (
	"context"
	"time"

	"github.com/wonny/graham/internal/contracts"
)

// Reader lists recorded decisions, newest first
type Reader interface {
	Recent(ctx context.Context, limit int) ([]*contracts.Decision, error)
}

// Pruner removes old history
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// NoopRecorder drops every decision; used when no SQLite path is configured
type NoopRecorder struct{}

func (NoopRecorder) Record(ctx context.Context, d *contracts.Decision) error { return nil }

func (NoopRecorder) Recent(ctx context.Context, limit int) ([]*contracts.Decision, error) {
	return []*contracts.Decision{}, nil
}

func (NoopRecorder) Prune(ctx context.Context, cutoff time.Time) (int64, error) { return 0, nil }

func (NoopRecorder) Close() error { return nil }
