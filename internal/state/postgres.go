package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/graham/internal/contracts"
)

// PostgresStore keeps the target in the single-row graham.target_state table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ReadTarget returns ErrNoPreviousTarget when the row doesn't exist
func (s *PostgresStore) ReadTarget(ctx context.Context) (int, error) {
	var pct int
	err := s.pool.QueryRow(ctx, `SELECT prev_target FROM graham.target_state WHERE id = 1`).Scan(&pct)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, contracts.ErrNoPreviousTarget
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read target state: %w", err)
	}
	return pct, nil
}

// WriteTarget upserts the row
func (s *PostgresStore) WriteTarget(ctx context.Context, pct int) error {
	if err := checkPct(pct); err != nil {
		return err
	}

	query := `
		INSERT INTO graham.target_state (id, prev_target, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET
			prev_target = EXCLUDED.prev_target,
			updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, pct); err != nil {
		return fmt.Errorf("failed to write target state: %w", err)
	}
	return nil
}

// Reset deletes the row
func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM graham.target_state WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to reset target state: %w", err)
	}
	return nil
}
