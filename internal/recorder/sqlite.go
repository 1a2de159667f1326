package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/pkg/logger"
)

// SQLiteRecorder persists decisions to a SQLite database
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *logger.Logger
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations
func NewSQLiteRecorder(dbPath string, log *logger.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read history while the scheduler writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: log.WithComponent("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.WithField("path", dbPath).Info("SQLite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			id               TEXT PRIMARY KEY,
			created_at       INTEGER NOT NULL,
			provider         TEXT,
			score_mode       TEXT,
			score            REAL,
			proposed_pct     INTEGER,
			previous_pct     INTEGER,
			final_pct        INTEGER,
			held             INTEGER,
			investable_total REAL,
			stock_delta      REAL,
			bond_delta       REAL,
			dry_run          INTEGER,
			policy_hash      TEXT,
			signals_json     TEXT,
			decision_json    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Record inserts d. The full decision is kept as JSON next to the queryable columns.
func (r *SQLiteRecorder) Record(ctx context.Context, d *contracts.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	signalsJSON, err := json.Marshal(d.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	decisionJSON, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	var previous sql.NullInt64
	if d.Recommendation.PreviousPct != nil {
		previous = sql.NullInt64{Int64: int64(*d.Recommendation.PreviousPct), Valid: true}
	}

	var investable, stockDelta, bondDelta sql.NullFloat64
	if d.Plan != nil {
		investable = sql.NullFloat64{Float64: d.Plan.InvestableTotal, Valid: true}
		stockDelta = sql.NullFloat64{Float64: d.Plan.StockDelta, Valid: true}
		bondDelta = sql.NullFloat64{Float64: d.Plan.BondDelta, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO decisions (
		id, created_at, provider, score_mode, score, proposed_pct, previous_pct, final_pct,
		held, investable_total, stock_delta, bond_delta, dry_run, policy_hash, signals_json, decision_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CreatedAt.UnixMilli(), d.Provider, d.ScoreMode,
		d.Recommendation.Score, d.Recommendation.ProposedPct, previous, d.Recommendation.FinalPct,
		boolToInt(d.Recommendation.Held), investable, stockDelta, bondDelta,
		boolToInt(d.DryRun), d.PolicyHash, string(signalsJSON), string(decisionJSON),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// Recent returns up to limit decisions, newest first
func (r *SQLiteRecorder) Recent(ctx context.Context, limit int) ([]*contracts.Decision, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT decision_json FROM decisions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	out := []*contracts.Decision{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		var d contracts.Decision
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decode decision: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// Prune deletes decisions created before cutoff and returns how many were removed
func (r *SQLiteRecorder) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `DELETE FROM decisions WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune decisions: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
