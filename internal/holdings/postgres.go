package holdings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/graham/internal/contracts"
)

// PostgresProvider reads holdings from graham.holdings
// ⭐ SSOT: holdings persistence lives here
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider creates a provider on pool
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

// Load returns holdings in insertion order
func (p *PostgresProvider) Load(ctx context.Context) ([]contracts.Holding, error) {
	query := `
		SELECT symbol, asset_class, market_value, quantity, price
		FROM graham.holdings
		ORDER BY id
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []contracts.Holding
	for rows.Next() {
		var h contracts.Holding
		if err := rows.Scan(&h.Symbol, &h.AssetClass, &h.MarketValue, &h.Quantity, &h.Price); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}

	return holdings, nil
}

// Replace swaps the stored portfolio for holdings in one transaction
func (p *PostgresProvider) Replace(ctx context.Context, holdings []contracts.Holding) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM graham.holdings"); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}

	query := `
		INSERT INTO graham.holdings (symbol, asset_class, market_value, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, h := range holdings {
		if _, err := tx.Exec(ctx, query, h.Symbol, h.AssetClass, h.MarketValue, h.Quantity, h.Price); err != nil {
			return fmt.Errorf("failed to insert holding %q: %w", h.Symbol, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
