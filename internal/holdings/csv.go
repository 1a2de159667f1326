// Package holdings loads the portfolio from a CSV file or PostgreSQL
package holdings

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/pkg/logger"
)

// Column names
const (
	ColSymbol      = "symbol"
	ColAssetClass  = "asset_class"
	ColMarketValue = "market_value"
	ColQuantity    = "quantity"
	ColPrice       = "price"
)

// CSVProvider reads holdings from a CSV file with a header row.
// The header needs asset_class plus market_value, or quantity and price.
type CSVProvider struct {
	path   string
	logger *logger.Logger
}

// NewCSVProvider creates a provider for path
func NewCSVProvider(path string, log *logger.Logger) *CSVProvider {
	return &CSVProvider{path: path, logger: log.WithComponent("holdings")}
}

// Load reads and parses the file
func (p *CSVProvider) Load(ctx context.Context) ([]contracts.Holding, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("open holdings: %w", err)
	}
	defer f.Close()

	holdings, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("holdings %s: %w", p.path, err)
	}

	p.logger.WithFields(map[string]interface{}{
		"path":  p.path,
		"count": len(holdings),
	}).Debug("Loaded holdings")

	return holdings, nil
}

// ParseCSV parses holdings CSV. Empty cells are absent values; a row whose
// value can't be derived is kept and fails later in the planner.
func ParseCSV(r io.Reader) ([]contracts.Holding, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file: %w", contracts.ErrMissingValue)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	if _, ok := cols[ColAssetClass]; !ok {
		return nil, fmt.Errorf("header has no %s column: %w", ColAssetClass, contracts.ErrMissingAssetClass)
	}
	_, hasValue := cols[ColMarketValue]
	_, hasQty := cols[ColQuantity]
	_, hasPrice := cols[ColPrice]
	if !hasValue && !(hasQty && hasPrice) {
		return nil, fmt.Errorf("header needs %s or both %s and %s: %w",
			ColMarketValue, ColQuantity, ColPrice, contracts.ErrMissingValue)
	}

	var holdings []contracts.Holding
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		h := contracts.Holding{
			Symbol:     cell(record, cols, ColSymbol),
			AssetClass: cell(record, cols, ColAssetClass),
		}
		if h.MarketValue, err = number(record, cols, ColMarketValue); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if h.Quantity, err = number(record, cols, ColQuantity); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if h.Price, err = number(record, cols, ColPrice); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if h.AssetClass == "" {
			return nil, fmt.Errorf("line %d: %w", line, contracts.ErrMissingAssetClass)
		}

		holdings = append(holdings, h)
	}

	return holdings, nil
}

func cell(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// number parses a money-ish cell ("12,345.60", "$99"); empty means absent
func number(record []string, cols map[string]int, name string) (*float64, error) {
	raw := cell(record, cols, name)
	raw = strings.NewReplacer("$", "", ",", "").Replace(raw)
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", name, raw, err)
	}
	return &v, nil
}

// Static serves a fixed list of holdings (API requests, tests)
type Static []contracts.Holding

// Load returns the list
func (s Static) Load(ctx context.Context) ([]contracts.Holding, error) {
	return []contracts.Holding(s), nil
}
