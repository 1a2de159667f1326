package contracts

import (
	"fmt"
	"math"
)

// Asset classes the planner targets. Matching is exact; any other label
// counts toward the investable total but is never traded.
const (
	AssetStock = "Stock"
	AssetBond  = "Bond"
	AssetCash  = "Cash"
)

// Holding is one portfolio line item
type Holding struct {
	Symbol      string   `json:"symbol,omitempty"`
	AssetClass  string   `json:"asset_class"`
	MarketValue *float64 `json:"market_value,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// Value returns the market value, or quantity × price when no market value is given
func (h Holding) Value() (float64, error) {
	if h.AssetClass == "" {
		return 0, fmt.Errorf("holding %q: %w", h.Symbol, ErrMissingAssetClass)
	}

	var v float64
	switch {
	case h.MarketValue != nil && !math.IsNaN(*h.MarketValue):
		v = *h.MarketValue
	case h.Quantity != nil && h.Price != nil && !math.IsNaN(*h.Quantity) && !math.IsNaN(*h.Price):
		v = *h.Quantity * *h.Price
	default:
		return 0, fmt.Errorf("holding %q: %w", h.Symbol, ErrMissingValue)
	}

	if v < 0 {
		return 0, fmt.Errorf("holding %q value %.2f: %w", h.Symbol, v, ErrNegativeValue)
	}
	return v, nil
}
