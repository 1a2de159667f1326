package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingValue: a holding has neither a market value nor quantity and price
	ErrMissingValue = errors.New("holding has neither market_value nor quantity and price")

	// ErrNegativeValue: a holding's market value is below zero
	ErrNegativeValue = errors.New("holding market value is negative")

	// ErrMissingAssetClass: a holding has no asset class label
	ErrMissingAssetClass = errors.New("holding has no asset_class")

	// ErrNoPreviousTarget: the state store has never accepted a target
	ErrNoPreviousTarget = errors.New("no previous target")
)

// ValidationError reports an invalid input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
