// Package rebalance sizes the stock and bond trades that move a portfolio to an equity target.
// It is pure: no I/O, no state.
package rebalance

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/graham/internal/contracts"
)

// ClassWeights aggregates holdings by asset class
type ClassWeights struct {
	Classes    []string           `json:"classes"` // first-seen order
	Totals     map[string]float64 `json:"totals"`  // dollars per class
	Weights    map[string]float64 `json:"weights"` // percent of Investable
	Investable float64            `json:"investable_total"`
}

// WeightsByClass sums holdings per class. The investable total covers every
// class, except Cash when includeCash is false. Weights are zero when the
// investable total is zero.
func WeightsByClass(holdings []contracts.Holding, includeCash bool) (*ClassWeights, error) {
	cw := &ClassWeights{
		Classes: []string{},
		Totals:  make(map[string]float64),
		Weights: make(map[string]float64),
	}

	for i, h := range holdings {
		v, err := h.Value()
		if err != nil {
			return nil, fmt.Errorf("holding %d: %w", i, err)
		}
		if _, seen := cw.Totals[h.AssetClass]; !seen {
			cw.Classes = append(cw.Classes, h.AssetClass)
		}
		cw.Totals[h.AssetClass] += v
	}

	investable := make([]float64, 0, len(cw.Classes))
	for _, class := range cw.Classes {
		if !includeCash && class == contracts.AssetCash {
			continue
		}
		investable = append(investable, cw.Totals[class])
	}
	cw.Investable = floats.Sum(investable)

	for _, class := range cw.Classes {
		if cw.Investable == 0 {
			cw.Weights[class] = 0
			continue
		}
		cw.Weights[class] = cw.Totals[class] / cw.Investable * 100
	}

	return cw, nil
}

// Plan computes current and target stock/bond dollars for equityPct of the
// investable total. Classes other than Stock and Bond count toward the total
// (Cash only with includeCash) but are never traded.
func Plan(holdings []contracts.Holding, equityPct int, includeCash bool) (*contracts.RebalancePlan, error) {
	cw, err := WeightsByClass(holdings, includeCash)
	if err != nil {
		return nil, err
	}

	curStock := cw.Totals[contracts.AssetStock]
	curBond := cw.Totals[contracts.AssetBond]

	targetStock := cw.Investable * (float64(equityPct) / 100.0)
	targetBond := cw.Investable - targetStock

	return &contracts.RebalancePlan{
		InvestableTotal: cw.Investable,
		EquityTargetPct: equityPct,
		CurrentStock:    curStock,
		CurrentBond:     curBond,
		TargetStock:     targetStock,
		TargetBond:      targetBond,
		StockDelta:      targetStock - curStock,
		BondDelta:       targetBond - curBond,
	}, nil
}
