package replay

import (
	"fmt"

	"github.com/shopspring/decimal"

	"poolreplay/internal/model"
	"poolreplay/internal/pool"
)

// WeightStrategy selects how a record's denorm snapshot is applied to
// the pool when weight changing is enabled. Historical deployments ran
// two incompatible variants, so both are kept behind this flag.
type WeightStrategy string

const (
	// WeightLinear moves each token's denorm weight straight to the
	// snapshot value, adjusting the total weight by the deltas.
	WeightLinear WeightStrategy = "linear"
	// WeightProportional preserves the pool's current total weight and
	// redistributes it in the snapshot's proportions.
	WeightProportional WeightStrategy = "proportional"
)

// ValidWeightStrategy reports whether the name is a known strategy.
func ValidWeightStrategy(strategy WeightStrategy) bool {
	return strategy == WeightLinear || strategy == WeightProportional
}

// ApplyWeightChange moves the pool's denorm weights to the record's
// snapshot according to the strategy. Weight decreases are applied
// before increases so the total weight cap cannot trip transiently.
func ApplyWeightChange(p *pool.Pool, denorms []model.DenormSnapshot, strategy WeightStrategy) error {
	if len(denorms) == 0 {
		return nil
	}

	targets := make(map[string]decimal.Decimal, len(denorms))
	switch strategy {
	case WeightLinear:
		for _, snapshot := range denorms {
			targets[snapshot.TokenSymbol] = snapshot.Denorm
		}
	case WeightProportional:
		snapshotTotal := decimal.Zero
		for _, snapshot := range denorms {
			snapshotTotal = snapshotTotal.Add(snapshot.Denorm)
		}
		if snapshotTotal.IsZero() {
			return fmt.Errorf("denorm snapshot sums to zero")
		}
		currentTotal := p.TotalDenormWeight()
		for _, snapshot := range denorms {
			targets[snapshot.TokenSymbol] = snapshot.Denorm.Div(snapshotTotal).Mul(currentTotal)
		}
	default:
		return fmt.Errorf("unknown weight strategy %q", strategy)
	}

	apply := func(decreasing bool) error {
		for _, snapshot := range denorms {
			symbol := snapshot.TokenSymbol
			target := targets[symbol]
			current := p.DenormWeight(symbol)
			if target.LessThan(current) != decreasing || target.Equal(current) {
				continue
			}
			if _, err := p.Rebind(symbol, p.Balance(symbol), target); err != nil {
				return fmt.Errorf("rebind %s to denorm %s: %w", symbol, target, err)
			}
		}
		return nil
	}
	if err := apply(true); err != nil {
		return err
	}
	return apply(false)
}
