// Package replay folds a time-ordered action log over the pool ledger.
// Each step consumes the previous simulation state and produces a new
// one; nothing is mutated across step boundaries.
package replay

import (
	"time"

	"github.com/shopspring/decimal"

	"poolreplay/internal/model"
	"poolreplay/internal/pool"
)

// SimState is the full simulation state after one step.
type SimState struct {
	Pool           *pool.Pool
	SpotPrices     model.SpotPrices
	ExternalPrices model.ExternalPrices
	ChangeDatetime time.Time
	ActionType     model.ActionKind
	Arbitrage      *model.ArbDetail
}

// ComputeSpotPrices derives the full pairwise rate table from the pool:
// table[quote][base] is the amount of quote one base buys.
func ComputeSpotPrices(p *pool.Pool) model.SpotPrices {
	symbols := p.Symbols()
	table := make(model.SpotPrices, len(symbols))
	for _, quote := range symbols {
		table[quote] = make(map[string]decimal.Decimal, len(symbols)-1)
		for _, base := range symbols {
			if base == quote {
				continue
			}
			price, err := p.SpotPrice(quote, base)
			if err != nil {
				continue
			}
			table[quote][base] = price
		}
	}
	return table
}

// Snapshot flattens the state into one output row.
func (s SimState) Snapshot(step int, txHash string) model.Snapshot {
	symbols := s.Pool.Symbols()
	tokens := make([]model.SnapshotToken, 0, len(symbols))
	for _, symbol := range symbols {
		record, _ := s.Pool.Token(symbol)
		tokens = append(tokens, model.SnapshotToken{
			Symbol:       symbol,
			Bound:        record.Bound,
			DenormWeight: record.DenormWeight,
			Weight:       s.Pool.NormalWeight(symbol),
			Balance:      record.Balance,
		})
	}
	return model.Snapshot{
		Step:           step,
		Timestamp:      s.ChangeDatetime,
		ActionType:     s.ActionType,
		TxHash:         txHash,
		Tokens:         tokens,
		PoolShares:     s.Pool.ShareSupply(),
		SwapFee:        s.Pool.SwapFee(),
		GeneratedFees:  s.Pool.GeneratedFees(),
		SpotPrices:     s.SpotPrices,
		ExternalPrices: s.ExternalPrices.Clone().Prices,
		Arbitrage:      s.Arbitrage,
	}
}
