// Package arb implements the synthetic arbitrage trader: a grid search
// over trade size for the token pair the pool misprices most against an
// external reference market.
package arb

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolreplay/internal/bmath"
	"poolreplay/internal/model"
	"poolreplay/internal/pool"
)

// blockDelay schedules an injected trade roughly one block after the
// step that triggered it.
const blockDelay = 15 * time.Second

// Config holds the search bounds, all in reference-currency units.
type Config struct {
	ExternalCurrency string
	MinLiquidity     decimal.Decimal
	MaxLiquidity     decimal.Decimal
	Granularity      decimal.Decimal
	TransactionCost  decimal.Decimal
}

// Trade is one evaluated grid point.
type Trade struct {
	TokenIn         string
	TokenAmountIn   decimal.Decimal
	LiquidityIn     decimal.Decimal
	TokenOut        string
	TokenAmountOut  decimal.Decimal
	TransactionCost decimal.Decimal
	Profit          decimal.Decimal
}

// Proposal is an arbitrage trade the policy wants injected into the
// replay, scheduled shortly after the triggering step.
type Proposal struct {
	Swap   model.SwapPair
	At     time.Time
	Detail model.ArbDetail
}

type candidate struct {
	tokenIn  string
	tokenOut string
	gap      decimal.Decimal
}

// Policy evaluates the pool against external prices each step.
type Policy struct {
	cfg    Config
	logger *zap.Logger
}

// NewPolicy validates the search bounds.
func NewPolicy(cfg Config, logger *zap.Logger) (*Policy, error) {
	if !cfg.Granularity.IsPositive() {
		return nil, fmt.Errorf("arb liquidity granularity must be positive")
	}
	if cfg.MinLiquidity.GreaterThanOrEqual(cfg.MaxLiquidity) {
		return nil, fmt.Errorf("min arb liquidity %s must be below max %s", cfg.MinLiquidity, cfg.MaxLiquidity)
	}
	if cfg.TransactionCost.IsNegative() {
		return nil, fmt.Errorf("transaction cost must not be negative")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{cfg: cfg, logger: logger}, nil
}

// Evaluate returns the best profitable trade, or nil when no grid point
// clears twice the transaction cost.
func (a *Policy) Evaluate(p *pool.Pool, spotPrices model.SpotPrices, external model.ExternalPrices, now time.Time) (*Proposal, error) {
	candidates := a.findCandidates(spotPrices, external)
	if len(candidates) == 0 {
		return nil, nil
	}
	best := candidates[0]

	trade, err := a.bestTradeSize(p, best.tokenIn, best.tokenOut, external)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, nil
	}
	if trade.Profit.LessThan(a.cfg.TransactionCost.Mul(two)) {
		a.logger.Debug("best trade below profit threshold",
			zap.String("token_in", trade.TokenIn),
			zap.String("token_out", trade.TokenOut),
			zap.String("profit", trade.Profit.String()),
		)
		return nil, nil
	}

	a.logger.Info("arbitrage trade selected",
		zap.String("token_in", trade.TokenIn),
		zap.String("token_out", trade.TokenOut),
		zap.String("liquidity_in", trade.LiquidityIn.String()),
		zap.String("profit", trade.Profit.String()),
		zap.String("currency", a.cfg.ExternalCurrency),
	)
	return &Proposal{
		Swap: model.SwapPair{
			In: model.SwapExactAmountInInput{
				TokenIn:     model.TokenAmount{Symbol: trade.TokenIn, Amount: trade.TokenAmountIn},
				MinTokenOut: model.TokenAmount{Symbol: trade.TokenOut, Amount: decimal.Zero},
				MaxPrice:    unboundedPrice,
			},
			Out: model.SwapExactAmountInOutput{
				TokenOut: model.TokenAmount{Symbol: trade.TokenOut, Amount: trade.TokenAmountOut},
			},
		},
		At: now.Add(blockDelay),
		Detail: model.ArbDetail{
			TokenIn:        trade.TokenIn,
			TokenAmountIn:  trade.TokenAmountIn,
			LiquidityIn:    trade.LiquidityIn,
			TokenOut:       trade.TokenOut,
			TokenAmountOut: trade.TokenAmountOut,
			TxCost:         trade.TransactionCost,
			Profit:         trade.Profit,
			Currency:       a.cfg.ExternalCurrency,
		},
	}, nil
}

// findCandidates collects ordered pairs where the pool quotes the base
// token below its external price, ranked by relative gap. The pool
// table reads spotPrices[quote][base] = quote units per one base, so a
// winning pair trades quote in and takes base out.
func (a *Policy) findCandidates(spotPrices model.SpotPrices, external model.ExternalPrices) []candidate {
	quotes := make([]string, 0, len(spotPrices))
	for quote := range spotPrices {
		quotes = append(quotes, quote)
	}
	sort.Strings(quotes)

	var candidates []candidate
	for _, quote := range quotes {
		quotePrice, ok := external.Prices[quote]
		if !ok {
			continue
		}
		bases := make([]string, 0, len(spotPrices[quote]))
		for base := range spotPrices[quote] {
			bases = append(bases, base)
		}
		sort.Strings(bases)

		for _, base := range bases {
			basePrice, ok := external.Prices[base]
			if !ok || !basePrice.IsPositive() {
				continue
			}
			implied := spotPrices[quote][base].Mul(quotePrice)
			if implied.GreaterThanOrEqual(basePrice) {
				continue
			}
			candidates = append(candidates, candidate{
				tokenIn:  quote,
				tokenOut: base,
				gap:      basePrice.Sub(implied).Div(basePrice),
			})
		}
	}
	// Rank by gap, symbols break ties for determinism.
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].gap.Equal(candidates[j].gap) {
			return candidates[i].gap.GreaterThan(candidates[j].gap)
		}
		if candidates[i].tokenIn != candidates[j].tokenIn {
			return candidates[i].tokenIn < candidates[j].tokenIn
		}
		return candidates[i].tokenOut < candidates[j].tokenOut
	})
	return candidates
}

// bestTradeSize walks the liquidity grid and keeps the max-profit size.
// Sizes breaching the input ratio cap are discarded. Ties keep the
// smallest size.
func (a *Policy) bestTradeSize(p *pool.Pool, tokenIn, tokenOut string, external model.ExternalPrices) (*Trade, error) {
	in, ok := p.Token(tokenIn)
	if !ok {
		return nil, fmt.Errorf("token %s not bound", tokenIn)
	}
	out, ok := p.Token(tokenOut)
	if !ok {
		return nil, fmt.Errorf("token %s not bound", tokenOut)
	}
	inPrice := external.Prices[tokenIn]
	outPrice := external.Prices[tokenOut]
	if !inPrice.IsPositive() || !outPrice.IsPositive() {
		return nil, fmt.Errorf("missing external price for %s/%s", tokenIn, tokenOut)
	}
	maxAmountIn := in.Balance.Mul(bmath.MaxInRatio)

	var best *Trade
	for size := a.cfg.MinLiquidity; size.LessThan(a.cfg.MaxLiquidity); size = size.Add(a.cfg.Granularity) {
		amountIn := size.Div(inPrice)
		if amountIn.GreaterThan(maxAmountIn) {
			continue
		}
		amountOut := bmath.OutGivenIn(in.Balance, in.DenormWeight, out.Balance, out.DenormWeight, amountIn, p.SwapFee())
		profit := amountOut.Mul(outPrice).Sub(size).Sub(a.cfg.TransactionCost)
		if best == nil || profit.GreaterThan(best.Profit) {
			best = &Trade{
				TokenIn:         tokenIn,
				TokenAmountIn:   amountIn,
				LiquidityIn:     size,
				TokenOut:        tokenOut,
				TokenAmountOut:  amountOut,
				TransactionCost: a.cfg.TransactionCost,
				Profit:          profit,
			}
		}
	}
	return best, nil
}

var (
	two            = decimal.NewFromInt(2)
	unboundedPrice = decimal.RequireFromString("1e38")
)
