package replay

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolreplay/internal/decode"
	"poolreplay/internal/model"
	"poolreplay/internal/pool"
)

// unboundedCap stands in for caller limits the historical record does
// not carry. The ledger's limit guards mirror on-chain require checks;
// during replay the recorded caps are soft-checked with warnings
// instead, since off-chain recomputation drifts from integer math.
var unboundedCap = decimal.RequireFromString("1e38")

// mismatchTolerance bounds the recomputed-vs-recorded drift accepted
// silently.
var mismatchTolerance = decimal.RequireFromString("1e-6")

// Dispatcher maps decoded operations onto pool ledger methods. Step is
// a pure function of the previous state and one record.
type Dispatcher struct {
	decoder        *decode.Decoder
	weightChanging bool
	weightStrategy WeightStrategy
	logger         *zap.Logger
}

// NewDispatcher wires a decoder and the weight-changing behavior.
func NewDispatcher(decoder *decode.Decoder, weightChanging bool, strategy WeightStrategy, logger *zap.Logger) (*Dispatcher, error) {
	if decoder == nil {
		return nil, fmt.Errorf("decoder is nil")
	}
	if weightChanging && !ValidWeightStrategy(strategy) {
		return nil, fmt.Errorf("unknown weight strategy %q", strategy)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		decoder:        decoder,
		weightChanging: weightChanging,
		weightStrategy: strategy,
		logger:         logger,
	}, nil
}

type handler func(d *Dispatcher, p *pool.Pool, op model.Operation, record model.ActionRecord) error

// handlers is the static operation table. It must stay total over the
// closed operation-kind set.
var handlers = map[model.OpTag]handler{
	model.OpSwapExactAmountIn:       (*Dispatcher).applySwapIn,
	model.OpSwapExactAmountOut:      (*Dispatcher).applySwapOut,
	model.OpJoinPool:                (*Dispatcher).applyJoin,
	model.OpJoinSwapExternAmountIn:  (*Dispatcher).applyJoinSwapExternIn,
	model.OpJoinSwapPoolAmountOut:   (*Dispatcher).applyJoinSwapPoolOut,
	model.OpExitPool:                (*Dispatcher).applyExit,
	model.OpExitSwapPoolAmountIn:    (*Dispatcher).applyExitSwapPoolIn,
	model.OpExitSwapExternAmountOut: (*Dispatcher).applyExitSwapExternOut,
}

// Step decodes one record and applies it to a clone of the previous
// pool, returning the next simulation state.
func (d *Dispatcher) Step(prev SimState, record model.ActionRecord) (SimState, error) {
	if err := record.Validate(); err != nil {
		return SimState{}, fmt.Errorf("%w: %v", decode.ErrConfiguration, err)
	}
	op, err := d.decoder.Decode(record)
	if err != nil {
		return SimState{}, err
	}

	next := SimState{
		Pool:           prev.Pool.Clone(),
		SpotPrices:     prev.SpotPrices,
		ExternalPrices: prev.ExternalPrices.Clone(),
		ChangeDatetime: record.Timestamp,
		ActionType:     record.Action.Type,
	}

	switch op.Tag {
	case model.OpPoolCreation:
		// The genesis document already encodes the creation.
		return next, nil
	case model.OpExternalPriceUpdate:
		for symbol, price := range op.PriceUpdate.Prices {
			next.ExternalPrices.Prices[symbol] = price
		}
		return next, nil
	}

	if record.SwapFee.IsPositive() {
		next.Pool.SetSwapFee(record.SwapFee)
	}
	if d.weightChanging && len(record.Denorms) > 0 {
		if err := ApplyWeightChange(next.Pool, record.Denorms, d.weightStrategy); err != nil {
			return SimState{}, err
		}
	}

	apply, ok := handlers[op.Tag]
	if !ok {
		return SimState{}, fmt.Errorf("%w: no handler for operation %q", decode.ErrConfiguration, op.Tag)
	}
	if err := apply(d, next.Pool, op, record); err != nil {
		return SimState{}, fmt.Errorf("apply %s (tx %s): %w", op.Tag, record.TxHash, err)
	}

	next.SpotPrices = ComputeSpotPrices(next.Pool)
	return next, nil
}

// replaying reports whether recorded outputs are applied verbatim.
func (d *Dispatcher) replaying() bool {
	return d.decoder.Strategy() == decode.ReplayOutput
}

func (d *Dispatcher) warnMismatch(record model.ActionRecord, what string, computed, recorded decimal.Decimal) {
	if recorded.IsZero() {
		return
	}
	if computed.Sub(recorded).Abs().GreaterThan(mismatchTolerance) {
		d.logger.Warn("recomputed amount drifts from recorded",
			zap.String("what", what),
			zap.String("tx_hash", record.TxHash),
			zap.String("computed", computed.String()),
			zap.String("recorded", recorded.String()),
		)
	}
}

func (d *Dispatcher) warnCap(record model.ActionRecord, what string, amount, limit decimal.Decimal, exceeded bool) {
	if limit.IsZero() || limit.Equal(unboundedCap) {
		return
	}
	if exceeded {
		d.logger.Warn("recorded limit violated by recomputation",
			zap.String("what", what),
			zap.String("tx_hash", record.TxHash),
			zap.String("amount", amount.String()),
			zap.String("limit", limit.String()),
		)
	}
}

// belowCap and aboveCap test cap violations beyond the drift tolerance.
func belowCap(amount, limit decimal.Decimal) bool {
	return amount.LessThan(limit.Sub(mismatchTolerance))
}

func aboveCap(amount, limit decimal.Decimal) bool {
	return amount.GreaterThan(limit.Add(mismatchTolerance))
}

func (d *Dispatcher) applySwapIn(p *pool.Pool, op model.Operation, record model.ActionRecord) error {
	in, out := op.SwapIn.In, op.SwapIn.Out
	tokenOut := out.TokenOut.Symbol
	if d.replaying() {
		if err := p.CreditBalance(in.TokenIn.Symbol, in.TokenIn.Amount); err != nil {
			return err
		}
		return p.DebitBalance(tokenOut, out.TokenOut.Amount)
	}
	result, err := p.SwapExactAmountIn(in.TokenIn.Symbol, in.TokenIn.Amount, tokenOut, decimal.Zero, in.MaxPrice)
	if err != nil {
		return err
	}
	d.warnCap(record, "swap min_amount_out", result.Amount.Amount, in.MinTokenOut.Amount, belowCap(result.Amount.Amount, in.MinTokenOut.Amount))
	d.warnMismatch(record, "swap amount_out", result.Amount.Amount, out.TokenOut.Amount)
	return nil
}

func (d *Dispatcher) applySwapOut(p *pool.Pool, op model.Operation, record model.ActionRecord) error {
	in, out := op.SwapOut.In, op.SwapOut.Out
	if d.replaying() {
		if err := p.CreditBalance(in.MaxTokenIn.Symbol, out.TokenIn.Amount); err != nil {
			return err
		}
		return p.DebitBalance(in.TokenOut.Symbol, in.TokenOut.Amount)
	}
	result, err := p.SwapExactAmountOut(in.MaxTokenIn.Symbol, unboundedCap, in.TokenOut.Symbol, in.TokenOut.Amount, in.MaxPrice)
	if err != nil {
		return err
	}
	d.warnCap(record, "swap max_amount_in", result.Amount.Amount, in.MaxTokenIn.Amount, aboveCap(result.Amount.Amount, in.MaxTokenIn.Amount))
	d.warnMismatch(record, "swap amount_in", result.Amount.Amount, out.TokenIn.Amount)
	return nil
}

func (d *Dispatcher) applyJoin(p *pool.Pool, op model.Operation, record model.ActionRecord) error {
	in, out := op.Join.In, op.Join.Out
	if d.replaying() {
		for _, amount := range out.TokensIn {
			if err := p.CreditBalance(amount.Symbol, amount.Amount); err != nil {
				return err
			}
		}
		p.MintShares(in.PoolAmountOut)
		return nil
	}
	amountsIn, err := p.JoinPool(in.PoolAmountOut, nil)
	if err != nil {
		return err
	}
	recorded := make(map[string]decimal.Decimal, len(out.TokensIn))
	for _, amount := range out.TokensIn {
		recorded[amount.Symbol] = amount.Amount
	}
	for _, amount := range amountsIn {
		d.warnMismatch(record, "join amount_in "+amount.Symbol, amount.Amount, recorded[amount.Symbol])
	}
	return nil
}

func (d *Dispatcher) applyJoinSwapExternIn(p *pool.Pool, op model.Operation, record model.ActionRecord) error {
	in, out := op.JoinSwapExternIn.In, op.JoinSwapExternIn.Out
	if d.replaying() {
		if err := p.CreditBalance(in.TokenIn.Symbol, in.TokenIn.Amount); err != nil {
			return err
		}
		p.MintShares(out.PoolAmountOut)
		return nil
	}
	poolAmountOut, err := p.JoinswapExternAmountIn(in.TokenIn.Symbol, in.TokenIn.Amount, decimal.Zero)
	if err != nil {
		return err
	}
	d.warnCap(record, "join_swap min_pool_amount_out", poolAmountOut, in.MinPoolAmountOut, belowCap(poolAmountOut, in.MinPoolAmountOut))
	d.warnMismatch(record, "join_swap pool_amount_out", poolAmountOut, out.PoolAmountOut)
	return nil
}

func (d *Dispatcher) applyJoinSwapPoolOut(p *pool.Pool, op model.Operation, record model.ActionRecord) error {
	in, out := op.JoinSwapPoolOut.In, op.JoinSwapPoolOut.Out
	if d.replaying() {
		if err := p.CreditBalance(in.TokenInSymbol, out.TokenIn.Amount); err != nil {
			return err
		}
		p.MintShares(in.PoolAmountOut)
		return nil
	}
	amountIn, err := p.JoinswapPoolAmountOut(in.TokenInSymbol, in.PoolAmountOut, unboundedCap)
	if err != nil {
		return err
	}
	d.warnCap(record, "join_swap max_amount_in", amountIn, in.MaxAmountIn, aboveCap(amountIn, in.MaxAmountIn))
	d.warnMismatch(record, "join_swap amount_in", amountIn, out.TokenIn.Amount)
	return nil
}

func (d *Dispatcher) applyExit(p *pool.Pool, op model.Operation, record model.ActionRecord) error {
	in, out := op.Exit.In, op.Exit.Out
	if d.replaying() {
		for _, amount := range out.TokensOut {
			if err := p.DebitBalance(amount.Symbol, amount.Amount); err != nil {
				return err
			}
		}
		return p.BurnShares(in.PoolAmountIn)
	}
	amountsOut, _, err := p.ExitPool(in.PoolAmountIn, nil)
	if err != nil {
		return err
	}
	recorded := make(map[string]decimal.Decimal, len(out.TokensOut))
	for _, amount := range out.TokensOut {
		recorded[amount.Symbol] = amount.Amount
	}
	for _, amount := range amountsOut {
		d.warnMismatch(record, "exit amount_out "+amount.Symbol, amount.Amount, recorded[amount.Symbol])
	}
	return nil
}

func (d *Dispatcher) applyExitSwapPoolIn(p *pool.Pool, op model.Operation, record model.ActionRecord) error {
	in, out := op.ExitSwapPoolIn.In, op.ExitSwapPoolIn.Out
	if d.replaying() {
		if err := p.DebitBalance(out.TokenOut.Symbol, out.TokenOut.Amount); err != nil {
			return err
		}
		return p.BurnShares(in.PoolAmountIn)
	}
	amountOut, err := p.ExitswapPoolAmountIn(in.TokenOutSymbol, in.PoolAmountIn, decimal.Zero)
	if err != nil {
		return err
	}
	d.warnCap(record, "exit_swap min_amount_out", amountOut, in.MinAmountOut, belowCap(amountOut, in.MinAmountOut))
	d.warnMismatch(record, "exit_swap amount_out", amountOut, out.TokenOut.Amount)
	return nil
}

func (d *Dispatcher) applyExitSwapExternOut(p *pool.Pool, op model.Operation, record model.ActionRecord) error {
	in, out := op.ExitSwapExternOut.In, op.ExitSwapExternOut.Out
	if d.replaying() {
		if err := p.DebitBalance(in.TokenOut.Symbol, in.TokenOut.Amount); err != nil {
			return err
		}
		return p.BurnShares(out.PoolAmountIn)
	}
	poolAmountIn, err := p.ExitswapExternAmountOut(in.TokenOut.Symbol, in.TokenOut.Amount, unboundedCap)
	if err != nil {
		return err
	}
	d.warnCap(record, "exit_swap max_pool_amount_in", poolAmountIn, in.MaxPoolAmountIn, aboveCap(poolAmountIn, in.MaxPoolAmountIn))
	d.warnMismatch(record, "exit_swap pool_amount_in", poolAmountIn, out.PoolAmountIn)
	return nil
}
