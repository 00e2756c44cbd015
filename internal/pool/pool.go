// Package pool implements the stateful weighted-pool ledger: token and
// weight bookkeeping, pool-share supply, and the revert-style guards
// that mirror on-chain require checks.
//
// The ledger follows value semantics across replay steps: callers clone
// the previous pool, apply exactly one operation to the clone, and keep
// both. Nothing here is safe for concurrent mutation.
package pool

import (
	"github.com/shopspring/decimal"

	"poolreplay/internal/bmath"
	"poolreplay/internal/model"
)

// Token is one bound token's record.
type Token struct {
	Bound        bool
	DenormWeight decimal.Decimal
	Balance      decimal.Decimal
}

// NormalWeight returns the token's weight normalized by the pool total.
func (t Token) NormalWeight(totalWeight decimal.Decimal) decimal.Decimal {
	return t.DenormWeight.Div(totalWeight)
}

// Pool owns the token map (insertion-ordered for deterministic output),
// the swap fee, the share supply, and accumulated fees per token.
type Pool struct {
	symbols     []string
	records     map[string]*Token
	swapFee     decimal.Decimal
	shareSupply decimal.Decimal
	totalWeight decimal.Decimal

	generatedFees  map[string]decimal.Decimal
	exitFeesShares decimal.Decimal
}

// New returns an empty pool with the minimum fee and the initial share
// supply.
func New() *Pool {
	return &Pool{
		records:       make(map[string]*Token),
		swapFee:       bmath.MinFee,
		shareSupply:   bmath.InitPoolSupply,
		totalWeight:   decimal.Zero,
		generatedFees: make(map[string]decimal.Decimal),
	}
}

// Clone deep-copies the pool so a step never mutates its predecessor.
func (p *Pool) Clone() *Pool {
	clone := &Pool{
		symbols:        append([]string(nil), p.symbols...),
		records:        make(map[string]*Token, len(p.records)),
		swapFee:        p.swapFee,
		shareSupply:    p.shareSupply,
		totalWeight:    p.totalWeight,
		generatedFees:  make(map[string]decimal.Decimal, len(p.generatedFees)),
		exitFeesShares: p.exitFeesShares,
	}
	for symbol, record := range p.records {
		copied := *record
		clone.records[symbol] = &copied
	}
	for symbol, fee := range p.generatedFees {
		clone.generatedFees[symbol] = fee
	}
	return clone
}

// Symbols returns the bound token symbols in insertion order.
func (p *Pool) Symbols() []string {
	out := make([]string, 0, len(p.symbols))
	for _, symbol := range p.symbols {
		if record, ok := p.records[symbol]; ok && record.Bound {
			out = append(out, symbol)
		}
	}
	return out
}

func (p *Pool) NumTokens() int { return len(p.Symbols()) }

// Token returns a copy of the record for symbol.
func (p *Pool) Token(symbol string) (Token, bool) {
	record, ok := p.records[symbol]
	if !ok {
		return Token{}, false
	}
	return *record, true
}

func (p *Pool) Balance(symbol string) decimal.Decimal {
	if record, ok := p.records[symbol]; ok {
		return record.Balance
	}
	return decimal.Zero
}

func (p *Pool) DenormWeight(symbol string) decimal.Decimal {
	if record, ok := p.records[symbol]; ok {
		return record.DenormWeight
	}
	return decimal.Zero
}

func (p *Pool) NormalWeight(symbol string) decimal.Decimal {
	record, ok := p.records[symbol]
	if !ok || p.totalWeight.IsZero() {
		return decimal.Zero
	}
	return record.NormalWeight(p.totalWeight)
}

func (p *Pool) TotalDenormWeight() decimal.Decimal { return p.totalWeight }
func (p *Pool) ShareSupply() decimal.Decimal       { return p.shareSupply }
func (p *Pool) SwapFee() decimal.Decimal           { return p.swapFee }

// SetSwapFee applies a per-record fee snapshot before an operation.
// SetShareSupply overrides the default issuance, used when a genesis
// document records a supply other than InitPoolSupply. Non-positive
// values keep the current supply.
func (p *Pool) SetShareSupply(supply decimal.Decimal) {
	if supply.IsPositive() {
		p.shareSupply = supply
	}
}

func (p *Pool) SetSwapFee(fee decimal.Decimal) {
	p.swapFee = fee
}

// GeneratedFees returns the accumulated fee per token symbol.
func (p *Pool) GeneratedFees() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p.generatedFees))
	for symbol, fee := range p.generatedFees {
		out[symbol] = fee
	}
	return out
}

// ExitFeesCollected returns pool shares retained as protocol exit fees.
func (p *Pool) ExitFeesCollected() decimal.Decimal { return p.exitFeesShares }

func (p *Pool) recordFee(symbol string, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	p.generatedFees[symbol] = p.generatedFees[symbol].Add(amount)
}

// bound returns the record if symbol is currently bound.
func (p *Pool) bound(symbol string) (*Token, bool) {
	record, ok := p.records[symbol]
	if !ok || !record.Bound {
		return nil, false
	}
	return record, true
}

// Bind adds a new token and delegates weight/balance checks to Rebind.
func (p *Pool) Bind(symbol string, balance, denorm decimal.Decimal) error {
	if _, ok := p.bound(symbol); ok {
		return ErrIsBound
	}
	if p.NumTokens() >= bmath.MaxBoundTokens {
		return ErrMaxTokens
	}
	p.records[symbol] = &Token{Bound: true, DenormWeight: decimal.Zero, Balance: decimal.Zero}
	p.symbols = append(p.symbols, symbol)
	if _, err := p.Rebind(symbol, balance, denorm); err != nil {
		delete(p.records, symbol)
		p.symbols = p.symbols[:len(p.symbols)-1]
		return err
	}
	return nil
}

// Rebind updates a bound token's balance and weight, maintaining the
// total weight incrementally. The returned amount is the net token
// transfer to the caller: positive when balance decreased (withdrawal
// minus exit fee), negative when it increased (deposit owed).
func (p *Pool) Rebind(symbol string, balance, denorm decimal.Decimal) (decimal.Decimal, error) {
	record, ok := p.bound(symbol)
	if !ok {
		return decimal.Zero, ErrNotBound
	}
	if denorm.LessThan(bmath.MinWeight) {
		return decimal.Zero, ErrMinWeight
	}
	if denorm.GreaterThan(bmath.MaxWeight) {
		return decimal.Zero, ErrMaxWeight
	}
	if balance.LessThan(bmath.MinBalance) {
		return decimal.Zero, ErrMinBalance
	}

	oldWeight := record.DenormWeight
	if denorm.GreaterThan(oldWeight) {
		p.totalWeight = p.totalWeight.Add(denorm.Sub(oldWeight))
		if p.totalWeight.GreaterThan(bmath.MaxTotalWeight) {
			p.totalWeight = p.totalWeight.Sub(denorm.Sub(oldWeight))
			return decimal.Zero, ErrMaxTotalWeight
		}
	} else if denorm.LessThan(oldWeight) {
		p.totalWeight = p.totalWeight.Sub(oldWeight.Sub(denorm))
	}
	record.DenormWeight = denorm

	oldBalance := record.Balance
	record.Balance = balance

	if balance.GreaterThan(oldBalance) {
		// Caller must supply the deposit.
		return balance.Sub(oldBalance).Neg(), nil
	}
	if balance.LessThan(oldBalance) {
		withdrawn := oldBalance.Sub(balance)
		exitFee := withdrawn.Mul(bmath.ExitFee)
		p.recordFee(symbol, exitFee)
		return withdrawn.Sub(exitFee), nil
	}
	return decimal.Zero, nil
}

// Unbind removes a token and returns its balance net of the exit fee.
func (p *Pool) Unbind(symbol string) (model.TokenAmount, error) {
	record, ok := p.bound(symbol)
	if !ok {
		return model.TokenAmount{}, ErrNotBound
	}

	p.totalWeight = p.totalWeight.Sub(record.DenormWeight)
	exitFee := record.Balance.Mul(bmath.ExitFee)
	returned := record.Balance.Sub(exitFee)
	p.recordFee(symbol, exitFee)

	delete(p.records, symbol)
	for i, existing := range p.symbols {
		if existing == symbol {
			p.symbols = append(p.symbols[:i], p.symbols[i+1:]...)
			break
		}
	}
	return model.TokenAmount{Symbol: symbol, Amount: returned}, nil
}

// SpotPrice quotes tokenOut in units of tokenIn at the current fee.
func (p *Pool) SpotPrice(tokenIn, tokenOut string) (decimal.Decimal, error) {
	in, ok := p.bound(tokenIn)
	if !ok {
		return decimal.Zero, ErrNotBound
	}
	out, ok := p.bound(tokenOut)
	if !ok {
		return decimal.Zero, ErrNotBound
	}
	return bmath.SpotPrice(in.Balance, in.DenormWeight, out.Balance, out.DenormWeight, p.swapFee), nil
}

// SpotPriceSansFee quotes tokenOut in units of tokenIn ignoring the fee.
func (p *Pool) SpotPriceSansFee(tokenIn, tokenOut string) (decimal.Decimal, error) {
	in, ok := p.bound(tokenIn)
	if !ok {
		return decimal.Zero, ErrNotBound
	}
	out, ok := p.bound(tokenOut)
	if !ok {
		return decimal.Zero, ErrNotBound
	}
	return bmath.SpotPrice(in.Balance, in.DenormWeight, out.Balance, out.DenormWeight, decimal.Zero), nil
}

// JoinPool performs a proportional all-asset join, minting exactly
// poolAmountOut shares.
func (p *Pool) JoinPool(poolAmountOut decimal.Decimal, maxAmountsIn map[string]decimal.Decimal) ([]model.TokenAmount, error) {
	ratio := poolAmountOut.Div(p.shareSupply)
	if ratio.IsZero() {
		return nil, ErrMathApprox
	}

	amountsIn := make([]model.TokenAmount, 0, len(p.symbols))
	for _, symbol := range p.Symbols() {
		record := p.records[symbol]
		amountIn := ratio.Mul(record.Balance)
		if amountIn.IsZero() {
			return nil, ErrMathApprox
		}
		if limit, ok := maxAmountsIn[symbol]; ok && amountIn.GreaterThan(limit) {
			return nil, ErrLimitIn
		}
		amountsIn = append(amountsIn, model.TokenAmount{Symbol: symbol, Amount: amountIn})
	}
	for _, amount := range amountsIn {
		p.records[amount.Symbol].Balance = p.records[amount.Symbol].Balance.Add(amount.Amount)
	}
	p.shareSupply = p.shareSupply.Add(poolAmountOut)
	return amountsIn, nil
}

// ExitPool performs a proportional all-asset exit, burning poolAmountIn
// shares net of the exit fee. It returns the per-token withdrawals and
// the exit fee paid in shares.
func (p *Pool) ExitPool(poolAmountIn decimal.Decimal, minAmountsOut map[string]decimal.Decimal) ([]model.TokenAmount, decimal.Decimal, error) {
	exitFee := poolAmountIn.Mul(bmath.ExitFee)
	poolAmountInAfterFee := poolAmountIn.Sub(exitFee)
	ratio := poolAmountInAfterFee.Div(p.shareSupply)
	if ratio.IsZero() {
		return nil, decimal.Zero, ErrMathApprox
	}

	amountsOut := make([]model.TokenAmount, 0, len(p.symbols))
	for _, symbol := range p.Symbols() {
		record := p.records[symbol]
		amountOut := ratio.Mul(record.Balance)
		if amountOut.IsZero() {
			return nil, decimal.Zero, ErrMathApprox
		}
		if floor, ok := minAmountsOut[symbol]; ok && amountOut.LessThan(floor) {
			return nil, decimal.Zero, ErrLimitOut
		}
		amountsOut = append(amountsOut, model.TokenAmount{Symbol: symbol, Amount: amountOut})
	}
	for _, amount := range amountsOut {
		p.records[amount.Symbol].Balance = p.records[amount.Symbol].Balance.Sub(amount.Amount)
	}
	p.shareSupply = p.shareSupply.Sub(poolAmountInAfterFee)
	p.exitFeesShares = p.exitFeesShares.Add(exitFee)
	return amountsOut, exitFee, nil
}

// SwapResult is the outcome of a swap: the computed counter-amount plus
// the post-trade spot price.
type SwapResult struct {
	Amount         model.TokenAmount
	SpotPriceAfter decimal.Decimal
}

// SwapExactAmountIn trades a fixed input amount for as much of tokenOut
// as the invariant allows, guarding the price path.
func (p *Pool) SwapExactAmountIn(tokenIn string, amountIn decimal.Decimal, tokenOut string, minAmountOut, maxPrice decimal.Decimal) (SwapResult, error) {
	in, ok := p.bound(tokenIn)
	if !ok {
		return SwapResult{}, ErrNotBound
	}
	out, ok := p.bound(tokenOut)
	if !ok {
		return SwapResult{}, ErrNotBound
	}
	if amountIn.GreaterThan(in.Balance.Mul(bmath.MaxInRatio)) {
		return SwapResult{}, ErrMaxInRatio
	}

	spotPriceBefore := bmath.SpotPrice(in.Balance, in.DenormWeight, out.Balance, out.DenormWeight, p.swapFee)
	if spotPriceBefore.GreaterThan(maxPrice) {
		return SwapResult{}, ErrBadLimitPrice
	}

	amountOut := bmath.OutGivenIn(in.Balance, in.DenormWeight, out.Balance, out.DenormWeight, amountIn, p.swapFee)
	if amountOut.LessThan(minAmountOut) {
		return SwapResult{}, ErrLimitOut
	}

	in.Balance = in.Balance.Add(amountIn)
	out.Balance = out.Balance.Sub(amountOut)

	spotPriceAfter := bmath.SpotPrice(in.Balance, in.DenormWeight, out.Balance, out.DenormWeight, p.swapFee)
	if spotPriceAfter.LessThan(spotPriceBefore) {
		return SwapResult{}, ErrMathApprox
	}
	if spotPriceAfter.GreaterThan(maxPrice) {
		return SwapResult{}, ErrLimitPrice
	}
	if spotPriceBefore.GreaterThan(amountIn.Div(amountOut)) {
		return SwapResult{}, ErrMathApprox
	}

	p.recordFee(tokenIn, amountIn.Mul(p.swapFee))
	return SwapResult{
		Amount:         model.TokenAmount{Symbol: tokenOut, Amount: amountOut},
		SpotPriceAfter: spotPriceAfter,
	}, nil
}

// SwapExactAmountOut trades as little of tokenIn as possible for a fixed
// output amount.
func (p *Pool) SwapExactAmountOut(tokenIn string, maxAmountIn decimal.Decimal, tokenOut string, amountOut, maxPrice decimal.Decimal) (SwapResult, error) {
	in, ok := p.bound(tokenIn)
	if !ok {
		return SwapResult{}, ErrNotBound
	}
	out, ok := p.bound(tokenOut)
	if !ok {
		return SwapResult{}, ErrNotBound
	}
	if amountOut.GreaterThan(out.Balance.Mul(bmath.MaxOutRatio)) {
		return SwapResult{}, ErrMaxOutRatio
	}

	spotPriceBefore := bmath.SpotPrice(in.Balance, in.DenormWeight, out.Balance, out.DenormWeight, p.swapFee)
	if spotPriceBefore.GreaterThan(maxPrice) {
		return SwapResult{}, ErrBadLimitPrice
	}

	amountIn := bmath.InGivenOut(in.Balance, in.DenormWeight, out.Balance, out.DenormWeight, amountOut, p.swapFee)
	if amountIn.GreaterThan(maxAmountIn) {
		return SwapResult{}, ErrLimitIn
	}

	in.Balance = in.Balance.Add(amountIn)
	out.Balance = out.Balance.Sub(amountOut)

	spotPriceAfter := bmath.SpotPrice(in.Balance, in.DenormWeight, out.Balance, out.DenormWeight, p.swapFee)
	if spotPriceAfter.LessThan(spotPriceBefore) {
		return SwapResult{}, ErrMathApprox
	}
	if spotPriceAfter.GreaterThan(maxPrice) {
		return SwapResult{}, ErrLimitPrice
	}
	if spotPriceBefore.GreaterThan(amountIn.Div(amountOut)) {
		return SwapResult{}, ErrMathApprox
	}

	p.recordFee(tokenIn, amountIn.Mul(p.swapFee))
	return SwapResult{
		Amount:         model.TokenAmount{Symbol: tokenIn, Amount: amountIn},
		SpotPriceAfter: spotPriceAfter,
	}, nil
}

// JoinswapExternAmountIn deposits a fixed single-asset amount, minting
// pool shares.
func (p *Pool) JoinswapExternAmountIn(tokenIn string, amountIn, minPoolAmountOut decimal.Decimal) (decimal.Decimal, error) {
	in, ok := p.bound(tokenIn)
	if !ok {
		return decimal.Zero, ErrNotBound
	}
	if amountIn.GreaterThan(in.Balance.Mul(bmath.MaxInRatio)) {
		return decimal.Zero, ErrMaxInRatio
	}

	poolAmountOut := bmath.PoolOutGivenSingleIn(in.Balance, in.DenormWeight, p.shareSupply, p.totalWeight, amountIn, p.swapFee)
	if poolAmountOut.LessThan(minPoolAmountOut) {
		return decimal.Zero, ErrLimitOut
	}

	in.Balance = in.Balance.Add(amountIn)
	p.shareSupply = p.shareSupply.Add(poolAmountOut)
	p.recordFee(tokenIn, amountIn.Mul(one.Sub(p.NormalWeight(tokenIn))).Mul(p.swapFee))
	return poolAmountOut, nil
}

// JoinswapPoolAmountOut deposits however much tokenIn is needed to mint
// an exact amount of pool shares.
func (p *Pool) JoinswapPoolAmountOut(tokenIn string, poolAmountOut, maxAmountIn decimal.Decimal) (decimal.Decimal, error) {
	in, ok := p.bound(tokenIn)
	if !ok {
		return decimal.Zero, ErrNotBound
	}

	amountIn := bmath.SingleInGivenPoolOut(in.Balance, in.DenormWeight, p.shareSupply, p.totalWeight, poolAmountOut, p.swapFee)
	if amountIn.IsZero() {
		return decimal.Zero, ErrMathApprox
	}
	if amountIn.GreaterThan(maxAmountIn) {
		return decimal.Zero, ErrLimitIn
	}
	if amountIn.GreaterThan(in.Balance.Mul(bmath.MaxInRatio)) {
		return decimal.Zero, ErrMaxInRatio
	}

	in.Balance = in.Balance.Add(amountIn)
	p.shareSupply = p.shareSupply.Add(poolAmountOut)
	p.recordFee(tokenIn, amountIn.Mul(one.Sub(p.NormalWeight(tokenIn))).Mul(p.swapFee))
	return amountIn, nil
}

// ExitswapPoolAmountIn burns a fixed amount of shares for a single-asset
// withdrawal.
func (p *Pool) ExitswapPoolAmountIn(tokenOut string, poolAmountIn, minAmountOut decimal.Decimal) (decimal.Decimal, error) {
	out, ok := p.bound(tokenOut)
	if !ok {
		return decimal.Zero, ErrNotBound
	}

	amountOut := bmath.SingleOutGivenPoolIn(out.Balance, out.DenormWeight, p.shareSupply, p.totalWeight, poolAmountIn, p.swapFee)
	if amountOut.LessThan(minAmountOut) {
		return decimal.Zero, ErrLimitOut
	}
	if amountOut.GreaterThan(out.Balance.Mul(bmath.MaxOutRatio)) {
		return decimal.Zero, ErrMaxOutRatio
	}

	exitFee := poolAmountIn.Mul(bmath.ExitFee)
	out.Balance = out.Balance.Sub(amountOut)
	p.shareSupply = p.shareSupply.Sub(poolAmountIn.Sub(exitFee))
	p.exitFeesShares = p.exitFeesShares.Add(exitFee)
	p.recordFee(tokenOut, amountOut.Mul(one.Sub(p.NormalWeight(tokenOut))).Mul(p.swapFee))
	return amountOut, nil
}

// ExitswapExternAmountOut burns however many shares are needed for an
// exact single-asset withdrawal.
func (p *Pool) ExitswapExternAmountOut(tokenOut string, amountOut, maxPoolAmountIn decimal.Decimal) (decimal.Decimal, error) {
	out, ok := p.bound(tokenOut)
	if !ok {
		return decimal.Zero, ErrNotBound
	}
	if amountOut.GreaterThan(out.Balance.Mul(bmath.MaxOutRatio)) {
		return decimal.Zero, ErrMaxOutRatio
	}

	poolAmountIn := bmath.PoolInGivenSingleOut(out.Balance, out.DenormWeight, p.shareSupply, p.totalWeight, amountOut, p.swapFee)
	if poolAmountIn.IsZero() {
		return decimal.Zero, ErrMathApprox
	}
	if poolAmountIn.GreaterThan(maxPoolAmountIn) {
		return decimal.Zero, ErrLimitIn
	}

	exitFee := poolAmountIn.Mul(bmath.ExitFee)
	out.Balance = out.Balance.Sub(amountOut)
	p.shareSupply = p.shareSupply.Sub(poolAmountIn.Sub(exitFee))
	p.exitFeesShares = p.exitFeesShares.Add(exitFee)
	p.recordFee(tokenOut, amountOut.Mul(one.Sub(p.NormalWeight(tokenOut))).Mul(p.swapFee))
	return poolAmountIn, nil
}

var one = decimal.NewFromInt(1)
