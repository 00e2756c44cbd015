package pool

import (
	"github.com/shopspring/decimal"

	"poolreplay/internal/bmath"
)

// Recorded-apply mutators. When the replay validates recorded history
// instead of recomputing it, the dispatcher moves the exact historical
// amounts through the ledger with these, bypassing the pricing math but
// not the structural guards.

// CreditBalance adds amount to a bound token's balance.
func (p *Pool) CreditBalance(symbol string, amount decimal.Decimal) error {
	record, ok := p.bound(symbol)
	if !ok {
		return ErrNotBound
	}
	record.Balance = record.Balance.Add(amount)
	return nil
}

// DebitBalance subtracts amount from a bound token's balance, refusing
// to take it below the minimum.
func (p *Pool) DebitBalance(symbol string, amount decimal.Decimal) error {
	record, ok := p.bound(symbol)
	if !ok {
		return ErrNotBound
	}
	next := record.Balance.Sub(amount)
	if next.LessThan(bmath.MinBalance) {
		return ErrMinBalance
	}
	record.Balance = next
	return nil
}

// MintShares increases the pool share supply.
func (p *Pool) MintShares(amount decimal.Decimal) {
	p.shareSupply = p.shareSupply.Add(amount)
}

// BurnShares decreases the pool share supply net of the exit fee.
func (p *Pool) BurnShares(amount decimal.Decimal) error {
	exitFee := amount.Mul(bmath.ExitFee)
	next := p.shareSupply.Sub(amount.Sub(exitFee))
	if next.IsNegative() {
		return ErrMathApprox
	}
	p.shareSupply = next
	p.exitFeesShares = p.exitFeesShares.Add(exitFee)
	return nil
}
