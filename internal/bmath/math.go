// Package bmath implements the weighted constant-mean pool formulas over
// arbitrary-precision decimals, reproducing 18-decimal fixed-point
// on-chain arithmetic within the configured precision.
//
// All functions are pure and stateless. Inputs must be non-negative and
// denominators non-zero; the pool ledger guarantees this before calling,
// so a violation here is a programming error and panics.
package bmath

import "github.com/shopspring/decimal"

// SpotPrice returns the instantaneous price of the out token quoted in
// the in token:
//
//	sp = (balIn/wIn) / (balOut/wOut) * 1/(1-fee)
func SpotPrice(balIn, weightIn, balOut, weightOut, swapFee decimal.Decimal) decimal.Decimal {
	numer := balIn.Div(weightIn)
	denom := balOut.Div(weightOut)
	ratio := numer.Div(denom)
	scale := one.Div(one.Sub(swapFee))
	return ratio.Mul(scale)
}

// OutGivenIn returns the amount of the out token received for a given
// amount of the in token:
//
//	aO = bO * (1 - (bI / (bI + aI*(1-fee)))^(wI/wO))
func OutGivenIn(balIn, weightIn, balOut, weightOut, amountIn, swapFee decimal.Decimal) decimal.Decimal {
	weightRatio := weightIn.Div(weightOut)
	adjustedIn := amountIn.Mul(one.Sub(swapFee))
	y := balIn.Div(balIn.Add(adjustedIn))
	foo := pow(y, weightRatio)
	return balOut.Mul(one.Sub(foo))
}

// InGivenOut solves OutGivenIn for the input amount:
//
//	aI = bI * ((bO / (bO - aO))^(wO/wI) - 1) / (1-fee)
func InGivenOut(balIn, weightIn, balOut, weightOut, amountOut, swapFee decimal.Decimal) decimal.Decimal {
	weightRatio := weightOut.Div(weightIn)
	y := balOut.Div(balOut.Sub(amountOut))
	foo := pow(y, weightRatio).Sub(one)
	return balIn.Mul(foo).Div(one.Sub(swapFee))
}

// PoolOutGivenSingleIn returns the pool shares minted for a single-asset
// deposit. The swap fee is charged on the proportion of the deposit that
// is implicitly traded into the other tokens, i.e. (1 - normalizedWeight).
func PoolOutGivenSingleIn(balIn, weightIn, poolSupply, totalWeight, amountIn, swapFee decimal.Decimal) decimal.Decimal {
	normalizedWeight := weightIn.Div(totalWeight)
	zaz := one.Sub(normalizedWeight).Mul(swapFee)
	amountInAfterFee := amountIn.Mul(one.Sub(zaz))

	newBalIn := balIn.Add(amountInAfterFee)
	tokenInRatio := newBalIn.Div(balIn)

	poolRatio := pow(tokenInRatio, normalizedWeight)
	newPoolSupply := poolRatio.Mul(poolSupply)
	return newPoolSupply.Sub(poolSupply)
}

// SingleInGivenPoolOut is the inverse of PoolOutGivenSingleIn: the
// single-asset deposit needed to mint an exact amount of pool shares.
// Fees are applied in reverse order so the two functions round-trip.
func SingleInGivenPoolOut(balIn, weightIn, poolSupply, totalWeight, poolAmountOut, swapFee decimal.Decimal) decimal.Decimal {
	normalizedWeight := weightIn.Div(totalWeight)
	newPoolSupply := poolSupply.Add(poolAmountOut)
	poolRatio := newPoolSupply.Div(poolSupply)

	tokenRatio := pow(poolRatio, one.Div(normalizedWeight))
	newBalIn := tokenRatio.Mul(balIn)
	amountInAfterFee := newBalIn.Sub(balIn)

	zar := one.Sub(normalizedWeight).Mul(swapFee)
	return amountInAfterFee.Div(one.Sub(zar))
}

// SingleOutGivenPoolIn returns the single-asset withdrawal for burning a
// given amount of pool shares. ExitFee is charged on the pool-share side
// and the swap fee on the output token side.
func SingleOutGivenPoolIn(balOut, weightOut, poolSupply, totalWeight, poolAmountIn, swapFee decimal.Decimal) decimal.Decimal {
	normalizedWeight := weightOut.Div(totalWeight)

	poolAmountInAfterExitFee := poolAmountIn.Mul(one.Sub(ExitFee))
	newPoolSupply := poolSupply.Sub(poolAmountInAfterExitFee)
	poolRatio := newPoolSupply.Div(poolSupply)

	tokenOutRatio := pow(poolRatio, one.Div(normalizedWeight))
	newBalOut := tokenOutRatio.Mul(balOut)
	amountOutBeforeSwapFee := balOut.Sub(newBalOut)

	zaz := one.Sub(normalizedWeight).Mul(swapFee)
	return amountOutBeforeSwapFee.Mul(one.Sub(zaz))
}

// PoolInGivenSingleOut is the inverse of SingleOutGivenPoolIn: the pool
// shares burned for an exact single-asset withdrawal.
func PoolInGivenSingleOut(balOut, weightOut, poolSupply, totalWeight, amountOut, swapFee decimal.Decimal) decimal.Decimal {
	normalizedWeight := weightOut.Div(totalWeight)
	zar := one.Sub(normalizedWeight).Mul(swapFee)
	amountOutBeforeSwapFee := amountOut.Div(one.Sub(zar))

	newBalOut := balOut.Sub(amountOutBeforeSwapFee)
	tokenOutRatio := newBalOut.Div(balOut)

	poolRatio := pow(tokenOutRatio, normalizedWeight)
	newPoolSupply := poolRatio.Mul(poolSupply)
	poolAmountInAfterExitFee := poolSupply.Sub(newPoolSupply)

	return poolAmountInAfterExitFee.Div(one.Sub(ExitFee))
}

// pow raises base to a fractional exponent at the process-wide precision.
// The base is always a positive balance or supply ratio here, so an error
// from the underlying implementation means a caller broke the contract.
func pow(base, exponent decimal.Decimal) decimal.Decimal {
	result, err := base.PowWithPrecision(exponent, DivisionPrecision)
	if err != nil {
		panic("bmath: pow domain error: " + err.Error())
	}
	return result
}
