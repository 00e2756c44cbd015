package bmath

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// assertClose fails unless got is within tol of want.
func assertClose(t *testing.T, got, want, tol decimal.Decimal) {
	t.Helper()
	diff := got.Sub(want).Abs()
	if diff.GreaterThan(tol) {
		t.Fatalf("got %s, want %s (diff %s > tol %s)", got, want, diff, tol)
	}
}

func TestSpotPriceEqualWeightsNoFee(t *testing.T) {
	price := SpotPrice(dec("10"), dec("20"), dec("5"), dec("20"), decimal.Zero)
	if !price.Equal(dec("2")) {
		t.Fatalf("spot price = %s, want 2", price)
	}
}

func TestSpotPriceWeightedWithFee(t *testing.T) {
	price := SpotPrice(dec("1333333"), dec("4"), dec("7500000"), dec("36"), dec("0.0001"))
	assertClose(t, price, dec("1.6"), dec("0.001"))
}

func TestOutGivenInNoFee(t *testing.T) {
	out := OutGivenIn(dec("10"), dec("20"), dec("100"), dec("20"), dec("1"), decimal.Zero)
	assertClose(t, out, dec("9.0909090909090909"), dec("0.001"))
}

func TestOutGivenInWithFee(t *testing.T) {
	out := OutGivenIn(dec("10"), dec("10"), dec("100"), dec("30"), dec("1"), dec("0.1"))
	assertClose(t, out, dec("2.8317232565404336"), dec("0.0000001"))
}

func TestInGivenOut(t *testing.T) {
	in := InGivenOut(dec("10"), dec("10"), dec("100"), dec("30"), dec("1"), dec("0.1"))
	assertClose(t, in, dec("0.340112801426272844"), dec("0.0000001"))
}

func TestPoolOutGivenSingleIn(t *testing.T) {
	out := PoolOutGivenSingleIn(dec("471000"), dec("36"), dec("100"), dec("40"), dec("10"), dec("0.001"))
	assertClose(t, out, dec("0.0019106349146009"), dec("0.0000001"))
}

func TestSingleInGivenPoolOut(t *testing.T) {
	in := SingleInGivenPoolOut(dec("471000"), dec("36"), dec("100"), dec("40"), dec("10"), dec("0.001"))
	assertClose(t, in, dec("52621.106362779467365737"), dec("0.00001"))
}

func TestSingleOutGivenPoolIn(t *testing.T) {
	out := SingleOutGivenPoolIn(dec("471000"), dec("36"), dec("100"), dec("40"), dec("10"), dec("0.001"))
	assertClose(t, out, dec("52028.342757248973119087"), dec("0.000001"))
}

func TestJoinSwapRoundTrip(t *testing.T) {
	// SingleInGivenPoolOut and PoolOutGivenSingleIn must be mutual
	// inverses for the same pool state.
	balIn := dec("471000")
	weightIn := dec("36")
	supply := dec("100")
	totalWeight := dec("40")
	fee := dec("0.001")

	poolOut := dec("10")
	amountIn := SingleInGivenPoolOut(balIn, weightIn, supply, totalWeight, poolOut, fee)
	back := PoolOutGivenSingleIn(balIn, weightIn, supply, totalWeight, amountIn, fee)
	assertClose(t, back, poolOut, dec("0.000000001"))
}

func TestSpotPriceMonotonicInBalances(t *testing.T) {
	weights := []string{"1", "10", "40"}
	fees := []string{"0", "0.0025", "0.1"}
	for _, w := range weights {
		for _, f := range fees {
			base := SpotPrice(dec("1000"), dec(w), dec("500"), dec("10"), dec(f))
			if base.Sign() <= 0 {
				t.Fatalf("spot price not positive: %s (w=%s fee=%s)", base, w, f)
			}
			higherIn := SpotPrice(dec("1100"), dec(w), dec("500"), dec("10"), dec(f))
			if !higherIn.GreaterThan(base) {
				t.Fatalf("spot price not increasing in balance_in (w=%s fee=%s)", w, f)
			}
			higherOut := SpotPrice(dec("1000"), dec(w), dec("600"), dec("10"), dec(f))
			if !higherOut.LessThan(base) {
				t.Fatalf("spot price not decreasing in balance_out (w=%s fee=%s)", w, f)
			}
		}
	}
}

func TestExitSideRoundTrip(t *testing.T) {
	balOut := dec("471000")
	weightOut := dec("36")
	supply := dec("100")
	totalWeight := dec("40")
	fee := dec("0.001")

	amountOut := dec("25000")
	poolIn := PoolInGivenSingleOut(balOut, weightOut, supply, totalWeight, amountOut, fee)
	back := SingleOutGivenPoolIn(balOut, weightOut, supply, totalWeight, poolIn, fee)
	assertClose(t, back, amountOut, dec("0.000001"))
}
