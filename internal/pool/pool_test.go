package pool

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"poolreplay/internal/bmath"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertClose(t *testing.T, got, want, tol decimal.Decimal) {
	t.Helper()
	if got.Sub(want).Abs().GreaterThan(tol) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func unbounded() decimal.Decimal {
	return dec("1000000000000000000000000")
}

func TestBindEqualWeights(t *testing.T) {
	p := New()
	for _, bind := range []struct {
		symbol  string
		balance string
	}{
		{"WETH", "50"},
		{"ETHIX", "20"},
		{"DAI", "10000"},
	} {
		if err := p.Bind(bind.symbol, dec(bind.balance), dec("5")); err != nil {
			t.Fatalf("bind %s: %v", bind.symbol, err)
		}
	}

	if p.NumTokens() != 3 {
		t.Fatalf("num tokens = %d, want 3", p.NumTokens())
	}
	if !p.TotalDenormWeight().Equal(dec("15")) {
		t.Fatalf("total weight = %s, want 15", p.TotalDenormWeight())
	}
	if !p.DenormWeight("WETH").Equal(dec("5")) {
		t.Fatalf("WETH denorm = %s, want 5", p.DenormWeight("WETH"))
	}
	assertClose(t, p.NormalWeight("WETH"), dec("0.333333333333333333"), dec("0.000000000001"))
	if !p.Balance("ETHIX").Equal(dec("20")) {
		t.Fatalf("ETHIX balance = %s, want 20", p.Balance("ETHIX"))
	}
}

func TestBindDuplicateFails(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("50"), dec("5")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("WETH", dec("50"), dec("5")); !errors.Is(err, ErrIsBound) {
		t.Fatalf("err = %v, want ERR_ALREADY_BOUND", err)
	}
}

func TestBindThenUnbindRestoresWeight(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("50"), dec("5")); err != nil {
		t.Fatalf("bind WETH: %v", err)
	}
	before := p.TotalDenormWeight()

	if err := p.Bind("DAI", dec("10000"), dec("10")); err != nil {
		t.Fatalf("bind DAI: %v", err)
	}
	returned, err := p.Unbind("DAI")
	if err != nil {
		t.Fatalf("unbind: %v", err)
	}

	want := dec("10000").Sub(dec("10000").Mul(bmath.ExitFee))
	if !returned.Amount.Equal(want) {
		t.Fatalf("unbind returned %s, want %s", returned.Amount, want)
	}
	if !p.TotalDenormWeight().Equal(before) {
		t.Fatalf("total weight = %s, want %s", p.TotalDenormWeight(), before)
	}
	if _, ok := p.Token("DAI"); ok {
		t.Fatal("DAI still bound after unbind")
	}
}

func TestRebindGuards(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("50"), dec("5")); err != nil {
		t.Fatalf("bind: %v", err)
	}

	cases := []struct {
		name    string
		balance string
		denorm  string
		want    error
	}{
		{"below min weight", "50", "0.5", ErrMinWeight},
		{"above max weight", "50", "51", ErrMaxWeight},
		{"below min balance", "0.0000000000001", "5", ErrMinBalance},
	}
	for _, tc := range cases {
		if _, err := p.Rebind("WETH", dec(tc.balance), dec(tc.denorm)); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}

	if _, err := p.Rebind("GHOST", dec("1"), dec("5")); !errors.Is(err, ErrNotBound) {
		t.Fatalf("unbound rebind err = %v, want ERR_NOT_BOUND", err)
	}
}

func TestRebindReturnsNetTransfer(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("50"), dec("5")); err != nil {
		t.Fatalf("bind: %v", err)
	}

	// Balance increase: caller owes the deposit.
	owed, err := p.Rebind("WETH", dec("60"), dec("5"))
	if err != nil {
		t.Fatalf("rebind up: %v", err)
	}
	if !owed.Equal(dec("-10")) {
		t.Fatalf("deposit owed = %s, want -10", owed)
	}

	// Balance decrease: withdrawal minus exit fee comes back.
	returned, err := p.Rebind("WETH", dec("45"), dec("5"))
	if err != nil {
		t.Fatalf("rebind down: %v", err)
	}
	want := dec("15").Sub(dec("15").Mul(bmath.ExitFee))
	if !returned.Equal(want) {
		t.Fatalf("returned = %s, want %s", returned, want)
	}
}

func TestJoinPoolProportional(t *testing.T) {
	p := New()
	for _, bind := range []struct{ symbol, balance string }{
		{"WETH", "50"}, {"ETHIX", "20"}, {"DAI", "10000"},
	} {
		if err := p.Bind(bind.symbol, dec(bind.balance), dec("5")); err != nil {
			t.Fatalf("bind: %v", err)
		}
	}

	caps := map[string]decimal.Decimal{
		"WETH": unbounded(), "ETHIX": unbounded(), "DAI": unbounded(),
	}
	amountsIn, err := p.JoinPool(dec("5"), caps)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(amountsIn) != 3 {
		t.Fatalf("amounts in = %d, want 3", len(amountsIn))
	}

	assertClose(t, p.Balance("DAI"), dec("10500"), dec("0.0000001"))
	assertClose(t, p.Balance("ETHIX"), dec("21"), dec("0.0000001"))
	assertClose(t, p.Balance("WETH"), dec("52.5"), dec("0.0000001"))
	if !p.ShareSupply().Equal(bmath.InitPoolSupply.Add(dec("5"))) {
		t.Fatalf("share supply = %s", p.ShareSupply())
	}
}

func TestJoinPoolLimitIn(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("50"), dec("5")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("DAI", dec("10000"), dec("5")); err != nil {
		t.Fatalf("bind: %v", err)
	}

	caps := map[string]decimal.Decimal{"WETH": dec("0.01"), "DAI": unbounded()}
	if _, err := p.JoinPool(dec("5"), caps); !errors.Is(err, ErrLimitIn) {
		t.Fatalf("err = %v, want ERR_LIMIT_IN", err)
	}
}

func TestExitPoolBurnsSharesNetOfExitFee(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("52.5"), dec("5")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("DAI", dec("10500"), dec("5")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	supplyBefore := p.ShareSupply()

	floors := map[string]decimal.Decimal{"WETH": decimal.Zero, "DAI": decimal.Zero}
	amountsOut, exitFee, err := p.ExitPool(dec("5"), floors)
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if len(amountsOut) != 2 {
		t.Fatalf("amounts out = %d, want 2", len(amountsOut))
	}

	burned := dec("5").Sub(exitFee)
	if !p.ShareSupply().Equal(supplyBefore.Sub(burned)) {
		t.Fatalf("share supply = %s, want %s", p.ShareSupply(), supplyBefore.Sub(burned))
	}
	ratio := burned.Div(supplyBefore)
	assertClose(t, p.Balance("WETH"), dec("52.5").Mul(dec("1").Sub(ratio)), dec("0.0000001"))

	if !p.ExitFeesCollected().Equal(exitFee) {
		t.Fatalf("exit fees collected = %s, want %s", p.ExitFeesCollected(), exitFee)
	}
}

func TestGetSpotPrice(t *testing.T) {
	p := New()
	for _, bind := range []struct{ symbol, balance string }{
		{"WETH", "52.5"}, {"ETHIX", "21"}, {"DAI", "10500"},
	} {
		if err := p.Bind(bind.symbol, dec(bind.balance), dec("5")); err != nil {
			t.Fatalf("bind: %v", err)
		}
	}
	p.SetSwapFee(dec("0.003"))

	sansFee, err := p.SpotPriceSansFee("DAI", "WETH")
	if err != nil {
		t.Fatalf("spot sans fee: %v", err)
	}
	assertClose(t, sansFee, dec("200"), dec("0.0000001"))

	withFee, err := p.SpotPrice("DAI", "WETH")
	if err != nil {
		t.Fatalf("spot: %v", err)
	}
	assertClose(t, withFee, dec("200.6018054162487462"), dec("0.0000001"))
}

func TestSwapExactAmountIn(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("4"), dec("10")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("ETHIX", dec("12"), dec("10")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	p.SetSwapFee(dec("0.001"))

	result, err := p.SwapExactAmountIn("WETH", dec("2"), "ETHIX", decimal.Zero, dec("200000"))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	assertClose(t, result.Amount.Amount, dec("3.997332444148049352"), dec("0.0000001"))
	assertClose(t, result.SpotPriceAfter, dec("0.7505005005005005"), dec("0.0000001"))
	if !p.Balance("WETH").Equal(dec("6")) {
		t.Fatalf("WETH balance = %s, want 6", p.Balance("WETH"))
	}

	fees := p.GeneratedFees()
	assertClose(t, fees["WETH"], dec("0.002"), dec("0.0000001"))
}

func TestSwapExactAmountInGuards(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("4"), dec("10")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("ETHIX", dec("12"), dec("10")); err != nil {
		t.Fatalf("bind: %v", err)
	}

	if _, err := p.SwapExactAmountIn("GHOST", dec("1"), "ETHIX", decimal.Zero, unbounded()); !errors.Is(err, ErrNotBound) {
		t.Fatalf("err = %v, want ERR_NOT_BOUND", err)
	}
	// More than half the input balance in one trade.
	if _, err := p.SwapExactAmountIn("WETH", dec("3"), "ETHIX", decimal.Zero, unbounded()); !errors.Is(err, ErrMaxInRatio) {
		t.Fatalf("err = %v, want ERR_MAX_IN_RATIO", err)
	}
	// Pre-trade price already above the cap.
	if _, err := p.SwapExactAmountIn("WETH", dec("1"), "ETHIX", decimal.Zero, dec("0.0001")); !errors.Is(err, ErrBadLimitPrice) {
		t.Fatalf("err = %v, want ERR_BAD_LIMIT_PRICE", err)
	}
	if !IsNumericGuard(ErrMaxInRatio) || IsInvariantViolation(ErrMaxInRatio) {
		t.Fatal("ERR_MAX_IN_RATIO classified wrong")
	}
}

func TestSwapExactAmountOut(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("4"), dec("10")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("ETHIX", dec("12"), dec("10")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	p.SetSwapFee(dec("0.001"))

	result, err := p.SwapExactAmountOut("ETHIX", dec("2999999999999999999"), "WETH", dec("1"), dec("20099999999999999000"))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	assertClose(t, result.Amount.Amount, dec("4.004004004004004"), dec("0.0000001"))
	assertClose(t, result.SpotPriceAfter, dec("5.340008009344012012"), dec("0.0000001"))
}

func TestSwapPriceMonotone(t *testing.T) {
	p := New()
	if err := p.Bind("DAI", dec("10000000"), dec("10")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("WETH", dec("67738.636173102396002749"), dec("40")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	p.SetSwapFee(dec("0.0025"))

	before, err := p.SpotPrice("DAI", "WETH")
	if err != nil {
		t.Fatalf("spot before: %v", err)
	}
	result, err := p.SwapExactAmountIn("DAI", dec("11861.328308360999600128"), "WETH", decimal.Zero, unbounded())
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if result.SpotPriceAfter.LessThan(before) {
		t.Fatalf("spot price regressed: %s < %s", result.SpotPriceAfter, before)
	}
}

// Differential scenario pinned against the on-chain history of the
// DAI/WETH 80/20 pool.
func TestSwapDifferentialScenario(t *testing.T) {
	p := New()
	if err := p.Bind("DAI", dec("10000000"), dec("10")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("WETH", dec("67738.636173102396002749"), dec("40")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	p.SetSwapFee(dec("0.0025"))

	_, err := p.SwapExactAmountIn("DAI", dec("11861.328308360999600128"), "WETH", decimal.Zero, unbounded())
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if !p.Balance("DAI").Equal(dec("10011861.328308360999600128")) {
		t.Fatalf("DAI balance = %s", p.Balance("DAI"))
	}
	assertClose(t, p.Balance("WETH"), dec("67718.614438402502546905"), dec("0.000001"))
}

func TestJoinswapRoundTrip(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("471000"), dec("36")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("DAI", dec("100000"), dec("4")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	p.SetSwapFee(dec("0.001"))

	forward := p.Clone()
	amountIn, err := forward.JoinswapPoolAmountOut("WETH", dec("10"), unbounded())
	if err != nil {
		t.Fatalf("joinswap pool out: %v", err)
	}

	backward := p.Clone()
	poolOut, err := backward.JoinswapExternAmountIn("WETH", amountIn, decimal.Zero)
	if err != nil {
		t.Fatalf("joinswap extern in: %v", err)
	}
	assertClose(t, poolOut, dec("10"), dec("0.000000001"))
}

func TestExitswapPoolAmountIn(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("471000"), dec("36")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("DAI", dec("100000"), dec("4")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	p.SetSwapFee(dec("0.001"))
	supplyBefore := p.ShareSupply()

	amountOut, err := p.ExitswapPoolAmountIn("WETH", dec("10"), decimal.Zero)
	if err != nil {
		t.Fatalf("exitswap: %v", err)
	}
	assertClose(t, amountOut, dec("52028.342757248973119087"), dec("0.000001"))
	if !p.ShareSupply().LessThan(supplyBefore) {
		t.Fatal("share supply did not decrease on exit")
	}
}

func TestCloneIsolation(t *testing.T) {
	p := New()
	if err := p.Bind("WETH", dec("4"), dec("10")); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := p.Bind("ETHIX", dec("12"), dec("10")); err != nil {
		t.Fatalf("bind: %v", err)
	}

	clone := p.Clone()
	if _, err := clone.SwapExactAmountIn("WETH", dec("1"), "ETHIX", decimal.Zero, unbounded()); err != nil {
		t.Fatalf("swap on clone: %v", err)
	}

	if !p.Balance("WETH").Equal(dec("4")) {
		t.Fatalf("original mutated: WETH = %s", p.Balance("WETH"))
	}
	if len(p.GeneratedFees()) != 0 {
		t.Fatal("original fees mutated")
	}
}
