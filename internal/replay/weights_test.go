package replay

import (
	"testing"

	"github.com/shopspring/decimal"

	"poolreplay/internal/model"
	"poolreplay/internal/pool"
)

func flatPool(t *testing.T) *pool.Pool {
	t.Helper()
	ledger := pool.New()
	ledger.SetSwapFee(decimal.RequireFromString("0.0025"))
	if err := ledger.Bind("DAI", decimal.NewFromInt(1000), decimal.NewFromInt(20)); err != nil {
		t.Fatalf("bind DAI: %v", err)
	}
	if err := ledger.Bind("WETH", decimal.NewFromInt(1000), decimal.NewFromInt(20)); err != nil {
		t.Fatalf("bind WETH: %v", err)
	}
	return ledger
}

func TestLinearWeightChange(t *testing.T) {
	ledger := flatPool(t)
	denorms := []model.DenormSnapshot{
		{TokenSymbol: "DAI", Denorm: decimal.NewFromInt(10)},
		{TokenSymbol: "WETH", Denorm: decimal.NewFromInt(25)},
	}
	if err := ApplyWeightChange(ledger, denorms, WeightLinear); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := ledger.DenormWeight("DAI"); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("DAI denorm = %s", got)
	}
	if got := ledger.DenormWeight("WETH"); !got.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("WETH denorm = %s", got)
	}
	if got := ledger.TotalDenormWeight(); !got.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("total weight = %s", got)
	}
}

func TestProportionalWeightChangePreservesTotal(t *testing.T) {
	ledger := flatPool(t)
	// Snapshot proportions 1:3 redistributed over the current total 40.
	denorms := []model.DenormSnapshot{
		{TokenSymbol: "DAI", Denorm: decimal.NewFromInt(10)},
		{TokenSymbol: "WETH", Denorm: decimal.NewFromInt(30)},
	}
	if err := ApplyWeightChange(ledger, denorms, WeightProportional); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := ledger.TotalDenormWeight(); !got.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("total weight = %s", got)
	}
	if got := ledger.DenormWeight("DAI"); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("DAI denorm = %s", got)
	}
	if got := ledger.DenormWeight("WETH"); !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("WETH denorm = %s", got)
	}
}

func TestWeightChangeOrdersDecreasesFirst(t *testing.T) {
	// Raising WETH before lowering DAI would trip the total weight cap;
	// applying decreases first must succeed.
	ledger := pool.New()
	if err := ledger.Bind("DAI", decimal.NewFromInt(1000), decimal.NewFromInt(25)); err != nil {
		t.Fatalf("bind DAI: %v", err)
	}
	if err := ledger.Bind("WETH", decimal.NewFromInt(1000), decimal.NewFromInt(25)); err != nil {
		t.Fatalf("bind WETH: %v", err)
	}
	denorms := []model.DenormSnapshot{
		{TokenSymbol: "WETH", Denorm: decimal.NewFromInt(40)},
		{TokenSymbol: "DAI", Denorm: decimal.NewFromInt(10)},
	}
	if err := ApplyWeightChange(ledger, denorms, WeightLinear); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := ledger.TotalDenormWeight(); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("total weight = %s", got)
	}
}

func TestWeightChangeUnknownStrategy(t *testing.T) {
	ledger := flatPool(t)
	denorms := []model.DenormSnapshot{{TokenSymbol: "DAI", Denorm: decimal.NewFromInt(10)}}
	if err := ApplyWeightChange(ledger, denorms, "sigmoid"); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestWeightChangeEmptySnapshotIsNoop(t *testing.T) {
	ledger := flatPool(t)
	if err := ApplyWeightChange(ledger, nil, WeightLinear); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := ledger.TotalDenormWeight(); !got.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("total weight = %s", got)
	}
}
