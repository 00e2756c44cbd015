package bmath

import "github.com/shopspring/decimal"

// Pool limits mirror the on-chain weighted-pool constants, expressed in
// token units rather than wei scale.
var (
	MinWeight      = decimal.NewFromInt(1)
	MaxWeight      = decimal.NewFromInt(50)
	MaxTotalWeight = decimal.NewFromInt(50)
	MinBalance     = decimal.RequireFromString("0.000000000001")

	MinFee = decimal.RequireFromString("0.000001")
	MaxFee = decimal.RequireFromString("0.1")

	// ExitFee is the pool-share fraction retained on exit-class operations.
	// Zero on mainnet deployments, but it flows through every exit formula.
	ExitFee = decimal.Zero

	// MaxInRatio and MaxOutRatio cap the tradable fraction of a token
	// balance in a single operation.
	MaxInRatio  = decimal.RequireFromString("0.5")
	MaxOutRatio = decimal.RequireFromString("0.333333333333333333")

	InitPoolSupply = decimal.NewFromInt(100)

	one = decimal.NewFromInt(1)
)

// MaxBoundTokens limits the number of tokens a pool may bind.
const MaxBoundTokens = 8

// DivisionPrecision is the process-wide significant-digit budget for
// decimal division and exponentiation. It must be set before any pool
// math runs so replays are reproducible across machines.
const DivisionPrecision = 28

func init() {
	decimal.DivisionPrecision = DivisionPrecision
}
