package model

import "github.com/shopspring/decimal"

// OpTag identifies which ledger method an operation maps to.
type OpTag string

const (
	OpSwapExactAmountIn       OpTag = "swap_exact_amount_in"
	OpSwapExactAmountOut      OpTag = "swap_exact_amount_out"
	OpJoinPool                OpTag = "join_pool"
	OpJoinSwapExternAmountIn  OpTag = "join_swap_extern_amount_in"
	OpJoinSwapPoolAmountOut   OpTag = "join_swap_pool_amount_out"
	OpExitPool                OpTag = "exit_pool"
	OpExitSwapPoolAmountIn    OpTag = "exit_swap_pool_amount_in"
	OpExitSwapExternAmountOut OpTag = "exit_swap_extern_amount_out"
	OpExternalPriceUpdate     OpTag = "external_price_update"
	OpPoolCreation            OpTag = "pool_creation"
)

// Each operation pairs the decoded call input with the recorded
// historical output, so the dispatcher can cross-validate recomputed
// amounts against ground truth.

type SwapExactAmountInInput struct {
	TokenIn     TokenAmount
	MinTokenOut TokenAmount
	MaxPrice    decimal.Decimal
}

type SwapExactAmountInOutput struct {
	TokenOut TokenAmount
}

type SwapExactAmountOutInput struct {
	MaxTokenIn TokenAmount
	TokenOut   TokenAmount
	MaxPrice   decimal.Decimal
}

type SwapExactAmountOutOutput struct {
	TokenIn TokenAmount
}

type JoinPoolInput struct {
	PoolAmountOut decimal.Decimal
	TokensIn      []string
}

type JoinPoolOutput struct {
	TokensIn []TokenAmount
}

type JoinSwapExternAmountInInput struct {
	TokenIn          TokenAmount
	MinPoolAmountOut decimal.Decimal
}

type JoinSwapExternAmountInOutput struct {
	PoolAmountOut decimal.Decimal
}

type JoinSwapPoolAmountOutInput struct {
	TokenInSymbol string
	PoolAmountOut decimal.Decimal
	MaxAmountIn   decimal.Decimal
}

type JoinSwapPoolAmountOutOutput struct {
	TokenIn TokenAmount
}

type ExitPoolInput struct {
	PoolAmountIn decimal.Decimal
}

type ExitPoolOutput struct {
	TokensOut []TokenAmount
}

type ExitSwapPoolAmountInInput struct {
	TokenOutSymbol string
	PoolAmountIn   decimal.Decimal
	MinAmountOut   decimal.Decimal
}

type ExitSwapPoolAmountInOutput struct {
	TokenOut TokenAmount
}

type ExitSwapExternAmountOutInput struct {
	TokenOut        TokenAmount
	MaxPoolAmountIn decimal.Decimal
}

type ExitSwapExternAmountOutOutput struct {
	PoolAmountIn decimal.Decimal
}

type ExternalPriceUpdate struct {
	Prices map[string]decimal.Decimal
}

// Operation is the tagged union the dispatcher consumes. Exactly the
// field matching Tag is set.
type Operation struct {
	Tag OpTag

	SwapIn            *SwapPair
	SwapOut           *SwapOutPair
	Join              *JoinPair
	JoinSwapExternIn  *JoinSwapExternInPair
	JoinSwapPoolOut   *JoinSwapPoolOutPair
	Exit              *ExitPair
	ExitSwapPoolIn    *ExitSwapPoolInPair
	ExitSwapExternOut *ExitSwapExternOutPair
	PriceUpdate       *ExternalPriceUpdate
}

type SwapPair struct {
	In  SwapExactAmountInInput
	Out SwapExactAmountInOutput
}

type SwapOutPair struct {
	In  SwapExactAmountOutInput
	Out SwapExactAmountOutOutput
}

type JoinPair struct {
	In  JoinPoolInput
	Out JoinPoolOutput
}

type JoinSwapExternInPair struct {
	In  JoinSwapExternAmountInInput
	Out JoinSwapExternAmountInOutput
}

type JoinSwapPoolOutPair struct {
	In  JoinSwapPoolAmountOutInput
	Out JoinSwapPoolAmountOutOutput
}

type ExitPair struct {
	In  ExitPoolInput
	Out ExitPoolOutput
}

type ExitSwapPoolInPair struct {
	In  ExitSwapPoolAmountInInput
	Out ExitSwapPoolAmountInOutput
}

type ExitSwapExternOutPair struct {
	In  ExitSwapExternAmountOutInput
	Out ExitSwapExternAmountOutOutput
}
