package decode

import (
	"fmt"

	"poolreplay/internal/model"
)

// Contract method names as they appear in the decoded call attached to
// a record.
const (
	methodSwapExactAmountIn       = "swapExactAmountIn"
	methodSwapExactAmountOut      = "swapExactAmountOut"
	methodJoinPool                = "joinPool"
	methodJoinswapExternAmountIn  = "joinswapExternAmountIn"
	methodJoinswapPoolAmountOut   = "joinswapPoolAmountOut"
	methodExitPool                = "exitPool"
	methodExitswapPoolAmountIn    = "exitswapPoolAmountIn"
	methodExitswapExternAmountOut = "exitswapExternAmountOut"
)

// decodeContractCall builds operations from the raw decoded call
// arguments. The recorded outputs still come from the simplified
// fields, since the call itself carries only inputs.
func decodeContractCall(record model.ActionRecord) (model.Operation, error) {
	call := record.ContractCall
	if call == nil {
		return model.Operation{}, missingField(record, "contract_call")
	}
	inputs := call.Inputs
	action := record.Action

	switch call.Method {
	case methodSwapExactAmountIn:
		if action.TokenOut == nil {
			return model.Operation{}, missingField(record, "token_out")
		}
		maxPrice := inputs.MaxPrice
		if maxPrice.IsZero() {
			maxPrice = maxPriceUnbounded
		}
		return model.Operation{
			Tag: model.OpSwapExactAmountIn,
			SwapIn: &model.SwapPair{
				In: model.SwapExactAmountInInput{
					TokenIn:     model.TokenAmount{Symbol: inputs.TokenInSymbol, Amount: inputs.TokenAmountIn},
					MinTokenOut: model.TokenAmount{Symbol: inputs.TokenOutSymbol, Amount: inputs.MinAmountOut},
					MaxPrice:    maxPrice,
				},
				Out: model.SwapExactAmountInOutput{TokenOut: *action.TokenOut},
			},
		}, nil

	case methodSwapExactAmountOut:
		if action.TokenIn == nil {
			return model.Operation{}, missingField(record, "token_in")
		}
		maxPrice := inputs.MaxPrice
		if maxPrice.IsZero() {
			maxPrice = maxPriceUnbounded
		}
		return model.Operation{
			Tag: model.OpSwapExactAmountOut,
			SwapOut: &model.SwapOutPair{
				In: model.SwapExactAmountOutInput{
					MaxTokenIn: model.TokenAmount{Symbol: inputs.TokenInSymbol, Amount: inputs.MaxAmountIn},
					TokenOut:   model.TokenAmount{Symbol: inputs.TokenOutSymbol, Amount: inputs.TokenAmountOut},
					MaxPrice:   maxPrice,
				},
				Out: model.SwapExactAmountOutOutput{TokenIn: *action.TokenIn},
			},
		}, nil

	case methodJoinPool:
		if len(action.TokensIn) == 0 {
			return model.Operation{}, missingField(record, "tokens_in")
		}
		return model.Operation{
			Tag: model.OpJoinPool,
			Join: &model.JoinPair{
				In: model.JoinPoolInput{
					PoolAmountOut: inputs.PoolAmountOut,
					TokensIn:      symbolsOf(action.TokensIn),
				},
				Out: model.JoinPoolOutput{TokensIn: action.TokensIn},
			},
		}, nil

	case methodJoinswapExternAmountIn:
		return model.Operation{
			Tag: model.OpJoinSwapExternAmountIn,
			JoinSwapExternIn: &model.JoinSwapExternInPair{
				In: model.JoinSwapExternAmountInInput{
					TokenIn:          model.TokenAmount{Symbol: inputs.TokenInSymbol, Amount: inputs.TokenAmountIn},
					MinPoolAmountOut: inputs.MinPoolAmountOut,
				},
				Out: model.JoinSwapExternAmountInOutput{PoolAmountOut: action.PoolAmountOut},
			},
		}, nil

	case methodJoinswapPoolAmountOut:
		if action.TokenIn == nil {
			return model.Operation{}, missingField(record, "token_in")
		}
		return model.Operation{
			Tag: model.OpJoinSwapPoolAmountOut,
			JoinSwapPoolOut: &model.JoinSwapPoolOutPair{
				In: model.JoinSwapPoolAmountOutInput{
					TokenInSymbol: inputs.TokenInSymbol,
					PoolAmountOut: inputs.PoolAmountOut,
					MaxAmountIn:   inputs.MaxAmountIn,
				},
				Out: model.JoinSwapPoolAmountOutOutput{TokenIn: *action.TokenIn},
			},
		}, nil

	case methodExitPool:
		if len(action.TokensOut) == 0 {
			return model.Operation{}, missingField(record, "tokens_out")
		}
		return model.Operation{
			Tag: model.OpExitPool,
			Exit: &model.ExitPair{
				In:  model.ExitPoolInput{PoolAmountIn: inputs.PoolAmountIn},
				Out: model.ExitPoolOutput{TokensOut: action.TokensOut},
			},
		}, nil

	case methodExitswapPoolAmountIn:
		if action.TokenOut == nil {
			return model.Operation{}, missingField(record, "token_out")
		}
		return model.Operation{
			Tag: model.OpExitSwapPoolAmountIn,
			ExitSwapPoolIn: &model.ExitSwapPoolInPair{
				In: model.ExitSwapPoolAmountInInput{
					TokenOutSymbol: action.TokenOut.Symbol,
					PoolAmountIn:   inputs.PoolAmountIn,
					MinAmountOut:   inputs.MinAmountOut,
				},
				Out: model.ExitSwapPoolAmountInOutput{TokenOut: *action.TokenOut},
			},
		}, nil

	case methodExitswapExternAmountOut:
		return model.Operation{
			Tag: model.OpExitSwapExternAmountOut,
			ExitSwapExternOut: &model.ExitSwapExternOutPair{
				In: model.ExitSwapExternAmountOutInput{
					TokenOut:        model.TokenAmount{Symbol: inputs.TokenOutSymbol, Amount: inputs.TokenAmountOut},
					MaxPoolAmountIn: inputs.MaxPoolAmountIn,
				},
				Out: model.ExitSwapExternAmountOutOutput{PoolAmountIn: action.PoolAmountIn},
			},
		}, nil

	default:
		return model.Operation{}, fmt.Errorf("%w: unknown contract method %q (tx %s)", ErrConfiguration, call.Method, record.TxHash)
	}
}
