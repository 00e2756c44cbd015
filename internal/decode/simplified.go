package decode

import (
	"fmt"

	"poolreplay/internal/model"
)

// decodeSimplified maps the pre-normalized record fields onto canonical
// operations. The historical log only ever carries the exact-in swap,
// extern-in join-swap, and pool-in exit-swap variants in simplified
// form; the exact-out mirrors appear only through contract calls.
func decodeSimplified(record model.ActionRecord) (model.Operation, error) {
	action := record.Action
	switch action.Type {
	case model.ActionSwap:
		if action.TokenIn == nil || action.TokenOut == nil {
			return model.Operation{}, missingField(record, "token_in/token_out")
		}
		return model.Operation{
			Tag: model.OpSwapExactAmountIn,
			SwapIn: &model.SwapPair{
				In: model.SwapExactAmountInInput{
					TokenIn:     *action.TokenIn,
					MinTokenOut: *action.TokenOut,
					MaxPrice:    maxPriceUnbounded,
				},
				Out: model.SwapExactAmountInOutput{TokenOut: *action.TokenOut},
			},
		}, nil

	case model.ActionJoin:
		if len(action.TokensIn) == 0 {
			return model.Operation{}, missingField(record, "tokens_in")
		}
		return model.Operation{
			Tag: model.OpJoinPool,
			Join: &model.JoinPair{
				In: model.JoinPoolInput{
					PoolAmountOut: action.PoolAmountOut,
					TokensIn:      symbolsOf(action.TokensIn),
				},
				Out: model.JoinPoolOutput{TokensIn: action.TokensIn},
			},
		}, nil

	case model.ActionJoinSwap:
		if action.TokenIn == nil {
			return model.Operation{}, missingField(record, "token_in")
		}
		return model.Operation{
			Tag: model.OpJoinSwapExternAmountIn,
			JoinSwapExternIn: &model.JoinSwapExternInPair{
				In: model.JoinSwapExternAmountInInput{TokenIn: *action.TokenIn},
				Out: model.JoinSwapExternAmountInOutput{
					PoolAmountOut: action.PoolAmountOut,
				},
			},
		}, nil

	case model.ActionExit:
		if len(action.TokensOut) == 0 {
			return model.Operation{}, missingField(record, "tokens_out")
		}
		return model.Operation{
			Tag: model.OpExitPool,
			Exit: &model.ExitPair{
				In:  model.ExitPoolInput{PoolAmountIn: action.PoolAmountIn},
				Out: model.ExitPoolOutput{TokensOut: action.TokensOut},
			},
		}, nil

	case model.ActionExitSwap:
		if action.TokenOut == nil {
			return model.Operation{}, missingField(record, "token_out")
		}
		return model.Operation{
			Tag: model.OpExitSwapPoolAmountIn,
			ExitSwapPoolIn: &model.ExitSwapPoolInPair{
				In: model.ExitSwapPoolAmountInInput{
					TokenOutSymbol: action.TokenOut.Symbol,
					PoolAmountIn:   action.PoolAmountIn,
				},
				Out: model.ExitSwapPoolAmountInOutput{TokenOut: *action.TokenOut},
			},
		}, nil

	default:
		return model.Operation{}, fmt.Errorf("%w: unknown action type %q (tx %s)", ErrConfiguration, action.Type, record.TxHash)
	}
}

func symbolsOf(amounts []model.TokenAmount) []string {
	symbols := make([]string, 0, len(amounts))
	for _, amount := range amounts {
		if amount.Symbol != "" {
			symbols = append(symbols, amount.Symbol)
		}
	}
	return symbols
}
