package model

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ActionKind is the closed set of historical action types the replay
// understands. Anything else is a configuration error.
type ActionKind string

const (
	ActionSwap                ActionKind = "swap"
	ActionJoin                ActionKind = "join"
	ActionJoinSwap            ActionKind = "join_swap"
	ActionExit                ActionKind = "exit"
	ActionExitSwap            ActionKind = "exit_swap"
	ActionExternalPriceUpdate ActionKind = "external_price_update"
	ActionPoolCreation        ActionKind = "pool_creation"
)

// ValidActionKind reports membership in the closed action-kind set.
func ValidActionKind(kind ActionKind) bool {
	switch kind {
	case ActionSwap, ActionJoin, ActionJoinSwap, ActionExit, ActionExitSwap,
		ActionExternalPriceUpdate, ActionPoolCreation:
		return true
	default:
		return false
	}
}

// DenormSnapshot is a token's denormalized weight as of the record's block.
type DenormSnapshot struct {
	TokenSymbol string          `json:"token_symbol"`
	Denorm      decimal.Decimal `json:"denorm"`
}

// RawAction carries the type-specific fields of one historical event,
// pre-normalized by the upstream ETL (symbols resolved, decimals applied).
type RawAction struct {
	Type          ActionKind                 `json:"type"`
	TokenIn       *TokenAmount               `json:"token_in,omitempty"`
	TokenOut      *TokenAmount               `json:"token_out,omitempty"`
	TokensIn      []TokenAmount              `json:"tokens_in,omitempty"`
	TokensOut     []TokenAmount              `json:"tokens_out,omitempty"`
	PoolAmountOut decimal.Decimal            `json:"pool_amount_out,omitempty"`
	PoolAmountIn  decimal.Decimal            `json:"pool_amount_in,omitempty"`
	Prices        map[string]decimal.Decimal `json:"prices,omitempty"`
}

// ContractCallInputs are the decoded smart-contract call arguments
// attached to a record, already symbol-resolved and decimal-normalized.
type ContractCallInputs struct {
	TokenInSymbol    string          `json:"tokenIn_symbol,omitempty"`
	TokenOutSymbol   string          `json:"tokenOut_symbol,omitempty"`
	TokenAmountIn    decimal.Decimal `json:"tokenAmountIn,omitempty"`
	TokenAmountOut   decimal.Decimal `json:"tokenAmountOut,omitempty"`
	MinAmountOut     decimal.Decimal `json:"minAmountOut,omitempty"`
	MaxAmountIn      decimal.Decimal `json:"maxAmountIn,omitempty"`
	MaxPrice         decimal.Decimal `json:"maxPrice,omitempty"`
	PoolAmountIn     decimal.Decimal `json:"poolAmountIn,omitempty"`
	PoolAmountOut    decimal.Decimal `json:"poolAmountOut,omitempty"`
	MaxPoolAmountIn  decimal.Decimal `json:"maxPoolAmountIn,omitempty"`
	MinPoolAmountOut decimal.Decimal `json:"minPoolAmountOut,omitempty"`
}

// ContractCall is the raw decoded call for contract_call decoding.
type ContractCall struct {
	Method string             `json:"method"`
	Inputs ContractCallInputs `json:"inputs"`
}

// ActionRecord is one timestamped historical event to replay.
type ActionRecord struct {
	Timestamp    time.Time        `json:"timestamp"`
	TxHash       string           `json:"tx_hash"`
	SwapFee      decimal.Decimal  `json:"swap_fee"`
	Denorms      []DenormSnapshot `json:"denorms,omitempty"`
	Action       RawAction        `json:"action"`
	ContractCall *ContractCall    `json:"contract_call,omitempty"`
}

// Validate normalizes the record's tx hash and rejects records outside
// the closed action-kind set.
func (r *ActionRecord) Validate() error {
	if !ValidActionKind(r.Action.Type) {
		return fmt.Errorf("unknown action type %q (tx %s)", r.Action.Type, r.TxHash)
	}
	if r.TxHash != "" {
		hash := common.HexToHash(r.TxHash)
		if hash == (common.Hash{}) {
			return fmt.Errorf("invalid tx hash %q", r.TxHash)
		}
		r.TxHash = hash.Hex()
	}
	return nil
}
