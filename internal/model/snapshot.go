package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotToken is one bound token's state inside a snapshot row.
type SnapshotToken struct {
	Symbol       string          `json:"symbol"`
	Bound        bool            `json:"bound"`
	DenormWeight decimal.Decimal `json:"denorm_weight"`
	Weight       decimal.Decimal `json:"weight"`
	Balance      decimal.Decimal `json:"balance"`
}

// ArbDetail describes one injected arbitrage trade, kept on the
// snapshot row of the step it was scheduled for. LiquidityIn, TxCost,
// and Profit are denominated in Currency.
type ArbDetail struct {
	TokenIn        string          `json:"token_in"`
	TokenAmountIn  decimal.Decimal `json:"token_amount_in"`
	LiquidityIn    decimal.Decimal `json:"liquidity_in"`
	TokenOut       string          `json:"token_out"`
	TokenAmountOut decimal.Decimal `json:"token_amount_out"`
	TxCost         decimal.Decimal `json:"tx_cost"`
	Profit         decimal.Decimal `json:"profit"`
	Currency       string          `json:"currency"`
}

// Snapshot is one output row per simulated step: the full pool state
// plus the derived and external prices as of that step.
type Snapshot struct {
	Step           int                        `json:"step"`
	Timestamp      time.Time                  `json:"timestamp"`
	ActionType     ActionKind                 `json:"action_type"`
	TxHash         string                     `json:"tx_hash,omitempty"`
	Tokens         []SnapshotToken            `json:"tokens"`
	PoolShares     decimal.Decimal            `json:"pool_shares"`
	SwapFee        decimal.Decimal            `json:"swap_fee"`
	GeneratedFees  map[string]decimal.Decimal `json:"generated_fees"`
	SpotPrices     SpotPrices                 `json:"spot_prices"`
	ExternalPrices map[string]decimal.Decimal `json:"external_prices"`
	Arbitrage      *ArbDetail                 `json:"arbitrage,omitempty"`
}
