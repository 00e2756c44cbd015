package model

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// GenesisToken is one token's initial condition in the state document.
// Weight is the token's percentage share of the total denorm weight;
// when present it is cross-checked against the denorms at load. Address
// is the on-chain contract address when the document carries one; it is
// informational and not required for a replay.
type GenesisToken struct {
	Weight       decimal.Decimal `json:"weight"`
	DenormWeight decimal.Decimal `json:"denorm_weight"`
	Balance      decimal.Decimal `json:"balance"`
	Bound        bool            `json:"bound"`
	Address      string          `json:"address,omitempty"`
}

// GenesisPool is the pool section of the initial state document.
type GenesisPool struct {
	Tokens     map[string]GenesisToken `json:"tokens"`
	SwapFee    decimal.Decimal         `json:"swap_fee"`
	PoolShares decimal.Decimal         `json:"pool_shares"`
}

// GenesisState is the pre-materialized initial state document: the pool
// as of its creation plus the first external price snapshot.
type GenesisState struct {
	Pool           GenesisPool                `json:"pool"`
	TokenPrices    map[string]decimal.Decimal `json:"token_prices"`
	ChangeDatetime time.Time                  `json:"change_datetime"`
}

// LoadGenesis reads and validates an initial state document.
func LoadGenesis(path string) (GenesisState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GenesisState{}, fmt.Errorf("read genesis: %w", err)
	}
	var state GenesisState
	if err := json.Unmarshal(data, &state); err != nil {
		return GenesisState{}, fmt.Errorf("parse genesis: %w", err)
	}
	if len(state.Pool.Tokens) == 0 {
		return GenesisState{}, fmt.Errorf("genesis pool has no tokens")
	}
	totalDenorm := decimal.Zero
	for _, token := range state.Pool.Tokens {
		if token.Bound {
			totalDenorm = totalDenorm.Add(token.DenormWeight)
		}
	}
	for symbol, token := range state.Pool.Tokens {
		if token.Balance.IsNegative() {
			return GenesisState{}, fmt.Errorf("genesis token %s has negative balance", symbol)
		}
		if token.Address != "" && !common.IsHexAddress(token.Address) {
			return GenesisState{}, fmt.Errorf("genesis token %s has malformed address %q", symbol, token.Address)
		}
		if token.Bound && token.Weight.IsPositive() && totalDenorm.IsPositive() {
			implied := token.DenormWeight.Div(totalDenorm).Mul(hundred)
			if token.Weight.Sub(implied).Abs().GreaterThan(weightTolerance) {
				return GenesisState{}, fmt.Errorf("genesis token %s weight %s does not match denorm share %s",
					symbol, token.Weight, implied)
			}
		}
	}
	return state, nil
}

var (
	hundred         = decimal.NewFromInt(100)
	weightTolerance = decimal.New(1, -6)
)
