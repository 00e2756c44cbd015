// Package decode translates raw historical action records into canonical
// operations. Three interchangeable strategies exist; one is selected
// per run and the dispatcher consumes their output identically.
package decode

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"poolreplay/internal/model"
)

// Strategy selects which fields of a record drive the decoding.
type Strategy string

const (
	// Simplified reads the pre-normalized symbol/amount fields (fast
	// path; upstream ETL already resolved symbols and decimals).
	Simplified Strategy = "simplified"
	// ContractCall reads the raw decoded smart-contract call arguments
	// attached to the record.
	ContractCall Strategy = "contract_call"
	// ReplayOutput decodes the same pairs as Simplified, but the
	// dispatcher applies the recorded amounts instead of recomputing.
	ReplayOutput Strategy = "replay_output"
)

// ErrConfiguration marks fatal decoding failures: unknown operation
// kinds, unknown strategies, or records missing collaborator data.
var ErrConfiguration = errors.New("configuration error")

// maxPriceUnbounded stands in for an absent max_price cap. Historical
// records rarely carry one; the dispatcher soft-checks recorded caps.
var maxPriceUnbounded = decimal.RequireFromString("1e38")

// Decoder maps an ActionRecord to an Operation using a fixed strategy.
type Decoder struct {
	strategy Strategy
}

// New validates the strategy name and returns a decoder.
func New(strategy Strategy) (*Decoder, error) {
	switch strategy {
	case Simplified, ContractCall, ReplayOutput:
		return &Decoder{strategy: strategy}, nil
	default:
		return nil, fmt.Errorf("%w: unknown decoding strategy %q", ErrConfiguration, strategy)
	}
}

func (d *Decoder) Strategy() Strategy { return d.strategy }

// Decode produces the canonical (input, output) operation pair for one
// record. External price updates bypass the strategy entirely.
func (d *Decoder) Decode(record model.ActionRecord) (model.Operation, error) {
	switch record.Action.Type {
	case model.ActionExternalPriceUpdate:
		if record.Action.Prices == nil {
			return model.Operation{}, fmt.Errorf("%w: price update without prices (tx %s)", ErrConfiguration, record.TxHash)
		}
		return model.Operation{
			Tag:         model.OpExternalPriceUpdate,
			PriceUpdate: &model.ExternalPriceUpdate{Prices: record.Action.Prices},
		}, nil
	case model.ActionPoolCreation:
		return model.Operation{Tag: model.OpPoolCreation}, nil
	}

	switch d.strategy {
	case Simplified, ReplayOutput:
		return decodeSimplified(record)
	case ContractCall:
		return decodeContractCall(record)
	default:
		return model.Operation{}, fmt.Errorf("%w: unknown decoding strategy %q", ErrConfiguration, d.strategy)
	}
}

func missingField(record model.ActionRecord, field string) error {
	return fmt.Errorf("%w: %s action missing %s (tx %s)", ErrConfiguration, record.Action.Type, field, record.TxHash)
}
