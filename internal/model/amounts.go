package model

import "github.com/shopspring/decimal"

// TokenAmount pairs a token symbol with a decimal quantity. It is the
// unit of every cross-token value in the engine.
type TokenAmount struct {
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
}

// ExternalPrices is a reference-currency price per token symbol, valid
// as of a point in simulated time.
type ExternalPrices struct {
	Currency string                     `json:"currency"`
	Prices   map[string]decimal.Decimal `json:"prices"`
}

// Clone returns a deep copy so one step's update never aliases another.
func (e ExternalPrices) Clone() ExternalPrices {
	prices := make(map[string]decimal.Decimal, len(e.Prices))
	for symbol, price := range e.Prices {
		prices[symbol] = price
	}
	return ExternalPrices{Currency: e.Currency, Prices: prices}
}

// SpotPrices holds the pool-implied exchange rate table:
// SpotPrices[quote][base] = amount of quote per one base.
type SpotPrices map[string]map[string]decimal.Decimal
