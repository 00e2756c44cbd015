package replay

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// FeedPoint is one materialized candle of an external price feed.
type FeedPoint struct {
	Time  time.Time
	Open  decimal.Decimal
	Close decimal.Decimal
}

// PriceFeed is a fully pre-loaded external price history for one token.
// Points are kept in ascending time order.
type PriceFeed struct {
	Symbol string
	Points []FeedPoint
}

// At returns the feed price at t, linearly interpolating between the
// close of the latest point at or before t and the open of the first
// point after it.
func (f PriceFeed) At(t time.Time) (decimal.Decimal, error) {
	if len(f.Points) == 0 {
		return decimal.Zero, fmt.Errorf("price feed %s is empty", f.Symbol)
	}
	idx := sort.Search(len(f.Points), func(i int) bool {
		return f.Points[i].Time.After(t)
	})
	if idx == 0 {
		return decimal.Zero, fmt.Errorf("price feed %s starts after %s", f.Symbol, t.Format(time.RFC3339))
	}
	earlier := f.Points[idx-1]
	if idx == len(f.Points) {
		return earlier.Close, nil
	}
	later := f.Points[idx]

	span := decimal.NewFromInt(int64(later.Time.Sub(earlier.Time) / time.Second))
	if span.IsZero() {
		return later.Open, nil
	}
	untilLater := decimal.NewFromInt(int64(later.Time.Sub(t) / time.Second))
	sinceEarlier := decimal.NewFromInt(int64(t.Sub(earlier.Time) / time.Second))
	return earlier.Close.Mul(untilLater).Add(later.Open.Mul(sinceEarlier)).Div(span), nil
}
