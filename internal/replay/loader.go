package replay

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"poolreplay/internal/model"
)

// LoadActions reads a JSON action log and validates its shape: records
// carry known action kinds and well-formed tx hashes, timestamps ascend,
// and the first record creates the pool.
func LoadActions(path string) ([]model.ActionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read action log: %w", err)
	}
	var records []model.ActionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse action log: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("action log is empty")
	}
	if records[0].Action.Type != model.ActionPoolCreation {
		return nil, fmt.Errorf("action log must start with pool_creation, got %q", records[0].Action.Type)
	}
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if i > 0 && records[i].Timestamp.Before(records[i-1].Timestamp) {
			return nil, fmt.Errorf("record %d: timestamp %s precedes previous record", i, records[i].Timestamp.Format(time.RFC3339))
		}
	}
	return records, nil
}

var feedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseFeedTime(value string) (time.Time, error) {
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable feed timestamp %q", value)
}

// LoadPriceFeedCSV reads a semicolon-separated exchange candle export
// with time/open/close columns into a PriceFeed sorted by time.
func LoadPriceFeedCSV(path, symbol string) (PriceFeed, error) {
	file, err := os.Open(path)
	if err != nil {
		return PriceFeed{}, fmt.Errorf("open price feed: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ';'
	rows, err := reader.ReadAll()
	if err != nil {
		return PriceFeed{}, fmt.Errorf("parse price feed %s: %w", path, err)
	}
	if len(rows) < 2 {
		return PriceFeed{}, fmt.Errorf("price feed %s has no data rows", path)
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"time", "open", "close"} {
		if _, ok := columns[required]; !ok {
			return PriceFeed{}, fmt.Errorf("price feed %s missing column %q", path, required)
		}
	}

	points := make([]FeedPoint, 0, len(rows)-1)
	for i, row := range rows[1:] {
		ts, err := parseFeedTime(row[columns["time"]])
		if err != nil {
			return PriceFeed{}, fmt.Errorf("price feed %s row %d: %w", path, i+1, err)
		}
		open, err := decimal.NewFromString(strings.TrimSpace(row[columns["open"]]))
		if err != nil {
			return PriceFeed{}, fmt.Errorf("price feed %s row %d open: %w", path, i+1, err)
		}
		closePrice, err := decimal.NewFromString(strings.TrimSpace(row[columns["close"]]))
		if err != nil {
			return PriceFeed{}, fmt.Errorf("price feed %s row %d close: %w", path, i+1, err)
		}
		points = append(points, FeedPoint{Time: ts, Open: open, Close: closePrice})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return PriceFeed{Symbol: symbol, Points: points}, nil
}
