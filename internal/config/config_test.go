package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DecodingType != "simplified" {
		t.Fatalf("DecodingType = %q", cfg.DecodingType)
	}
	if cfg.WeightStrategy != "linear" {
		t.Fatalf("WeightStrategy = %q", cfg.WeightStrategy)
	}
	if !cfg.TransactionCost.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("TransactionCost = %s", cfg.TransactionCost)
	}
	if cfg.SnapshotBatchSize != 500 {
		t.Fatalf("SnapshotBatchSize = %d", cfg.SnapshotBatchSize)
	}
	if cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("RetryBackoff = %s", cfg.RetryBackoff)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("REPLAY_DECODING_TYPE", "contract_call")
	t.Setenv("REPLAY_MIN_ARB_LIQUIDITY", "250")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DecodingType != "contract_call" {
		t.Fatalf("DecodingType = %q", cfg.DecodingType)
	}
	if !cfg.MinArbLiquidity.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("MinArbLiquidity = %s", cfg.MinArbLiquidity)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "decoding-type: replay_output\nswap-fee: \"0.0025\"\nprice-feeds:\n  WETH: ./feeds/weth.csv\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DecodingType != "replay_output" {
		t.Fatalf("DecodingType = %q", cfg.DecodingType)
	}
	if !cfg.SwapFee.Equal(decimal.RequireFromString("0.0025")) {
		t.Fatalf("SwapFee = %s", cfg.SwapFee)
	}
	if cfg.PriceFeeds["WETH"] != "./feeds/weth.csv" {
		t.Fatalf("PriceFeeds = %v", cfg.PriceFeeds)
	}
}

func TestLoadPriceFeedKeysKeepTickerCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "price-feeds:\n  weth: ./feeds/weth.csv\n  DAI: ./feeds/dai.csv\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.PriceFeeds["WETH"] != "./feeds/weth.csv" {
		t.Fatalf("PriceFeeds = %v, want WETH key", cfg.PriceFeeds)
	}
	if cfg.PriceFeeds["DAI"] != "./feeds/dai.csv" {
		t.Fatalf("PriceFeeds = %v, want DAI key", cfg.PriceFeeds)
	}
	if _, ok := cfg.PriceFeeds["weth"]; ok {
		t.Fatalf("PriceFeeds kept lowercased key: %v", cfg.PriceFeeds)
	}
}

func TestLoadRejectsBadDecimal(t *testing.T) {
	t.Setenv("REPLAY_TRANSACTION_COST", "not-a-number")

	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected parse error")
	}
}
