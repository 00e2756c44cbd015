package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	DecodingType       string
	SpotPriceReference string
	ExternalCurrency   string

	WeightChanging bool
	WeightStrategy string

	ArbEnabled              bool
	MinArbLiquidity         decimal.Decimal
	MaxArbLiquidity         decimal.Decimal
	ArbLiquidityGranularity decimal.Decimal
	TransactionCost         decimal.Decimal

	SwapFee decimal.Decimal

	Actions    string
	Genesis    string
	PriceFeeds map[string]string

	Out               string
	PGDSN             string
	RunID             string
	SnapshotBatchSize int
	MaxRetries        int
	RetryBackoff      time.Duration
	Progress          string
	ProgressEnabled   bool
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("decoding-type", "simplified")
	v.SetDefault("spot-price-reference", "DAI")
	v.SetDefault("external-currency", "USD")
	v.SetDefault("weight-changing", false)
	v.SetDefault("weight-strategy", "linear")
	v.SetDefault("arb-enabled", false)
	v.SetDefault("min-arb-liquidity", "10")
	v.SetDefault("max-arb-liquidity", "100000")
	v.SetDefault("arb-liquidity-granularity", "50")
	v.SetDefault("transaction-cost", "30")
	v.SetDefault("swap-fee", "0")
	v.SetDefault("out", "./data/snapshots.jsonl")
	v.SetDefault("run-id", "default")
	v.SetDefault("snapshot-batch-size", 500)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", "500ms")
	v.SetDefault("progress", "./data/progress.json")
	v.SetDefault("progress-enabled", true)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		DecodingType:       v.GetString("decoding-type"),
		SpotPriceReference: v.GetString("spot-price-reference"),
		ExternalCurrency:   v.GetString("external-currency"),
		WeightChanging:     v.GetBool("weight-changing"),
		WeightStrategy:     v.GetString("weight-strategy"),
		ArbEnabled:         v.GetBool("arb-enabled"),
		Actions:            v.GetString("actions"),
		Genesis:            v.GetString("genesis"),
		PriceFeeds:         upperKeys(getStringMap(v, "price-feeds")),
		Out:                v.GetString("out"),
		PGDSN:              v.GetString("pg-dsn"),
		RunID:              v.GetString("run-id"),
		SnapshotBatchSize:  v.GetInt("snapshot-batch-size"),
		MaxRetries:         v.GetInt("max-retries"),
		RetryBackoff:       v.GetDuration("retry-backoff"),
		Progress:           v.GetString("progress"),
		ProgressEnabled:    v.GetBool("progress-enabled"),
		LogLevel:           v.GetString("log-level"),
	}

	var err error
	for _, field := range []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"min-arb-liquidity", &cfg.MinArbLiquidity},
		{"max-arb-liquidity", &cfg.MaxArbLiquidity},
		{"arb-liquidity-granularity", &cfg.ArbLiquidityGranularity},
		{"transaction-cost", &cfg.TransactionCost},
		{"swap-fee", &cfg.SwapFee},
	} {
		*field.dst, err = decimal.NewFromString(v.GetString(field.name))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", field.name, err)
		}
	}

	return cfg, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, item := range typed {
			out[k] = fmt.Sprintf("%v", item)
		}
		return out
	case string:
		return splitPairs(typed)
	default:
		return map[string]string{}
	}
}

// viper lowercases map keys read from a config file. Feed keys are
// token tickers that must match the pool's symbols, so restore the
// uppercase form.
func upperKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[strings.ToUpper(key)] = value
	}
	return out
}

func splitPairs(input string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return out
}
