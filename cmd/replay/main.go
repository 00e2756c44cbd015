package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolreplay/internal/arb"
	"poolreplay/internal/config"
	"poolreplay/internal/decode"
	"poolreplay/internal/model"
	"poolreplay/internal/replay"
	"poolreplay/internal/storage"
	"poolreplay/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "poolreplay",
		Short:        "Weighted pool action log replay",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Replay an action log",
		RunE:  runReplay,
	}

	runCmd.Flags().String("actions", "", "action log JSON path")
	runCmd.Flags().String("genesis", "", "initial state JSON path")
	runCmd.Flags().String("decoding-type", "simplified", "action decoding strategy (simplified, contract_call, replay_output)")
	runCmd.Flags().String("spot-price-reference", "DAI", "token whose spot prices are reported against the rest")
	runCmd.Flags().String("external-currency", "USD", "denomination of the external price feeds")
	runCmd.Flags().Bool("weight-changing", false, "apply per-record denorm weight updates")
	runCmd.Flags().String("weight-strategy", "linear", "weight update strategy (linear, proportional)")
	runCmd.Flags().String("swap-fee", "0", "override swap fee, 0 keeps the recorded fees")
	runCmd.Flags().Bool("arb-enabled", false, "inject synthetic arbitrage trades")
	runCmd.Flags().String("min-arb-liquidity", "10", "smallest trade size probed, in external currency")
	runCmd.Flags().String("max-arb-liquidity", "100000", "largest trade size probed, in external currency")
	runCmd.Flags().String("arb-liquidity-granularity", "50", "trade size grid step, in external currency")
	runCmd.Flags().String("transaction-cost", "30", "flat cost per trade, in external currency")
	runCmd.Flags().StringToString("price-feeds", nil, "symbol=csv-path pairs of external price histories")
	runCmd.Flags().String("out", "./data/snapshots.jsonl", "output snapshots JSONL path")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN, takes precedence over --out")
	runCmd.Flags().String("run-id", "default", "run identifier for Postgres rows")
	runCmd.Flags().Int("snapshot-batch-size", 500, "snapshots per storage write")
	runCmd.Flags().Int("max-retries", 5, "maximum storage retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial storage retry backoff")
	runCmd.Flags().String("progress", "./data/progress.json", "progress marker file path")
	runCmd.Flags().Bool("progress-enabled", true, "write a progress marker during the run")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Actions == "" {
		return fmt.Errorf("actions path is required")
	}
	if cfg.Genesis == "" {
		return fmt.Errorf("genesis path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decoder, err := decode.New(decode.Strategy(cfg.DecodingType))
	if err != nil {
		return err
	}

	dispatcher, err := replay.NewDispatcher(decoder, cfg.WeightChanging, replay.WeightStrategy(cfg.WeightStrategy), logger)
	if err != nil {
		return err
	}

	var policy *arb.Policy
	if cfg.ArbEnabled {
		policy, err = arb.NewPolicy(arb.Config{
			ExternalCurrency: cfg.ExternalCurrency,
			MinLiquidity:     cfg.MinArbLiquidity,
			MaxLiquidity:     cfg.MaxArbLiquidity,
			Granularity:      cfg.ArbLiquidityGranularity,
			TransactionCost:  cfg.TransactionCost,
		}, logger)
		if err != nil {
			return err
		}
	}

	var storageSink storage.Storage
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.RunID)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if step, ok, err := store.LoadState(ctx, cfg.RunID); err != nil {
			logger.Warn("run state lookup failed", zap.Error(err))
		} else if ok {
			logger.Info("run already has persisted snapshots, rows will be overwritten",
				zap.String("run_id", cfg.RunID),
				zap.Int("last_step", step),
			)
		}
		storageSink = store
	} else {
		storageSink = storage.NewJsonlStorage(cfg.Out)
	}
	storageSink = storage.NewRetryingStorage(storageSink, cfg.MaxRetries, cfg.RetryBackoff)

	genesis, err := model.LoadGenesis(cfg.Genesis)
	if err != nil {
		return err
	}
	if cfg.SwapFee.IsPositive() {
		genesis.Pool.SwapFee = cfg.SwapFee
	}

	records, err := replay.LoadActions(cfg.Actions)
	if err != nil {
		return err
	}

	runner := replay.NewRunner(replay.RunConfig{
		ExternalCurrency:   cfg.ExternalCurrency,
		SpotPriceReference: cfg.SpotPriceReference,
		SnapshotBatchSize:  cfg.SnapshotBatchSize,
		RunID:              cfg.RunID,
		ProgressPath:       cfg.Progress,
		ProgressEnabled:    cfg.ProgressEnabled,
	}, dispatcher, storageSink, policy, logger)

	for symbol, path := range cfg.PriceFeeds {
		feed, err := replay.LoadPriceFeedCSV(path, symbol)
		if err != nil {
			return fmt.Errorf("load price feed %s: %w", symbol, err)
		}
		runner.AddPriceFeed(feed)
	}

	logger.Info("replay start",
		zap.String("actions", cfg.Actions),
		zap.String("genesis", cfg.Genesis),
		zap.String("decoding_type", cfg.DecodingType),
		zap.Bool("weight_changing", cfg.WeightChanging),
		zap.Bool("arb_enabled", cfg.ArbEnabled),
		zap.Int("records", len(records)),
		zap.String("out", cfg.Out),
	)

	if _, err := runner.Run(ctx, genesis, records); err != nil {
		return err
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
