package replay

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolreplay/internal/arb"
	"poolreplay/internal/model"
	"poolreplay/internal/pool"
	"poolreplay/internal/storage"
)

// RunConfig holds runtime settings for the replay loop.
type RunConfig struct {
	ExternalCurrency   string
	SpotPriceReference string
	SnapshotBatchSize  int
	RunID              string
	ProgressPath       string
	ProgressEnabled    bool
}

// Runner folds the action log over the dispatcher, consults the
// arbitrage policy when enabled, and streams snapshots to storage.
type Runner struct {
	cfg        RunConfig
	dispatcher *Dispatcher
	storage    storage.Storage
	arbitrage  *arb.Policy
	feeds      map[string]PriceFeed
	progress   *ProgressStore
	logger     *zap.Logger
}

// NewRunner builds a Runner with its dependencies. The arbitrage policy
// and the price feeds are optional.
func NewRunner(cfg RunConfig, dispatcher *Dispatcher, storageSink storage.Storage, arbitrage *arb.Policy, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SnapshotBatchSize <= 0 {
		cfg.SnapshotBatchSize = 500
	}
	return &Runner{
		cfg:        cfg,
		dispatcher: dispatcher,
		storage:    storageSink,
		arbitrage:  arbitrage,
		feeds:      make(map[string]PriceFeed),
		progress:   NewProgressStore(cfg.ProgressPath, cfg.RunID, cfg.ProgressEnabled),
		logger:     logger,
	}
}

// AddPriceFeed registers an external price history; when present it
// overrides the token's external price at each step by interpolation.
func (r *Runner) AddPriceFeed(feed PriceFeed) {
	r.feeds[feed.Symbol] = feed
}

// BuildInitialState constructs step zero from the genesis document.
// Tokens are bound in sorted symbol order so replays do not depend on
// document key order.
func BuildInitialState(genesis model.GenesisState, externalCurrency string) (SimState, error) {
	ledger := pool.New()
	ledger.SetSwapFee(genesis.Pool.SwapFee)
	ledger.SetShareSupply(genesis.Pool.PoolShares)

	symbols := make([]string, 0, len(genesis.Pool.Tokens))
	for symbol := range genesis.Pool.Tokens {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		token := genesis.Pool.Tokens[symbol]
		if !token.Bound {
			continue
		}
		if err := ledger.Bind(symbol, token.Balance, token.DenormWeight); err != nil {
			return SimState{}, fmt.Errorf("bind genesis token %s: %w", symbol, err)
		}
	}

	external := model.ExternalPrices{Currency: externalCurrency, Prices: genesis.TokenPrices}
	return SimState{
		Pool:           ledger,
		SpotPrices:     ComputeSpotPrices(ledger),
		ExternalPrices: external.Clone(),
		ChangeDatetime: genesis.ChangeDatetime,
		ActionType:     model.ActionPoolCreation,
	}, nil
}

// Run executes the replay and returns the final state.
func (r *Runner) Run(ctx context.Context, genesis model.GenesisState, records []model.ActionRecord) (SimState, error) {
	if r.dispatcher == nil {
		return SimState{}, fmt.Errorf("dispatcher is nil")
	}
	if r.storage == nil {
		return SimState{}, fmt.Errorf("storage is nil")
	}
	if len(records) == 0 {
		return SimState{}, fmt.Errorf("action log is empty")
	}
	if records[0].Action.Type != model.ActionPoolCreation {
		return SimState{}, fmt.Errorf("action log must start with pool_creation, got %q", records[0].Action.Type)
	}

	state, err := BuildInitialState(genesis, r.cfg.ExternalCurrency)
	if err != nil {
		return SimState{}, err
	}

	if marker, ok, err := r.progress.Load(); err != nil {
		r.logger.Warn("progress marker unreadable", zap.Error(err))
	} else if ok {
		r.logger.Warn("previous run did not finish, restarting from genesis",
			zap.String("run_id", marker.RunID),
			zap.Int("last_step", marker.LastStep),
		)
	}

	step := 0
	pending := make([]model.Snapshot, 0, r.cfg.SnapshotBatchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := r.storage.PutSnapshotBatch(pending); err != nil {
			return fmt.Errorf("store snapshots: %w", err)
		}
		pending = pending[:0]
		if err := r.progress.Save(step - 1); err != nil {
			r.logger.Warn("progress marker write failed", zap.Error(err))
		}
		return nil
	}
	emit := func(s SimState, txHash string) error {
		pending = append(pending, s.Snapshot(step, txHash))
		step++
		if len(pending) >= r.cfg.SnapshotBatchSize {
			return flush()
		}
		return nil
	}

	if err := emit(state, records[0].TxHash); err != nil {
		return SimState{}, err
	}

	for i, record := range records[1:] {
		select {
		case <-ctx.Done():
			return SimState{}, ctx.Err()
		default:
		}

		next, err := r.dispatcher.Step(state, record)
		if err != nil {
			return SimState{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		r.updateFromFeeds(&next)
		r.logReferencePrices(step, next)
		if err := emit(next, record.TxHash); err != nil {
			return SimState{}, err
		}
		state = next

		if r.arbitrage != nil {
			injected, err := r.injectArbitrage(state)
			if err != nil {
				return SimState{}, fmt.Errorf("step %d arbitrage: %w", i+1, err)
			}
			if injected != nil {
				if err := emit(*injected, ""); err != nil {
					return SimState{}, err
				}
				state = *injected
			}
		}
	}

	if err := flush(); err != nil {
		return SimState{}, err
	}
	if err := r.progress.Clear(); err != nil {
		r.logger.Warn("progress marker cleanup failed", zap.Error(err))
	}
	r.logger.Info("replay complete", zap.Int("steps", step), zap.Int("records", len(records)))
	return state, nil
}

// logReferencePrices traces the reference token's spot price row so a
// replay can be eyeballed against market data at debug level.
func (r *Runner) logReferencePrices(step int, state SimState) {
	if r.cfg.SpotPriceReference == "" {
		return
	}
	row, ok := state.SpotPrices[r.cfg.SpotPriceReference]
	if !ok {
		return
	}
	fields := make([]zap.Field, 0, len(row)+2)
	fields = append(fields,
		zap.Int("step", step),
		zap.String("action", string(state.ActionType)),
	)
	for _, symbol := range sortedKeys(row) {
		fields = append(fields, zap.String(symbol, row[symbol].String()))
	}
	r.logger.Debug("spot prices", fields...)
}

func sortedKeys(row map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(row))
	for key := range row {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// updateFromFeeds overrides external prices from registered feeds at
// the state's timestamp. Feed gaps keep the previous price.
func (r *Runner) updateFromFeeds(state *SimState) {
	for symbol, feed := range r.feeds {
		price, err := feed.At(state.ChangeDatetime)
		if err != nil {
			r.logger.Warn("price feed lookup failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		state.ExternalPrices.Prices[symbol] = price
	}
}

// injectArbitrage applies the policy's proposal, if any, as a synthetic
// swap step.
func (r *Runner) injectArbitrage(state SimState) (*SimState, error) {
	proposal, err := r.arbitrage.Evaluate(state.Pool, state.SpotPrices, state.ExternalPrices, state.ChangeDatetime)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		return nil, nil
	}

	next := SimState{
		Pool:           state.Pool.Clone(),
		ExternalPrices: state.ExternalPrices.Clone(),
		ChangeDatetime: proposal.At,
		ActionType:     model.ActionSwap,
		Arbitrage:      &proposal.Detail,
	}
	in := proposal.Swap.In
	if _, err := next.Pool.SwapExactAmountIn(in.TokenIn.Symbol, in.TokenIn.Amount, in.MinTokenOut.Symbol, in.MinTokenOut.Amount, in.MaxPrice); err != nil {
		return nil, fmt.Errorf("apply arbitrage swap: %w", err)
	}
	next.SpotPrices = ComputeSpotPrices(next.Pool)
	return &next, nil
}
