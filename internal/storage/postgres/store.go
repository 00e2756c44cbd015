// Package postgres persists simulation snapshots and run bookkeeping.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolreplay/internal/model"
)

// Store provides Postgres persistence for replay runs.
type Store struct {
	pool  *pgxpool.Pool
	runID string
}

func NewStore(ctx context.Context, dsn, runID string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, runID: runID}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutSnapshotBatch upserts one row per simulated step, keyed by run and
// step so an interrupted replay can be re-run idempotently, then
// advances the run's high-water mark.
func (s *Store) PutSnapshotBatch(snapshots []model.Snapshot) error {
	ctx := context.Background()
	if err := s.UpsertSnapshots(ctx, snapshots); err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return nil
	}
	return s.SaveState(ctx, s.runID, snapshots[len(snapshots)-1].Step)
}

// UpsertSnapshots inserts or updates snapshot rows.
func (s *Store) UpsertSnapshots(ctx context.Context, snapshots []model.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snapshot := range snapshots {
		tokens, err := json.Marshal(snapshot.Tokens)
		if err != nil {
			return fmt.Errorf("marshal tokens: %w", err)
		}
		fees, err := json.Marshal(snapshot.GeneratedFees)
		if err != nil {
			return fmt.Errorf("marshal generated fees: %w", err)
		}
		spotPrices, err := json.Marshal(snapshot.SpotPrices)
		if err != nil {
			return fmt.Errorf("marshal spot prices: %w", err)
		}
		externalPrices, err := json.Marshal(snapshot.ExternalPrices)
		if err != nil {
			return fmt.Errorf("marshal external prices: %w", err)
		}
		var arb []byte
		if snapshot.Arbitrage != nil {
			arb, err = json.Marshal(snapshot.Arbitrage)
			if err != nil {
				return fmt.Errorf("marshal arbitrage detail: %w", err)
			}
		}
		batch.Queue(`
			INSERT INTO replay_snapshots (
				run_id, step, ts, action_type, tx_hash, tokens, pool_shares,
				swap_fee, generated_fees, spot_prices, external_prices, arbitrage,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
			ON CONFLICT (run_id, step)
			DO UPDATE SET
				ts = EXCLUDED.ts,
				action_type = EXCLUDED.action_type,
				tx_hash = EXCLUDED.tx_hash,
				tokens = EXCLUDED.tokens,
				pool_shares = EXCLUDED.pool_shares,
				swap_fee = EXCLUDED.swap_fee,
				generated_fees = EXCLUDED.generated_fees,
				spot_prices = EXCLUDED.spot_prices,
				external_prices = EXCLUDED.external_prices,
				arbitrage = EXCLUDED.arbitrage,
				updated_at = now()
		`,
			s.runID,
			snapshot.Step,
			snapshot.Timestamp,
			string(snapshot.ActionType),
			snapshot.TxHash,
			tokens,
			snapshot.PoolShares,
			snapshot.SwapFee,
			fees,
			spotPrices,
			externalPrices,
			arb,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last persisted step for a run.
func (s *Store) LoadState(ctx context.Context, runID string) (int, bool, error) {
	if runID == "" {
		return 0, false, fmt.Errorf("run id required")
	}
	var step int
	row := s.pool.QueryRow(ctx, `SELECT last_step FROM replay_state WHERE run_id=$1`, runID)
	if err := row.Scan(&step); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return step, true, nil
}

// SaveState upserts the last persisted step for a run.
func (s *Store) SaveState(ctx context.Context, runID string, step int) error {
	if runID == "" {
		return fmt.Errorf("run id required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (run_id, last_step, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (run_id) DO UPDATE
		SET last_step = EXCLUDED.last_step, updated_at = now()
	`, runID, step)
	return err
}
