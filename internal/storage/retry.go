package storage

import (
	"time"

	"poolreplay/internal/model"
)

// RetryingStorage wraps a Storage and retries failed batch writes with
// exponential backoff. Snapshot upserts are idempotent, so replaying a
// partially applied batch is safe.
type RetryingStorage struct {
	inner      Storage
	maxRetries int
	baseDelay  time.Duration
}

func NewRetryingStorage(inner Storage, maxRetries int, baseDelay time.Duration) *RetryingStorage {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	return &RetryingStorage{inner: inner, maxRetries: maxRetries, baseDelay: baseDelay}
}

func (r *RetryingStorage) PutSnapshotBatch(snapshots []model.Snapshot) error {
	delay := r.baseDelay
	for attempt := 0; ; attempt++ {
		err := r.inner.PutSnapshotBatch(snapshots)
		if err == nil {
			return nil
		}
		if attempt >= r.maxRetries {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
}
