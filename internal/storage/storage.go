package storage

import "poolreplay/internal/model"

// Storage defines a sink for per-step simulation snapshots.
type Storage interface {
	PutSnapshotBatch(snapshots []model.Snapshot) error
}
