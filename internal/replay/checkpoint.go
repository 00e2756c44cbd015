package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Progress marks how far a run got. A replay is deterministic and always
// restarts from genesis, so the marker exists for operators: a leftover
// file from an interrupted run says where it stopped.
type Progress struct {
	RunID     string `json:"run_id"`
	LastStep  int    `json:"last_step"`
	UpdatedAt string `json:"updated_at"`
}

// ProgressStore persists progress markers to disk.
type ProgressStore struct {
	path    string
	runID   string
	enabled bool
}

func NewProgressStore(path, runID string, enabled bool) *ProgressStore {
	return &ProgressStore{path: path, runID: runID, enabled: enabled}
}

func (p *ProgressStore) Load() (Progress, bool, error) {
	if !p.enabled {
		return Progress{}, false, nil
	}

	stat, err := os.Stat(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Progress{}, false, nil
		}
		return Progress{}, false, fmt.Errorf("stat progress file: %w", err)
	}
	if stat.IsDir() {
		return Progress{}, false, fmt.Errorf("progress path is a directory")
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return Progress{}, false, fmt.Errorf("read progress file: %w", err)
	}

	var marker Progress
	if err := json.Unmarshal(data, &marker); err != nil {
		return Progress{}, false, fmt.Errorf("parse progress file: %w", err)
	}

	return marker, true, nil
}

func (p *ProgressStore) Save(lastStep int) error {
	if !p.enabled {
		return nil
	}

	dir := filepath.Dir(p.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create progress dir: %w", err)
		}
	}

	marker := Progress{
		RunID:     p.runID,
		LastStep:  lastStep,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write progress tmp: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return fmt.Errorf("rename progress file: %w", err)
	}

	return nil
}

// Clear removes the marker after a completed run.
func (p *ProgressStore) Clear() error {
	if !p.enabled {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove progress file: %w", err)
	}
	return nil
}
