package breaker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/theRebelliousNerd/selectorcache/internal/logging"
)

// fileSnapshot is the on-disk JSON shape for Snapshot.
type fileSnapshot struct {
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailureTime     time.Time `json:"last_failure_time"`
	LastStateChange     time.Time `json:"last_state_change"`
	BackoffDelayMs      int64     `json:"backoff_delay_ms"`
}

// FilePersister returns a PersistFunc that writes Snapshot to path as JSON,
// via a temp-file-plus-rename so a crash mid-write never corrupts the file
// a subsequent restart reads.
func FilePersister(path string) PersistFunc {
	return func(s Snapshot) {
		data, err := json.MarshalIndent(fileSnapshot{
			State:               s.State,
			ConsecutiveFailures: s.ConsecutiveFailures,
			LastFailureTime:     s.LastFailureTime,
			LastStateChange:     s.LastStateChange,
			BackoffDelayMs:      s.BackoffDelay.Milliseconds(),
		}, "", "  ")
		if err != nil {
			logging.Get(logging.CategoryBreaker).Warn("breaker: failed to marshal snapshot: %v", err)
			return
		}
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0644); err != nil {
			logging.Get(logging.CategoryBreaker).Warn("breaker: failed to write snapshot: %v", err)
			return
		}
		if err := os.Rename(tmp, path); err != nil {
			logging.Get(logging.CategoryBreaker).Warn("breaker: failed to persist snapshot: %v", err)
		}
	}
}

// LoadSnapshot reads a previously persisted snapshot. A missing or corrupt
// file is tolerated: spec.md §7 requires falling back to defaults on
// "persistence-file corruption at breaker start", logging rather than
// failing.
func LoadSnapshot(path string) *Snapshot {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var fs fileSnapshot
	if err := json.Unmarshal(data, &fs); err != nil {
		logging.Get(logging.CategoryBreaker).Warn("breaker: corrupt snapshot at %s, falling back to defaults: %v", path, err)
		return nil
	}
	return &Snapshot{
		State:               fs.State,
		ConsecutiveFailures: fs.ConsecutiveFailures,
		LastFailureTime:     fs.LastFailureTime,
		LastStateChange:     fs.LastStateChange,
		BackoffDelay:        time.Duration(fs.BackoffDelayMs) * time.Millisecond,
	}
}

// DefaultSnapshotPath builds the conventional snapshot path for a tool name
// under the workspace's .selectorcache directory.
func DefaultSnapshotPath(workspaceRoot, toolName string) string {
	return filepath.Join(workspaceRoot, ".selectorcache", "breaker", toolName+".json")
}
