package store

import (
	"fmt"

	"github.com/theRebelliousNerd/selectorcache/internal/logging"
)

// CleanupConfig configures row-budget-triggered cleanup on top of the
// TTL-based RunCleanup, grounded on the teacher's
// internal/store/tool_cleanup.go CleanupConfig/AutoCleanup pair (there
// sized in bytes and runtime-hours of tool_executions; here in row counts
// of input_mappings and snapshot_cache, since this store has no
// result-size column to budget against).
type CleanupConfig struct {
	MaxMappingRows       int64
	MaxSnapshotRows      int64
	AutoCleanupThreshold float64
}

// DefaultCleanupConfig mirrors the teacher's 0.8 trigger threshold.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		MaxMappingRows:       100_000,
		MaxSnapshotRows:      20_000,
		AutoCleanupThreshold: 0.8,
	}
}

// BudgetCleanupStats reports what a row-budget pass removed.
type BudgetCleanupStats struct {
	MappingsDeleted  int
	SnapshotsDeleted int
}

// ShouldAutoCleanup reports whether either table has crossed
// AutoCleanupThreshold of its configured row budget.
func (s *Store) ShouldAutoCleanup(cfg CleanupConfig) bool {
	stats, err := s.Stats()
	if err != nil {
		return false
	}
	mappingThreshold := float64(cfg.MaxMappingRows) * cfg.AutoCleanupThreshold
	snapshotThreshold := float64(cfg.MaxSnapshotRows) * cfg.AutoCleanupThreshold
	return float64(stats["input_mappings"]) > mappingThreshold || float64(stats["snapshot_cache"]) > snapshotThreshold
}

// AutoCleanup deletes the oldest rows (by last_used, then created_at) from
// whichever table is over budget, down to the configured max, the same
// oldest-first strategy as the teacher's CleanupByRuntimeBudget/
// CleanupBySizeLimit.
func (s *Store) AutoCleanup(cfg CleanupConfig) (*BudgetCleanupStats, error) {
	if !s.ShouldAutoCleanup(cfg) {
		return &BudgetCleanupStats{}, nil
	}
	logging.StoreDebug("AutoCleanup triggered (row budget exceeded)")

	stats := &BudgetCleanupStats{}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, err := deleteOldestOverBudget(s, "input_mappings", "last_used", cfg.MaxMappingRows); err != nil {
		return stats, err
	} else {
		stats.MappingsDeleted = n
	}
	if n, err := deleteOldestOverBudget(s, "snapshot_cache", "last_used", cfg.MaxSnapshotRows); err != nil {
		return stats, err
	} else {
		stats.SnapshotsDeleted = n
	}

	logging.Store("AutoCleanup: deleted %d mapping rows, %d snapshot rows", stats.MappingsDeleted, stats.SnapshotsDeleted)
	return stats, nil
}

func deleteOldestOverBudget(s *Store, table, orderCol string, maxRows int64) (int, error) {
	var count int64
	if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("store: autocleanup count %s: %w", table, err)
	}
	if count <= maxRows {
		return 0, nil
	}
	overage := count - maxRows
	res, err := s.db.Exec(fmt.Sprintf(`
		DELETE FROM %s WHERE rowid IN (
			SELECT rowid FROM %s ORDER BY %s ASC LIMIT ?
		)`, table, table, orderCol), overage)
	if err != nil {
		return 0, fmt.Errorf("store: autocleanup delete from %s: %w", table, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
