package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/theRebelliousNerd/selectorcache/internal/logging"
)

// CleanupStats reports what one eviction pass removed, mirroring the
// teacher's CleanupStats shape (internal/store/tool_cleanup.go) adapted to
// the selector-cache tables.
type CleanupStats struct {
	MappingsExpired     int
	SnapshotsExpired    int
	VariationsTrimmed   int
	OrphanedRecordsFreed int
}

// RunCleanup performs one pass of the eviction rules in spec.md §4.2:
// expire input mappings and snapshots past their TTL, trim each
// (selector_hash, url) group down to maxVariationsPerSelector, then delete
// any selector record no longer referenced by a mapping.
func (s *Store) RunCleanup(selectorTTL time.Duration, maxVariationsPerSelector int) (*CleanupStats, error) {
	timer := logging.StartTimer(logging.CategoryStore, "RunCleanup")
	defer timer.Stop()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stats := &CleanupStats{}
	now := nowUnix()
	ttlCutoff := now - int64(selectorTTL.Seconds())

	res, err := tx.Exec(`DELETE FROM input_mappings WHERE last_used < ?`, ttlCutoff)
	if err != nil {
		return nil, fmt.Errorf("store: cleanup expired mappings: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		stats.MappingsExpired = int(n)
	}

	res, err = tx.Exec(`DELETE FROM snapshot_cache WHERE created_at + ttl_seconds < ?`, now)
	if err != nil {
		return nil, fmt.Errorf("store: cleanup expired snapshots: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		stats.SnapshotsExpired = int(n)
	}

	trimmed, err := trimVariations(tx, maxVariationsPerSelector)
	if err != nil {
		return nil, err
	}
	stats.VariationsTrimmed = trimmed

	res, err = tx.Exec(`
		DELETE FROM selector_cache_v2
		WHERE selector_hash NOT IN (SELECT DISTINCT selector_hash FROM input_mappings)`)
	if err != nil {
		return nil, fmt.Errorf("store: cleanup orphaned selector records: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		stats.OrphanedRecordsFreed = int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	logging.StoreDebug("cleanup: %+v", stats)
	return stats, nil
}

// trimVariations retains, per (selector_hash, url), only the top
// maxVariationsPerSelector mappings ordered by
// (confidence DESC, success_count DESC, last_used DESC), deleting the rest.
func trimVariations(tx *sql.Tx, limit int) (int, error) {
	rows, err := tx.Query(`SELECT DISTINCT selector_hash, url FROM input_mappings`)
	if err != nil {
		return 0, fmt.Errorf("store: enumerating selector/url groups: %w", err)
	}
	type group struct{ hash, url string }
	var groups []group
	for rows.Next() {
		var g group
		if err := rows.Scan(&g.hash, &g.url); err != nil {
			rows.Close()
			return 0, err
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	trimmed := 0
	for _, g := range groups {
		res, err := tx.Exec(`
			DELETE FROM input_mappings
			WHERE id IN (
				SELECT id FROM input_mappings
				WHERE selector_hash = ? AND url = ?
				ORDER BY confidence DESC, success_count DESC, last_used DESC
				LIMIT -1 OFFSET ?
			)`, g.hash, g.url, limit)
		if err != nil {
			return trimmed, fmt.Errorf("store: trimming variations for %s/%s: %w", g.hash, g.url, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			trimmed += int(n)
		}
	}
	return trimmed, nil
}
