package store

import (
	"database/sql"
	"fmt"

	"github.com/theRebelliousNerd/selectorcache/internal/logging"
)

// migrateLegacy copies rows out of a pre-existing legacy
// cache{cache_type, data, url, created_at, accessed_at, ttl, profile} table,
// per spec.md §6.1. A missing legacy table is tolerated silently — this is
// a best-effort upgrade path, not a required migration.
func (s *Store) migrateLegacy() error {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='cache'`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("store: checking for legacy cache table: %w", err)
	}
	if exists == 0 {
		return nil
	}

	// Read through the transaction: the store has a single connection, so a
	// separate query would hold it and Begin would wait forever.
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT cache_type, data, url, created_at, accessed_at, ttl, profile FROM cache`)
	if err != nil {
		return fmt.Errorf("store: reading legacy cache table: %w", err)
	}
	defer rows.Close()

	now := nowUnix()
	migratedSelectors, migratedSnapshots := 0, 0

	for rows.Next() {
		var cacheType, data, url, profile sql.NullString
		var createdAt, accessedAt, ttl sql.NullInt64
		if err := rows.Scan(&cacheType, &data, &url, &createdAt, &accessedAt, &ttl, &profile); err != nil {
			logging.Get(logging.CategoryStore).Warn("store: skipping malformed legacy row: %v", err)
			continue
		}

		cacheKey := data.String
		if len(cacheKey) == 0 {
			continue
		}
		hash := legacyHashPrefix(cacheKey)

		switch cacheType.String {
		case "selector":
			createdAtVal := now
			if createdAt.Valid {
				createdAtVal = createdAt.Int64
			}
			if _, err := tx.Exec(`
				INSERT INTO selector_cache_v2 (selector_hash, selector, confidence, use_count, success_count, last_used, created_at)
				VALUES (?, ?, 0.5, 0, 0, ?, ?)
				ON CONFLICT(selector_hash) DO NOTHING`,
				hash, cacheKey, createdAtVal, createdAtVal); err != nil {
				return fmt.Errorf("store: migrating legacy selector row: %w", err)
			}
			migratedSelectors++
		case "snapshot":
			createdAtVal := now
			if createdAt.Valid {
				createdAtVal = createdAt.Int64
			}
			ttlSeconds := int64(86400)
			if ttl.Valid && ttl.Int64 > 0 {
				ttlSeconds = ttl.Int64
			}
			var profileArg interface{}
			if profile.Valid {
				profileArg = profile.String
			}
			if _, err := tx.Exec(`
				INSERT INTO snapshot_cache (cache_key, profile, payload, url, dom_hash, ttl_seconds, hit_count, last_used, created_at)
				VALUES (?, ?, ?, ?, 'migrated', ?, 0, ?, ?)
				ON CONFLICT(cache_key, profile) DO NOTHING`,
				hash, profileArg, cacheKey, url.String, ttlSeconds, createdAtVal, createdAtVal); err != nil {
				return fmt.Errorf("store: migrating legacy snapshot row: %w", err)
			}
			migratedSnapshots++
		}
		_ = accessedAt
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterating legacy cache table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	if migratedSelectors > 0 || migratedSnapshots > 0 {
		logging.Store("migrated %d selector rows and %d snapshot rows from legacy cache table", migratedSelectors, migratedSnapshots)
	}
	return nil
}

// legacyHashPrefix derives the stable identifier migrated rows are keyed
// under: the first 32 characters of the legacy cache_key itself, per
// spec.md §6.1 ("hash = first 32 chars of cache_key").
func legacyHashPrefix(cacheKey string) string {
	if len(cacheKey) <= 32 {
		return cacheKey
	}
	return cacheKey[:32]
}
