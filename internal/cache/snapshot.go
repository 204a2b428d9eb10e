package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SnapshotOptions configures an optional url/profile/ttl on SetSnapshot.
type SnapshotOptions struct {
	URL     string
	Profile string
	TTL     time.Duration
}

// GetSnapshot looks up an opaque payload by cache key, enforcing profile
// isolation at read time: a request with profile P matches only rows with
// profile P or NULL (spec.md §4.2 "Snapshot sub-cache").
func (c *Cache) GetSnapshot(ctx context.Context, key, profile string) ([]byte, error) {
	var row *sql.Row
	if profile == "" {
		row = c.store.DB().QueryRowContext(ctx, `
			SELECT payload FROM snapshot_cache WHERE cache_key = ? AND profile IS NULL`, key)
	} else {
		row = c.store.DB().QueryRowContext(ctx, `
			SELECT payload FROM snapshot_cache WHERE cache_key = ? AND (profile = ? OR profile IS NULL)
			ORDER BY CASE WHEN profile = ? THEN 0 ELSE 1 END LIMIT 1`, key, profile, profile)
	}

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: getSnapshot: %w", err)
	}

	// hit_count/last_used bookkeeping is best-effort; a failure here must
	// not fail the read.
	_, _ = c.store.DB().ExecContext(ctx, `
		UPDATE snapshot_cache SET hit_count = hit_count + 1, last_used = ? WHERE cache_key = ?`,
		time.Now().Unix(), key)
	return payload, nil
}

// SetSnapshot stores an opaque payload under cache_key, scoped by the
// optional profile in opts.
func (c *Cache) SetSnapshot(ctx context.Context, key string, payload []byte, opts SnapshotOptions) error {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.cfg.SnapshotDefaultTTL
	}
	var profileArg interface{}
	if opts.Profile != "" {
		profileArg = opts.Profile
	}

	now := time.Now().Unix()
	_, err := c.store.DB().ExecContext(ctx, `
		INSERT INTO snapshot_cache (cache_key, profile, payload, url, dom_hash, viewport, ttl_seconds, hit_count, last_used, created_at)
		VALUES (?, ?, ?, ?, '', '', ?, 0, ?, ?)
		ON CONFLICT(cache_key, profile) DO UPDATE SET
			payload = excluded.payload,
			url = excluded.url,
			ttl_seconds = excluded.ttl_seconds,
			last_used = excluded.last_used`,
		key, profileArg, payload, opts.URL, int64(ttl.Seconds()), now, now)
	if err != nil {
		return fmt.Errorf("cache: setSnapshot: %w", err)
	}
	return nil
}

// InvalidateSnapshots removes snapshots matching the optional url/profile
// filters; an empty filter matches all rows.
func (c *Cache) InvalidateSnapshots(ctx context.Context, url, profile string) error {
	query := "DELETE FROM snapshot_cache WHERE 1=1"
	var args []interface{}
	if url != "" {
		query += " AND url = ?"
		args = append(args, url)
	}
	if profile != "" {
		query += " AND profile = ?"
		args = append(args, profile)
	}
	if _, err := c.store.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("cache: invalidateSnapshots: %w", err)
	}
	return nil
}
