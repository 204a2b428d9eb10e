// Package store owns the single SQLite database backing the selector cache
// and the scenario store (the circuit breaker persists its state to a JSON
// file of its own, see internal/breaker/persist.go). It is
// grounded on the teacher's internal/store/local_core.go bootstrap: one
// *sql.DB, WAL journaling, a single writer connection, and an idempotent
// schema-creation pass run on every open.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/theRebelliousNerd/selectorcache/internal/logging"
)

// Store wraps the shared SQLite connection used by every domain package.
type Store struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if necessary) the SQLite database at path, applies
// the PRAGMAs the teacher uses for a single-writer WAL workload, and runs
// the idempotent schema pass. A database file that cannot be created or
// opened is the one fatal condition named in spec.md §7 ("database file not
// writable at startup").
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "store.Open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: failed to create cache directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database at %s: %w", path, err)
	}
	// A single writer connection avoids SQLITE_BUSY under WAL without needing
	// an external connection pool; the cache workload is latency-sensitive,
	// not throughput-sensitive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("store: pragma %q failed: %v", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: database file not writable at %s: %w", path, err)
	}

	s := &Store{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrateLegacy(); err != nil {
		logging.Get(logging.CategoryStore).Warn("store: legacy migration skipped: %v", err)
	}

	logging.Store("store opened at %s", path)
	return s, nil
}

// DB exposes the underlying connection for packages that need to run their
// own prepared statements or transactions against the shared schema.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) initialize() error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: schema init failed: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Stats reports row counts per table, used by telemetry health reports.
func (s *Store) Stats() (map[string]int64, error) {
	tables := []string{
		"selector_cache_v2", "input_mappings", "snapshot_cache",
		"test_scenarios", "test_executions", "test_patterns", "cache_keys_v2",
	}
	stats := make(map[string]int64, len(tables))
	for _, t := range tables {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			return nil, fmt.Errorf("store: stats query on %s: %w", t, err)
		}
		stats[t] = count
	}
	return stats, nil
}

// Clear truncates every domain table, used by Cache.clear().
func (s *Store) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, t := range []string{
		"input_mappings", "selector_cache_v2", "snapshot_cache",
		"test_executions", "test_scenarios", "test_patterns", "cache_keys_v2",
	} {
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", t)); err != nil {
			return fmt.Errorf("store: clear %s: %w", t, err)
		}
	}
	return tx.Commit()
}

// nowUnix is the single clock primitive every domain package should use for
// timestamp columns, so tests can be written against fixed epoch values.
func nowUnix() int64 { return time.Now().Unix() }
