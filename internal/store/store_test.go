package store

import (
	"testing"
	"time"
)

func TestOpenCreatesSchema(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	requiredTables := []string{
		"selector_cache_v2", "input_mappings", "snapshot_cache",
		"test_scenarios", "test_executions", "test_patterns", "cache_keys_v2",
	}
	for _, table := range requiredTables {
		if _, ok := stats[table]; !ok {
			t.Errorf("stats missing table: %s", table)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.initialize(); err != nil {
		t.Fatalf("second initialize() should be a no-op, got: %v", err)
	}
}

func TestClearEmptiesAllTables(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	now := nowUnix()
	if _, err := s.db.Exec(`INSERT INTO selector_cache_v2 (selector_hash, selector, last_used, created_at) VALUES (?, ?, ?, ?)`,
		"h1", "#id", now, now); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["selector_cache_v2"] != 0 {
		t.Errorf("expected 0 rows after Clear, got %d", stats["selector_cache_v2"])
	}
}

func TestRunCleanupExpiresOldMappings(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	now := nowUnix()
	old := now - int64((48 * time.Hour).Seconds())

	if _, err := s.db.Exec(`INSERT INTO selector_cache_v2 (selector_hash, selector, last_used, created_at) VALUES (?, ?, ?, ?)`,
		"h1", "#id", now, now); err != nil {
		t.Fatalf("seed selector failed: %v", err)
	}
	if _, err := s.db.Exec(`
		INSERT INTO input_mappings (selector_hash, input, normalized_input, url, last_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		"h1", "click it", "click it", "http://x/", old, old); err != nil {
		t.Fatalf("seed mapping failed: %v", err)
	}

	stats, err := s.RunCleanup(24*time.Hour, 10)
	if err != nil {
		t.Fatalf("RunCleanup failed: %v", err)
	}
	if stats.MappingsExpired != 1 {
		t.Errorf("expected 1 expired mapping, got %d", stats.MappingsExpired)
	}
	if stats.OrphanedRecordsFreed != 1 {
		t.Errorf("expected orphaned selector record freed, got %d", stats.OrphanedRecordsFreed)
	}
}

func TestRunCleanupTrimsVariations(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	now := nowUnix()
	if _, err := s.db.Exec(`INSERT INTO selector_cache_v2 (selector_hash, selector, last_used, created_at) VALUES (?, ?, ?, ?)`,
		"h1", "#id", now, now); err != nil {
		t.Fatalf("seed selector failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		normalized := "phrase variant " + string(rune('a'+i))
		if _, err := s.db.Exec(`
			INSERT INTO input_mappings (selector_hash, input, normalized_input, url, confidence, last_used, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			"h1", "phrase", normalized, "http://x/", float64(i)/10.0, now, now); err != nil {
			t.Fatalf("seed mapping %d failed: %v", i, err)
		}
	}

	stats, err := s.RunCleanup(30*24*time.Hour, 2)
	if err != nil {
		t.Fatalf("RunCleanup failed: %v", err)
	}
	if stats.VariationsTrimmed != 3 {
		t.Errorf("expected 3 trimmed variations, got %d", stats.VariationsTrimmed)
	}
}
