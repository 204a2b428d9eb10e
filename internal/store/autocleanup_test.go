package store

import "testing"

func TestAutoCleanupSkipsWhenUnderBudget(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	cfg := DefaultCleanupConfig()
	if s.ShouldAutoCleanup(cfg) {
		t.Error("expected an empty store to be under budget")
	}

	stats, err := s.AutoCleanup(cfg)
	if err != nil {
		t.Fatalf("AutoCleanup: %v", err)
	}
	if stats.MappingsDeleted != 0 || stats.SnapshotsDeleted != 0 {
		t.Errorf("expected no-op cleanup on an empty store, got %+v", stats)
	}
}

func TestAutoCleanupDeletesOldestMappingsOverBudget(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.DB().Exec(`
		INSERT INTO selector_cache_v2 (selector_hash, selector, confidence, use_count, success_count, last_used, created_at)
		VALUES ('h1', '#a', 0.5, 0, 0, 0, 0)`); err != nil {
		t.Fatalf("seed selector: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := s.DB().Exec(`
			INSERT INTO input_mappings (selector_hash, input, normalized_input, url, tokens, confidence, success_count, last_used, created_at)
			VALUES ('h1', ?, ?, 'https://example.com', '[]', 0.5, 0, ?, ?)`,
			"input", "input", int64(i), int64(i)); err != nil {
			t.Fatalf("seed mapping %d: %v", i, err)
		}
	}

	cfg := CleanupConfig{MaxMappingRows: 2, MaxSnapshotRows: 1000, AutoCleanupThreshold: 0.5}
	if !s.ShouldAutoCleanup(cfg) {
		t.Fatal("expected 5 mapping rows against a budget of 2 to trigger cleanup")
	}

	stats, err := s.AutoCleanup(cfg)
	if err != nil {
		t.Fatalf("AutoCleanup: %v", err)
	}
	if stats.MappingsDeleted != 3 {
		t.Errorf("expected 3 oldest mappings deleted (5 rows, budget 2), got %d", stats.MappingsDeleted)
	}

	var remaining int64
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM input_mappings`).Scan(&remaining); err != nil {
		t.Fatalf("count remaining: %v", err)
	}
	if remaining != 2 {
		t.Errorf("expected 2 mapping rows to remain, got %d", remaining)
	}
}
