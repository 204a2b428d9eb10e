package store

// schemaStatements creates the storage schema named in spec.md §6.1. Each
// statement is idempotent (CREATE ... IF NOT EXISTS) so initialize can run
// on every open without a separate migration-version table.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS selector_cache_v2 (
		selector_hash   TEXT PRIMARY KEY,
		selector        TEXT NOT NULL,
		confidence      REAL NOT NULL DEFAULT 0.5,
		use_count       INTEGER NOT NULL DEFAULT 0,
		success_count   INTEGER NOT NULL DEFAULT 0,
		last_used       INTEGER NOT NULL,
		created_at      INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS input_mappings (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		selector_hash     TEXT NOT NULL REFERENCES selector_cache_v2(selector_hash),
		input             TEXT NOT NULL,
		normalized_input  TEXT NOT NULL,
		url               TEXT NOT NULL,
		tokens            TEXT NOT NULL DEFAULT '[]',
		confidence        REAL NOT NULL DEFAULT 0.5,
		success_count     INTEGER NOT NULL DEFAULT 0,
		last_used         INTEGER NOT NULL,
		created_at        INTEGER NOT NULL,
		UNIQUE(selector_hash, normalized_input, url)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_input_mappings_selector_hash ON input_mappings(selector_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_input_mappings_norm_url ON input_mappings(normalized_input, url)`,
	`CREATE INDEX IF NOT EXISTS idx_input_mappings_tokens ON input_mappings(tokens)`,
	`CREATE INDEX IF NOT EXISTS idx_input_mappings_created_at ON input_mappings(created_at)`,

	`CREATE TABLE IF NOT EXISTS snapshot_cache (
		cache_key   TEXT NOT NULL,
		profile     TEXT,
		payload     TEXT NOT NULL,
		url         TEXT,
		dom_hash    TEXT NOT NULL DEFAULT '',
		viewport    TEXT NOT NULL DEFAULT '',
		ttl_seconds INTEGER NOT NULL DEFAULT 86400,
		hit_count   INTEGER NOT NULL DEFAULT 0,
		last_used   INTEGER NOT NULL,
		created_at  INTEGER NOT NULL,
		UNIQUE(cache_key, profile)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_cache_url ON snapshot_cache(url, cache_key)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_cache_created_at ON snapshot_cache(created_at)`,

	`CREATE TABLE IF NOT EXISTS test_scenarios (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		name             TEXT NOT NULL UNIQUE,
		description      TEXT NOT NULL DEFAULT '',
		steps            TEXT NOT NULL DEFAULT '[]',
		tags             TEXT NOT NULL DEFAULT '[]',
		url_pattern      TEXT NOT NULL DEFAULT '',
		profile          TEXT,
		pattern_hash     TEXT NOT NULL DEFAULT '',
		success_rate     REAL NOT NULL DEFAULT 1.0,
		total_runs       INTEGER NOT NULL DEFAULT 0,
		confidence       REAL NOT NULL DEFAULT 0.5,
		last_run         INTEGER,
		last_adapted     INTEGER,
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_test_scenarios_pattern_hash ON test_scenarios(pattern_hash)`,

	`CREATE TABLE IF NOT EXISTS test_executions (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		scenario_id   INTEGER NOT NULL REFERENCES test_scenarios(id),
		status        TEXT NOT NULL,
		duration_ms   INTEGER NOT NULL DEFAULT 0,
		adaptations   TEXT NOT NULL DEFAULT '[]',
		url           TEXT,
		profile       TEXT,
		created_at    INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_test_executions_scenario_id ON test_executions(scenario_id)`,
	`CREATE INDEX IF NOT EXISTS idx_test_executions_created_at ON test_executions(created_at)`,

	`CREATE TABLE IF NOT EXISTS test_patterns (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		action             TEXT NOT NULL,
		selector_vector    TEXT NOT NULL DEFAULT '[]',
		description_vector TEXT NOT NULL DEFAULT '[]',
		adaptation_rules   TEXT NOT NULL DEFAULT '[]',
		pattern_hash       TEXT NOT NULL DEFAULT '',
		created_at         INTEGER NOT NULL,
		UNIQUE(action, pattern_hash)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_test_patterns_pattern_hash ON test_patterns(pattern_hash)`,

	// Optional enhanced-key table (§4.3), present whenever the enhanced cache
	// key path is exercised.
	`CREATE TABLE IF NOT EXISTS cache_keys_v2 (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		test_name_normalized TEXT NOT NULL,
		url_pattern          TEXT NOT NULL,
		dom_signature        TEXT NOT NULL DEFAULT '',
		steps_structure_hash TEXT NOT NULL,
		profile              TEXT,
		version              INTEGER NOT NULL DEFAULT 1,
		created_at           INTEGER NOT NULL,
		UNIQUE(test_name_normalized, url_pattern, steps_structure_hash, profile)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_keys_v2_pattern_hash ON cache_keys_v2(steps_structure_hash)`,
}
