// Package cache implements the Bidirectional Cache from spec.md §4.2: a
// four-tier lookup (exact, normalized, reverse, fuzzy) backed by the shared
// SQLite store, plus a parallel snapshot sub-cache. Grounded on the
// teacher's confidence-upsert idiom (internal/store/learning.go:
// "ON CONFLICT ... DO UPDATE SET confidence = MIN(...)").
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theRebelliousNerd/selectorcache/internal/config"
	"github.com/theRebelliousNerd/selectorcache/internal/logging"
	"github.com/theRebelliousNerd/selectorcache/internal/normalizer"
	"github.com/theRebelliousNerd/selectorcache/internal/store"
)

// Source identifies which tier resolved a Get.
type Source string

const (
	SourceExact      Source = "exact"
	SourceNormalized Source = "normalized"
	SourceReverse    Source = "reverse"
	SourceFuzzy      Source = "fuzzy"
)

// Hit is the result of a successful Get.
type Hit struct {
	Selector   string
	Confidence float64
	Source     Source
}

// MetricsRecorder is the subset of *telemetry.Counters the cache needs.
// Declared locally (rather than importing internal/telemetry directly) so
// cache stays a leaf package: telemetry's benchmark harness imports cache
// for ScoreBatch, and a direct cache->telemetry import would cycle back.
type MetricsRecorder interface {
	RecordHit(source string)
	RecordMiss()
	RecordLearn()
	RecordInvalidation()
}

// Cache implements the Bidirectional Cache public contract.
type Cache struct {
	store    *store.Store
	cfg      config.CacheConfig
	counters MetricsRecorder
}

// New wraps a *store.Store with the bidirectional cache's tiered lookup.
// counters may be nil, in which case hit/miss/learn events are simply not
// recorded (useful for tests that don't care about telemetry).
func New(s *store.Store, cfg config.CacheConfig, counters MetricsRecorder) *Cache {
	return &Cache{store: s, cfg: cfg, counters: counters}
}

func (c *Cache) recordHit(source Source) {
	if c.counters != nil {
		c.counters.RecordHit(string(source))
	}
}

func (c *Cache) recordMiss() {
	if c.counters != nil {
		c.counters.RecordMiss()
	}
}

// Get resolves an input/url pair via the four-tier lookup, first hit wins.
// Each resolved tier updates last_used and use_count on the selector
// record.
func (c *Cache) Get(ctx context.Context, input, url string) (*Hit, error) {
	timer := logging.StartTimer(logging.CategoryCache, "Get")
	defer timer.Stop()

	norm := normalizer.Normalize(input)

	if hit, err := c.exactLookup(ctx, input, url); err != nil {
		return nil, err
	} else if hit != nil {
		c.recordHit(hit.Source)
		logging.Audit(hitAudit(input, url, true))
		return hit, nil
	}

	if hit, err := c.normalizedLookup(ctx, norm.Normalized, url); err != nil {
		return nil, err
	} else if hit != nil {
		c.recordHit(hit.Source)
		logging.Audit(hitAudit(input, url, true))
		return hit, nil
	}

	if hit, err := c.reverseLookup(ctx, norm, url); err != nil {
		return nil, err
	} else if hit != nil {
		c.recordHit(hit.Source)
		logging.Audit(hitAudit(input, url, true))
		return hit, nil
	}

	if hit, err := c.fuzzyLookup(ctx, norm, url); err != nil {
		return nil, err
	} else if hit != nil {
		c.recordHit(hit.Source)
		logging.Audit(hitAudit(input, url, true))
		return hit, nil
	}

	c.recordMiss()
	logging.Audit(hitAudit(input, url, false))
	return nil, nil
}

func hitAudit(input, url string, hit bool) logging.AuditEvent {
	eventType := logging.AuditCacheMiss
	if hit {
		eventType = logging.AuditCacheHit
	}
	return logging.AuditEvent{EventType: eventType, Target: url, Success: hit, Message: input}
}

func (c *Cache) exactLookup(ctx context.Context, input, url string) (*Hit, error) {
	row := c.store.DB().QueryRowContext(ctx, `
		SELECT sc.selector_hash, sc.selector, im.confidence
		FROM input_mappings im
		JOIN selector_cache_v2 sc ON sc.selector_hash = im.selector_hash
		WHERE im.input = ? AND im.url = ?
		ORDER BY im.confidence DESC, im.success_count DESC
		LIMIT 1`, input, url)

	var hash, selector string
	var confidence float64
	if err := row.Scan(&hash, &selector, &confidence); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: exact lookup: %w", err)
	}
	c.touch(ctx, hash)
	return &Hit{Selector: selector, Confidence: confidence, Source: SourceExact}, nil
}

func (c *Cache) normalizedLookup(ctx context.Context, normalizedInput, url string) (*Hit, error) {
	row := c.store.DB().QueryRowContext(ctx, `
		SELECT sc.selector_hash, sc.selector, im.confidence
		FROM input_mappings im
		JOIN selector_cache_v2 sc ON sc.selector_hash = im.selector_hash
		WHERE im.normalized_input = ? AND im.url = ?
		ORDER BY im.confidence DESC, im.success_count DESC
		LIMIT 1`, normalizedInput, url)

	var hash, selector string
	var confidence float64
	if err := row.Scan(&hash, &selector, &confidence); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: normalized lookup: %w", err)
	}
	c.touch(ctx, hash)
	return &Hit{Selector: selector, Confidence: confidence, Source: SourceNormalized}, nil
}

type reverseCandidate struct {
	hash         string
	selector     string
	confidence   float64
	successCount int
	rawInput     string
}

// reverseLookup scans up to ReverseCandidateLimit candidates for this URL
// with non-empty tokens, grouped by selector_hash, scoring each by semantic
// Jaccard against the query tokens (spec.md §4.2 tier 3).
func (c *Cache) reverseLookup(ctx context.Context, query normalizer.Result, url string) (*Hit, error) {
	rows, err := c.store.DB().QueryContext(ctx, `
		SELECT sc.selector_hash, sc.selector, MAX(im.confidence) as confidence, MAX(im.success_count) as success_count,
		       (SELECT input FROM input_mappings WHERE selector_hash = sc.selector_hash AND url = ? ORDER BY confidence DESC LIMIT 1) as raw_input
		FROM input_mappings im
		JOIN selector_cache_v2 sc ON sc.selector_hash = im.selector_hash
		WHERE im.url = ? AND im.tokens != '[]' AND im.tokens != ''
		GROUP BY sc.selector_hash
		ORDER BY confidence DESC, success_count DESC
		LIMIT ?`, url, url, c.cfg.ReverseCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("cache: reverse lookup query: %w", err)
	}
	defer rows.Close()

	var candidates []reverseCandidate
	for rows.Next() {
		var rc reverseCandidate
		if err := rows.Scan(&rc.hash, &rc.selector, &rc.confidence, &rc.successCount, &rc.rawInput); err != nil {
			logging.Get(logging.CategoryCache).Warn("cache: skipping malformed reverse candidate: %v", err)
			continue
		}
		candidates = append(candidates, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache: reverse lookup iteration: %w", err)
	}

	var best *reverseCandidate
	bestScore := 0.0
	for i := range candidates {
		rc := &candidates[i]
		candNorm := normalizer.Normalize(rc.rawInput)
		similarity := normalizer.SemanticJaccard(query, candNorm)
		boost := reverseBoost(rc.successCount)
		score := similarity * boost * rc.confidence
		if score > 0.15 && score > bestScore {
			bestScore = score
			best = rc
		}
	}
	if best == nil {
		return nil, nil
	}
	c.touch(ctx, best.hash)
	return &Hit{Selector: best.selector, Confidence: best.confidence * 0.9, Source: SourceReverse}, nil
}

// reverseBoost is the success-count boost applied to a reverse-lookup
// candidate's score: 1 + ln(1+success_count) * 0.1, pinned by
// reverse_boost_test.go. Do not change without updating that test.
func reverseBoost(successCount int) float64 {
	return 1 + math.Log(1+float64(successCount))*0.1
}

// fuzzyLookup scans up to FuzzyCandidateLimit recently-used candidates for
// Damerau-Levenshtein admissibility (spec.md §4.2 tier 4).
func (c *Cache) fuzzyLookup(ctx context.Context, query normalizer.Result, url string) (*Hit, error) {
	cutoff := time.Now().Add(-c.cfg.FuzzyRecencyWindow).Unix()
	rows, err := c.store.DB().QueryContext(ctx, `
		SELECT sc.selector_hash, sc.selector, im.confidence, im.normalized_input
		FROM input_mappings im
		JOIN selector_cache_v2 sc ON sc.selector_hash = im.selector_hash
		WHERE im.url = ? AND im.last_used > ?
		ORDER BY im.confidence DESC, im.success_count DESC
		LIMIT ?`, url, cutoff, c.cfg.FuzzyCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("cache: fuzzy lookup query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hash, selector, normalizedInput string
		var confidence float64
		if err := rows.Scan(&hash, &selector, &confidence, &normalizedInput); err != nil {
			logging.Get(logging.CategoryCache).Warn("cache: skipping malformed fuzzy candidate: %v", err)
			continue
		}
		distance, admissible := normalizer.FuzzyAdmissible(query.Normalized, normalizedInput)
		if !admissible {
			continue
		}
		rows.Close()
		c.touch(ctx, hash)
		return &Hit{Selector: selector, Confidence: confidence * (1 - float64(distance)/10), Source: SourceFuzzy}, nil
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache: fuzzy lookup iteration: %w", err)
	}
	return nil, nil
}

func (c *Cache) touch(ctx context.Context, selectorHash string) {
	now := time.Now().Unix()
	if _, err := c.store.DB().ExecContext(ctx, `
		UPDATE selector_cache_v2 SET last_used = ?, use_count = use_count + 1 WHERE selector_hash = ?`,
		now, selectorHash); err != nil {
		logging.Get(logging.CategoryCache).Warn("cache: touch failed for %s: %v", selectorHash, err)
	}
}

// Set writes input/url/selector as a single transaction (spec.md §4.2
// "Write path"), then asynchronously learns related inputs.
func (c *Cache) Set(ctx context.Context, input, url, selector string) error {
	timer := logging.StartTimer(logging.CategoryCache, "Set")
	defer timer.Stop()

	norm := normalizer.Normalize(input)
	hash := selectorHashOf(selector)
	now := time.Now().Unix()
	tokensJSON, _ := json.Marshal(norm.Tokens)

	tx, err := c.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache: set: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO selector_cache_v2 (selector_hash, selector, confidence, use_count, success_count, last_used, created_at)
		VALUES (?, ?, 0.5, 0, 0, ?, ?)
		ON CONFLICT(selector_hash) DO UPDATE SET
			last_used = excluded.last_used,
			use_count = use_count + 1,
			confidence = MIN(confidence * 1.02, 1.0)`,
		hash, selector, now, now); err != nil {
		return fmt.Errorf("cache: set: upsert selector record: %w", err)
	}

	existingInput, err := c.longerExistingInput(ctx, tx, hash, norm.Normalized, url, input)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO input_mappings (selector_hash, input, normalized_input, url, tokens, confidence, success_count, last_used, created_at)
		VALUES (?, ?, ?, ?, ?, 0.5, 0, ?, ?)
		ON CONFLICT(selector_hash, normalized_input, url) DO UPDATE SET
			success_count = success_count + 1,
			confidence = MIN(confidence * 1.05, 1.0),
			last_used = excluded.last_used,
			input = excluded.input`,
		hash, existingInput, norm.Normalized, url, string(tokensJSON), now, now); err != nil {
		return fmt.Errorf("cache: set: upsert input mapping: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache: set: commit: %w", err)
	}

	go c.learnRelatedInputs(context.Background(), hash, url, input)
	return nil
}

// longerExistingInput returns whichever of the new input and any existing
// mapping's raw input is longer (richer phrasings displace terser ones).
func (c *Cache) longerExistingInput(ctx context.Context, tx *sql.Tx, hash, normalizedInput, url, newInput string) (string, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT input FROM input_mappings WHERE selector_hash = ? AND normalized_input = ? AND url = ?`,
		hash, normalizedInput, url)
	var existing string
	if err := row.Scan(&existing); err != nil {
		if err == sql.ErrNoRows {
			return newInput, nil
		}
		return "", fmt.Errorf("cache: set: checking existing mapping: %w", err)
	}
	if len(existing) > len(newInput) {
		return existing, nil
	}
	return newInput, nil
}

// learnRelatedInputs runs after commit: for other high-success mappings
// sharing this selector, it materializes an inferred/pattern mapping when
// at least two tokens are shared (spec.md §4.2).
func (c *Cache) learnRelatedInputs(ctx context.Context, hash, url, newInput string) {
	rows, err := c.store.DB().QueryContext(ctx, `
		SELECT input FROM input_mappings WHERE selector_hash = ? AND url = ? AND success_count > 0`, hash, url)
	if err != nil {
		logging.Get(logging.CategoryCache).Warn("cache: learnRelatedInputs query failed: %v", err)
		return
	}
	defer rows.Close()

	// Drain the candidates first: the store has a single connection, so an
	// insert issued while rows is still open would wait on it forever.
	var existingInputs []string
	for rows.Next() {
		var existingInput string
		if err := rows.Scan(&existingInput); err != nil {
			continue
		}
		existingInputs = append(existingInputs, existingInput)
	}
	rows.Close()

	newNorm := normalizer.Normalize(newInput)
	newTokens := toSet(newNorm.Tokens)
	now := time.Now().Unix()

	for _, existingInput := range existingInputs {
		if existingInput == newInput {
			continue
		}
		existingTokens := normalizer.Normalize(existingInput).Tokens
		common := commonCount(newTokens, existingTokens)
		if common < 2 {
			continue
		}
		maxLen := len(newTokens)
		if len(existingTokens) > maxLen {
			maxLen = len(existingTokens)
		}
		if maxLen == 0 {
			continue
		}
		confidence := float64(common) / float64(maxLen)
		if confidence <= 0.7 {
			continue
		}
		tokensJSON, _ := json.Marshal(newNorm.Tokens)
		// Conflicts on the uniqueness index are silently ignored per spec.
		res, err := c.store.DB().ExecContext(ctx, `
			INSERT INTO input_mappings (selector_hash, input, normalized_input, url, tokens, confidence, success_count, last_used, created_at)
			VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
			ON CONFLICT(selector_hash, normalized_input, url) DO NOTHING`,
			hash, newInput, newNorm.Normalized, url, string(tokensJSON), confidence, now, now)
		if err != nil {
			logging.Get(logging.CategoryCache).Warn("cache: learnRelatedInputs insert failed: %v", err)
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 && c.counters != nil {
			c.counters.RecordLearn()
		}
	}
}

func toSet(tokens []string) map[string]bool {
	m := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		m[t] = true
	}
	return m
}

func commonCount(set map[string]bool, tokens []string) int {
	n := 0
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			n++
		}
	}
	return n
}

// Invalidate removes all mappings for (selector, url) atomically, and the
// SelectorRecord too if it is left with no mappings anywhere.
func (c *Cache) Invalidate(ctx context.Context, selector, url string) error {
	hash := selectorHashOf(selector)
	tx, err := c.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM input_mappings WHERE selector_hash = ? AND url = ?`, hash, url); err != nil {
		return fmt.Errorf("cache: invalidate: %w", err)
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM input_mappings WHERE selector_hash = ?`, hash).Scan(&remaining); err != nil {
		return fmt.Errorf("cache: invalidate: checking remaining mappings: %w", err)
	}
	if remaining == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM selector_cache_v2 WHERE selector_hash = ?`, hash); err != nil {
			return fmt.Errorf("cache: invalidate: deleting orphaned selector: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	if c.counters != nil {
		c.counters.RecordInvalidation()
	}
	logging.Audit(logging.AuditEvent{EventType: logging.AuditCacheInvalidate, Target: url, Success: true, Message: selector})
	return nil
}

// Stats reports row counts per table.
func (c *Cache) Stats() (map[string]int64, error) { return c.store.Stats() }

// Clear truncates every cache table.
func (c *Cache) Clear() error { return c.store.Clear() }

// Close closes the underlying store.
func (c *Cache) Close() error { return c.store.Close() }

// ScoreBatch scores a candidate batch (e.g. a benchmark harness replaying
// recorded inputs, or a bulk revalidation pass) against query without
// serializing the CPU-bound similarity work behind the single SQL
// connection; it fans out semantic-Jaccard scoring across an errgroup.
func ScoreBatch(ctx context.Context, query normalizer.Result, rawInputs []string) ([]float64, error) {
	scores := make([]float64, len(rawInputs))
	g, ctx := errgroup.WithContext(ctx)
	for i, raw := range rawInputs {
		i, raw := i, raw
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			scores[i] = normalizer.SemanticJaccard(query, normalizer.Normalize(raw))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
