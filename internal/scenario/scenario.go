// Package scenario implements the Test Scenario Store from spec.md §4.4: a
// durable library of multi-step scenarios with pattern hashes, similarity
// search, cross-environment adaptation, and execution bookkeeping. Grounded
// on the teacher's confidence-upsert idiom (internal/store/learning.go) the
// same way internal/cache is.
package scenario

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theRebelliousNerd/selectorcache/internal/cachekey"
	"github.com/theRebelliousNerd/selectorcache/internal/config"
	"github.com/theRebelliousNerd/selectorcache/internal/logging"
	"github.com/theRebelliousNerd/selectorcache/internal/normalizer"
	"github.com/theRebelliousNerd/selectorcache/internal/store"
	"github.com/theRebelliousNerd/selectorcache/internal/telemetry"
)

// Store implements the Test Scenario Store public contract.
type Store struct {
	store    *store.Store
	cfg      config.ScenarioConfig
	counters *telemetry.Counters
}

// New wraps a *store.Store with the scenario store's operations. counters
// may be nil, in which case save/adapt events are simply not recorded.
func New(s *store.Store, cfg config.ScenarioConfig, counters *telemetry.Counters) *Store {
	return &Store{store: s, cfg: cfg, counters: counters}
}

// Save computes the pattern hash, inserts (or replaces) the scenario, and
// upserts its derived per-action InteractionPatterns (spec.md §4.4 "Save").
func (s *Store) Save(ctx context.Context, sc Scenario) error {
	timer := logging.StartTimer(logging.CategoryScenario, "Save")
	defer timer.Stop()

	hash := patternHash(sc.Steps)
	urlPattern := sc.URLPattern
	if urlPattern == "" && len(sc.Steps) > 0 {
		for _, step := range sc.Steps {
			if step.Action == ActionNavigate && step.Target != "" {
				urlPattern = cachekey.ExtractURLPattern(step.Target)
				break
			}
		}
	}

	stepsJSON, err := json.Marshal(sc.Steps)
	if err != nil {
		return fmt.Errorf("scenario: save: marshal steps: %w", err)
	}
	now := time.Now().Unix()
	var profileArg interface{}
	if sc.Profile != "" {
		profileArg = sc.Profile
	}

	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("scenario: save: begin tx: %w", err)
	}
	defer tx.Rollback()

	confidence := sc.Confidence
	if confidence <= 0 {
		confidence = 0.5
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO test_scenarios (name, description, steps, tags, url_pattern, profile, pattern_hash, success_rate, total_runs, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1.0, 0, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			steps = excluded.steps,
			tags = excluded.tags,
			url_pattern = excluded.url_pattern,
			profile = excluded.profile,
			pattern_hash = excluded.pattern_hash,
			updated_at = excluded.updated_at`,
		sc.Name, sc.Description, string(stepsJSON), marshalStrings(sc.Tags), urlPattern, profileArg, hash, confidence, now, now); err != nil {
		return fmt.Errorf("scenario: save: upsert scenario: %w", err)
	}

	for _, p := range derivePatterns(sc.Steps, hash) {
		if err := upsertPattern(ctx, tx, p, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("scenario: save: commit: %w", err)
	}
	if s.counters != nil {
		s.counters.RecordScenarioSave()
	}
	logging.Audit(logging.AuditEvent{EventType: logging.AuditScenarioSave, Target: sc.Name, Success: true})
	return nil
}

func upsertPattern(ctx context.Context, tx *sql.Tx, p InteractionPattern, now int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO test_patterns (action, selector_vector, description_vector, adaptation_rules, pattern_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(action, pattern_hash) DO UPDATE SET
			selector_vector = excluded.selector_vector,
			description_vector = excluded.description_vector,
			adaptation_rules = excluded.adaptation_rules`,
		p.InteractionType, marshalStrings(p.ElementPatterns), marshalStrings(p.SuccessIndicators),
		marshalStrings(p.AdaptationRules), p.PatternHash, now)
	if err != nil {
		return fmt.Errorf("scenario: save: upsert pattern %s: %w", p.InteractionType, err)
	}
	return nil
}

const scenarioColumns = `name, description, steps, tags, url_pattern, profile, pattern_hash, success_rate, total_runs, confidence, created_at, updated_at`

// Get loads a single scenario by name.
func (s *Store) Get(ctx context.Context, name string) (*Scenario, error) {
	row := s.store.DB().QueryRowContext(ctx, `SELECT `+scenarioColumns+` FROM test_scenarios WHERE name = ?`, name)
	sc, err := scanScenario(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scenario: get: %w", err)
	}
	return sc, nil
}

func scanScenario(row *sql.Row) (*Scenario, error) {
	var sc Scenario
	var stepsJSON, tagsJSON string
	var profile sql.NullString
	if err := row.Scan(&sc.Name, &sc.Description, &stepsJSON, &tagsJSON, &sc.URLPattern, &profile,
		&sc.PatternHash, &sc.SuccessRate, &sc.TotalRuns, &sc.Confidence, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return nil, err
	}
	sc.Profile = profile.String
	_ = json.Unmarshal([]byte(stepsJSON), &sc.Steps)
	sc.Tags = unmarshalStrings(tagsJSON)
	return &sc, nil
}

// FindSimilar implements findSimilarTests (spec.md §4.4): candidates are
// filtered by URL substring (either direction) and profile (match or NULL),
// then scored by weighted Jaccard over name/description/steps-descriptions/
// tags with action-conflict detection, and sorted by
// similarity*0.7 + confidence*0.3.
func (s *Store) FindSimilar(ctx context.Context, query Scenario, targetURL string, limit int) ([]Scenario, error) {
	timer := logging.StartTimer(logging.CategoryScenario, "FindSimilar")
	defer timer.Stop()

	if limit <= 0 {
		limit = s.cfg.DefaultSimilarityLimit
	}

	rows, err := s.store.DB().QueryContext(ctx, `
		SELECT `+scenarioColumns+`
		FROM test_scenarios
		WHERE (? = '' OR url_pattern LIKE '%' || ? || '%' OR ? LIKE '%' || url_pattern || '%')
		  AND (? = '' OR profile = ? OR profile IS NULL)`,
		targetURL, targetURL, targetURL, query.Profile, query.Profile)
	if err != nil {
		return nil, fmt.Errorf("scenario: findSimilar: query: %w", err)
	}
	defer rows.Close()

	var candidates []Scenario
	for rows.Next() {
		var sc Scenario
		var stepsJSON, tagsJSON string
		var profile sql.NullString
		if err := rows.Scan(&sc.Name, &sc.Description, &stepsJSON, &tagsJSON, &sc.URLPattern, &profile,
			&sc.PatternHash, &sc.SuccessRate, &sc.TotalRuns, &sc.Confidence, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			logging.Get(logging.CategoryScenario).Warn("scenario: skipping malformed candidate: %v", err)
			continue
		}
		sc.Profile = profile.String
		_ = json.Unmarshal([]byte(stepsJSON), &sc.Steps)
		sc.Tags = unmarshalStrings(tagsJSON)
		candidates = append(candidates, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scenario: findSimilar: iteration: %w", err)
	}

	type scored struct {
		sc    Scenario
		score float64
	}
	scores := make([]scored, len(candidates))
	g, _ := errgroup.WithContext(ctx)
	for i := range candidates {
		i := i
		g.Go(func() error {
			sim, ok := scoreCandidate(query, candidates[i], targetURL)
			if !ok {
				return nil
			}
			scores[i] = scored{sc: candidates[i], score: sim*0.7 + candidates[i].Confidence*0.3}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var survivors []scored
	for _, sc := range scores {
		if sc.sc.Name != "" {
			survivors = append(survivors, sc)
		}
	}
	sort.Slice(survivors, func(i, j int) bool { return survivors[i].score > survivors[j].score })
	if len(survivors) > limit {
		survivors = survivors[:limit]
	}

	out := make([]Scenario, len(survivors))
	for i, sv := range survivors {
		out[i] = sv.sc
	}
	return out, nil
}

// scoreCandidate computes the four-channel weighted Jaccard. Returns
// ok=false if any channel hits the action-conflict sentinel.
func scoreCandidate(query, cand Scenario, targetURL string) (float64, bool) {
	op := normalizer.OpTestSearch
	if targetURL != "" && cand.URLPattern != "" && domainsDiffer(targetURL, cand.URLPattern) {
		op = normalizer.OpCrossEnv
	}

	nameChan, ok := channelSimilarity(query.Name, cand.Name, op)
	if !ok {
		return 0, false
	}
	descChan, ok := channelSimilarity(query.Description, cand.Description, op)
	if !ok {
		return 0, false
	}
	stepsChan, ok := channelSimilarity(stepDescriptions(query.Steps), stepDescriptions(cand.Steps), op)
	if !ok {
		return 0, false
	}
	tagsChan, ok := channelSimilarity(strings.Join(query.Tags, " "), strings.Join(cand.Tags, " "), op)
	if !ok {
		return 0, false
	}

	return nameChan*0.4 + descChan*0.3 + stepsChan*0.2 + tagsChan*0.1, true
}

func stepDescriptions(steps []Step) string {
	var sb strings.Builder
	for _, st := range steps {
		sb.WriteString(st.Description)
		sb.WriteByte(' ')
	}
	return sb.String()
}

func channelSimilarity(a, b string, op normalizer.OperationType) (float64, bool) {
	if a == "" && b == "" {
		return 1, true
	}
	sim := normalizer.ContextAwareSimilarity(normalizer.Normalize(a), normalizer.Normalize(b), op, op == normalizer.OpCrossEnv)
	if sim < 0 {
		return 0, false
	}
	return sim, true
}

// Adapt transforms sc for a new URL: the navigate step's target origin is
// substituted, and each step is checked for brittle-selector patterns
// (spec.md §4.4 "Adapt").
func (s *Store) Adapt(sc Scenario, newURL string) (Scenario, []AdaptationSuggestion) {
	adapted := sc
	adapted.Steps = make([]Step, len(sc.Steps))
	copy(adapted.Steps, sc.Steps)

	var suggestions []AdaptationSuggestion
	for i, step := range adapted.Steps {
		if step.Action == ActionNavigate {
			adapted.Steps[i].Target = substituteOrigin(step.Target, newURL)
		}
		if warn := brittleSelectorWarning(step.Selector); warn != "" {
			suggestions = append(suggestions, AdaptationSuggestion{StepIndex: i, Selector: step.Selector, Warning: warn})
		}
	}
	adapted.URLPattern = cachekey.ExtractURLPattern(newURL)
	return adapted, suggestions
}

// SaveAdapted persists an already-adapted scenario under newName and
// records the adaptation timestamp (spec.md §4.4 "Adapt": "optionally
// persist the adapted scenario under a new name").
func (s *Store) SaveAdapted(ctx context.Context, adapted Scenario, newName string) error {
	adapted.Name = newName
	if err := s.Save(ctx, adapted); err != nil {
		return err
	}
	if _, err := s.store.DB().ExecContext(ctx, `
		UPDATE test_scenarios SET last_adapted = ? WHERE name = ?`, time.Now().Unix(), newName); err != nil {
		return fmt.Errorf("scenario: saveAdapted: last_adapted update: %w", err)
	}
	if s.counters != nil {
		s.counters.RecordScenarioAdapt()
	}
	logging.Audit(logging.AuditEvent{EventType: logging.AuditScenarioAdapt, Target: newName, Success: true})
	return nil
}

func substituteOrigin(target, newURL string) string {
	oldOrigin := originOf(target)
	newOrigin := originOf(newURL)
	if oldOrigin == "" || newOrigin == "" {
		return target
	}
	return newOrigin + strings.TrimPrefix(target, oldOrigin)
}

// domainsDiffer reports whether targetURL's registrable domain differs from
// candidatePattern's host segment (an already-wildcarded url_pattern such as
// "*.example.com/todos/*/edit"), used to switch similarity scoring into
// cross_env mode (spec.md §4.4, §4.3, §8 scenario 6).
func domainsDiffer(targetURL, candidatePattern string) bool {
	queryDomain := cachekey.RegistrableDomain(targetURL)
	if queryDomain == "" {
		return false
	}
	host := candidatePattern
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	host = strings.TrimPrefix(host, "*.")
	if host == "*" || host == "" {
		return false
	}
	return !strings.HasSuffix(queryDomain, host) && !strings.HasSuffix(host, queryDomain)
}

func originOf(raw string) string {
	idx := strings.Index(raw, "://")
	if idx < 0 {
		return ""
	}
	rest := raw[idx+3:]
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		return raw
	}
	return raw[:idx+3+end]
}

func brittleSelectorWarning(selector string) string {
	switch {
	case selector == "":
		return ""
	case strings.Contains(selector, ":nth-child"):
		return "nth-child selectors are brittle across DOM reorderings"
	case looksLikeShortID(selector):
		return "short auto-generated id selectors rarely survive rebuilds"
	default:
		return ""
	}
}

func looksLikeShortID(selector string) bool {
	if !strings.HasPrefix(selector, "#") {
		return false
	}
	id := selector[1:]
	return len(id) > 0 && len(id) <= 6
}

// RecordExecution inserts an Execution row for scenario name (spec.md §4.4
// "Execution bookkeeping", externally triggered by the executor).
func (s *Store) RecordExecution(ctx context.Context, name string, status ExecutionStatus, durationMs int64, adaptations []string, url, profile string) error {
	var scenarioID int64
	if err := s.store.DB().QueryRowContext(ctx, `SELECT id FROM test_scenarios WHERE name = ?`, name).Scan(&scenarioID); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("scenario: recordExecution: no scenario named %q", name)
		}
		return fmt.Errorf("scenario: recordExecution: lookup: %w", err)
	}

	var profileArg, urlArg interface{}
	if profile != "" {
		profileArg = profile
	}
	if url != "" {
		urlArg = url
	}
	if _, err := s.store.DB().ExecContext(ctx, `
		INSERT INTO test_executions (scenario_id, status, duration_ms, adaptations, url, profile, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scenarioID, string(status), durationMs, marshalStrings(adaptations), urlArg, profileArg, time.Now().Unix()); err != nil {
		return fmt.Errorf("scenario: recordExecution: insert: %w", err)
	}
	if _, err := s.store.DB().ExecContext(ctx, `UPDATE test_scenarios SET last_run = ? WHERE id = ?`, time.Now().Unix(), scenarioID); err != nil {
		logging.Get(logging.CategoryScenario).Warn("scenario: recordExecution: last_run update failed: %v", err)
	}
	logging.Audit(logging.AuditEvent{EventType: logging.AuditScenarioExecution, Target: name, Success: status == StatusSuccess, Message: string(status)})
	return s.updateSuccessRate(ctx, name, status == StatusSuccess || status == StatusAdapted)
}

// updateSuccessRate recomputes success_rate = (round(old_rate*old_runs) +
// (success?1:0)) / (old_runs+1) (spec.md §4.4).
func (s *Store) updateSuccessRate(ctx context.Context, name string, success bool) error {
	var oldRate float64
	var oldRuns int
	if err := s.store.DB().QueryRowContext(ctx, `
		SELECT success_rate, total_runs FROM test_scenarios WHERE name = ?`, name).Scan(&oldRate, &oldRuns); err != nil {
		return fmt.Errorf("scenario: updateSuccessRate: lookup: %w", err)
	}

	successes := math.Round(oldRate * float64(oldRuns))
	if success {
		successes++
	}
	newRuns := oldRuns + 1
	newRate := successes / float64(newRuns)
	newRate = math.Max(0, math.Min(1, newRate))

	if _, err := s.store.DB().ExecContext(ctx, `
		UPDATE test_scenarios SET success_rate = ?, total_runs = ?, updated_at = ? WHERE name = ?`,
		newRate, newRuns, time.Now().Unix(), name); err != nil {
		return fmt.Errorf("scenario: updateSuccessRate: update: %w", err)
	}
	return nil
}

// Delete removes a scenario by name; its executions cascade.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.deleteWhere(ctx, "name = ?", name)
}

// DeleteByTag removes every scenario whose tags list contains a substring
// match for tag.
func (s *Store) DeleteByTag(ctx context.Context, tag string) error {
	return s.deleteWhere(ctx, "tags LIKE '%' || ? || '%'", tag)
}

// DeleteAll removes every scenario. confirm must be true, mirroring the
// "required confirmation" spec.md §4.4 demands of a blanket delete.
func (s *Store) DeleteAll(ctx context.Context, confirm bool) error {
	if !confirm {
		return fmt.Errorf("scenario: deleteAll requires explicit confirmation")
	}
	return s.deleteWhere(ctx, "1 = 1")
}

func (s *Store) deleteWhere(ctx context.Context, where string, args ...interface{}) error {
	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM test_executions WHERE scenario_id IN (SELECT id FROM test_scenarios WHERE %s)`, where), args...); err != nil {
		return fmt.Errorf("scenario: delete: executions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM test_scenarios WHERE %s`, where), args...); err != nil {
		return fmt.Errorf("scenario: delete: scenarios: %w", err)
	}
	return tx.Commit()
}

// List returns every saved scenario, for inspection/CLI use.
func (s *Store) List(ctx context.Context) ([]Scenario, error) {
	rows, err := s.store.DB().QueryContext(ctx, `SELECT `+scenarioColumns+` FROM test_scenarios ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("scenario: list: %w", err)
	}
	defer rows.Close()

	var out []Scenario
	for rows.Next() {
		var sc Scenario
		var stepsJSON, tagsJSON string
		var profile sql.NullString
		if err := rows.Scan(&sc.Name, &sc.Description, &stepsJSON, &tagsJSON, &sc.URLPattern, &profile,
			&sc.PatternHash, &sc.SuccessRate, &sc.TotalRuns, &sc.Confidence, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			continue
		}
		sc.Profile = profile.String
		_ = json.Unmarshal([]byte(stepsJSON), &sc.Steps)
		sc.Tags = unmarshalStrings(tagsJSON)
		out = append(out, sc)
	}
	return out, rows.Err()
}
