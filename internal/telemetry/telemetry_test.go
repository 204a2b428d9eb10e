package telemetry

import (
	"context"
	"testing"

	"github.com/theRebelliousNerd/selectorcache/internal/breaker"
	"github.com/theRebelliousNerd/selectorcache/internal/config"
	"github.com/theRebelliousNerd/selectorcache/internal/degradation"
)

func TestCountersSnapshotComputesHitRate(t *testing.T) {
	c := NewCounters()
	c.RecordHit("exact")
	c.RecordHit("fuzzy")
	c.RecordMiss()

	snap := c.Snapshot()
	if snap.TotalLookups != 3 {
		t.Fatalf("expected 3 total lookups, got %d", snap.TotalLookups)
	}
	if snap.HitRate < 0.66 || snap.HitRate > 0.67 {
		t.Errorf("expected hit rate ~0.667, got %f", snap.HitRate)
	}
	if snap.CacheHits["exact"] != 1 || snap.CacheHits["fuzzy"] != 1 {
		t.Errorf("expected per-source hit counts preserved, got %+v", snap.CacheHits)
	}
}

func TestToolRegistryForStageIsCumulative(t *testing.T) {
	r := NewToolRegistry()
	s0 := r.ForStage(Stage0)
	s2 := r.ForStage(Stage2)
	if len(s2) <= len(s0) {
		t.Errorf("expected stage2 to include more tools than stage0, got %d vs %d", len(s2), len(s0))
	}
	for _, tool := range s0 {
		if tool.Stage != Stage0 {
			t.Errorf("expected only stage0 tools in ForStage(Stage0), found %s at stage %d", tool.Name, tool.Stage)
		}
	}
}

func TestToolRegistryForLevelFiltersByProfile(t *testing.T) {
	r := NewToolRegistry()
	profile := degradation.Profile{AllowedTools: []string{"mcp_browser_navigate", "mcp_browser_click"}}

	tools := r.ForLevel(Stage2, profile)
	for _, tool := range tools {
		if tool.Name != "mcp_browser_navigate" && tool.Name != "mcp_browser_click" {
			t.Errorf("expected only allow-listed tools, got %s", tool.Name)
		}
	}
}

func TestToolRegistryForLevelWildcardAllowsEverything(t *testing.T) {
	r := NewToolRegistry()
	profile := degradation.Profile{AllowedTools: []string{"*"}}

	tools := r.ForLevel(Stage2, profile)
	if len(tools) != len(r.ForStage(Stage2)) {
		t.Errorf("expected wildcard profile to admit every stage2 tool, got %d of %d", len(tools), len(r.ForStage(Stage2)))
	}
}

func TestHealthReporterReportReflectsComponents(t *testing.T) {
	counters := NewCounters()
	counters.RecordHit("exact")

	b := breaker.New("test-tool", config.DefaultBreakerConfig(), nil, nil)
	breakers := map[string]*breaker.Breaker{"test-tool": b}

	deg := degradation.New(config.DefaultDegradationConfig())

	storeStats := func() (map[string]int64, error) {
		return map[string]int64{"selector_cache_v2": 4}, nil
	}

	reporter := NewHealthReporter(counters, breakers, deg, storeStats)
	report := reporter.Report()

	if report.StoreStats["selector_cache_v2"] != 4 {
		t.Errorf("expected store stats to pass through, got %+v", report.StoreStats)
	}
	if len(report.Breakers) != 1 || report.Breakers[0].State != breaker.StateClosed {
		t.Errorf("expected one closed breaker, got %+v", report.Breakers)
	}
	if !report.Healthy() {
		t.Error("expected report to be healthy with a fresh breaker and default degradation level")
	}
}

func TestRunBenchmarkScoresInputsAndReportsBest(t *testing.T) {
	ctx := context.Background()
	result, err := RunBenchmark(ctx, "click the submit button", []string{
		"press the submit button",
		"navigate to the homepage",
	})
	if err != nil {
		t.Fatalf("RunBenchmark: %v", err)
	}
	if len(result.Scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(result.Scores))
	}
	best, score := result.Best()
	if best != "press the submit button" {
		t.Errorf("expected the synonym variant to score best, got %q", best)
	}
	if score <= 0 {
		t.Errorf("expected a positive best score, got %f", score)
	}
}
