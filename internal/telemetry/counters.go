// Package telemetry implements the Telemetry component from spec.md §2:
// hit/miss/learning counters, a benchmark harness, health reports, and the
// staged tool registry from §6.2. In-memory counters only (never
// persisted), grounded on the teacher's internal/mcp ToolSelectionConfig
// idiom and the "stats updated under a local lock" guidance of spec.md §5.
package telemetry

import "sync"

// Counters tracks the running hit/miss/learning tallies a health report
// reads back.
type Counters struct {
	mu sync.Mutex

	CacheHits      map[string]int64 // keyed by cache.Source
	CacheMisses    int64
	LearnEvents    int64
	Invalidations  int64
	ScenarioSaves  int64
	ScenarioAdapts int64
}

// NewCounters returns a zeroed Counters ready for concurrent use.
func NewCounters() *Counters {
	return &Counters{CacheHits: make(map[string]int64)}
}

// RecordHit increments the per-source hit counter.
func (c *Counters) RecordHit(source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CacheHits[source]++
}

// RecordMiss increments the miss counter.
func (c *Counters) RecordMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CacheMisses++
}

// RecordLearn increments the asynchronous learn-related-inputs counter.
func (c *Counters) RecordLearn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LearnEvents++
}

// RecordInvalidation increments the invalidate counter.
func (c *Counters) RecordInvalidation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidations++
}

// RecordScenarioSave increments the scenario-save counter.
func (c *Counters) RecordScenarioSave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ScenarioSaves++
}

// RecordScenarioAdapt increments the scenario-adapt counter.
func (c *Counters) RecordScenarioAdapt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ScenarioAdapts++
}

// Snapshot is a point-in-time, immutable copy of the counters for reporting.
type Snapshot struct {
	CacheHits     map[string]int64
	CacheMisses   int64
	TotalLookups  int64
	HitRate       float64
	LearnEvents   int64
	Invalidations int64
	ScenarioSaves int64
}

// Snapshot copies the current counter values out from under the lock.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	hits := make(map[string]int64, len(c.CacheHits))
	var totalHits int64
	for k, v := range c.CacheHits {
		hits[k] = v
		totalHits += v
	}
	total := totalHits + c.CacheMisses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(totalHits) / float64(total)
	}
	return Snapshot{
		CacheHits:     hits,
		CacheMisses:   c.CacheMisses,
		TotalLookups:  total,
		HitRate:       hitRate,
		LearnEvents:   c.LearnEvents,
		Invalidations: c.Invalidations,
		ScenarioSaves: c.ScenarioSaves,
	}
}
