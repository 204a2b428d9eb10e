package telemetry

import (
	"github.com/theRebelliousNerd/selectorcache/internal/breaker"
	"github.com/theRebelliousNerd/selectorcache/internal/degradation"
)

// BreakerStatus is the reporting-friendly view of a single breaker's state.
type BreakerStatus struct {
	Name  string
	State breaker.State
}

// HealthReport combines the in-memory counters, store row counts, breaker
// states, and degradation level into the single payload spec.md §6 expects
// a health/status tool to return.
type HealthReport struct {
	Counters         Snapshot
	StoreStats       map[string]int64
	Breakers         []BreakerStatus
	DegradationLevel degradation.Level
	Profile          degradation.Profile
}

// HealthReporter pulls together the live components a report is built from.
// It holds no state of its own beyond references to those components.
type HealthReporter struct {
	counters     *Counters
	breakers     map[string]*breaker.Breaker
	degradation  *degradation.Manager
	storeStatsFn func() (map[string]int64, error)
}

// NewHealthReporter wires a reporter against the running components.
// storeStats is typically cache.Stats or store.Stats.
func NewHealthReporter(counters *Counters, breakers map[string]*breaker.Breaker, deg *degradation.Manager, storeStats func() (map[string]int64, error)) *HealthReporter {
	return &HealthReporter{counters: counters, breakers: breakers, degradation: deg, storeStatsFn: storeStats}
}

// Report assembles a fresh HealthReport from current component state.
func (h *HealthReporter) Report() HealthReport {
	report := HealthReport{
		Counters:         h.counters.Snapshot(),
		DegradationLevel: h.degradation.Level(),
		Profile:          h.degradation.Profile(),
	}

	if stats, err := h.storeStatsFn(); err == nil {
		report.StoreStats = stats
	}

	for name, b := range h.breakers {
		report.Breakers = append(report.Breakers, BreakerStatus{Name: name, State: b.State()})
	}
	return report
}

// Healthy reports whether every breaker is closed and degradation is at
// full capability (L1), the bar spec.md §4.6 sets for "no issues".
func (r HealthReport) Healthy() bool {
	if r.DegradationLevel != degradation.L1Full {
		return false
	}
	for _, b := range r.Breakers {
		if b.State != breaker.StateClosed {
			return false
		}
	}
	return true
}
