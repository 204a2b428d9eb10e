// Package degradation implements the four-level capability envelope from
// spec.md §4.6, tracking health-check failures and coordinating recovery
// attempts across the breaker and cache layers.
package degradation

import (
	"sync"

	"github.com/theRebelliousNerd/selectorcache/internal/config"
	"github.com/theRebelliousNerd/selectorcache/internal/logging"
)

// Level is one of the four capability envelopes.
type Level int

const (
	L1Full Level = iota
	L2Simplified
	L3ReadOnly
	L4Monitoring
)

func (l Level) String() string {
	switch l {
	case L1Full:
		return "L1_full"
	case L2Simplified:
		return "L2_simplified"
	case L3ReadOnly:
		return "L3_read_only"
	case L4Monitoring:
		return "L4_monitoring"
	default:
		return "unknown"
	}
}

// Profile describes one level's allow-list, capability strings, and
// workarounds.
type Profile struct {
	Level        Level
	AllowedTools []string
	Capabilities []string
	Workarounds  []string
}

var profiles = map[Level]Profile{
	L1Full: {
		Level:        L1Full,
		AllowedTools: []string{"*"},
		Capabilities: []string{"full selector cache", "scenario learning", "snapshot diffing"},
	},
	L2Simplified: {
		Level: L2Simplified,
		AllowedTools: []string{
			"mcp_browser_click", "mcp_browser_type", "mcp_browser_navigate",
			"mcp_browser_hover", "mcp_browser_wait", "mcp_browser_assert",
		},
		Capabilities: []string{"exact/normalized lookup", "scenario execution"},
		Workarounds:  []string{"snapshot diffing disabled", "fuzzy learning disabled"},
	},
	L3ReadOnly: {
		Level:        L3ReadOnly,
		AllowedTools: []string{"mcp_browser_assert", "mcp_browser_wait"},
		Capabilities: []string{"read-only assertions", "status queries"},
		Workarounds:  []string{"all write-to-page tools disabled"},
	},
	L4Monitoring: {
		Level:        L4Monitoring,
		AllowedTools: []string{"mcp_status", "mcp_health", "mcp_diagnostics"},
		Capabilities: []string{"status", "health", "diagnostics"},
		Workarounds:  []string{"all browser interaction disabled"},
	},
}

// Manager tracks the current level and the consecutive health-check
// failures driving transitions.
type Manager struct {
	mu                      sync.Mutex
	cfg                     config.DegradationConfig
	level                   Level
	consecutiveHealthFailures int
}

// New creates a Manager starting at L1 Full.
func New(cfg config.DegradationConfig) *Manager {
	return &Manager{cfg: cfg, level: L1Full}
}

// Level returns the current level.
func (m *Manager) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Profile returns the allow-list/capabilities/workarounds for the current level.
func (m *Manager) Profile() Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return profiles[m.level]
}

// RecordHealthCheck feeds one health-check result. Reaching the configured
// number of consecutive failures pushes the level down one step and resets
// the counter; any success resets the counter (it does not itself promote —
// promotion only happens through CoordinatedRecovery, per §4.6 "recovery
// never downgrades a level further").
func (m *Manager) RecordHealthCheck(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if healthy {
		m.consecutiveHealthFailures = 0
		return
	}
	m.consecutiveHealthFailures++
	if m.consecutiveHealthFailures >= m.cfg.ConsecutiveHealthFailuresToDowngrade {
		m.consecutiveHealthFailures = 0
		if m.level < L4Monitoring {
			old := m.level
			m.level++
			logging.Get(logging.CategoryDegradation).Warn("degradation: %s -> %s after %d consecutive health failures",
				old, m.level, m.cfg.ConsecutiveHealthFailuresToDowngrade)
		}
	}
}

// BreakerOpen forces an immediate downgrade to at least L2, mirroring the
// "Transitions are driven by breaker state" clause of §4.6.
func (m *Manager) BreakerOpen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.level < L2Simplified {
		m.level = L2Simplified
		logging.Get(logging.CategoryDegradation).Warn("degradation: forced to %s (breaker open)", m.level)
	}
}

// RecoveryStep is one attempt in the coordinated-recovery sequence
// (spec.md §4.6): breaker half-open probe, connection-pool health check,
// level demotion. Each returns whether it succeeded.
type RecoveryStep struct {
	Name    string
	Attempt func() bool
}

// RecoveryResult reports the outcome of one coordinated-recovery pass.
type RecoveryResult struct {
	StepResults  map[string]bool
	LevelBefore  Level
	LevelAfter   Level
}

// CoordinatedRecovery runs each step in order, and on any success demotes
// the level one step upward (toward L1). It never demotes further (lower
// capability) as a side effect of recovery.
func (m *Manager) CoordinatedRecovery(steps []RecoveryStep) RecoveryResult {
	result := RecoveryResult{StepResults: make(map[string]bool, len(steps))}

	m.mu.Lock()
	result.LevelBefore = m.level
	m.mu.Unlock()

	anySuccess := false
	for _, step := range steps {
		ok := step.Attempt()
		result.StepResults[step.Name] = ok
		if ok {
			anySuccess = true
		}
	}

	m.mu.Lock()
	if anySuccess && m.level > L1Full {
		m.level--
		logging.Get(logging.CategoryDegradation).Info("degradation: recovered one step to %s", m.level)
	}
	result.LevelAfter = m.level
	m.mu.Unlock()

	return result
}
