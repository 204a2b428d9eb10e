// Package breaker implements the three-state circuit breaker from
// spec.md §4.5: a sliding-window failure tracker with exponential backoff,
// persisted across restarts. Grounded on the teacher's confidence-upsert
// and persistence idioms (internal/store/learning.go) adapted to a
// state-machine instead of a decaying fact store.
package breaker

import (
	"math"
	"sync"
	"time"

	"github.com/theRebelliousNerd/selectorcache/internal/config"
	"github.com/theRebelliousNerd/selectorcache/internal/logging"
	"github.com/theRebelliousNerd/selectorcache/internal/taxonomy"
)

// State is one of the three breaker states.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

type failureRecord struct {
	at time.Time
}

type successRecord struct {
	at time.Time
}

// Breaker implements per-tool circuit breaking.
type Breaker struct {
	mu sync.Mutex

	cfg  config.BreakerConfig
	name string

	state              State
	consecutiveFailures int
	lastFailureTime    time.Time
	lastStateChange    time.Time
	backoffDelay       time.Duration
	halfOpenCalls      int
	tripCount          int

	failures  []failureRecord
	successes []successRecord

	persist PersistFunc
}

// PersistFunc serializes the durable subset of breaker state. Supplied by
// the caller (typically a file-backed implementation in persist.go) so the
// breaker itself has no direct filesystem dependency.
type PersistFunc func(Snapshot)

// Snapshot is the durable subset of breaker state (spec.md §4.5
// "Persistence"): the sliding window itself is explicitly NOT persisted.
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	LastFailureTime     time.Time
	LastStateChange     time.Time
	BackoffDelay        time.Duration
}

// New creates a breaker for tool name with cfg, optionally restoring from a
// previously persisted snapshot.
func New(name string, cfg config.BreakerConfig, restore *Snapshot, persist PersistFunc) *Breaker {
	b := &Breaker{
		name:            name,
		cfg:             cfg,
		state:           StateClosed,
		lastStateChange: time.Now(),
		backoffDelay:    cfg.InitialBackoffDelay,
		persist:         persist,
	}
	if restore != nil {
		b.state = restore.State
		b.consecutiveFailures = restore.ConsecutiveFailures
		b.lastFailureTime = restore.LastFailureTime
		b.lastStateChange = restore.LastStateChange
		b.backoffDelay = restore.BackoffDelay
		logging.BreakerDebug("breaker %s restored: state=%s backoff=%v", name, b.state, b.backoffDelay)
	}
	return b
}

// Allow reports whether a call may proceed right now, per the state
// snapshot taken at entry (spec.md §5 ordering guarantee). It returns a
// CircuitOpenError when the breaker is OPEN and the backoff window has not
// elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	switch b.state {
	case StateOpen:
		nextRetry := b.lastStateChange.Add(b.backoffDelay)
		if now.Before(nextRetry) {
			return &taxonomy.CircuitOpenError{Tool: b.name, NextRetryTime: nextRetry}
		}
		b.transitionTo(StateHalfOpen, now)
		b.halfOpenCalls = 0
		fallthrough
	case StateHalfOpen:
		if b.halfOpenCalls >= b.cfg.HalfOpenThreshold {
			nextRetry := b.lastStateChange.Add(b.backoffDelay)
			return &taxonomy.CircuitOpenError{Tool: b.name, NextRetryTime: nextRetry}
		}
		b.halfOpenCalls++
		return nil
	default:
		return nil
	}
}

// RecordOutcome records the result of a call admitted by Allow. message is
// the raw error text (empty on success) classified via taxonomy.Classify.
func (b *Breaker) RecordOutcome(success bool, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if success {
		b.successes = append(b.successes, successRecord{at: now})
		b.consecutiveFailures = 0
		if b.state == StateHalfOpen {
			b.transitionTo(StateClosed, now)
			b.backoffDelay = b.cfg.InitialBackoffDelay
		}
		b.pruneWindow(now)
		return
	}

	classification := taxonomy.Classify(message)
	if !classification.ShouldTrip {
		// Counted neither in the window nor toward consecutive failures
		// (spec.md §4.5: "Only should_trip=yes failures enter the sliding
		// window and the consecutive-failure counter").
		return
	}

	b.lastFailureTime = now
	b.consecutiveFailures++
	b.failures = append(b.failures, failureRecord{at: now})
	b.pruneWindow(now)

	if b.state == StateHalfOpen {
		b.tripTo(now)
		return
	}

	if b.shouldTrip() {
		b.tripTo(now)
	}
}

func (b *Breaker) shouldTrip() bool {
	if b.consecutiveFailures >= b.cfg.MaxConsecutiveFailures {
		return true
	}
	failures, successes := len(b.failures), len(b.successes)
	total := failures + successes
	if total == 0 {
		return false
	}
	return float64(failures)/float64(total) >= b.cfg.FailureThreshold
}

func (b *Breaker) tripTo(now time.Time) {
	b.transitionTo(StateOpen, now)
	b.tripCount++
	b.backoffDelay = time.Duration(math.Min(
		float64(b.backoffDelay)*b.cfg.BackoffMultiplier,
		float64(b.cfg.MaxBackoffDelay),
	))
}

func (b *Breaker) transitionTo(s State, now time.Time) {
	if b.state == s {
		return
	}
	logging.Breaker("breaker %s: %s -> %s", b.name, b.state, s)
	b.state = s
	b.lastStateChange = now
	if b.persist != nil {
		b.persist(b.snapshotLocked())
	}
}

func (b *Breaker) pruneWindow(now time.Time) {
	cutoff := now.Add(-b.cfg.MonitoringWindow)

	failures := b.failures[:0]
	for _, f := range b.failures {
		if f.at.After(cutoff) {
			failures = append(failures, f)
		}
	}
	b.failures = failures

	successes := b.successes[:0]
	for _, s := range b.successes {
		if s.at.After(cutoff) {
			successes = append(successes, s)
		}
	}
	b.successes = successes
}

func (b *Breaker) snapshotLocked() Snapshot {
	return Snapshot{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailureTime:     b.lastFailureTime,
		LastStateChange:     b.lastStateChange,
		BackoffDelay:        b.backoffDelay,
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset manually clears all windows and resets backoff (spec.md §4.5
// "Reset").
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = nil
	b.successes = nil
	b.consecutiveFailures = 0
	b.backoffDelay = b.cfg.InitialBackoffDelay
	b.transitionTo(StateClosed, time.Now())
}
