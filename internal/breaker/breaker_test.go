package breaker

import (
	"testing"
	"time"

	"github.com/theRebelliousNerd/selectorcache/internal/config"
)

func testConfig() config.BreakerConfig {
	cfg := config.DefaultBreakerConfig()
	cfg.MonitoringWindow = time.Minute
	cfg.InitialBackoffDelay = 10 * time.Millisecond
	cfg.MaxBackoffDelay = 100 * time.Millisecond
	return cfg
}

// seedSuccesses records n admitted successes so the window's failure rate
// stays below FailureThreshold while the consecutive-failure rule is tested.
func seedSuccesses(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		b.Allow()
		b.RecordOutcome(true, "")
	}
}

func TestBreakerTripsOnConsecutiveFailures(t *testing.T) {
	b := New("test-tool", testConfig(), nil, nil)
	seedSuccesses(b, 6)

	for i := 0; i < 5; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("call %d: expected admitted, got %v", i, err)
		}
		b.RecordOutcome(false, "browser crash detected")
	}

	if b.State() != StateOpen {
		t.Fatalf("expected OPEN after 5 consecutive browser_crash failures, got %s", b.State())
	}

	if err := b.Allow(); err == nil {
		t.Fatal("expected CircuitOpenError while OPEN")
	}
}

func TestBreakerRecoversAfterBackoff(t *testing.T) {
	cfg := testConfig()
	b := New("test-tool", cfg, nil, nil)
	seedSuccesses(b, 6)

	for i := 0; i < cfg.MaxConsecutiveFailures; i++ {
		b.Allow()
		b.RecordOutcome(false, "connection refused")
	}
	if b.State() != StateOpen {
		t.Fatalf("expected OPEN, got %s", b.State())
	}

	// The trip itself multiplies the backoff once before the OPEN window runs.
	time.Sleep(time.Duration(float64(cfg.InitialBackoffDelay)*cfg.BackoffMultiplier) + 5*time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open admission after backoff, got %v", err)
	}
	b.RecordOutcome(true, "")

	if b.State() != StateClosed {
		t.Fatalf("expected CLOSED after successful half-open probe, got %s", b.State())
	}
}

func TestBreakerElementNotFoundDoesNotTrip(t *testing.T) {
	b := New("test-tool", testConfig(), nil, nil)
	for i := 0; i < 20; i++ {
		b.Allow()
		b.RecordOutcome(false, "element not found on page")
	}
	if b.State() != StateClosed {
		t.Fatalf("element_not_found should never trip the breaker, got %s", b.State())
	}
}

func TestBreakerValidationDoesNotCountTowardFailures(t *testing.T) {
	b := New("test-tool", testConfig(), nil, nil)
	for i := 0; i < 20; i++ {
		b.Allow()
		b.RecordOutcome(false, "validation failed: malformed input")
	}
	if b.State() != StateClosed {
		t.Fatalf("validation errors should never trip the breaker, got %s", b.State())
	}
}
