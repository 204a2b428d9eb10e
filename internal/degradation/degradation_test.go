package degradation

import (
	"testing"

	"github.com/theRebelliousNerd/selectorcache/internal/config"
)

func testConfig() config.DegradationConfig {
	return config.DegradationConfig{ConsecutiveHealthFailuresToDowngrade: 3}
}

func TestManagerStartsAtL1Full(t *testing.T) {
	m := New(testConfig())
	if m.Level() != L1Full {
		t.Fatalf("expected L1Full, got %s", m.Level())
	}
	if profile := m.Profile(); len(profile.AllowedTools) != 1 || profile.AllowedTools[0] != "*" {
		t.Fatalf("expected wildcard allow-list at L1Full, got %v", profile.AllowedTools)
	}
}

func TestManagerDowngradesAfterConsecutiveFailures(t *testing.T) {
	m := New(testConfig())
	m.RecordHealthCheck(false)
	m.RecordHealthCheck(false)
	if m.Level() != L1Full {
		t.Fatalf("expected no downgrade before threshold, got %s", m.Level())
	}
	m.RecordHealthCheck(false)
	if m.Level() != L2Simplified {
		t.Fatalf("expected L2Simplified after 3 consecutive failures, got %s", m.Level())
	}
}

func TestManagerHealthySuccessResetsFailureCounter(t *testing.T) {
	m := New(testConfig())
	m.RecordHealthCheck(false)
	m.RecordHealthCheck(false)
	m.RecordHealthCheck(true)
	m.RecordHealthCheck(false)
	m.RecordHealthCheck(false)
	if m.Level() != L1Full {
		t.Fatalf("expected the intervening success to reset the streak, got %s", m.Level())
	}
}

func TestManagerNeverDowngradesPastL4Monitoring(t *testing.T) {
	m := New(testConfig())
	for i := 0; i < 30; i++ {
		m.RecordHealthCheck(false)
	}
	if m.Level() != L4Monitoring {
		t.Fatalf("expected to bottom out at L4Monitoring, got %s", m.Level())
	}
}

func TestBreakerOpenForcesAtLeastL2Simplified(t *testing.T) {
	m := New(testConfig())
	m.BreakerOpen()
	if m.Level() != L2Simplified {
		t.Fatalf("expected L2Simplified after BreakerOpen, got %s", m.Level())
	}

	// a failure streak still pushes past L2; a later BreakerOpen must not
	// lift the level back to L2
	m.RecordHealthCheck(false)
	m.RecordHealthCheck(false)
	m.RecordHealthCheck(false)
	if m.Level() != L3ReadOnly {
		t.Fatalf("expected L3ReadOnly from the failure streak, got %s", m.Level())
	}
	m.BreakerOpen()
	if m.Level() != L3ReadOnly {
		t.Fatalf("BreakerOpen must never undo a deeper downgrade, got %s", m.Level())
	}
}

func TestCoordinatedRecoveryStepsUpOnAnySuccess(t *testing.T) {
	m := New(testConfig())
	for i := 0; i < 9; i++ {
		m.RecordHealthCheck(false)
	}
	if m.Level() != L4Monitoring {
		t.Fatalf("setup: expected L4Monitoring, got %s", m.Level())
	}

	result := m.CoordinatedRecovery([]RecoveryStep{
		{Name: "breaker_half_open_probe", Attempt: func() bool { return false }},
		{Name: "connection_pool_health", Attempt: func() bool { return true }},
	})
	if !result.StepResults["connection_pool_health"] {
		t.Fatal("expected connection_pool_health step to report success")
	}
	if result.LevelBefore != L4Monitoring || result.LevelAfter != L3ReadOnly {
		t.Fatalf("expected one step of recovery (L4->L3), got %s -> %s", result.LevelBefore, result.LevelAfter)
	}
}

func TestCoordinatedRecoveryNeverDowngradesOnFailure(t *testing.T) {
	m := New(testConfig())
	result := m.CoordinatedRecovery([]RecoveryStep{
		{Name: "breaker_half_open_probe", Attempt: func() bool { return false }},
	})
	if result.LevelBefore != L1Full || result.LevelAfter != L1Full {
		t.Fatalf("expected recovery at L1Full to be a no-op, got %s -> %s", result.LevelBefore, result.LevelAfter)
	}
}
