package taxonomy

import (
	"errors"
	"testing"
	"time"
)

func TestClassifyMatchesFixedSubstringTable(t *testing.T) {
	cases := []struct {
		message    string
		wantKind   Kind
		retriable  bool
		shouldTrip bool
	}{
		{"browser crashed unexpectedly", KindBrowserCrash, true, true},
		{"request timed out after 30s", KindNetworkTimeout, true, true},
		{"element not found on page", KindElementNotFound, true, false},
		{"out of memory while rendering", KindMemoryExhaustion, false, true},
		{"connection refused by remote host", KindConnectionRefused, true, true},
		{"validation failed: malformed input", KindValidation, false, false},
		{"something completely unrecognized happened", KindUnknown, true, true},
	}
	for _, c := range cases {
		got := Classify(c.message)
		if got.Kind != c.wantKind || got.Retriable != c.retriable || got.ShouldTrip != c.shouldTrip {
			t.Errorf("Classify(%q) = %+v, want kind=%s retriable=%v shouldTrip=%v",
				c.message, got, c.wantKind, c.retriable, c.shouldTrip)
		}
	}
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	got := Classify("CONNECTION REFUSED")
	if got.Kind != KindConnectionRefused {
		t.Fatalf("expected case-insensitive match, got %s", got.Kind)
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	// "crash" (browser_crash) appears before a network-timeout substring
	// would in priority order; confirm the earlier rule wins on a message
	// that could plausibly match either.
	got := Classify("browser crash during network timeout recovery")
	if got.Kind != KindBrowserCrash {
		t.Fatalf("expected the earlier rule (browser_crash) to win, got %s", got.Kind)
	}
}

func TestCircuitOpenErrorToWireError(t *testing.T) {
	e := &CircuitOpenError{Tool: "mcp_browser_click", NextRetryTime: time.Now().Add(5 * time.Second)}
	wire := e.ToWireError("L2_simplified")
	if !wire.CanRetry || !wire.FallbackAvailable {
		t.Fatal("expected a circuit-open error to always be retriable with a fallback")
	}
	if wire.DegradationLevel != "L2_simplified" {
		t.Fatalf("expected degradation level to round-trip, got %q", wire.DegradationLevel)
	}
}

func TestValidationErrorToWireErrorIsNeverRetriable(t *testing.T) {
	e := &ValidationError{Field: "selector", Message: "required field missing"}
	wire := e.ToWireError()
	if wire.CanRetry || wire.FallbackAvailable {
		t.Fatal("expected a validation error to never be retriable or offer a fallback")
	}
	if wire.Kind != KindValidation {
		t.Fatalf("expected Kind=validation, got %s", wire.Kind)
	}
}

func TestToolErrorUnwrapsToUnderlying(t *testing.T) {
	underlying := errors.New("connection refused")
	e := &ToolError{Tool: "rodexec", Underlying: underlying, Classification: Classify(underlying.Error())}
	if !errors.Is(e, underlying) {
		t.Fatal("expected errors.Is to see through ToolError to the underlying error")
	}
	wire := e.ToWireError("L1_full")
	if !wire.CanRetry {
		t.Fatal("expected connection_refused to be surfaced as retriable")
	}
}
