// Package taxonomy implements the wire-visible error taxonomy from spec.md
// §6.3 and the error classification rules from §4.5.
package taxonomy

import (
	"fmt"
	"strings"
	"time"
)

// Kind enumerates the error classes every local failure is bucketed into.
type Kind string

const (
	KindBrowserCrash      Kind = "browser_crash"
	KindNetworkTimeout    Kind = "network_timeout"
	KindElementNotFound   Kind = "element_not_found"
	KindMemoryExhaustion  Kind = "memory_exhaustion"
	KindConnectionRefused Kind = "connection_refused"
	KindValidation        Kind = "validation"
	KindUnknown           Kind = "unknown"
)

// Classification is the retriable/should_trip verdict for a Kind, per the
// fixed table in spec.md §4.5.
type Classification struct {
	Kind        Kind
	Retriable   bool
	ShouldTrip  bool
}

// classificationRules lists, in priority order, the case-insensitive
// substrings that identify each error kind. The first match wins.
var classificationRules = []struct {
	kind       Kind
	substrings []string
	retriable  bool
	shouldTrip bool
}{
	{KindBrowserCrash, []string{"crash", "disconnect"}, true, true},
	{KindNetworkTimeout, []string{"network timeout", "request timeout", "timed out", "timeout"}, true, true},
	{KindElementNotFound, []string{"element not found", "not visible", "no such element"}, true, false},
	{KindMemoryExhaustion, []string{"out of memory", "heap exhaust", "memory exhaust"}, false, true},
	{KindConnectionRefused, []string{"connection refused", "connection reset", "econnrefused"}, true, true},
	{KindValidation, []string{"validation", "malformed", "invalid input"}, false, false},
}

// Classify maps an error message to a Classification using the fixed,
// case-insensitive substring rules from spec.md §4.5. Unmatched messages
// classify as "unknown": retriable and should_trip (the fixed table's
// explicit fallback).
func Classify(message string) Classification {
	lower := strings.ToLower(message)
	for _, rule := range classificationRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return Classification{Kind: rule.kind, Retriable: rule.retriable, ShouldTrip: rule.shouldTrip}
			}
		}
	}
	return Classification{Kind: KindUnknown, Retriable: true, ShouldTrip: true}
}

// WireError is the structured error object surfaced at the tool boundary
// (spec.md §6.3).
type WireError struct {
	ErrorMessage      string   `json:"error"`
	Suggestions       []string `json:"suggestions,omitempty"`
	FallbackAvailable bool     `json:"fallbackAvailable"`
	CanRetry          bool     `json:"canRetry"`
	DegradationLevel  string   `json:"degradationLevel,omitempty"`
	EstimatedRecovery string   `json:"estimatedRecovery,omitempty"`
	Kind              Kind     `json:"-"`
}

func (e *WireError) Error() string { return e.ErrorMessage }

// CircuitOpenError is returned when the breaker rejects a call while OPEN.
// It always carries NextRetryTime so callers (and the degradation manager)
// can compute a human-readable estimated recovery.
type CircuitOpenError struct {
	Tool          string
	NextRetryTime time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for tool %q, next retry at %s", e.Tool, e.NextRetryTime.Format(time.RFC3339))
}

func (e *CircuitOpenError) ToWireError(degradationLevel string) *WireError {
	wait := time.Until(e.NextRetryTime)
	if wait < 0 {
		wait = 0
	}
	return &WireError{
		ErrorMessage:      e.Error(),
		Suggestions:       []string{"retry after the backoff window elapses", "use a degraded-level fallback tool if available"},
		FallbackAvailable: true,
		CanRetry:          true,
		DegradationLevel:  degradationLevel,
		EstimatedRecovery: wait.Round(time.Second).String(),
		Kind:              KindUnknown,
	}
}

// ValidationError is non-retriable and non-tripping per spec.md §4.7.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Message)
}

func (e *ValidationError) ToWireError() *WireError {
	return &WireError{
		ErrorMessage:      e.Error(),
		Suggestions:       []string{"check the parameter schema and retry with corrected input"},
		FallbackAvailable: false,
		CanRetry:          false,
		Kind:              KindValidation,
	}
}

// ToolError wraps a classified execution-layer failure surfaced after local
// recovery is exhausted.
type ToolError struct {
	Tool           string
	Underlying     error
	Classification Classification
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %q failed (%s): %v", e.Tool, e.Classification.Kind, e.Underlying)
}

func (e *ToolError) Unwrap() error { return e.Underlying }

func (e *ToolError) ToWireError(degradationLevel string) *WireError {
	return &WireError{
		ErrorMessage:      e.Error(),
		Suggestions:       []string{"check tool-specific diagnostics", "consider a fallback selector strategy"},
		FallbackAvailable: e.Classification.Retriable,
		CanRetry:          e.Classification.Retriable,
		DegradationLevel:  degradationLevel,
	}
}
