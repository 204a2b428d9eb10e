// Package executor defines the contract between the resilience stack
// (breaker, degradation, validator) and whatever actually drives a browser
// (spec.md §6 "Tool surface (executor boundary)"). Domain packages depend
// only on the Executor interface here; a concrete driver lives in a
// separate subpackage (rodexec) so the cache/scenario/breaker packages
// never import go-rod.
package executor

import (
	"context"
	"time"
)

// Action names one of the interaction verbs the scenario store already
// knows how to describe (internal/scenario.Step.Action).
type Action string

const (
	ActionNavigate   Action = "navigate"
	ActionClick      Action = "click"
	ActionType       Action = "type"
	ActionWait       Action = "wait"
	ActionAssert     Action = "assert"
	ActionScreenshot Action = "screenshot"
)

// Request is one tool invocation crossing the executor boundary. Deadline,
// when non-zero, bounds the call; on expiry the executor cancels the
// in-flight operation and the caller records a network_timeout-class
// failure (spec.md §5 "Cancellation / timeouts").
type Request struct {
	Action   Action
	Selector string
	Value    string
	URL      string
	Deadline time.Duration
}

// Result is what a tool invocation returns on success. ResolvedSelector is
// echoed back so a caller can feed it to cache.Set/learnRelatedInputs
// without re-deriving it.
type Result struct {
	ResolvedSelector string
	Text             string
	Screenshot       []byte
	URL              string
	Title            string
}

// Executor drives a single browser page. Every method takes ctx so a
// deadline set via Request.Deadline (or an ambient ctx.Deadline) cancels
// the in-flight CDP call rather than leaking it.
//
// Implementations must classify failures through taxonomy.Classify before
// returning so the breaker sees a consistent error string shape; they
// never panic on a malformed selector.
type Executor interface {
	// Navigate loads req.URL, waiting up to req.Deadline.
	Navigate(ctx context.Context, req Request) (Result, error)
	// Click resolves req.Selector and clicks it.
	Click(ctx context.Context, req Request) (Result, error)
	// Type resolves req.Selector and types req.Value into it.
	Type(ctx context.Context, req Request) (Result, error)
	// Screenshot captures the current page.
	Screenshot(ctx context.Context, req Request) (Result, error)
	// Close releases any resources the executor holds (a page, a browser
	// connection). Safe to call more than once.
	Close() error
}

// WithDeadline derives a context bounded by req.Deadline, or ctx unchanged
// if no deadline was requested. The returned cancel must always be called.
func WithDeadline(ctx context.Context, req Request) (context.Context, context.CancelFunc) {
	if req.Deadline <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, req.Deadline)
}
