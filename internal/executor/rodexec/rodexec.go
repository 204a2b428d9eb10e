// Package rodexec is the one reference Executor adapter that drives a real
// headless page via go-rod. It exists for the integration test suite only
// (build-tagged, see rodexec_integration_test.go); no domain package
// (cache, scenario, breaker, degradation, validator) imports it, so go-rod
// never leaks into the cache's hot path. Grounded on the teacher's
// internal/browser.SessionManager (launcher/connect/page lifecycle, element
// resolution, click/input/screenshot).
package rodexec

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/theRebelliousNerd/selectorcache/internal/executor"
	"github.com/theRebelliousNerd/selectorcache/internal/taxonomy"
)

// Config mirrors the subset of the teacher's browser.Config this adapter
// needs: where to find Chrome and how big to make the viewport.
type Config struct {
	DebuggerURL    string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
}

// DefaultConfig returns a headless 1280x800 viewport with no fixed
// debugger URL (rod launches its own Chrome).
func DefaultConfig() Config {
	return Config{Headless: true, ViewportWidth: 1280, ViewportHeight: 800}
}

// Executor drives one rod.Page. ID is a correlation id for telemetry/audit
// logging, assigned at construction via uuid.
type Executor struct {
	ID      string
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	page    *rod.Page
}

var _ executor.Executor = (*Executor)(nil)

// New connects to (or launches) Chrome and opens a blank page.
func New(ctx context.Context, cfg Config) (*Executor, error) {
	controlURL := cfg.DebuggerURL
	if controlURL == "" {
		url, err := launcher.New().Headless(cfg.Headless).Launch()
		if err != nil {
			return nil, classifyErr("launch", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, classifyErr("connect", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return nil, classifyErr("create page", err)
	}

	width, height := cfg.ViewportWidth, cfg.ViewportHeight
	if width == 0 {
		width = 1280
	}
	if height == 0 {
		height = 800
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width: width, Height: height, DeviceScaleFactor: 1.0, Mobile: false,
	}).Call(page); err != nil {
		_ = browser.Close()
		return nil, classifyErr("set viewport", err)
	}

	return &Executor{ID: uuid.NewString(), cfg: cfg, browser: browser, page: page}, nil
}

// Navigate implements executor.Executor.
func (e *Executor) Navigate(ctx context.Context, req executor.Request) (executor.Result, error) {
	ctx, cancel := executor.WithDeadline(ctx, req)
	defer cancel()

	e.mu.Lock()
	page := e.page
	e.mu.Unlock()

	if err := page.Context(ctx).Navigate(req.URL); err != nil {
		return executor.Result{}, classifyErr("navigate", err)
	}
	if err := page.Context(ctx).WaitLoad(); err != nil {
		return executor.Result{}, classifyErr("wait load", err)
	}
	info, _ := page.Info()
	result := executor.Result{URL: req.URL}
	if info != nil {
		result.URL = info.URL
		result.Title = info.Title
	}
	return result, nil
}

// Click implements executor.Executor.
func (e *Executor) Click(ctx context.Context, req executor.Request) (executor.Result, error) {
	ctx, cancel := executor.WithDeadline(ctx, req)
	defer cancel()

	selector := executor.RepairSelectorSyntax(req.Selector)
	e.mu.Lock()
	page := e.page
	e.mu.Unlock()

	el, err := page.Context(ctx).Element(selector)
	if err != nil {
		return executor.Result{}, classifyErr("element not found", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return executor.Result{}, classifyErr("click", err)
	}
	return executor.Result{ResolvedSelector: selector}, nil
}

// Type implements executor.Executor.
func (e *Executor) Type(ctx context.Context, req executor.Request) (executor.Result, error) {
	ctx, cancel := executor.WithDeadline(ctx, req)
	defer cancel()

	selector := executor.RepairSelectorSyntax(req.Selector)
	e.mu.Lock()
	page := e.page
	e.mu.Unlock()

	el, err := page.Context(ctx).Element(selector)
	if err != nil {
		return executor.Result{}, classifyErr("element not found", err)
	}
	if err := el.Input(req.Value); err != nil {
		return executor.Result{}, classifyErr("type", err)
	}
	return executor.Result{ResolvedSelector: selector}, nil
}

// Screenshot implements executor.Executor.
func (e *Executor) Screenshot(ctx context.Context, req executor.Request) (executor.Result, error) {
	ctx, cancel := executor.WithDeadline(ctx, req)
	defer cancel()

	e.mu.Lock()
	page := e.page
	e.mu.Unlock()

	img, err := page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return executor.Result{}, classifyErr("screenshot", err)
	}
	return executor.Result{Screenshot: img}, nil
}

// Close implements executor.Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.page != nil {
		_ = e.page.Close()
		e.page = nil
	}
	if e.browser != nil {
		err := e.browser.Close()
		e.browser = nil
		return err
	}
	return nil
}

// classifyErr wraps err as a taxonomy.ToolError so the breaker sees the
// same classified-error shape regardless of which executor produced it.
func classifyErr(op string, err error) error {
	msg := fmt.Sprintf("%s: %v", op, err)
	return &taxonomy.ToolError{
		Tool:           "rodexec",
		Underlying:     err,
		Classification: taxonomy.Classify(msg),
	}
}
