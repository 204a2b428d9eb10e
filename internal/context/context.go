// Package context implements the explicit process-wide wiring object from
// spec.md §9 Design Notes: a single owner that builds every component
// bottom-up (store -> normalizer/cachekey/domsig -> cache -> scenario store
// -> breaker -> degradation -> validator -> telemetry) and tears them down
// top-down, so nothing reaches for ambient package-level globals or a
// cyclic back-reference between layers. Grounded on the teacher's
// cmd/nerd/main.go wiring sequence (config load -> logging init -> store
// open -> subsystem construction -> signal-driven shutdown).
package context

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/theRebelliousNerd/selectorcache/internal/breaker"
	"github.com/theRebelliousNerd/selectorcache/internal/cache"
	"github.com/theRebelliousNerd/selectorcache/internal/config"
	"github.com/theRebelliousNerd/selectorcache/internal/degradation"
	"github.com/theRebelliousNerd/selectorcache/internal/logging"
	"github.com/theRebelliousNerd/selectorcache/internal/scenario"
	"github.com/theRebelliousNerd/selectorcache/internal/store"
	"github.com/theRebelliousNerd/selectorcache/internal/telemetry"
	"github.com/theRebelliousNerd/selectorcache/internal/validator"
)

// Breakers groups the named circuit breakers the system runs. Tool names
// are the map keys so a caller can look one up by the same prefixed name
// the tool registry exposes (e.g. "mcp_browser_click").
type Breakers map[string]*breaker.Breaker

// Context owns every live component for one process. Its fields are
// exported read-only views; construction and teardown are the only places
// that mutate it.
type Context struct {
	Config      *config.Config
	Store       *store.Store
	Cache       *cache.Cache
	Scenarios   *scenario.Store
	Breakers    Breakers
	Degradation *degradation.Manager
	Validator   *validator.Validator
	Counters    *telemetry.Counters
	Tools       *telemetry.ToolRegistry
	Health      *telemetry.HealthReporter

	watcher *config.Watcher
	cancel  context.CancelFunc
}

// breakerToolNames lists every tool a breaker instance is tracked for,
// mirroring the fixed tool surface telemetry.NewToolRegistry seeds.
var breakerToolNames = []string{
	"mcp_browser_navigate",
	"mcp_browser_click",
	"mcp_browser_type",
}

// Build wires a full Context from cfg: opens the store, runs migrations,
// constructs every layer bottom-up, and starts the background loops
// (cache cleanup, scenario confidence decay) under the returned Context's
// lifetime. Callers must call Shutdown when done.
func Build(ctx context.Context, cfg *config.Config) (*Context, error) {
	if err := logging.Initialize(filepath.Dir(cfg.CacheRoot), cfg.Logging.DebugMode, cfg.Logging.Level, cfg.Logging.JSONFormat); err != nil {
		return nil, fmt.Errorf("context: init logging: %w", err)
	}
	if err := logging.InitAudit(); err != nil {
		return nil, fmt.Errorf("context: init audit log: %w", err)
	}

	st, err := store.Open(cfg.CacheRoot)
	if err != nil {
		return nil, fmt.Errorf("context: open store: %w", err)
	}

	counters := telemetry.NewCounters()
	c := cache.New(st, cfg.Cache, counters)
	scenarios := scenario.New(st, cfg.Scenario, counters)

	breakers := make(Breakers, len(breakerToolNames))
	for _, name := range breakerToolNames {
		path := breaker.DefaultSnapshotPath(filepath.Dir(cfg.CacheRoot), name)
		restore := breaker.LoadSnapshot(path)
		breakers[name] = breaker.New(name, cfg.Breaker, restore, breaker.FilePersister(path))
	}

	deg := degradation.New(cfg.Degradation)
	val := validator.New(cfg.Validator)
	tools := telemetry.NewToolRegistry()

	storeStats := func() (map[string]int64, error) { return st.Stats() }
	health := telemetry.NewHealthReporter(counters, breakers, deg, storeStats)

	runCtx, cancel := context.WithCancel(ctx)

	go st.CleanupLoop(runCtx, cfg.Cache.CleanupInterval, cfg.Cache.SelectorTTL, cfg.Cache.MaxVariationsPerSelector)
	go scenarios.DecayLoop(runCtx, decayLoopInterval(cfg.Scenario))

	return &Context{
		Config:      cfg,
		Store:       st,
		Cache:       c,
		Scenarios:   scenarios,
		Breakers:    breakers,
		Degradation: deg,
		Validator:   val,
		Counters:    counters,
		Tools:       tools,
		Health:      health,
		cancel:      cancel,
	}, nil
}

// decayLoopInterval runs confidence decay on a tenth of the configured
// decay-after window, so a scenario decays in roughly ten discrete steps
// rather than jumping straight to the floor once it goes stale.
func decayLoopInterval(cfg config.ScenarioConfig) time.Duration {
	interval := cfg.ConfidenceDecayAfter / 10
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

// WatchConfig starts hot-reloading cfg from path, invoking onReload on every
// debounced change. Safe to call at most once per Context.
func (c *Context) WatchConfig(ctx context.Context, path string, onReload config.ReloadFunc) error {
	w, err := config.NewWatcher(path, onReload)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	c.watcher = w
	return nil
}

// Shutdown tears every component down top-down: config watcher first (so
// no reload races a closing store), then background loops (via cancel),
// then the store itself, then the audit log.
func (c *Context) Shutdown() error {
	if c.watcher != nil {
		c.watcher.Stop()
	}
	if c.cancel != nil {
		c.cancel()
	}
	var err error
	if c.Store != nil {
		err = c.Store.Close()
	}
	logging.CloseAudit()
	logging.CloseAll()
	return err
}
