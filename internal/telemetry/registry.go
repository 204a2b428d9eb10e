package telemetry

import (
	"sort"

	"github.com/theRebelliousNerd/selectorcache/internal/degradation"
)

// Stage names the three priority stages tools are loaded in (spec.md §6.2:
// "Tools are loaded in three priority stages (0 ms, 100 ms, 200 ms) to avoid
// overloading a caller that enumerates tools eagerly").
type Stage int

const (
	Stage0 Stage = iota // 0ms: the tools a dispatcher needs before it can do anything
	Stage1              // 100ms: common interaction tools
	Stage2              // 200ms: diagnostics and rarely-used tools
)

func (s Stage) DelayMs() int {
	switch s {
	case Stage0:
		return 0
	case Stage1:
		return 100
	case Stage2:
		return 200
	default:
		return 200
	}
}

// Tool is one entry in the tool registry: a stable, prefixed name, a
// one-line description (token-cost-conscious, mirroring the pack's
// browserNerd tool style), and the stage it is announced in.
type Tool struct {
	Name        string
	Description string
	Stage       Stage
}

// ToolRegistry holds the fixed tool surface and gates it by the Degradation
// Manager's current level (spec.md §6.2, §4.6).
type ToolRegistry struct {
	tools []Tool
}

// NewToolRegistry returns the registry seeded with the fixed selectorcache
// tool surface.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: defaultTools()}
}

func defaultTools() []Tool {
	return []Tool{
		{Name: "mcp_browser_navigate", Description: "Navigate the page to a URL", Stage: Stage0},
		{Name: "mcp_browser_click", Description: "Click the element resolved by the selector cache", Stage: Stage0},
		{Name: "mcp_browser_type", Description: "Type text into the element resolved by the selector cache", Stage: Stage0},
		{Name: "mcp_browser_hover", Description: "Hover over the element resolved by the selector cache", Stage: Stage1},
		{Name: "mcp_browser_wait", Description: "Wait for a condition before the next step", Stage: Stage1},
		{Name: "mcp_browser_assert", Description: "Assert a read-only condition about the page", Stage: Stage1},
		{Name: "mcp_browser_snapshot_diff", Description: "Diff two DOM snapshots for structural drift", Stage: Stage2},
		{Name: "mcp_browser_fuzzy_learn", Description: "Force a fuzzy-tier relearn pass for a selector", Stage: Stage2},
		{Name: "mcp_status", Description: "Report current degradation level and breaker states", Stage: Stage2},
		{Name: "mcp_health", Description: "Run a health check across the cache and breaker", Stage: Stage2},
		{Name: "mcp_diagnostics", Description: "Dump counters and recent audit events", Stage: Stage2},
	}
}

// ForStage returns every tool announced at or before stage, in the fixed
// registration order.
func (r *ToolRegistry) ForStage(stage Stage) []Tool {
	var out []Tool
	for _, t := range r.tools {
		if t.Stage <= stage {
			out = append(out, t)
		}
	}
	return out
}

// ForLevel returns the tools from ForStage(stage) further filtered by the
// degradation profile's allow-list; a profile allow-list containing "*"
// admits every tool.
func (r *ToolRegistry) ForLevel(stage Stage, profile degradation.Profile) []Tool {
	allowed := make(map[string]bool, len(profile.AllowedTools))
	allowAll := false
	for _, name := range profile.AllowedTools {
		if name == "*" {
			allowAll = true
			break
		}
		allowed[name] = true
	}

	var out []Tool
	for _, t := range r.ForStage(stage) {
		if allowAll || allowed[t.Name] {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
