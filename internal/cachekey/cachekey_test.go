package cachekey

import (
	"testing"

	"github.com/theRebelliousNerd/selectorcache/internal/domsig"
)

func zeroSig() domsig.Signature { return domsig.Signature{} }

func TestExtractURLPatternCollapsesIDsAndHosts(t *testing.T) {
	got := ExtractURLPattern("https://app.example.com/todos/8f1e2a3b4c5d/edit")
	want := "*.example.com/todos/*/edit"
	if got != want {
		t.Errorf("ExtractURLPattern = %q, want %q", got, want)
	}
}

func TestExtractURLPatternLocalhost(t *testing.T) {
	got := ExtractURLPattern("http://localhost:3000/todos/42")
	want := "*/todos/*"
	if got != want {
		t.Errorf("ExtractURLPattern = %q, want %q", got, want)
	}
}

func TestCrossEnvSimilarityAdmits(t *testing.T) {
	steps := []Step{
		{Action: "navigate", Selector: ""},
		{Action: "click", Selector: "button[data-testid='add-todo']"},
	}
	local := Build("add todo", "http://localhost:3000/todos", steps, zeroSig(), "")
	staging := Build("add todo", "https://staging.example.com/todos", steps, zeroSig(), "")

	sim := Similarity(local, staging, 1.0)
	if !Admit(sim, OpCrossEnv) {
		t.Errorf("expected cross_env admit, got similarity %v (threshold %v)", sim, Threshold(OpCrossEnv))
	}
}

func TestStepsStructureHashDeterministic(t *testing.T) {
	steps := []Step{{Action: "click", Selector: "#submit"}}
	h1 := StepsStructureHash(steps)
	h2 := StepsStructureHash(steps)
	if h1 != h2 {
		t.Errorf("expected deterministic hash, got %q vs %q", h1, h2)
	}
	if len(h1) != 16 {
		t.Errorf("expected 16-char hash, got %d chars", len(h1))
	}
}
