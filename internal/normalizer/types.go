// Package normalizer turns arbitrary natural-language intent text into a
// deterministic, canonical form used as a cache probe key. The pipeline is
// pure and side-effect-free: the same input always normalizes identically,
// and normalizing an already-normalized string is a no-op (spec.md §4.1,
// §8 idempotence invariant).
package normalizer

// Position records one occurrence of a positional keyword that must survive
// normalization independently of token sorting (e.g. "first" vs "last").
type Position struct {
	Keyword      string
	Index        int
	AdjacentWord string
}

// Features captures the boolean/enum signal extracted from the
// locator-syntax-repaired raw string, before any stripping.
type Features struct {
	HasID         bool
	HasClass      bool
	HasQuoted     bool
	HasDataTestID bool
	HasImperative bool
	IsNavigation  bool
	IsFormAction  bool
	Numbers       []string
	Attributes    []string
	CasePattern   string // lower, upper, mixed, title
}

// Result is the normalizer's output contract (spec.md §4.1).
type Result struct {
	Normalized string
	Tokens     []string
	Positions  []Position
	Features   Features
	Hash       string
}
