package normalizer

import "regexp"

// actionGroup is one synonym group from spec.md §4.1 step 5, applied
// word-bounded so canonicalization never touches substrings of other words.
type actionGroup struct {
	pattern *regexp.Regexp
	canonical string
}

func wordBoundaryAlternation(words ...string) *regexp.Regexp {
	pattern := `(?i)\b(`
	for i, w := range words {
		if i > 0 {
			pattern += "|"
		}
		pattern += w
	}
	pattern += `)\b`
	return regexp.MustCompile(pattern)
}

var actionGroups = []actionGroup{
	{wordBoundaryAlternation("click", "press", "tap", "hit", "select", "choose"), "click"},
	{wordBoundaryAlternation("type", "enter", "input", "fill", "write"), "type"},
	{wordBoundaryAlternation("go", "navigate", "open", "visit", "load"), "navigate"},
	{wordBoundaryAlternation("hover", "mouseover", "move"), "hover"},
}

// canonicalizeActions replaces every action synonym with its group's
// canonical verb, case-insensitively, word-bounded.
func canonicalizeActions(s string) string {
	for _, g := range actionGroups {
		s = g.pattern.ReplaceAllStringFunc(s, func(match string) string {
			return g.canonical
		})
	}
	return s
}
