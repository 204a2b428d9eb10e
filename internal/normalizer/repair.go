package normalizer

import "regexp"

// repairRule is one ordered, fixed rewrite from the locator-syntax repair
// table in spec.md §6.4. Rules are applied once, left-to-right, in the
// order listed.
type repairRule struct {
	pattern *regexp.Regexp
	replace string
}

var repairRules = []repairRule{
	{regexp.MustCompile(`:text\(`), ":has-text("},
	// Bare text( only: not preceded by ":" (already rewritten above) and not
	// part of "has-text(" (preceded by a word char or hyphen).
	{regexp.MustCompile(`(^|[^:\w-])text\(`), "${1}text="},
	{regexp.MustCompile(`:first\b`), ":first-of-type"},
	{regexp.MustCompile(`:last\b`), ":last-of-type"},
	{regexp.MustCompile(`>>\s*first\b`), ">> nth=0"},
	{regexp.MustCompile(`>>\s*last\b`), ">> nth=-1"},
}

// repairLocatorSyntax applies the fixed rewrite table once, in order.
func repairLocatorSyntax(s string) string {
	for _, rule := range repairRules {
		s = rule.pattern.ReplaceAllString(s, rule.replace)
	}
	return s
}
