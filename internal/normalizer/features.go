package normalizer

import (
	"regexp"
	"strings"
)

var (
	idPattern         = regexp.MustCompile(`#[\w-]+|\bid\s*=`)
	classPattern      = regexp.MustCompile(`\.[a-zA-Z][\w-]*|\bclass\s*=`)
	quotedPattern     = regexp.MustCompile(`['"][^'"]*['"]`)
	dataTestIDPattern = regexp.MustCompile(`data-test(id|-id)?\s*=`)
	numberPattern     = regexp.MustCompile(`\d+`)
	attributePattern  = regexp.MustCompile(`\[?([a-zA-Z_-][\w-]*)\s*=\s*['"][^'"]*['"]\]?`)
)

var (
	imperativeVerbs = newWordSet("click", "press", "tap", "hit", "select", "choose", "type", "enter", "input", "fill", "write", "hover")
	navigationVerbs = newWordSet("go", "navigate", "open", "visit", "load")
	formVerbs       = newWordSet("type", "enter", "input", "fill", "write", "submit")
)

func newWordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// extractFeatures inspects the locator-syntax-repaired string, before any
// punctuation stripping, so attribute/quote/id syntax is still visible.
func extractFeatures(repaired string) Features {
	f := Features{
		HasID:         idPattern.MatchString(repaired),
		HasClass:      classPattern.MatchString(repaired),
		HasQuoted:     quotedPattern.MatchString(repaired),
		HasDataTestID: dataTestIDPattern.MatchString(repaired),
		Numbers:       numberPattern.FindAllString(repaired, -1),
		CasePattern:   casePattern(repaired),
	}

	lower := strings.ToLower(repaired)
	words := strings.Fields(stripPunctuationForWords(lower))
	for _, w := range words {
		if imperativeVerbs[w] {
			f.HasImperative = true
		}
		if navigationVerbs[w] {
			f.IsNavigation = true
		}
		if formVerbs[w] {
			f.IsFormAction = true
		}
	}

	for _, m := range attributePattern.FindAllStringSubmatch(repaired, -1) {
		f.Attributes = append(f.Attributes, m[1])
	}
	return f
}

func stripPunctuationForWords(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// casePattern classifies the dominant letter-casing of the raw string.
func casePattern(s string) string {
	hasLower, hasUpper, titleLike := false, false, true
	words := strings.Fields(s)
	for _, w := range words {
		runes := []rune(w)
		sawUpperFirst := false
		for i, r := range runes {
			if r >= 'A' && r <= 'Z' {
				hasUpper = true
				if i == 0 {
					sawUpperFirst = true
				}
			} else if r >= 'a' && r <= 'z' {
				hasLower = true
			}
		}
		if !sawUpperFirst {
			titleLike = false
		}
	}
	switch {
	case len(words) > 1 && titleLike && hasUpper && hasLower:
		return "title"
	case hasUpper && !hasLower:
		return "upper"
	case hasLower && !hasUpper:
		return "lower"
	default:
		return "mixed"
	}
}
