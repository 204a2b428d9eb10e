package normalizer

import "strings"

// synonymTable is the small, enumerated table backing Semantic Jaccard
// (spec.md Glossary: "Semantic Jaccard"). Each entry maps a word to the
// canonical concept it is equivalent to for similarity purposes only — it
// does not affect normalization.
var synonymTable = map[string]string{
	"add": "create", "new": "create", "make": "create",
	"remove": "delete", "erase": "delete",
	"modify": "edit", "change": "edit", "update": "edit",
	"show": "display", "view": "display",
	"hide": "conceal",
	"begin": "start", "launch": "start",
	"end": "finish", "stop": "finish", "complete": "finish",
}

// antonymPairs is the fixed "action conflict" list (Glossary: "Action
// conflict"). If tokens from both sides of any pair appear across the two
// inputs, the conflict detector forces similarity to the sentinel -1.
var antonymPairs = [][2]string{
	{"enable", "disable"},
	{"open", "close"},
	{"login", "logout"},
	{"first", "last"},
	{"show", "hide"},
	{"start", "stop"},
}

func toSet(tokens []string) map[string]bool {
	m := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		m[t] = true
	}
	return m
}

// hasActionConflict implements the Glossary's "Action conflict" detector:
// opposing verbs from the fixed antonym list appearing across the two
// token sets.
func hasActionConflict(a, b []string) bool {
	setA, setB := toSet(a), toSet(b)
	for _, pair := range antonymPairs {
		if (setA[pair[0]] && setB[pair[1]]) || (setA[pair[1]] && setB[pair[0]]) {
			return true
		}
	}
	return false
}

// Jaccard computes token-set Jaccard similarity with the §4.1 adjustments:
// +0.2 if both carry an equal non-empty _quoted payload, -0.3 if their _pos
// suffixes differ and at least one is non-empty. Clamped to [0,1].
func Jaccard(a, b Result) float64 {
	score := jaccardRaw(a.Tokens, b.Tokens)

	aQuoted, bQuoted := quotedSuffix(a.Normalized), quotedSuffix(b.Normalized)
	if aQuoted != "" && aQuoted == bQuoted {
		score += 0.2
	}

	aPos, bPos := posSuffix(a.Normalized), posSuffix(b.Normalized)
	if aPos != bPos && (aPos != "" || bPos != "") {
		score -= 0.3
	}

	return clamp01(score)
}

func jaccardRaw(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	setA, setB := toSet(a), toSet(b)
	intersection, union := 0, len(setB)
	for t := range setA {
		if setB[t] {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// SemanticJaccard extends Jaccard by treating synonym-table entries as
// equivalent tokens before computing the set overlap.
func SemanticJaccard(a, b Result) float64 {
	canonA := canonicalizeTokens(a.Tokens)
	canonB := canonicalizeTokens(b.Tokens)
	score := jaccardRaw(canonA, canonB)

	aQuoted, bQuoted := quotedSuffix(a.Normalized), quotedSuffix(b.Normalized)
	if aQuoted != "" && aQuoted == bQuoted {
		score += 0.2
	}
	aPos, bPos := posSuffix(a.Normalized), posSuffix(b.Normalized)
	if aPos != bPos && (aPos != "" || bPos != "") {
		score -= 0.3
	}
	return clamp01(score)
}

func canonicalizeTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		if c, ok := synonymTable[t]; ok {
			out[i] = c
		} else {
			out[i] = t
		}
	}
	return out
}

func quotedSuffix(normalized string) string {
	if idx := strings.Index(normalized, " _quoted:"); idx >= 0 {
		return normalized[idx+len(" _quoted:"):]
	}
	return ""
}

func posSuffix(normalized string) string {
	if idx := strings.Index(normalized, " _pos:"); idx >= 0 {
		rest := normalized[idx+len(" _pos:"):]
		if q := strings.Index(rest, " _quoted:"); q >= 0 {
			return rest[:q]
		}
		return rest
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DamerauLevenshtein computes the Damerau-Levenshtein edit distance
// (insertions, deletions, substitutions, adjacent transpositions) between
// two strings, operating on runes.
func DamerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min3(
				d[i-1][j]+1,
				d[i][j-1]+1,
				d[i-1][j-1]+cost,
			)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if t := d[i-2][j-2] + 1; t < d[i][j] {
					d[i][j] = t
				}
			}
		}
	}
	return d[la][lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// FuzzyAdmissible implements the fixed admissibility rule from spec.md
// §4.1/§8: a Damerau-Levenshtein distance is admissible when
// 0 < distance <= floor(len(queryNormalized)/8).
func FuzzyAdmissible(queryNormalized, candidateNormalized string) (distance int, admissible bool) {
	distance = DamerauLevenshtein(queryNormalized, candidateNormalized)
	tolerance := len([]rune(queryNormalized)) / 8
	return distance, distance > 0 && distance <= tolerance
}

// OperationType tags a similarity comparison for the threshold table in
// spec.md §4.3.
type OperationType string

const (
	OpCacheLookup  OperationType = "cache_lookup"
	OpTestSearch   OperationType = "test_search"
	OpPatternMatch OperationType = "pattern_match"
	OpCrossEnv     OperationType = "cross_env"
	OpDefault      OperationType = "default"
)

// ContextAwareSimilarity computes Semantic Jaccard between a and b, then
// forces the sentinel -1 if the conflict detector fires. crossEnv is
// informational only here; callers pick the threshold for op from §4.3.
func ContextAwareSimilarity(a, b Result, op OperationType, crossEnv bool) float64 {
	if hasActionConflict(a.Tokens, b.Tokens) {
		return -1
	}
	return SemanticJaccard(a, b)
}
