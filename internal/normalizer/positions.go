package normalizer

import "strings"

// positionalKeywords is the fixed list from spec.md §4.1 step 4. Order here
// is only for iteration convenience; occurrence order in the input string
// drives the recorded index.
var positionalKeywords = newWordSet(
	"before", "after", "first", "last", "next", "previous",
	"above", "below", "top", "bottom", "left", "right",
)

// extractPositions records, for each occurrence of a positional keyword in
// word order, the keyword, its token index, and the adjacent word (the
// following token, or the preceding one if it is the final token).
func extractPositions(s string) []Position {
	words := strings.Fields(strings.ToLower(s))
	var positions []Position
	for i, w := range words {
		clean := trimNonWord(w)
		if !positionalKeywords[clean] {
			continue
		}
		adjacent := ""
		if i+1 < len(words) {
			adjacent = trimNonWord(words[i+1])
		} else if i > 0 {
			adjacent = trimNonWord(words[i-1])
		}
		positions = append(positions, Position{Keyword: clean, Index: i, AdjacentWord: adjacent})
	}
	return positions
}

func trimNonWord(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	})
}
