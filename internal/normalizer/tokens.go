package normalizer

import "sort"

var stopWords = newWordSet("the", "a", "an", "and", "or", "but", "at", "on")
var relationalWords = newWordSet("in", "of", "from", "to", "with", "by", "for")
var genericNouns = newWordSet("button", "element", "field")

// buildTokenSet implements spec.md §4.1 step 7-8: split, drop stop words,
// relational words, and generic nouns; positional keywords are excluded
// here too (they are carried separately as Positions) so they never enter
// the sorted, order-invariant join.
func buildTokenSet(words []string) []string {
	seen := make(map[string]bool, len(words))
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if stopWords[w] || relationalWords[w] || genericNouns[w] || positionalKeywords[w] {
			continue
		}
		if seen[w] {
			continue
		}
		seen[w] = true
		kept = append(kept, w)
	}
	sort.Strings(kept)
	return kept
}
