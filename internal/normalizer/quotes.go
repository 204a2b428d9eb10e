package normalizer

import (
	"fmt"
	"regexp"
)

var quoteExtractPattern = regexp.MustCompile(`['"]([^'"]*)['"]`)

// extractQuoted substitutes quoted substrings with QUOTED_i placeholders,
// returning the rewritten string and the ordered list of original contents.
func extractQuoted(s string) (string, []string) {
	var originals []string
	i := 0
	rewritten := quoteExtractPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := quoteExtractPattern.FindStringSubmatch(match)
		content := ""
		if len(sub) > 1 {
			content = sub[1]
		}
		originals = append(originals, content)
		placeholder := fmt.Sprintf("QUOTED_%d", i)
		i++
		return placeholder
	})
	return rewritten, originals
}
