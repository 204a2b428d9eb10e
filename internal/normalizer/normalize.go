package normalizer

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var (
	posSuffixPattern    = regexp.MustCompile(`^(.*?) _pos:([^ ]*)(?: _quoted:(.*))?$`)
	quotedSuffixPattern = regexp.MustCompile(`^(.*?) _quoted:(.*)$`)
)

// Normalize runs the deterministic canonicalization pipeline from
// spec.md §4.1. Calling Normalize on an already-normalized string is a
// no-op beyond re-sorting its (already sorted) core tokens, satisfying the
// idempotence invariant in spec.md §8.
func Normalize(raw string) Result {
	if core, posPart, quotedPart, ok := splitSuffixes(raw); ok {
		return finishAlreadyNormalized(core, posPart, quotedPart)
	}

	repaired := repairLocatorSyntax(raw)
	features := extractFeatures(repaired)

	dequoted, quotedOriginals := extractQuoted(repaired)
	positions := extractPositions(dequoted)

	canonical := canonicalizeActions(dequoted)
	stripped := stripPrefixSuffixNouns(canonical)

	words := strings.Fields(strings.ToLower(stripped))
	tokens := buildTokenSet(words)

	normalized := strings.Join(tokens, " ")
	normalized = appendPositionSuffix(normalized, positions)
	normalized = appendQuotedSuffix(normalized, quotedOriginals)

	return Result{
		Normalized: normalized,
		Tokens:     tokens,
		Positions:  positions,
		Features:   features,
		Hash:       hashOf(normalized),
	}
}

// splitSuffixes detects the _pos:/_quoted: markers appended by a prior
// Normalize call and, if present, returns the core token string plus the
// raw suffix payloads so the pipeline can skip re-deriving them.
func splitSuffixes(raw string) (core, posPart, quotedPart string, ok bool) {
	if m := posSuffixPattern.FindStringSubmatch(raw); m != nil {
		return m[1], m[2], m[3], true
	}
	if m := quotedSuffixPattern.FindStringSubmatch(raw); m != nil {
		return m[1], "", m[2], true
	}
	return "", "", "", false
}

func finishAlreadyNormalized(core, posPart, quotedPart string) Result {
	tokens := buildTokenSet(strings.Fields(core))
	normalized := strings.Join(tokens, " ")
	if posPart != "" {
		normalized += " _pos:" + posPart
	}
	if quotedPart != "" {
		normalized += " _quoted:" + quotedPart
	}
	return Result{
		Normalized: normalized,
		Tokens:     tokens,
		Hash:       hashOf(normalized),
	}
}

func appendPositionSuffix(normalized string, positions []Position) string {
	if len(positions) == 0 {
		return normalized
	}
	parts := make([]string, 0, len(positions))
	for _, p := range positions {
		if p.AdjacentWord != "" {
			parts = append(parts, fmt.Sprintf("%s-%s", p.Keyword, p.AdjacentWord))
		} else {
			parts = append(parts, p.Keyword)
		}
	}
	return normalized + " _pos:" + strings.Join(parts, ",")
}

func appendQuotedSuffix(normalized string, quoted []string) string {
	if len(quoted) == 0 {
		return normalized
	}
	return normalized + " _quoted:" + strings.Join(quoted, ",")
}

func hashOf(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
