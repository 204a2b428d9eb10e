// Package domsig defines the DOM Signature contract used by the Enhanced
// Cache Key (spec.md §4.3) to compare page structure across environments
// without depending on any particular browser driver. The executor
// (internal/executor) supplies the concrete signature; this package only
// hashes and compares it.
package domsig

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Signature is a structural fingerprint of a page's relevant DOM, computed
// by whatever browser driver backs the executor. It intentionally carries
// no pixel/text content — only the element-shape information the cache key
// needs to compare two pages for "close enough" structural similarity.
type Signature struct {
	TagCounts    map[string]int
	LandmarkIDs  []string
	FormFieldIDs []string
}

// Hash returns a stable 16-hex-char digest of the signature, order-
// independent over map iteration by sorting keys first.
func (s Signature) Hash() string {
	var b strings.Builder

	tags := make([]string, 0, len(s.TagCounts))
	for t := range s.TagCounts {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	for _, t := range tags {
		b.WriteString(t)
		b.WriteByte(':')
		b.WriteString(itoa(s.TagCounts[t]))
		b.WriteByte(';')
	}

	landmarks := append([]string(nil), s.LandmarkIDs...)
	sort.Strings(landmarks)
	b.WriteString(strings.Join(landmarks, ","))
	b.WriteByte('|')

	fields := append([]string(nil), s.FormFieldIDs...)
	sort.Strings(fields)
	b.WriteString(strings.Join(fields, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// Similarity scores two signatures in [0,1] by Jaccard overlap of their tag
// vocabularies weighted by count similarity, plus landmark/field-ID
// overlap. Used as the "dom_signature" channel of the Enhanced Cache Key's
// weighted similarity (spec.md §4.3).
func Similarity(a, b Signature) float64 {
	tagScore := tagCountSimilarity(a.TagCounts, b.TagCounts)
	landmarkScore := setOverlap(a.LandmarkIDs, b.LandmarkIDs)
	fieldScore := setOverlap(a.FormFieldIDs, b.FormFieldIDs)
	return tagScore*0.5 + landmarkScore*0.25 + fieldScore*0.25
}

func tagCountSimilarity(a, b map[string]int) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	seen := make(map[string]bool, len(a)+len(b))
	var num, den float64
	for t, ca := range a {
		seen[t] = true
		cb := b[t]
		num += float64(min(ca, cb))
		den += float64(max(ca, cb))
	}
	for t, cb := range b {
		if seen[t] {
			continue
		}
		den += float64(cb)
	}
	if den == 0 {
		return 1
	}
	return num / den
}

func setOverlap(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	setA := make(map[string]bool, len(a))
	for _, v := range a {
		setA[v] = true
	}
	setB := make(map[string]bool, len(b))
	for _, v := range b {
		setB[v] = true
	}
	intersection, union := 0, len(setB)
	for v := range setA {
		if setB[v] {
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

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
