// Package cachekey implements the Enhanced Cache Key from spec.md §4.3:
// URL-pattern extraction, steps-structure hashing, and weighted similarity
// across environments. Grounded on the teacher's use of golang.org/x/net
// for host/domain handling (internal/browser uses x/net transitively via
// go-rod; here we reach for the sibling publicsuffix package directly).
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/theRebelliousNerd/selectorcache/internal/domsig"
	"github.com/theRebelliousNerd/selectorcache/internal/normalizer"
)

// Key is the Enhanced Cache Key contract (spec.md §4.3).
type Key struct {
	TestNameNormalized string
	URLPattern         string
	DOMSignature        string
	StepsStructureHash  string
	Profile             string
	Version             int
}

// Step is the minimal shape cachekey needs from a scenario step to classify
// its selector family; the scenario package's richer Step embeds these
// fields.
type Step struct {
	Action   string
	Selector string
}

var (
	uuidPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	hexPattern  = regexp.MustCompile(`(?i)^[0-9a-f]{8,}$`)
	ulidPattern = regexp.MustCompile(`^[0-7][0-9A-HJKMNP-TV-Z]{25}$`)
	numPattern  = regexp.MustCompile(`^\d+$`)
)

// ExtractURLPattern turns a concrete URL into a portability-friendly glob
// per spec.md §4.3: localhost, 127.0.0.1 and single-label hosts collapse to
// "*", two-label hosts are kept as they are, and longer hosts collapse to
// "*.<last-two-labels>"; numeric/UUID/hex/ULID/long path segments collapse
// to "*"; query and fragment are dropped.
func ExtractURLPattern(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := u.Hostname()
	pattern := patternizeHost(host)

	var segments []string
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg == "" {
			continue
		}
		segments = append(segments, patternizeSegment(seg))
	}

	path := strings.Join(segments, "/")
	if path != "" {
		return pattern + "/" + path
	}
	return pattern
}

func patternizeHost(host string) string {
	hostOnly := strings.Split(host, ":")[0]
	if hostOnly == "localhost" || hostOnly == "127.0.0.1" {
		return "*"
	}
	labels := strings.Split(hostOnly, ".")
	if len(labels) < 2 {
		return "*"
	}
	lastTwo := strings.Join(labels[len(labels)-2:], ".")
	if len(labels) <= 2 {
		return lastTwo
	}
	return "*." + lastTwo
}

// RegistrableDomain exposes publicsuffix for callers (e.g. the Scenario
// Store's cross-environment detection) that need the true registrable
// domain rather than the naive last-two-labels heuristic used for URL
// patterns above.
func RegistrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	hostOnly := u.Hostname()
	if d, err := publicsuffix.EffectiveTLDPlusOne(hostOnly); err == nil {
		return d
	}
	return hostOnly
}

func patternizeSegment(seg string) string {
	switch {
	case numPattern.MatchString(seg):
		return "*"
	case uuidPattern.MatchString(seg):
		return "*"
	case ulidPattern.MatchString(seg):
		return "*"
	case hexPattern.MatchString(seg) && len(seg) >= 8:
		return "*"
	case len(seg) >= 24:
		return "*"
	default:
		return seg
	}
}

// selectorFamily classifies a step's selector string per the fixed table in
// spec.md §4.3.
func selectorFamily(action, selector string) string {
	if action == "navigate" {
		return "url"
	}
	lower := strings.ToLower(selector)
	switch {
	case selector == "":
		return "other"
	case strings.Contains(lower, "input") || strings.Contains(lower, "textarea"):
		return "input"
	case strings.Contains(lower, "button") || strings.Contains(lower, "btn"):
		return "button"
	case strings.Contains(lower, "a[") || strings.HasPrefix(lower, "a:") || strings.Contains(lower, "link"):
		return "link"
	case strings.Contains(lower, "form"):
		return "form"
	case strings.Contains(lower, ":has-text") || strings.Contains(lower, "text="):
		return "text"
	case strings.Contains(lower, "["):
		return "attr"
	default:
		return "other"
	}
}

// StepsStructureHash hashes the ordered (action, selector_family) list to a
// 16-hex-char SHA-256 prefix, per spec.md §4.3.
func StepsStructureHash(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		b.WriteString(s.Action)
		b.WriteByte(':')
		b.WriteString(selectorFamily(s.Action, s.Selector))
		b.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}

// Build assembles an Enhanced Cache Key.
func Build(testName, rawURL string, steps []Step, sig domsig.Signature, profile string) Key {
	return Key{
		TestNameNormalized: normalizer.Normalize(testName).Normalized,
		URLPattern:         ExtractURLPattern(rawURL),
		DOMSignature:        sig.Hash(),
		StepsStructureHash:  StepsStructureHash(steps),
		Profile:             profile,
		Version:             1,
	}
}

// Operation tags a similarity query for the threshold table in spec.md §4.3.
type Operation string

const (
	OpCacheLookup  Operation = "cache_lookup"
	OpTestSearch   Operation = "test_search"
	OpPatternMatch Operation = "pattern_match"
	OpCrossEnv     Operation = "cross_env"
	OpDefault      Operation = "default"
)

var thresholds = map[Operation]float64{
	OpCacheLookup:  0.55,
	OpTestSearch:   0.45,
	OpPatternMatch: 0.50,
	OpCrossEnv:     0.35,
	OpDefault:      0.50,
}

// Threshold returns the admit threshold for op, defaulting to "default".
func Threshold(op Operation) float64 {
	if t, ok := thresholds[op]; ok {
		return t
	}
	return thresholds[OpDefault]
}

// Similarity computes the weighted sum from spec.md §4.3: name 0.35,
// url_pattern 0.20, dom_signature 0.25, steps_structure_hash 0.15,
// profile exact 0.05.
func Similarity(a, b Key, domSim float64) float64 {
	nameSim := normalizer.Jaccard(normalizer.Normalize(a.TestNameNormalized), normalizer.Normalize(b.TestNameNormalized))
	urlSim := boolScore(a.URLPattern == b.URLPattern)
	stepsSim := boolScore(a.StepsStructureHash == b.StepsStructureHash)
	profileSim := boolScore(a.Profile == b.Profile)

	return nameSim*0.35 + urlSim*0.20 + domSim*0.25 + stepsSim*0.15 + profileSim*0.05
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Admit reports whether similarity meets the threshold for op.
func Admit(similarity float64, op Operation) bool {
	return similarity >= Threshold(op)
}
