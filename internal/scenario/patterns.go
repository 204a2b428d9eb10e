package scenario

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/theRebelliousNerd/selectorcache/internal/normalizer"
)

// patternHash computes SHA-256 over the ordered list of
// {action, normalize(target).normalized} pairs, truncated to 32 hex chars
// (spec.md §4.4 "Save").
func patternHash(steps []Step) string {
	var sb strings.Builder
	for _, s := range steps {
		sb.WriteString(s.Action)
		sb.WriteByte(':')
		sb.WriteString(normalizer.Normalize(s.Target).Normalized)
		sb.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])[:32]
}

// adaptationRules holds the fixed, per-action fallback chain a brittle
// selector can be retried against (spec.md §4.4 "Save": "adaptation rules
// (fixed per action: click fallbacks try text/aria-label/role=button; type
// fallbacks try placeholder/label/name/id/form-context; navigate tries
// relative & base-URL templates)").
var adaptationRules = map[string][]string{
	ActionClick:    {"text", "aria-label", "role=button"},
	ActionType:     {"placeholder", "label", "name", "id", "form-context"},
	ActionNavigate: {"relative", "base-url-template"},
}

// InteractionPattern is the per-action learned fallback profile for a
// derived pattern hash (spec.md §3.1).
type InteractionPattern struct {
	PatternHash       string
	InteractionType   string
	ElementPatterns   []string
	SuccessIndicators []string
	AdaptationRules   []string
	Confidence        float64
	SuccessCount      int
	TotalCount        int
	LearnedFrom       string
	CreatedAt         int64
	LastUsed          int64
}

// derivePatterns builds one InteractionPattern per distinct action present
// in steps, keyed by the scenario's overall pattern hash combined with the
// action (so click/type/navigate patterns for the same scenario remain
// distinct rows under the UNIQUE(action, pattern_hash) constraint).
func derivePatterns(steps []Step, scenarioPatternHash string) []InteractionPattern {
	seen := make(map[string]bool)
	var patterns []InteractionPattern
	for _, step := range steps {
		if seen[step.Action] {
			continue
		}
		seen[step.Action] = true

		elementPatterns := []string{step.Selector}
		successIndicators := []string{step.Description}
		patterns = append(patterns, InteractionPattern{
			PatternHash:       scenarioPatternHash,
			InteractionType:   step.Action,
			ElementPatterns:   elementPatterns,
			SuccessIndicators: successIndicators,
			AdaptationRules:   adaptationRules[step.Action],
			Confidence:        0.5,
			LearnedFrom:       "direct",
		})
	}
	return patterns
}

func marshalStrings(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

func unmarshalStrings(s string) []string {
	var out []string
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}
