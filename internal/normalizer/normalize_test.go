package normalizer

import "testing"

func TestNormalizeEqualAcrossSynonymsAndCase(t *testing.T) {
	a := Normalize("Click the Add Todo button")
	b := Normalize("press add todo")
	if a.Normalized != b.Normalized {
		t.Errorf("expected equal normalized forms, got %q vs %q", a.Normalized, b.Normalized)
	}
	if a.Hash != b.Hash {
		t.Errorf("expected equal hashes, got %q vs %q", a.Hash, b.Hash)
	}
}

func TestNormalizePositionalKeywordsDistinguish(t *testing.T) {
	first := Normalize("Click first Submit")
	last := Normalize("Click last Submit")
	if first.Normalized == last.Normalized {
		t.Errorf("expected distinct normalized forms for first vs last, got %q for both", first.Normalized)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	tests := []string{
		"Click the Add Todo button",
		"Click first Submit",
		"type 'hello world' into the search field",
		"navigate to /todos/123",
	}
	for _, raw := range tests {
		once := Normalize(raw)
		twice := Normalize(once.Normalized)
		if once.Normalized != twice.Normalized {
			t.Errorf("normalize not idempotent for %q: once=%q twice=%q", raw, once.Normalized, twice.Normalized)
		}
	}
}

func TestNormalizeQuotedSuffixPreserved(t *testing.T) {
	r := Normalize("type 'hello world' into the search field")
	if r.Hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if quotedSuffix(r.Normalized) != "hello world" {
		t.Errorf("expected quoted suffix 'hello world', got %q", quotedSuffix(r.Normalized))
	}
}

func TestRepairLocatorSyntax(t *testing.T) {
	cases := map[string]string{
		"a:text(foo)":      "a:has-text(foo)",
		"text(foo)":        "text=foo)",
		"li:first":         "li:first-of-type",
		"li:last":          "li:last-of-type",
		">> first":         ">> nth=0",
		">> last":          ">> nth=-1",
	}
	for in, want := range cases {
		got := repairLocatorSyntax(in)
		if got != want {
			t.Errorf("repairLocatorSyntax(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFuzzyAdmissibleRule(t *testing.T) {
	query := "add new todo item" // len 17, tolerance = 2
	d, ok := FuzzyAdmissible(query, "add new todo itym")
	if d != 1 || !ok {
		t.Errorf("expected distance 1 admissible, got d=%d ok=%v", d, ok)
	}

	short := "add" // len 3, tolerance = 0 -> fuzzy disabled
	d2, ok2 := FuzzyAdmissible(short, "ads")
	if ok2 {
		t.Errorf("expected fuzzy disabled for short query, got d=%d ok=%v", d2, ok2)
	}
}

func TestJaccardBasic(t *testing.T) {
	a := Normalize("add todo item")
	b := Normalize("add todo entry")
	score := Jaccard(a, b)
	if score <= 0 || score >= 1 {
		t.Errorf("expected partial overlap score in (0,1), got %v", score)
	}
}

func TestContextAwareSimilarityConflict(t *testing.T) {
	a := Normalize("enable notifications")
	b := Normalize("disable notifications")
	score := ContextAwareSimilarity(a, b, OpDefault, false)
	if score != -1 {
		t.Errorf("expected conflict sentinel -1, got %v", score)
	}
}

func TestDamerauLevenshteinTransposition(t *testing.T) {
	if d := DamerauLevenshtein("ab", "ba"); d != 1 {
		t.Errorf("expected transposition distance 1, got %d", d)
	}
}
