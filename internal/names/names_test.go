package names

import (
	"slices"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"John Q. Roe, Jr.":     "john q roe jr",
		"  JANE   DOE ":        "jane doe",
		"Smith & Sons Oil Co.": "smith and sons oil co",
		"José Núñez":           "josé núñez",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestVariants_EstateAndSuffix(t *testing.T) {
	got := Variants("Estate of John Q. Roe, Jr.")
	want := []string{"estate of john q roe jr", "john q roe jr", "john q roe", "john roe jr", "john roe"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestVariants_TrailingEstate(t *testing.T) {
	if !slices.Contains(Variants("John Roe Estate"), "john roe") {
		t.Errorf("expected \"john roe\" among variants, got %v", Variants("John Roe Estate"))
	}
}

func TestVariants_LastFirst(t *testing.T) {
	if !slices.Contains(Variants("Roe, John"), "john roe") {
		t.Errorf("expected reordered variant, got %v", Variants("Roe, John"))
	}
	// Not a Last, First form
	if slices.Contains(Variants("John Roe, Jr."), "jr john roe") {
		t.Error("suffix after comma must not be treated as a first name")
	}
}

func TestVariants_KeepsTwoWords(t *testing.T) {
	if slices.Contains(Variants("Grandchild A"), "grandchild") {
		t.Errorf("expected no single-word variant, got %v", Variants("Grandchild A"))
	}
	if got := Variants("Cher"); !slices.Equal(got, []string{"cher"}) {
		t.Errorf("expected single-word name kept, got %v", got)
	}
}

func TestVariants_Empty(t *testing.T) {
	if v := Variants("  ,. "); v != nil {
		t.Errorf("expected nil variants, got %v", v)
	}
}

func TestSubstringMatcher(t *testing.T) {
	m := NewSubstringMatcher()

	matches := [][2]string{
		{"John Roe", "JOHN ROE"},
		{"John Roe", "John Q. Roe"},
		{"John Roe", "Estate of John Roe"},
		{"John Roe", "John Roe Estate"},
		{"John Roe", "John Roe and Mary Roe, husband and wife"},
		{"John Roe", "Roe, John"},
		{"Alice Roe", "Alice Roe, a single woman"},
	}
	for _, pair := range matches {
		if !m.Match(pair[0], pair[1]) {
			t.Errorf("expected %q to match %q", pair[0], pair[1])
		}
	}

	misses := [][2]string{
		{"Alice Roe", "Bob Roe"},
		{"Ann Roe", "Joann Roe"},
		{"Roe", "John Roe"},
		{"Jane Doe", "John Roe"},
		{"", "John Roe"},
		{"Grandchild A", "Grandchild B"},
	}
	for _, pair := range misses {
		if m.Match(pair[0], pair[1]) {
			t.Errorf("expected %q not to match %q", pair[0], pair[1])
		}
	}
}

func TestEditDistanceMatcher(t *testing.T) {
	m := NewEditDistanceMatcher(0.15)

	if !m.Match("Jonathan Roe", "Johnathan Roe") {
		t.Error("expected one-letter OCR variation to match")
	}
	if m.Match("Alice Roe", "Bob Roe") {
		t.Error("expected different first names not to match")
	}
	// Containment alone is not enough for the strict matcher
	if m.Match("John Roe", "John Roe and Mary Roe") {
		t.Error("expected strict matcher to reject containment")
	}
}

func TestLevenshtein(t *testing.T) {
	if d := levenshtein("kitten", "sitting"); d != 3 {
		t.Errorf("expected 3, got %d", d)
	}
	if d := levenshtein("", "abc"); d != 3 {
		t.Errorf("expected 3, got %d", d)
	}
}

func TestMatchAny(t *testing.T) {
	m := NewSubstringMatcher()
	if !MatchAny(m, "John Roe", []string{"Jane Doe", "John Roe"}) {
		t.Error("expected match among candidates")
	}
	if MatchAny(m, "John Roe", nil) {
		t.Error("expected no match for empty candidates")
	}
}
