// Package names implements tolerant party-name identity. Scanned and OCR'd
// instruments spell the same person many ways, so identity is decided by a
// Matcher over generated name variants rather than byte equality.
package names

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Matcher decides whether two party names refer to the same identity
type Matcher interface {
	Match(a, b string) bool
}

var (
	estatePrefix = regexp.MustCompile(`^(the )?estate of (the late )?`)
	estateSuffix = regexp.MustCompile(` (estate|deceased|decd|dec d)$`)
	spousalTail  = regexp.MustCompile(` (et ux|et vir|et al|husband and wife|his wife|her husband|a single (man|woman|person)|a widow(er)?|jtwros|as joint tenants.*)$`)

	suffixes = map[string]bool{"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "esq": true}
)

// Normalize folds case, applies NFC, drops punctuation and collapses whitespace
func Normalize(name string) string {
	name = norm.NFC.String(name)
	// Casers are stateful and must not be shared between goroutines
	name = cases.Fold().String(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '&':
			b.WriteString(" and ")
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Variants returns the normalized forms a name may appear under, most specific first.
// "Estate of John Q. Roe, Jr." yields "estate of john q roe jr", "john q roe jr",
// "john q roe", "john roe jr" and "john roe".
func Variants(name string) []string {
	base := Normalize(name)
	if base == "" {
		return nil
	}

	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}

	add(base)

	core := reorderLastFirst(name, base)
	core = spousalTail.ReplaceAllString(core, "")
	core = estatePrefix.ReplaceAllString(core, "")
	core = estateSuffix.ReplaceAllString(core, "")
	add(core)

	words := strings.Fields(core)
	// Stripping must leave a full name: "Grandchild A" never becomes "grandchild".
	addStripped := func(ws []string) {
		if len(ws) >= 2 || len(words) < 2 {
			add(strings.Join(ws, " "))
		}
	}
	noSuffix := slices.DeleteFunc(slices.Clone(words), func(w string) bool { return suffixes[w] })
	addStripped(noSuffix)

	noInitials := slices.DeleteFunc(slices.Clone(words), func(w string) bool { return len([]rune(w)) == 1 })
	addStripped(noInitials)

	bare := slices.DeleteFunc(slices.Clone(noSuffix), func(w string) bool { return len([]rune(w)) == 1 })
	addStripped(bare)

	return out
}

// reorderLastFirst turns "Roe, John" into "john roe" when the part before the only
// comma is a single word.
func reorderLastFirst(raw, normalized string) string {
	if strings.Count(raw, ",") != 1 {
		return normalized
	}
	last, first, _ := strings.Cut(raw, ",")
	first = Normalize(first)
	last = Normalize(last)
	if first == "" || last == "" || strings.Contains(last, " ") {
		// "John Roe, Jr." or "John Roe, a single man" are not Last, First
		return normalized
	}
	if suffixes[first] {
		return normalized
	}
	return first + " " + last
}

// SubstringMatcher matches when a variant of one name appears inside a variant of the
// other on word boundaries. Single-word variants only match exactly, so a bare surname
// never captures a whole family.
type SubstringMatcher struct{}

// NewSubstringMatcher returns the default tolerant matcher
func NewSubstringMatcher() *SubstringMatcher {
	return &SubstringMatcher{}
}

// Match implements Matcher
func (m *SubstringMatcher) Match(a, b string) bool {
	va := Variants(a)
	vb := Variants(b)
	for _, x := range va {
		for _, y := range vb {
			if x == y {
				return true
			}
			if containsWords(y, x) || containsWords(x, y) {
				return true
			}
		}
	}
	return false
}

// containsWords reports whether needle occurs in haystack on word boundaries.
// Needles shorter than two words never match partially.
func containsWords(haystack, needle string) bool {
	if !strings.Contains(needle, " ") {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

// EditDistanceMatcher is a stricter alternative: names match when the normalized
// Levenshtein distance between their core variants is at most MaxRatio.
type EditDistanceMatcher struct {
	MaxRatio float64
}

// NewEditDistanceMatcher returns a matcher tolerating the given fraction of edits
func NewEditDistanceMatcher(maxRatio float64) *EditDistanceMatcher {
	if maxRatio < 0 {
		maxRatio = 0
	}
	return &EditDistanceMatcher{MaxRatio: maxRatio}
}

// Match implements Matcher
func (m *EditDistanceMatcher) Match(a, b string) bool {
	for _, x := range Variants(a) {
		for _, y := range Variants(b) {
			longest := max(len([]rune(x)), len([]rune(y)))
			if longest == 0 {
				continue
			}
			if float64(levenshtein(x, y))/float64(longest) <= m.MaxRatio {
				return true
			}
		}
	}
	return false
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// MatchAny reports whether name matches any of the candidates
func MatchAny(m Matcher, name string, candidates []string) bool {
	for _, c := range candidates {
		if m.Match(name, c) {
			return true
		}
	}
	return false
}
