package lease

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numberWords = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
		"eight": 8, "nine": 9, "ten": 10, "fifteen": 15, "twenty": 20,
	}

	// "3 year", "five (5) years", "10-yr", "term of 3 years"
	termPhraseRe = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|fifteen|twenty|\d{1,2})\s*(?:\(\s*(\d{1,2})\s*\)\s*)?-?\s*(?:years?|yrs?)\b`)
	// "36 months"
	termMonthsRe = regexp.MustCompile(`(?i)\b(\d{1,3})\s*-?\s*(?:months?|mos?)\b`)
	// A bare number in a dedicated term column
	bareTermRe = regexp.MustCompile(`^\s*(\d{1,2})\s*$`)
)

// ParseTerm reads a primary term in whole years from a term column or comment text.
// ok is false when no term is stated.
func ParseTerm(text string) (years int, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if m := bareTermRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, n > 0
	}
	if m := termPhraseRe.FindStringSubmatch(text); m != nil {
		if m[2] != "" {
			// the parenthesized digits are the authoritative figure
			n, _ := strconv.Atoi(m[2])
			return n, n > 0
		}
		if n, ok := numberWords[strings.ToLower(m[1])]; ok {
			return n, true
		}
		n, _ := strconv.Atoi(m[1])
		return n, n > 0
	}
	if m := termMonthsRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 && n%12 == 0 {
			return n / 12, true
		}
	}
	return 0, false
}
