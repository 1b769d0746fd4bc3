package normalize

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ppiankov/landchain/internal/model"
)

var (
	partySplitRe   = regexp.MustCompile(`[\n;]+`)
	parenRe        = regexp.MustCompile(`\(([^)]*)\)`)
	fractionTokRe  = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
	percentTokRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:%|percent\b|pct\b)`)
	decimalTokRe   = regexp.MustCompile(`^(?:0?\.\d+|1(?:\.0+)?|0)$`)
	lifeEstateRe   = regexp.MustCompile(`(?i)\blife\s+(estate|tenant)\b|^l\.?\s?e\.?$`)
	remaindermanRe = regexp.MustCompile(`(?i)\bremainderm[ae]n\b|^remainder$|^r\.?\s?m\.?$`)
	trailingQualRe = regexp.MustCompile(`(?i)[,\s]+(?:as\s+|a\s+)?(life\s+estate|life\s+tenant|remainderm[ae]n)\s*$`)
)

// ParseParties splits a multi-party cell into parties. One party per line (or per
// semicolon); interest tokens appear in parentheses after the name. The second
// result lists tokens that could not be used.
func ParseParties(text string) ([]model.Party, []string) {
	var parties []model.Party
	var issues []string

	for _, line := range partySplitRe.Split(text, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		p := model.Party{}
		var tokens []string
		for _, m := range parenRe.FindAllStringSubmatch(line, -1) {
			if tok := strings.TrimSpace(m[1]); tok != "" {
				tokens = append(tokens, tok)
			}
		}
		name := parenRe.ReplaceAllString(line, " ")

		if m := trailingQualRe.FindStringSubmatch(name); m != nil {
			tokens = append(tokens, m[1])
			name = name[:len(name)-len(m[0])]
		}

		p.Name = strings.Trim(strings.Join(strings.Fields(name), " "), " ,-")
		if p.Name == "" {
			if len(tokens) > 0 {
				issues = append(issues, fmt.Sprintf("interest token %q has no party name", strings.Join(tokens, "; ")))
			}
			continue
		}

		for _, tok := range tokens {
			if issue := applyToken(&p, tok); issue != "" {
				issues = append(issues, fmt.Sprintf("%s: %s", p.Name, issue))
			}
		}
		if len(tokens) > 0 {
			p.Interest = strings.Join(tokens, "; ")
		}
		parties = append(parties, p)
	}

	return parties, issues
}

// applyToken records one parenthetical token on the party
func applyToken(p *model.Party, tok string) string {
	t := strings.TrimSpace(tok)

	switch {
	case lifeEstateRe.MatchString(t):
		p.Qualifier = model.QualifierLifeEstate
	case remaindermanRe.MatchString(t):
		p.Qualifier = model.QualifierRemainderman
	}

	frac, ok, err := parseShare(t)
	if err != nil {
		return err.Error()
	}
	if !ok {
		// Tokens such as "et ux" or "Trustee" carry no share
		return ""
	}
	if p.Fraction != nil {
		return fmt.Sprintf("multiple interest tokens; kept %s", p.Fraction.RatString())
	}
	p.Fraction = frac
	return ""
}

// parseShare reads a fraction, percentage or decimal share. ok is false when the
// token holds no share at all.
func parseShare(tok string) (*big.Rat, bool, error) {
	lower := strings.ToLower(tok)
	var r *big.Rat

	switch {
	case lower == "all" || lower == "100%" || lower == "entire" || lower == "whole":
		r = big.NewRat(1, 1)
	case percentTokRe.MatchString(lower):
		m := percentTokRe.FindStringSubmatch(lower)
		v, ok := new(big.Rat).SetString(m[1])
		if !ok {
			return nil, false, fmt.Errorf("unreadable percentage %q", tok)
		}
		r = v.Quo(v, big.NewRat(100, 1))
	case fractionTokRe.MatchString(lower):
		m := fractionTokRe.FindStringSubmatch(lower)
		num, _ := new(big.Int).SetString(m[1], 10)
		den, _ := new(big.Int).SetString(m[2], 10)
		if den.Sign() == 0 {
			return nil, false, fmt.Errorf("zero denominator in %q", tok)
		}
		r = new(big.Rat).SetFrac(num, den)
	case decimalTokRe.MatchString(lower):
		v, ok := new(big.Rat).SetString(lower)
		if !ok {
			return nil, false, fmt.Errorf("unreadable decimal %q", tok)
		}
		r = v
	default:
		return nil, false, nil
	}

	if r.Sign() <= 0 || r.Cmp(big.NewRat(1, 1)) > 0 {
		return nil, false, fmt.Errorf("interest %q is outside (0, 1]", tok)
	}
	return r, true, nil
}
