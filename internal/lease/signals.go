package lease

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ppiankov/landchain/internal/model"
)

var (
	asWellRe        = regexp.MustCompile(`(?i)\bas\s+well\b`)
	wellMentionRe   = regexp.MustCompile(`(?i)\bwells?\b`)
	sentenceSplitRe = regexp.MustCompile(`[.;\n]+`)
)

// ProductionSignal scans every tract event for production evidence: well entries,
// production keywords in comments, or production-adjacent instrument names such as
// division orders. It returns a short description of the first evidence found.
func ProductionSignal(events []model.LandRecordEvent, keywords []string) (string, bool) {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		words := strings.Fields(regexp.QuoteMeta(kw))
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+strings.Join(words, `\s+`)+`\b`))
	}

	for _, ev := range events {
		if len(ev.Wells) > 0 {
			return fmt.Sprintf("well %q listed on %s", ev.Wells[0], ev.Ref()), true
		}
		for _, text := range []string{ev.RawType, ev.Comments} {
			text = asWellRe.ReplaceAllString(text, " ")
			for _, p := range patterns {
				if m := p.FindString(text); m != "" {
					return fmt.Sprintf("%q on %s", strings.ToLower(m), ev.Ref()), true
				}
			}
		}
	}
	return "", false
}

// Wells lists well names from well columns and well mentions in comments, in event
// order without duplicates.
func Wells(events []model.LandRecordEvent) []string {
	var out []string
	add := func(w string) {
		w = strings.Join(strings.Fields(w), " ")
		if w != "" && !slices.Contains(out, w) {
			out = append(out, w)
		}
	}

	for _, ev := range events {
		for _, w := range ev.Wells {
			add(w)
		}
		for _, sentence := range sentenceSplitRe.Split(asWellRe.ReplaceAllString(ev.Comments, " "), -1) {
			if wellMentionRe.MatchString(sentence) {
				add(sentence)
			}
		}
	}
	return out
}
