// Package legal interprets Public Land Survey System descriptions: it decides whether
// an instrument's lands intersect the target tract and derives tract acreage from
// standard section subdivision rules.
package legal

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MatchResult is the relationship between an event's lands and the tract
type MatchResult int

const (
	NoMatch MatchResult = iota
	ExactMatch
	EventCoversSubsetOfTract
	EventCoversSupersetOfTract
)

func (m MatchResult) String() string {
	switch m {
	case ExactMatch:
		return "exact"
	case EventCoversSubsetOfTract:
		return "subset"
	case EventCoversSupersetOfTract:
		return "superset"
	default:
		return "no_match"
	}
}

// Intersects reports whether the event touches the tract at all
func (m MatchResult) Intersects() bool {
	return m != NoMatch
}

// Description is a parsed legal description
type Description struct {
	Raw string

	Section      string
	Township     string // number only, e.g. "150"
	TownshipDir  string // N or S, empty when not stated
	Range        string
	RangeDir     string // E or W
	WholeSection bool   // section named with no subdivision

	Region     Region // union of aliquot parts
	HasAliquot bool
	Lots       []int

	StatedAcres    decimal.Decimal
	HasStatedAcres bool

	Exceptions   bool     // "less", "except", metes and bounds and the like
	Unrecognized []string // aliquot-looking groups the grid could not place
}

// Interpreted reports whether any rule recognized the description
func (d Description) Interpreted() bool {
	return d.Section != "" || d.HasAliquot || len(d.Lots) > 0 || d.WholeSection
}

// HasSTR reports whether section, township or range was found
func (d Description) HasSTR() bool {
	return d.Section != "" || d.Township != "" || d.Range != ""
}

var (
	fractionRe    = regexp.MustCompile(`(^|[^0-9])1\s*/\s*([24])`)
	slashAliquot  = regexp.MustCompile(`([NSEW]{1,2})\s*/\s*([24])`)
	compactSTRRe  = regexp.MustCompile(`\b(\d{1,2})-(\d{1,3})([NS])?-(\d{1,3})([EW])?\b`)
	sectionRe     = regexp.MustCompile(`\bSEC(?:TION)?S?[\.\s]*(\d{1,2})\b`)
	townshipRe    = regexp.MustCompile(`\bT(?:OWNSHIP|WP|WN)?[\.\s-]*(\d{1,3})[\s-]*(N|S)(?:ORTH|OUTH)?\b\.?`)
	rangeRe       = regexp.MustCompile(`\bR(?:ANGE|GE|NG)?[\.\s-]*(\d{1,3})[\s-]*(E|W)(?:AST|EST)?\b\.?`)
	lotSpan       = `\d+(?:\s*(?:-|THRU|THROUGH|TO)\s*\d+)?`
	lotsRe        = regexp.MustCompile(`\bLOTS?\s+(` + lotSpan + `(?:\s*(?:,|&|AND)\s*` + lotSpan + `)*)`)
	lotRangeRe    = regexp.MustCompile(`^(\d+)\s*(?:-|THRU|THROUGH|TO)\s*(\d+)$`)
	acresRe       = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:GROSS\s+|NET\s+)?(?:ACRES|ACRE|AC)\b\.?`)
	groupSplitRe  = regexp.MustCompile(`[,;&]|\bAND\b`)
	quarterJoinRe = regexp.MustCompile(`\b(NE|NW|SE|SW)\s+4\b`)
	halfJoinRe    = regexp.MustCompile(`\b([NSEW])\s+2\b`)
	nonWordRe     = regexp.MustCompile(`[^A-Z0-9,;&\s]`)

	wordReplacer = strings.NewReplacer(
		"½", "2 ", "¼", "4 ",
	)

	// Longest phrases first so NORTH EAST QUARTER never becomes N E 4.
	phraseRules = []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`\bNORTH\s*EAST\b`), "NE"},
		{regexp.MustCompile(`\bNORTH\s*WEST\b`), "NW"},
		{regexp.MustCompile(`\bSOUTH\s*EAST\b`), "SE"},
		{regexp.MustCompile(`\bSOUTH\s*WEST\b`), "SW"},
		{regexp.MustCompile(`\bNORTH\b`), "N"},
		{regexp.MustCompile(`\bSOUTH\b`), "S"},
		{regexp.MustCompile(`\bEAST\b`), "E"},
		{regexp.MustCompile(`\bWEST\b`), "W"},
		{regexp.MustCompile(`\b(?:QUARTER|QTR|QR)\b`), "4"},
		{regexp.MustCompile(`\bHALF\b`), "2"},
		{regexp.MustCompile(`\b(?:OF|THE)\b`), " "},
	}

	exceptionWords = []string{
		"LESS", "EXCEPT", "EXCEPTING", "METES", "BOUNDS", "TRACT", "PARCEL", "BLOCK",
		"FEET", "FT", "BEGINNING", "COMMENCING", "PART", "PORTION", "PT", "ROW",
	}

	// Descriptions that mean "same lands as above" on a runsheet
	sameAsAbove = map[string]bool{"": true, "SAME": true, "SAA": true, "DO": true, "DITTO": true, "SAME AS ABOVE": true}
)

// Parse interprets a free-text legal description. It never fails; unrecognized text
// yields a Description whose Interpreted reports false.
func Parse(raw string) Description {
	d := Description{Raw: raw}
	text := strings.ToUpper(wordReplacer.Replace(raw))
	text = strings.ReplaceAll(text, "\n", " ")

	text = fractionRe.ReplaceAllString(text, "${1}${2}")
	text = slashAliquot.ReplaceAllString(text, "${1}${2}")

	if m := compactSTRRe.FindStringSubmatch(text); m != nil {
		d.Section = trimZeros(m[1])
		d.Township, d.TownshipDir = trimZeros(m[2]), m[3]
		d.Range, d.RangeDir = trimZeros(m[4]), m[5]
		text = strings.Replace(text, m[0], " ", 1)
	}
	if m := townshipRe.FindStringSubmatch(text); m != nil {
		d.Township, d.TownshipDir = trimZeros(m[1]), m[2]
		text = strings.Replace(text, m[0], " ", 1)
	}
	if m := rangeRe.FindStringSubmatch(text); m != nil {
		d.Range, d.RangeDir = trimZeros(m[1]), m[2]
		text = strings.Replace(text, m[0], " ", 1)
	}
	if m := sectionRe.FindStringSubmatch(text); m != nil {
		d.Section = trimZeros(m[1])
		text = strings.Replace(text, m[0], " ", 1)
	}

	for _, m := range lotsRe.FindAllStringSubmatch(text, -1) {
		d.Lots = append(d.Lots, parseLots(m[1])...)
		text = strings.Replace(text, m[0], " ", 1)
	}
	slices.Sort(d.Lots)
	d.Lots = slices.Compact(d.Lots)

	if m := acresRe.FindStringSubmatch(text); m != nil {
		if v, err := decimal.NewFromString(m[1]); err == nil {
			d.StatedAcres = v
			d.HasStatedAcres = true
		}
		text = strings.Replace(text, m[0], " ", 1)
	}

	for _, rule := range phraseRules {
		text = rule.re.ReplaceAllString(text, rule.repl)
	}
	text = nonWordRe.ReplaceAllString(text, " ")
	text = quarterJoinRe.ReplaceAllString(text, "${1}4")
	text = halfJoinRe.ReplaceAllString(text, "${1}2")

	all := false
	for _, group := range groupSplitRe.Split(text, -1) {
		words := strings.Fields(group)
		var run []string
		flush := func() {
			if len(run) == 0 {
				return
			}
			chain := strings.Join(run, "")
			run = nil
			tokens, ok := aliquotTokens(chain)
			if !ok {
				d.Unrecognized = append(d.Unrecognized, chain)
				return
			}
			region, ok := aliquotRegion(tokens)
			if !ok {
				d.Unrecognized = append(d.Unrecognized, chain)
				return
			}
			d.Region = d.Region.Union(region)
			d.HasAliquot = true
		}
		for _, w := range words {
			if _, ok := aliquotTokens(w); ok {
				run = append(run, w)
				continue
			}
			flush()
			switch {
			case w == "ALL":
				all = true
			case slices.Contains(exceptionWords, w):
				d.Exceptions = true
			}
		}
		flush()
	}

	if d.Section != "" && !d.HasAliquot && len(d.Lots) == 0 && (all || !d.Exceptions) {
		d.WholeSection = true
	}
	return d
}

// aliquotTokens splits "E2NE4" or "NENE" into canonical tokens
func aliquotTokens(s string) ([]string, bool) {
	var tokens []string
	for i := 0; i < len(s); {
		if i+1 < len(s) {
			pair := s[i : i+2]
			switch pair {
			case "NE", "NW", "SE", "SW":
				i += 2
				if i < len(s) && s[i] == '4' {
					i++
				}
				tokens = append(tokens, pair+"4")
				continue
			}
			if strings.ContainsRune("NSEW", rune(s[i])) && s[i+1] == '2' {
				tokens = append(tokens, s[i:i+2])
				i += 2
				continue
			}
		}
		return nil, false
	}
	return tokens, len(tokens) > 0
}

func parseLots(s string) []int {
	var lots []int
	for _, part := range groupSplitRe.Split(s, -1) {
		part = strings.TrimSpace(part)
		if m := lotRangeRe.FindStringSubmatch(part); m != nil {
			lo, _ := strconv.Atoi(m[1])
			hi, _ := strconv.Atoi(m[2])
			for n := lo; n <= hi && n-lo < 64; n++ {
				lots = append(lots, n)
			}
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			lots = append(lots, n)
		}
	}
	return lots
}

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" && s != "" {
		return "0"
	}
	return t
}

// SameAsAbove reports whether the text is a runsheet shorthand for "same lands"
func SameAsAbove(raw string) bool {
	t := strings.Join(strings.Fields(strings.Trim(strings.ToUpper(raw), ".\"' ")), " ")
	return sameAsAbove[t]
}

// Acres derives gross acreage. Aliquot parts use 640/320/160/40-acre arithmetic; lots
// use only a figure stated in the text. The second result is false when no rule applies.
func (d Description) Acres() (decimal.Decimal, bool) {
	switch {
	case len(d.Lots) > 0:
		if !d.HasStatedAcres {
			return decimal.Zero, false
		}
		// Stated acreage on a lot description covers the whole description.
		return d.StatedAcres, true
	case d.HasAliquot:
		return d.Region.Acres(), true
	case d.WholeSection:
		return fullSection().Acres(), true
	default:
		return decimal.Zero, false
	}
}

// area is the part of a section a description covers
type area struct {
	region  Region
	lots    []int
	allLots bool
}

func (d Description) area() area {
	switch {
	case d.WholeSection:
		return area{region: fullSection(), allLots: true}
	default:
		return area{region: d.Region, lots: d.Lots}
	}
}

func (a area) empty() bool {
	return a.region.Empty() && len(a.lots) == 0 && !a.allLots
}

// containsLots reports whether a covers every lot of b
func (a area) containsLots(b area) bool {
	if a.allLots {
		return true
	}
	if b.allLots {
		return false
	}
	for _, l := range b.lots {
		if !slices.Contains(a.lots, l) {
			return false
		}
	}
	return true
}

func (a area) overlapsLots(b area) bool {
	if a.allLots && (b.allLots || len(b.lots) > 0) {
		return true
	}
	if b.allLots && len(a.lots) > 0 {
		return true
	}
	for _, l := range b.lots {
		if slices.Contains(a.lots, l) {
			return true
		}
	}
	return false
}

// sameSection reports whether two descriptions can refer to the same section.
// Parts missing from either side are not held against the match.
func sameSection(a, b Description) bool {
	eq := func(x, y string) bool { return x == "" || y == "" || x == y }
	return eq(a.Section, b.Section) &&
		eq(a.Township, b.Township) && eq(a.TownshipDir, b.TownshipDir) &&
		eq(a.Range, b.Range) && eq(a.RangeDir, b.RangeDir)
}

// Comparison is a match result plus a note for the review list when the result
// rests on an assumption.
type Comparison struct {
	Result MatchResult
	Note   string
}

// Compare relates an event's lands to the tract
func Compare(tract, event Description) Comparison {
	if SameAsAbove(event.Raw) {
		return Comparison{Result: ExactMatch}
	}
	if !event.Interpreted() {
		return Comparison{
			Result: ExactMatch,
			Note:   "legal description could not be interpreted; assumed to cover tract",
		}
	}
	if !tract.Interpreted() {
		return Comparison{
			Result: ExactMatch,
			Note:   "tract description could not be interpreted; event assumed to cover tract",
		}
	}
	if !sameSection(tract, event) {
		return Comparison{Result: NoMatch}
	}

	t, e := tract.area(), event.area()
	if e.empty() || t.empty() {
		// Section-level agreement only, e.g. the event names the section without
		// subdividing it and with an exception.
		return Comparison{
			Result: ExactMatch,
			Note:   "legal description matched on section only; coverage requires manual verification",
		}
	}

	overlap := !t.region.Intersect(e.region).Empty() || t.overlapsLots(e)
	if !overlap {
		return Comparison{Result: NoMatch}
	}

	eventCoversTract := e.region.Contains(t.region) && e.containsLots(t)
	tractCoversEvent := t.region.Contains(e.region) && t.containsLots(e)

	var c Comparison
	switch {
	case eventCoversTract && tractCoversEvent:
		c.Result = ExactMatch
	case eventCoversTract:
		c.Result = EventCoversSupersetOfTract
	default:
		// Partial overlaps are treated as covering part of the tract.
		c.Result = EventCoversSubsetOfTract
	}
	if event.Exceptions {
		c.Note = "legal description contains exceptions; coverage requires manual verification"
	}
	return c
}

// Match parses both descriptions and compares them
func Match(tractDescription, eventDescription string) MatchResult {
	return Compare(Parse(tractDescription), Parse(eventDescription)).Result
}

// OverlapAcres returns the acreage of the tract that also lies inside other. It is
// used to apportion a lease limited by a boundary Pugh clause. Lots make the figure
// unresolvable.
func OverlapAcres(tract, other Description) (decimal.Decimal, bool) {
	if !tract.Interpreted() || !other.Interpreted() {
		return decimal.Zero, false
	}
	if !sameSection(tract, other) {
		return decimal.Zero, true
	}
	if len(tract.Lots) > 0 || len(other.Lots) > 0 {
		return decimal.Zero, false
	}
	t, o := tract.area(), other.area()
	return t.region.Intersect(o.region).Acres(), true
}
