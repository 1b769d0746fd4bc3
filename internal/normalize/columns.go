package normalize

import (
	"slices"
	"strings"
	"unicode"

	"github.com/ppiankov/landchain/internal/model"
)

// field is a canonical runsheet column
type field int

const (
	fieldUnknown field = iota
	fieldInstrument
	fieldGrantor
	fieldGrantee
	fieldDated
	fieldRecorded
	fieldLegal
	fieldDocRef
	fieldBook
	fieldPage
	fieldComments
	fieldTerm
	fieldWell
)

// columnRule maps header spellings onto a field. Rules are tried in order, so more
// specific headers ("Instrument No.", "Recorded Date") come before general ones.
type columnRule struct {
	field    field
	exact    []string
	contains []string
}

var columnRules = []columnRule{
	{fieldDocRef,
		[]string{"ref", "docref", "bkpg", "bookpage", "reception", "receptionno", "docno", "instno", "entry", "entryno"},
		[]string{"bookandpage", "bookpage", "reference", "receptionnumber", "documentnumber", "instrumentnumber", "instrumentno", "docnumber", "recordingnumber", "filenumber"}},
	{fieldBook, []string{"book", "bk", "bookno", "booknumber"}, nil},
	{fieldPage, []string{"page", "pg", "pageno", "pagenumber"}, nil},
	{fieldRecorded,
		[]string{"rec", "recd", "filed"},
		[]string{"recorded", "recording", "filed", "filingdate"}},
	{fieldDated,
		[]string{"date", "dated", "docdate", "instdate"},
		[]string{"dated", "executed", "instrumentdate", "documentdate", "effectivedate", "signed"}},
	{fieldGrantor,
		[]string{"from", "seller", "vendor"},
		[]string{"grantor", "lessor", "releasor", "assignor", "mortgagor", "decedent"}},
	{fieldGrantee,
		[]string{"to", "buyer", "vendee"},
		[]string{"grantee", "lessee", "releasee", "assignee", "mortgagee", "heir", "distributee"}},
	{fieldLegal,
		[]string{"legal", "description", "lands", "land", "property", "tract"},
		[]string{"legal", "description", "coveredlands"}},
	{fieldTerm,
		[]string{"term", "primaryterm", "leaseterm", "termyears"},
		[]string{"primaryterm", "leaseterm"}},
	{fieldWell,
		[]string{"well", "wells", "wellname", "wellnames"},
		[]string{"wellname"}},
	{fieldComments,
		[]string{"comments", "comment", "notes", "note", "remarks", "remark", "memo"},
		[]string{"comment", "remark", "notes"}},
	{fieldInstrument,
		[]string{"instrument", "instrumenttype", "type", "doctype", "documenttype", "kind", "inst", "instr", "conveyance"},
		[]string{"instrumenttype", "doctype", "documenttype", "conveyancetype"}},
}

// headerKey lowercases a header and drops everything but letters and digits
func headerKey(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func classify(header string) field {
	k := headerKey(header)
	if k == "" {
		return fieldUnknown
	}
	for _, rule := range columnRules {
		if slices.Contains(rule.exact, k) {
			return rule.field
		}
	}
	for _, rule := range columnRules {
		for _, c := range rule.contains {
			if strings.Contains(k, c) {
				return rule.field
			}
		}
	}
	return fieldUnknown
}

// cells gathers a row's values by canonical field. Headers are visited in sorted
// order and the first non-empty cell wins, so results never depend on map order.
func cells(row model.RawRow) map[field]string {
	headers := make([]string, 0, len(row))
	for h := range row {
		headers = append(headers, h)
	}
	slices.Sort(headers)

	out := make(map[field]string)
	for _, h := range headers {
		v := strings.TrimSpace(strings.ReplaceAll(row[h], "\r\n", "\n"))
		if v == "" {
			continue
		}
		f := classify(h)
		if f == fieldUnknown {
			continue
		}
		if _, ok := out[f]; !ok {
			out[f] = v
		}
	}
	return out
}

// KnownColumn reports whether a header names a runsheet field. Extractors use it
// to tell a runsheet header row from title or caption lines.
func KnownColumn(header string) bool {
	return classify(header) != fieldUnknown
}
