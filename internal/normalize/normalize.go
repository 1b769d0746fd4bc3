// Package normalize turns heterogeneous runsheet rows into canonical, chronologically
// ordered land-record events. Malformed rows never stop a run; they are dropped or
// defaulted and reported as flags.
package normalize

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ppiankov/landchain/internal/model"
)

// Normalizer converts raw rows into events
type Normalizer struct {
	dates DateParser
}

// New creates a normalizer using the engine's nominal date for bare years
func New(cfg model.EngineConfig) *Normalizer {
	return &Normalizer{
		dates: DateParser{
			YearOnlyMonth: time.Month(cfg.YearOnlyMonth),
			YearOnlyDay:   cfg.YearOnlyDay,
		},
	}
}

var wellSplitRe = regexp.MustCompile(`[\n;,]+`)

// Normalize returns events sorted by recorded date (falling back to dated date),
// input order preserved for equal dates, rows with unresolvable dates last.
func (n *Normalizer) Normalize(rows []model.RawRow) ([]model.LandRecordEvent, []model.Flag) {
	var events []model.LandRecordEvent
	var flags []model.Flag

	for i, row := range rows {
		ev, rowFlags, ok := n.event(i, row)
		flags = append(flags, rowFlags...)
		if ok {
			events = append(events, ev)
		}
	}

	slices.SortStableFunc(events, func(a, b model.LandRecordEvent) int {
		return model.CompareDates(a.EffectiveDate(), b.EffectiveDate())
	})
	return events, flags
}

// event converts one row. ok is false when the row is dropped.
func (n *Normalizer) event(index int, row model.RawRow) (model.LandRecordEvent, []model.Flag, bool) {
	c := cells(row)
	if len(c) == 0 {
		if blank(row) {
			return model.LandRecordEvent{}, nil, false
		}
		return model.LandRecordEvent{}, []model.Flag{{
			Stage:    model.StageNormalize,
			Severity: model.SeverityWarning,
			Document: model.LandRecordEvent{Index: index}.Ref(),
			Note:     "unparseable event: no recognized columns; row dropped",
		}}, false
	}

	ev := model.LandRecordEvent{
		Index:             index,
		RawType:           c[fieldInstrument],
		LegalDescription:  c[fieldLegal],
		DocumentReference: documentReference(c),
		Comments:          c[fieldComments],
		Term:              c[fieldTerm],
	}

	var flags []model.Flag
	flag := func(sev model.Severity, format string, args ...any) {
		flags = append(flags, model.Flag{
			Stage:    model.StageNormalize,
			Severity: sev,
			Document: ev.Ref(),
			Note:     fmt.Sprintf(format, args...),
		})
	}

	typ, known := DetectInstrument(ev.RawType)
	ev.Instrument = typ
	if !known {
		if ev.RawType == "" {
			flag(model.SeverityWarning, "instrument type missing; excluded from ownership transfer")
		} else {
			flag(model.SeverityWarning, "unknown instrument type %q; excluded from ownership transfer", ev.RawType)
		}
	}

	var issues []string
	ev.Grantors, issues = ParseParties(c[fieldGrantor])
	for _, is := range issues {
		flag(model.SeverityWarning, "grantor %s", is)
	}
	ev.Grantees, issues = ParseParties(c[fieldGrantee])
	for _, is := range issues {
		flag(model.SeverityWarning, "grantee %s", is)
	}

	if ev.Instrument == model.InstrumentPatent {
		if len(ev.Grantees) == 0 {
			flag(model.SeverityWarning, "unparseable event: patent without patentee; row dropped")
			return ev, flags, false
		}
	} else if len(ev.Grantors) == 0 {
		if len(ev.Grantees) == 0 {
			flag(model.SeverityWarning, "unparseable event: no grantor or grantee; row dropped")
		} else {
			flag(model.SeverityWarning, "unparseable event: %s without grantor; row dropped", ev.Instrument.Label())
		}
		return ev, flags, false
	}

	ev.DatedDate = n.date(c[fieldDated], "dated", flag)
	ev.RecordedDate = n.date(c[fieldRecorded], "recorded", flag)
	if !ev.EffectiveDate().Valid() {
		flag(model.SeverityWarning, "unresolvable date; ordered after all dated events")
	}

	if w := c[fieldWell]; w != "" {
		for _, name := range wellSplitRe.Split(w, -1) {
			if name = strings.TrimSpace(name); name != "" {
				ev.Wells = append(ev.Wells, name)
			}
		}
	}

	return ev, flags, true
}

func blank(row model.RawRow) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (n *Normalizer) date(text, label string, flag func(model.Severity, string, ...any)) model.RecordDate {
	if strings.TrimSpace(text) == "" {
		return model.RecordDate{}
	}
	d, ok := n.dates.Parse(text)
	if !ok {
		flag(model.SeverityWarning, "%s date %q could not be parsed", label, text)
	}
	return d
}

// documentReference prefers an explicit reference and otherwise builds one from
// book and page columns.
func documentReference(c map[field]string) string {
	if ref := c[fieldDocRef]; ref != "" {
		return strings.Join(strings.Fields(ref), " ")
	}
	book, page := c[fieldBook], c[fieldPage]
	switch {
	case book != "" && page != "":
		return fmt.Sprintf("Bk %s Pg %s", book, page)
	case book != "":
		return "Bk " + book
	case page != "":
		return "Pg " + page
	default:
		return ""
	}
}
