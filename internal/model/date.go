package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// DateLayout is the rendering layout for exact dates
const DateLayout = "2006-01-02"

// MonthLayout is the rendering layout for month-precision dates
const MonthLayout = "2006-01"

// RecordDate is a calendar date from a land record. A bare year is stored at a
// nominal mid-year date and a month-year at the first of the month; neither is
// ever rendered as an exact day.
type RecordDate struct {
	Time      time.Time
	YearOnly  bool
	MonthOnly bool
}

// NewDate returns an exact calendar date (UTC midnight)
func NewDate(year int, month time.Month, day int) RecordDate {
	return RecordDate{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// NewYearOnly returns a bare-year date anchored at the given nominal month/day
func NewYearOnly(year int, month time.Month, day int) RecordDate {
	return RecordDate{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), YearOnly: true}
}

// NewMonthOnly returns a month-precision date anchored at the first of the month
func NewMonthOnly(year int, month time.Month) RecordDate {
	return RecordDate{Time: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), MonthOnly: true}
}

// DateFromTime truncates t to its calendar day
func DateFromTime(t time.Time) RecordDate {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Valid reports whether the date was resolved
func (d RecordDate) Valid() bool {
	return !d.Time.IsZero()
}

// Approximate reports whether the day (or the month) was never given
func (d RecordDate) Approximate() bool {
	return d.YearOnly || d.MonthOnly
}

// AddYears returns the date n years later, keeping the precision markers
func (d RecordDate) AddYears(n int) RecordDate {
	if !d.Valid() {
		return d
	}
	return RecordDate{Time: d.Time.AddDate(n, 0, 0), YearOnly: d.YearOnly, MonthOnly: d.MonthOnly}
}

// Before reports whether d is strictly before o. Unresolved dates are never before anything.
func (d RecordDate) Before(o RecordDate) bool {
	if !d.Valid() {
		return false
	}
	if !o.Valid() {
		return true
	}
	return d.Time.Before(o.Time)
}

// CompareDates orders resolved dates ascending and unresolved dates last
func CompareDates(a, b RecordDate) int {
	switch {
	case !a.Valid() && !b.Valid():
		return 0
	case !a.Valid():
		return 1
	case !b.Valid():
		return -1
	default:
		return a.Time.Compare(b.Time)
	}
}

func (d RecordDate) String() string {
	if !d.Valid() {
		return ""
	}
	switch {
	case d.YearOnly:
		return strconv.Itoa(d.Time.Year())
	case d.MonthOnly:
		return d.Time.Format(MonthLayout)
	}
	return d.Time.Format(DateLayout)
}

// MarshalJSON renders "2006-01-02", "2006-01" for month-only dates, a bare "1900"
// for year-only dates, or null
func (d RecordDate) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}
