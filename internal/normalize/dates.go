package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/landchain/internal/model"
)

// twoDigitPivot maps two-digit years below it into the 2000s and the rest into the 1900s
const twoDigitPivot = 50

var (
	isoDateRe   = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	usDateRe    = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{2}|\d{4})$`)
	bareYearRe  = regexp.MustCompile(`^(?:ca\.?\s*|circa\s+)?(\d{4})$`)
	serialRe    = regexp.MustCompile(`^\d{5}$`)
	timeOfDayRe = regexp.MustCompile(`[T\s]\d{1,2}:\d{2}(:\d{2})?(\.\d+)?\s*(Z|[AaPp][Mm]|[+-]\d{2}:?\d{2})?$`)

	septRe = regexp.MustCompile(`(?i)\bsept\b`)

	monthLayouts = []struct {
		layout   string
		dayKnown bool
	}{
		{"January 2 2006", true},
		{"Jan 2 2006", true},
		{"2 January 2006", true},
		{"2 Jan 2006", true},
		{"January 2006", false},
		{"Jan 2006", false},
	}

	// spreadsheet day zero for serial dates
	serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
)

// DateParser resolves the date spellings found on runsheets
type DateParser struct {
	YearOnlyMonth time.Month
	YearOnlyDay   int
}

// Parse interprets s as ISO, US, month-name, spreadsheet-serial or bare-year text.
// The second result is false when s is empty or no layout fits.
func (p DateParser) Parse(s string) (model.RecordDate, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.RecordDate{}, false
	}
	s = timeOfDayRe.ReplaceAllString(s, "")

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return exactDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := usDateRe.FindStringSubmatch(s); m != nil {
		year := atoi(m[3])
		if len(m[3]) == 2 {
			if year < twoDigitPivot {
				year += 2000
			} else {
				year += 1900
			}
		}
		return exactDate(year, atoi(m[1]), atoi(m[2]))
	}

	if m := bareYearRe.FindStringSubmatch(strings.ToLower(s)); m != nil {
		month, day := p.YearOnlyMonth, p.YearOnlyDay
		if month == 0 {
			month, day = time.July, 1
		}
		return model.NewYearOnly(atoi(m[1]), month, day), true
	}

	if serialRe.MatchString(s) {
		n := atoi(s)
		if n > 0 {
			return model.DateFromTime(serialEpoch.AddDate(0, 0, n)), true
		}
	}

	cleaned := strings.NewReplacer(",", " ", ".", " ").Replace(s)
	cleaned = septRe.ReplaceAllString(cleaned, "Sep")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	for _, ml := range monthLayouts {
		t, err := time.Parse(ml.layout, cleaned)
		if err != nil {
			continue
		}
		if !ml.dayKnown {
			return model.NewMonthOnly(t.Year(), t.Month()), true
		}
		return model.DateFromTime(t), true
	}

	return model.RecordDate{}, false
}

func exactDate(year, month, day int) (model.RecordDate, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return model.RecordDate{}, false
	}
	d := model.NewDate(year, time.Month(month), day)
	if d.Time.Day() != day {
		// February 30 and friends normalize into the next month
		return model.RecordDate{}, false
	}
	return d, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
