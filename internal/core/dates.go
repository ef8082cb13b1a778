package core

// dates.go parses the dates and months people type into a spreadsheet.
//
// Residents and committee members edit the sheet by hand, so a single column
// ends up holding "05/03/2024", "5-3-24", "5 Mar 2024", "2024-03-05" and
// spreadsheet serial numbers side by side. Reads accept all of them; writes
// always use DateLayout and MonthLayout.

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the canonical date format written to the sheet.
	DateLayout = "2006-01-02"
	// MonthLayout is the canonical billing month format written to the sheet.
	MonthLayout = "2006-01"
)

// ErrInvalidDate is returned when a value cannot be read as a date or month.
var ErrInvalidDate = errors.New("invalid date")

// TwoDigitYearPivot defines how 2-digit years are interpreted. Years more
// than this many years in the future are moved back a century.
var TwoDigitYearPivot = 20

// Day-first layouts: the sheet is kept in dd/mm/yyyy.
var (
	twoDigitYearLayouts = []string{
		"2/1/06", "02/01/06", "2-1-06", "02-01-06", "2.1.06", "02.01.06",
		"2 Jan 06", "2-Jan-06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
		"2 Jan 2006", "02 Jan 2006", "2-Jan-2006", "02-Jan-2006",
		"2 January 2006", "02 January 2006",
		"Jan 2, 2006", "January 2, 2006",
		"20060102",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00", "02/01/2006 15:04:05",
	}
	monthLayouts = []string{
		"2006-01", "2006-1", "2006/01", "2006/1",
		"01/2006", "1/2006", "01-2006", "1-2006",
		"Jan-2006", "Jan 2006", "January 2006", "January-2006", "Jan-06", "Jan 06",
		"200601",
	}
)

// Spreadsheet serial dates count days from 1899-12-30.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseTime reads a sheet date in any accepted format. The result is
// midnight UTC.
func ParseTime(s string) (time.Time, error) {
	s = cleanCell(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return truncateDay(t), nil
		}
	}

	if t, ok := parseSerial(s); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// parseSerial accepts spreadsheet serial day numbers between 1954 and 2119.
func parseSerial(s string) (time.Time, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 20000 || f > 80000 {
		return time.Time{}, false
	}
	return serialEpoch.AddDate(0, 0, int(f)), true
}

// cleanCell strips the artifacts spreadsheets leave around values:
// a leading apostrophe, ="..." formula wrappers and stray quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	}
	s = strings.TrimPrefix(s, "'")
	s = strings.Trim(s, "\"")
	return strings.TrimSpace(s)
}

// Date is a calendar day. The zero Date means "not set" and marshals to null.
type Date struct {
	time.Time
}

// NewDate returns the day containing t.
func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{truncateDay(t.In(time.UTC))}
}

// ParseDate reads a sheet date.
func ParseDate(s string) (Date, error) {
	t, err := ParseTime(s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

// readDate is ParseDate for cells that may be blank or malformed.
func readDate(s string) Date {
	d, _ := ParseDate(s)
	return d
}

// String returns the canonical form, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Month returns the billing month containing d.
func (d Date) Month() Month {
	if d.IsZero() {
		return Month{}
	}
	return Month{Year: d.Year(), Mon: d.Time.Month()}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Month is a billing month.
type Month struct {
	Year int
	Mon  time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

// ParseMonth reads a billing month. Full dates are accepted and reduced to
// their month.
func ParseMonth(s string) (Month, error) {
	s = cleanCell(s)
	if s == "" {
		return Month{}, fmt.Errorf("%w: empty month", ErrInvalidDate)
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	if t, err := ParseTime(s); err == nil {
		return MonthOf(t), nil
	}
	return Month{}, fmt.Errorf("%w: month %q", ErrInvalidDate, s)
}

// MustParseMonth is ParseMonth for constants; it panics on error.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

// IsZero reports whether m is unset.
func (m Month) IsZero() bool { return m.Year == 0 && m.Mon == 0 }

// String returns "2006-01".
func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon))
}

// Label returns a display form such as "March 2024".
func (m Month) Label() string {
	if m.IsZero() {
		return ""
	}
	return m.Mon.String() + " " + strconv.Itoa(m.Year)
}

// index is a monotonically increasing month number.
func (m Month) index() int { return m.Year*12 + int(m.Mon) - 1 }

func monthFromIndex(i int) Month { return Month{Year: i / 12, Mon: time.Month(i%12 + 1)} }

// AddMonths returns m shifted by n months.
func (m Month) AddMonths(n int) Month { return monthFromIndex(m.index() + n) }

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool { return m.index() < o.index() }

// After reports whether m is later than o.
func (m Month) After(o Month) bool { return m.index() > o.index() }

// Start returns the first day of m.
func (m Month) Start() time.Time { return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC) }

// MonthsThrough returns every month from m to end inclusive; empty when end
// is before m.
func (m Month) MonthsThrough(end Month) []Month {
	if end.Before(m) {
		return nil
	}
	out := make([]Month, 0, end.index()-m.index()+1)
	for i := m.index(); i <= end.index(); i++ {
		out = append(out, monthFromIndex(i))
	}
	return out
}

// MonthSpan is the number of months from m to end inclusive.
func (m Month) MonthSpan(end Month) int {
	if end.Before(m) {
		return 0
	}
	return end.index() - m.index() + 1
}

func maxMonth(a, b Month) Month {
	if a.After(b) {
		return a
	}
	return b
}

func (m Month) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

func (m *Month) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
