// Package calendar describes the weekly teaching grid: six working days and eight periods.
package calendar

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/faculty-timetable-api/pkg/errors"
)

// Weekday is a teaching day.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
)

const (
	FirstPeriod = 1
	LastPeriod  = 8

	DateLayout = "2006-01-02"
)

var weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// Period is one teaching slot with its clock times.
type Period struct {
	Number int    `json:"number"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

var periods = []Period{
	{Number: 1, Start: "09:00", End: "09:50"},
	{Number: 2, Start: "09:50", End: "10:40"},
	{Number: 3, Start: "10:50", End: "11:40"},
	{Number: 4, Start: "11:40", End: "12:30"},
	{Number: 5, Start: "13:10", End: "14:00"},
	{Number: 6, Start: "14:00", End: "14:50"},
	{Number: 7, Start: "15:00", End: "15:50"},
	{Number: 8, Start: "15:50", End: "16:40"},
}

// Weekdays returns MONDAY..SATURDAY in order.
func Weekdays() []Weekday {
	out := make([]Weekday, len(weekdays))
	copy(out, weekdays)
	return out
}

// Periods returns the eight periods in order.
func Periods() []Period {
	out := make([]Period, len(periods))
	copy(out, periods)
	return out
}

// PeriodByNumber looks up a period.
func PeriodByNumber(n int) (Period, bool) {
	if !ValidPeriod(n) {
		return Period{}, false
	}
	return periods[n-1], true
}

// ValidPeriod reports whether n is within 1..8.
func ValidPeriod(n int) bool {
	return n >= FirstPeriod && n <= LastPeriod
}

// Index returns 1 for MONDAY through 6 for SATURDAY, 0 for unknown days.
func (d Weekday) Index() int {
	for i, w := range weekdays {
		if w == d {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether d is a teaching day.
func (d Weekday) Valid() bool {
	return d.Index() > 0
}

func (d Weekday) String() string {
	return string(d)
}

// ParseWeekday accepts any casing of a weekday name.
func ParseWeekday(raw string) (Weekday, error) {
	day := Weekday(strings.ToUpper(strings.TrimSpace(raw)))
	if !day.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid day %q", raw))
	}
	return day, nil
}

// WeekdayOf maps a calendar date to its teaching day. Sundays have no classes.
func WeekdayOf(date time.Time) (Weekday, error) {
	switch date.Weekday() {
	case time.Monday:
		return Monday, nil
	case time.Tuesday:
		return Tuesday, nil
	case time.Wednesday:
		return Wednesday, nil
	case time.Thursday:
		return Thursday, nil
	case time.Friday:
		return Friday, nil
	case time.Saturday:
		return Saturday, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "no classes on sunday")
	}
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	return date, nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
