// Package calendar holds the naive calendar date used at the API boundary.
// Dates carry no timezone. Where an instant is needed, a date maps to
// 00:00 UTC of that day.
package calendar

import (
	"fmt"
	"regexp"
	"time"

	"github.com/sawpanic/astrorun/internal/domain"
)

const layout = "2006-01-02"

var (
	datePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthDayPattern  = regexp.MustCompile(`^\d{2}-\d{2}$`)
	clockTimePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Days before each month on a leap-year scale, so 02-29 has its own ordinal.
var daysBefore = [12]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335}

// Date is a calendar date without time of day or zone, packed as
// year<<16 | month<<8 | day so that dates compare with ==.
type Date uint32

// NewDate returns the date for y-m-d. It does not validate.
func NewDate(year int, month time.Month, day int) Date {
	return Date(uint32(year)<<16 | uint32(month)<<8 | uint32(day))
}

// FromTime takes the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func (d Date) Year() int { return int(d >> 16) }

func (d Date) Month() time.Month { return time.Month((d >> 8) & 0xff) }

func (d Date) Day() int { return int(d & 0xff) }

// Parse reads a strict YYYY-MM-DD date. Empty text yields today's date
// according to now.
func Parse(text string, now func() time.Time) (Date, error) {
	if text == "" {
		if now == nil {
			now = time.Now
		}
		return FromTime(now()), nil
	}

	if !datePattern.MatchString(text) {
		return 0, invalidDate(text, fmt.Errorf("expected YYYY-MM-DD"))
	}
	t, err := time.Parse(layout, text)
	if err != nil {
		return 0, invalidDate(text, err)
	}
	return FromTime(t), nil
}

// MustParse is Parse for literals in tests and tables.
func MustParse(text string) Date {
	d, err := Parse(text, nil)
	if err != nil {
		panic(err)
	}
	return d
}

func invalidDate(text string, cause error) error {
	return &domain.Error{
		Kind:  domain.KindInvalidDateFormat,
		Op:    "parse date",
		Input: text,
		Err:   cause,
	}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), int(d.Month()), d.Day())
}

// MonthDay formats the date as MM-DD, ignoring the year.
func (d Date) MonthDay() string {
	return fmt.Sprintf("%02d-%02d", int(d.Month()), d.Day())
}

// Ordinal is the day number of the date's month-day on the 1..366 scale.
func (d Date) Ordinal() int {
	return Ordinal(d.Month(), d.Day())
}

// Midnight is 00:00 UTC on the date.
func (d Date) Midnight() time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// At is the UTC instant offset from midnight by clock.
func (d Date) At(clock time.Duration) time.Time {
	return d.Midnight().Add(clock)
}

// Ordinal maps a month and day to a fixed leap-year day-of-year in 1..366.
func Ordinal(month time.Month, day int) int {
	return daysBefore[int(month)-1] + day
}

// ParseMonthDay reads "MM-DD" into its ordinal.
func ParseMonthDay(text string) (int, error) {
	if !monthDayPattern.MatchString(text) {
		return 0, fmt.Errorf("invalid month-day %q", text)
	}
	// 2024 is a leap year, so 02-29 parses.
	t, err := time.Parse(layout, "2024-"+text)
	if err != nil {
		return 0, fmt.Errorf("invalid month-day %q: %w", text, err)
	}
	return Ordinal(t.Month(), t.Day()), nil
}

// ParseClock reads "HH:MM" into an offset from midnight.
func ParseClock(text string) (time.Duration, error) {
	if !clockTimePattern.MatchString(text) {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", text)
	}
	t, err := time.Parse("15:04", text)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", text, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
