package core

import (
	"fmt"
	"time"
)

// Date is a calendar day with no time-of-day and no timezone. All dates are
// normalized to midnight UTC so that "2025-03-14" resolves to day 14 of
// month 3 of 2025 no matter what the server-local timezone is.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf extracts the calendar day from t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseLocalDate parses a "YYYY-MM-DD" string into a Date.
func ParseLocalDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("%w: malformed date %q", ErrInvalidInput, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	return nil
}

// Day returns the 1-indexed day of the month.
func (d Date) Day() int { return d.Time.Day() }

// Month returns the month as 1..12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Year returns the calendar year.
func (d Date) Year() int { return d.Time.Year() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// MonthStart returns the first instant of the given month in UTC. Rollover
// eligibility is decided against this boundary.
func MonthStart(month, year int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// lastDayOfMonth uses the zeroth day of the next month, which the calendar
// normalizes to the actual month length (28-31).
func lastDayOfMonth(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysRemainingInMonth returns the number of days left in d's month after d
// itself, using the real month length rather than a fixed 30.
func DaysRemainingInMonth(d Date) int {
	return lastDayOfMonth(d.Month(), d.Year()) - d.Day()
}

// DaysElapsedInMonth returns the 1-indexed day-of-month of d.
func DaysElapsedInMonth(d Date) int {
	return d.Day()
}
