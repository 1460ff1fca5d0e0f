package core

import (
	"testing"
	"time"
)

func TestParseLocalDate(t *testing.T) {
	d, err := ParseLocalDate("2025-03-14")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2025 || d.Month() != 3 || d.Day() != 14 {
		t.Fatalf("got %d-%d-%d", d.Year(), d.Month(), d.Day())
	}

	bads := []string{"", "2025-13-01", "2025-02-30", "14/03/2025", "2025-3-14"}
	for _, s := range bads {
		if _, err := ParseLocalDate(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestDateOfIgnoresTimezone(t *testing.T) {
	// The same calendar day in any timezone must produce the identical
	// stored day, including instants near midnight.
	zones := []string{"UTC", "America/New_York", "Asia/Tokyo", "Pacific/Kiritimati"}
	for _, name := range zones {
		loc, err := time.LoadLocation(name)
		if err != nil {
			t.Skipf("zone %s unavailable: %v", name, err)
		}
		instant := time.Date(2025, 1, 31, 23, 30, 0, 0, loc)
		d := DateOf(instant)
		if d.Year() != 2025 || d.Month() != 1 || d.Day() != 31 {
			t.Fatalf("zone %s: got %s", name, d)
		}
	}

	parsed, err := ParseLocalDate("2025-01-31")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(NewDate(2025, 1, 31).Time) {
		t.Fatalf("parsed %s != constructed date", parsed)
	}
}

func TestDaysRemainingInMonth(t *testing.T) {
	cases := []struct {
		d    Date
		want int
	}{
		{NewDate(2025, 1, 1), 30},  // January has 31 days
		{NewDate(2025, 1, 31), 0},  // last day
		{NewDate(2025, 2, 14), 14}, // February 2025 has 28 days
		{NewDate(2024, 2, 14), 15}, // leap year
		{NewDate(2025, 4, 30), 0},  // April has 30 days
		{NewDate(2025, 4, 15), 15},
	}
	for i, tc := range cases {
		if got := DaysRemainingInMonth(tc.d); got != tc.want {
			t.Fatalf("case %d (%s): got %d, want %d", i, tc.d, got, tc.want)
		}
	}
}

func TestDaysElapsedInMonth(t *testing.T) {
	if got := DaysElapsedInMonth(NewDate(2025, 6, 1)); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	if got := DaysElapsedInMonth(NewDate(2025, 6, 21)); got != 21 {
		t.Fatalf("got %d, want 21", got)
	}
}

func TestMonthStart(t *testing.T) {
	got := MonthStart(3, 2025)
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}
