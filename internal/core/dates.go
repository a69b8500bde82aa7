package core

import "time"

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay builds a date in the given month, clamping day values that exceed
// the month length (day 31 in February becomes Feb 28/29).
func ClampDay(year int, month time.Month, day int) Date {
	// Normalize month overflow first (month 13 -> January next year)
	norm := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := LastDayOfMonth(norm.Year(), norm.Month())
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(norm.Year(), int(norm.Month()), day)
}

// AddMonthsClamped advances the date by n months keeping the original
// day-of-month, clamped to the target month's length. Jan 31 + 1 month is
// Feb 28/29, not Mar 2/3.
func AddMonthsClamped(d Date, n int) Date {
	return ClampDay(d.Year(), time.Month(d.Month()+n), d.Day())
}

// FirstOfMonth returns the first-of-month marker for the date's month.
func FirstOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// SameMonth reports whether two dates fall in the same calendar month.
func SameMonth(a, b Date) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
