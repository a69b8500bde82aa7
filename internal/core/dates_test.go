package core

import (
	"testing"
	"time"
)

func TestLastDayOfMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2026, time.January, 31},
		{2026, time.February, 28},
		{2028, time.February, 29}, // leap year
		{2026, time.April, 30},
		{2026, time.December, 31},
	}
	for _, tc := range cases {
		if got := LastDayOfMonth(tc.year, tc.month); got != tc.want {
			t.Errorf("LastDayOfMonth(%d, %v) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestClampDay(t *testing.T) {
	cases := []struct {
		name  string
		year  int
		month time.Month
		day   int
		want  Date
	}{
		{"regular day", 2026, time.March, 15, NewDate(2026, 3, 15)},
		{"day 31 in february", 2026, time.February, 31, NewDate(2026, 2, 28)},
		{"day 31 in leap february", 2028, time.February, 31, NewDate(2028, 2, 29)},
		{"month overflow rolls year", 2026, time.Month(13), 10, NewDate(2027, 1, 10)},
		{"day zero clamps to first", 2026, time.June, 0, NewDate(2026, 6, 1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampDay(tc.year, tc.month, tc.day); !got.Equal(tc.want.Time) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAddMonthsClamped(t *testing.T) {
	cases := []struct {
		name string
		from Date
		n    int
		want Date
	}{
		{"simple advance", NewDate(2026, 1, 15), 1, NewDate(2026, 2, 15)},
		{"jan 31 to feb", NewDate(2026, 1, 31), 1, NewDate(2026, 2, 28)},
		{"jan 31 two ahead keeps day", NewDate(2026, 1, 31), 2, NewDate(2026, 3, 31)},
		{"across year boundary", NewDate(2026, 11, 30), 3, NewDate(2027, 2, 28)},
		{"zero months", NewDate(2026, 5, 10), 0, NewDate(2026, 5, 10)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AddMonthsClamped(tc.from, tc.n); !got.Equal(tc.want.Time) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAddMonthsClampedFromOriginalDay(t *testing.T) {
	// Advancing step by step must not compound the clamp: the target day is
	// always derived from the original date, never from a clamped result.
	first := NewDate(2026, 1, 31)
	march := AddMonthsClamped(first, 2)
	if want := NewDate(2026, 3, 31); !march.Equal(want.Time) {
		t.Fatalf("got %v, want %v", march, want)
	}
}

func TestSameMonth(t *testing.T) {
	if !SameMonth(NewDate(2026, 3, 1), NewDate(2026, 3, 31)) {
		t.Error("expected same month")
	}
	if SameMonth(NewDate(2026, 3, 1), NewDate(2027, 3, 1)) {
		t.Error("different years must not match")
	}
}
