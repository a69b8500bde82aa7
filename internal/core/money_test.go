package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneySplit(t *testing.T) {
	cases := []struct {
		name  string
		cents int64
		n     int
		parts []int64
	}{
		{"even split", 1200, 3, []int64{400, 400, 400}},
		{"remainder on last", 10000, 3, []int64{3333, 3333, 3334}},
		{"single part", 999, 1, []int64{999}},
		{"one cent short", 100, 3, []int64{33, 33, 34}},
		{"fewer cents than parts", 2, 3, []int64{0, 0, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parts := Money{Cents: tc.cents}.Split(tc.n)
			if len(parts) != len(tc.parts) {
				t.Fatalf("expected %d parts, got %d", len(tc.parts), len(parts))
			}
			var sum int64
			for i, p := range parts {
				if p.Cents != tc.parts[i] {
					t.Errorf("part %d: expected %d, got %d", i, tc.parts[i], p.Cents)
				}
				sum += p.Cents
			}
			if sum != tc.cents {
				t.Errorf("parts sum to %d, want %d", sum, tc.cents)
			}
		})
	}
}

func TestMoneySplitInvalidCount(t *testing.T) {
	if parts := (Money{Cents: 100}).Split(0); parts != nil {
		t.Fatalf("expected nil for n=0, got %v", parts)
	}
	if parts := (Money{Cents: 100}).Split(-1); parts != nil {
		t.Fatalf("expected nil for n=-1, got %v", parts)
	}
}
