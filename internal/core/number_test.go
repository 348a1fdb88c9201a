package core

import (
	"math"
	"testing"
)

func TestParseCell(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		nan bool
		ok  bool
	}{
		{"1", 1, false, true},
		{"42000.5", 42000.5, false, true},
		{"1,234", 1234, false, true},
		{" 5.2% ", 5.2, false, true},
		{"-0.5", -0.5, false, true},
		{"", 0, true, true},
		{"N/A", 0, true, true},
		{"nan", 0, true, true},
		{"abc", 0, true, false},
		{"1.2.3", 0, true, false},
	}
	for _, tc := range cases {
		got, err := ParseCell(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("%q expected ok=%v, got err=%v", tc.in, tc.ok, err)
		}
		if tc.nan {
			if !math.IsNaN(got) {
				t.Fatalf("%q expected NaN, got %v", tc.in, got)
			}
			continue
		}
		if got != tc.out {
			t.Fatalf("%q expected %v, got %v", tc.in, tc.out, got)
		}
	}
}

func TestParseYearAndMonth(t *testing.T) {
	if y, err := ParseYear("2008"); err != nil || y != 2008 {
		t.Fatalf("expected 2008, got %d (err=%v)", y, err)
	}
	if y, err := ParseYear("2008.0"); err != nil || y != 2008 {
		t.Fatalf("expected 2008 from float cell, got %d (err=%v)", y, err)
	}
	for _, bad := range []string{"", "2008.5", "year", "0"} {
		if _, err := ParseYear(bad); err == nil {
			t.Fatalf("ParseYear(%q) expected error", bad)
		}
	}
	if m, err := ParseMonth(""); err != nil || m != 0 {
		t.Fatalf("empty month expected 0, got %d (err=%v)", m, err)
	}
	if m, err := ParseMonth("12"); err != nil || m != 12 {
		t.Fatalf("expected 12, got %d (err=%v)", m, err)
	}
	for _, bad := range []string{"13", "1.5", "x"} {
		if _, err := ParseMonth(bad); err == nil {
			t.Fatalf("ParseMonth(%q) expected error", bad)
		}
	}
}
