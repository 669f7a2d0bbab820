package core

import "testing"

func TestParseCost(t *testing.T) {
	cases := []struct {
		in  string
		out int64
	}{
		{"1500", 1500},
		{" 980 ", 980},
		{"0", 0},
		{"", 0},
		{"12.9", 12},
		{"1e3", 1000},
		{"-5", 0},
		{"-0.5", 0},
		{"abc", 0},
		{"1,000", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"1e300", MaxCost},
		{"9223372036854775807", MaxCost},
		{"999999999999", MaxCost},
		{"999999999998.7", 999999999998},
	}
	for _, tc := range cases {
		if got := ParseCost(tc.in); got != tc.out {
			t.Fatalf("%q expected %d, got %d", tc.in, tc.out, got)
		}
	}
}

func TestFormatYen(t *testing.T) {
	cases := []struct {
		in  int64
		out string
	}{
		{0, "¥0"},
		{500, "¥500"},
		{1500, "¥1,500"},
		{1234567, "¥1,234,567"},
		{-2000, "-¥2,000"},
	}
	for _, tc := range cases {
		if got := FormatYen(tc.in); got != tc.out {
			t.Fatalf("%d expected %q, got %q", tc.in, tc.out, got)
		}
	}
}
