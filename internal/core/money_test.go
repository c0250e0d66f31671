package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"1", "1"},
		{"50000", "50000"},
		{"1.23", "1.23"},
		{"1,23", "1.23"},
		{" 2.50 ", "2.5"},
		{"", "0"},
		{"abc", "0"},
		{"1.2.3", "0"},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestFormatRupiah(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "Rp0"},
		{"500", "Rp500"},
		{"50000", "Rp50.000"},
		{"50000.5", "Rp50.000,50"},
		{"1234567", "Rp1.234.567"},
		{"123456", "Rp123.456"},
		{"100.00", "Rp100"},
		{"-1500", "-Rp1.500"},
		{"0.125", "Rp0,12"}, // half-even
		{"99999999.99", "Rp99.999.999,99"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := FormatRupiah(decimal.RequireFromString(tc.in))
			if got != tc.want {
				t.Fatalf("FormatRupiah(%s) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWholeAmount(t *testing.T) {
	if got := WholeAmount(decimal.RequireFromString("50000.50")); got != "50000" {
		t.Fatalf("expected 50000, got %q", got)
	}
	if got := WholeAmount(decimal.RequireFromString("75000")); got != "75000" {
		t.Fatalf("expected 75000, got %q", got)
	}
}
