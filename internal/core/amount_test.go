package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{" 2.50 ", "2.5", true},
		{"-7.5", "-7.5", true},
		{"1.234,56", "1234.56", true},
		{"1,234.56", "1234.56", true},
		{"€ 100", "100", true},
		{"0", "0", true},
		{"", "", false},
		{"   ", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,2,3", "", false},
		{"1.234.567", "1234567", true},
		{"1,234,567", "1234567", true},
		{"-12.345.678", "-12345678", true},
		{"1.234.56", "", false},
		{"12,34,567", "", false},
	}
	for _, tc := range cases {
		got := ParseAmount(tc.in)
		if got.Valid != tc.ok {
			t.Fatalf("%q valid=%v, want %v", tc.in, got.Valid, tc.ok)
		}
		if tc.ok && got.Decimal.String() != tc.out {
			t.Fatalf("%q = %s, want %s", tc.in, got.Decimal.String(), tc.out)
		}
	}
}
