package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in, symbol, want string
	}{
		{"0", "$", "$0.00"},
		{"5", "$", "$5.00"},
		{"999.999", "$", "$1,000.00"},
		{"1234.5", "$", "$1,234.50"},
		{"1234567.891", "K ", "K 1,234,567.89"},
		{"-42.1", "$", "-$42.10"},
		{"-0.004", "$", "$0.00"},
		{"100000", "", "100,000.00"},
	}
	for _, tc := range cases {
		if got := FormatMoney(decimal.RequireFromString(tc.in), tc.symbol); got != tc.want {
			t.Fatalf("FormatMoney(%s, %q) = %q, want %q", tc.in, tc.symbol, got, tc.want)
		}
	}
}

func TestRoundMoney(t *testing.T) {
	if got := RoundMoney(decimal.RequireFromString("2.345")); !got.Equal(decimal.RequireFromString("2.35")) {
		t.Fatalf("RoundMoney(2.345) = %s", got)
	}
	if got := RoundMoney(decimal.RequireFromString("-2.345")); !got.Equal(decimal.RequireFromString("-2.35")) {
		t.Fatalf("RoundMoney(-2.345) = %s", got)
	}
}
