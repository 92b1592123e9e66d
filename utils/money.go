package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney renders amount with two decimals, thousands separators and a
// leading currency symbol, e.g. "-$1,234.50".
func FormatMoney(amount decimal.Decimal, symbol string) string {
	rounded := amount.Round(2)
	neg := rounded.IsNegative()
	s := rounded.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// RoundMoney rounds half away from zero to cents.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
