// Package money converts storefront minor-unit amounts for display.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var symbols = map[string]string{
	"USD": "$",
	"CAD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Major converts minor units (cents) into a decimal amount in major units.
func Major(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders cents as "$8.00". Unknown currencies fall back to "8.00 XYZ".
func Format(cents int64, currency string) string {
	amount := Major(cents).StringFixed(2)
	code := strings.ToUpper(currency)
	if code == "" {
		code = "USD"
	}
	sym, ok := symbols[code]
	if !ok {
		return amount + " " + code
	}
	if cents < 0 {
		return "-" + sym + Major(-cents).StringFixed(2)
	}
	return sym + amount
}
