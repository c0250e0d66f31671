// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing user-entered amounts and
// formatting them the way Indonesian receipts and banking apps print Rupiah.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered amount into a decimal.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Any input that cannot be parsed yields zero; the caller never sees an error.
//
// Examples:
//
//	ParseAmount("50000")  -> 50000
//	ParseAmount("12,5")   -> 12.5
//	ParseAmount("abc")    -> 0
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatRupiah formats an amount as Indonesian currency, e.g. "Rp50.000".
//
// The amount is rounded half-to-even to two decimals. Periods group thousands
// and a comma separates decimals; a ",00" fraction is dropped.
func FormatRupiah(amount decimal.Decimal) string {
	rounded := amount.RoundBank(2)
	neg := rounded.IsNegative()
	if neg {
		rounded = rounded.Neg()
	}

	fixed := rounded.StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("Rp")
	b.WriteString(groupThousands(intPart))
	if fracPart != "00" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// WholeAmount returns the integer part of an amount as a plain string, the
// form the mobile client puts into its amount field.
func WholeAmount(amount decimal.Decimal) string {
	return amount.Truncate(0).String()
}
