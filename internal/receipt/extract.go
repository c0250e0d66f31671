// Package receipt turns photographed receipts into a transaction amount.
//
// The extraction heuristic targets Indonesian receipts: periods group
// thousands, a comma separates decimals, and the total is usually the largest
// currency-like figure printed on the slip.
package receipt

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	idrAmount = regexp.MustCompile(`(?i)(?:Rp\.?\s*)?([0-9]{1,3}(?:\.[0-9]{3})*(?:,[0-9]{1,2})?)`)

	// Candidates at or above this are phone numbers, account ids and the like.
	noiseCap = decimal.NewFromInt(100_000_000)
)

// ExtractTotal returns the most likely total printed in OCR text.
//
// Every IDR-formatted number on every line is a candidate; the largest one
// under the noise cap wins. The boolean is false when nothing survives.
func ExtractTotal(text string) (decimal.Decimal, bool) {
	best := decimal.Zero
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, m := range idrAmount.FindAllStringSubmatchIndex(line, -1) {
			start, end := m[2], m[3]
			if start < 0 || partOfBareRun(line, start, end) {
				continue
			}
			value, ok := parseIDR(line[start:end])
			if !ok {
				continue
			}
			if value.GreaterThan(best) && value.LessThan(noiseCap) {
				best = value
			}
		}
	}
	if !best.IsPositive() {
		return decimal.Zero, false
	}
	return best, true
}

// partOfBareRun reports whether line[start:end] is a slice of an unformatted
// digit run like "250000000": it has no separators and touches another digit.
// Formatted tokens such as "50.000,50" in "50.000,505" are kept.
func partOfBareRun(line string, start, end int) bool {
	if strings.ContainsAny(line[start:end], ".,") {
		return false
	}
	if start > 0 && isDigit(line[start-1]) {
		return true
	}
	return end < len(line) && isDigit(line[end])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// parseIDR converts "1.234.567,89" to 1234567.89.
func parseIDR(token string) (decimal.Decimal, bool) {
	normalized := strings.ReplaceAll(token, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
