// Package currency normalises money strings extracted from heterogeneous
// documents into a canonical float amount.
package currency

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Parse returns the amount encoded in raw and whether anything usable was found.
//
// Both "1.234,56" and "1,234.56" conventions are accepted: when both separators
// occur, whichever occurs last is the decimal point and every earlier separator
// is grouping. A single kind of separator is grouping when it repeats or when
// every occurrence is followed by exactly three digits ("20,000", "1.234.567");
// otherwise it is the decimal point ("12,5"). Negative amounts, written with a
// leading minus or in parentheses, are rejected.
func Parse(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case (r >= '0' && r <= '9') || r == '.' || r == ',':
			b.WriteRune(r)
		case b.Len() == 0 && (r == '-' || r == '(' || r == '\u2212'):
			return 0, false
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}

	decimalAt := -1
	lastComma, lastDot := strings.LastIndexByte(s, ','), strings.LastIndexByte(s, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0:
		decimalAt = max(lastComma, lastDot)
	case lastComma >= 0:
		if !grouping(s, ',') {
			decimalAt = lastComma
		}
	case lastDot >= 0:
		if !grouping(s, '.') {
			decimalAt = lastDot
		}
	}

	var n strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case i == decimalAt:
			n.WriteByte('.')
		case c == ',' || c == '.':
			// grouping
		default:
			n.WriteByte(c)
		}
	}

	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// grouping reports whether sep, the only separator kind in s, groups
// thousands rather than marking the decimal point.
func grouping(s string, sep byte) bool {
	parts := strings.Split(s, string(sep))
	if len(parts) > 2 {
		return true
	}
	lead := parts[0]
	if lead == "" || len(lead) > 3 || lead[0] == '0' {
		return false
	}
	return len(parts[1]) == 3
}

// ParseAmount is the total form of Parse: 0 means "no amount found".
func ParseAmount(raw string) float64 {
	v, _ := Parse(raw)
	return v
}

var printer = message.NewPrinter(language.English)

// FormatUSD renders an amount in the financial summary literal form,
// e.g. "USD $20,000" or "USD $1,234.56".
func FormatUSD(amount float64) string {
	rounded := math.Round(amount*100) / 100
	if rounded == math.Trunc(rounded) {
		return printer.Sprintf("USD $%d", int64(rounded))
	}
	return printer.Sprintf("USD $%.2f", rounded)
}
