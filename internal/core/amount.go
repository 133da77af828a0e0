package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a spreadsheet cell to a number.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, thousands
// separators when both are present (1.234,56 or 1,234.56) or repeated in
// groups of three (1.234.567 or 1,234,567), a leading sign and a currency
// symbol. Blank or non-numeric input yields an invalid value, which
// aggregation treats as absent.
//
// Examples:
//
//	ParseAmount("12.34")     -> 12.34
//	ParseAmount("1.234,56")  -> 1234.56
//	ParseAmount("1,234,567") -> 1234567
//	ParseAmount("€ 100")     -> 100
//	ParseAmount("n/a")       -> invalid
func ParseAmount(s string) decimal.NullDecimal {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '€' || r == '$' || r == '\'' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.NullDecimal{}
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		// The separator that comes last is the decimal one.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			if !grouped(s, ",") {
				return decimal.NullDecimal{}
			}
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		if !grouped(s, ".") {
			return decimal.NullDecimal{}
		}
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// grouped reports whether s is digits split by sep into thousands groups:
// a leading group of one to three digits, then groups of exactly three.
func grouped(s, sep string) bool {
	parts := strings.Split(strings.TrimLeft(s, "+-"), sep)
	for i, p := range parts {
		if p == "" || len(p) > 3 || (i > 0 && len(p) != 3) {
			return false
		}
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
