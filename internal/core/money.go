// Package core provides money parsing and handling utilities.
//
// Bill amounts travel as JSON numbers (dollars with a fractional part).
// Anything that sums or splits them goes through cents to keep totals exact.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseDecimalToCents converts a decimal string to cents with half-up rounding
// on the third decimal place.
//
// A leading currency sign and thousands separators are accepted:
//
//	ParseDecimalToCents("12.34")     -> 1234, nil
//	ParseDecimalToCents("$1,250.5")  -> 125050, nil
//	ParseDecimalToCents("12.346")    -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ToCents rounds a dollar amount to whole cents.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts cents back to a dollar amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// SplitEvenly divides cents into n parts; the first parts absorb the remainder
// so the parts always add up to the total.
func SplitEvenly(cents int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	parts := make([]int64, n)
	base := cents / int64(n)
	rem := cents % int64(n)
	for i := range parts {
		parts[i] = base
		if int64(i) < rem {
			parts[i]++
		}
	}
	return parts
}

// FormatAmount renders an amount as "$1,234.50"; negatives keep their sign
// in front of the currency symbol.
func FormatAmount(amount float64) string {
	cents := ToCents(amount)
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := "$" + humanize.FormatFloat("#,###.##", FromCents(cents))
	if neg {
		return "-" + s
	}
	return s
}
