// Package core provides the itinerary entry model.
//
// This file contains cost coercion and yen formatting helpers.
package core

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var yenPrinter = message.NewPrinter(language.Japanese)

// MaxCost is the largest amount a single entry can carry. Larger input is
// clamped to it so that sums over a whole itinerary cannot overflow.
const MaxCost int64 = 999_999_999_999

// ParseCost coerces raw cost input to a non-negative whole amount.
//
// Empty input is zero. Anything that is not a finite number, or is negative,
// coerces to zero rather than failing; fractional amounts are truncated and
// amounts above MaxCost are clamped to it.
//
// Examples:
//
//	ParseCost("1500")  -> 1500
//	ParseCost(" 980 ") -> 980
//	ParseCost("12.9")  -> 12
//	ParseCost("-5")    -> 0
//	ParseCost("abc")   -> 0
//	ParseCost("1e300") -> MaxCost
func ParseCost(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f >= float64(MaxCost) {
		return MaxCost
	}
	return int64(f)
}

// FormatYen renders an amount with thousands separators, e.g. "¥1,500".
func FormatYen(amount int64) string {
	if amount < 0 {
		return "-¥" + yenPrinter.Sprintf("%d", -amount)
	}
	return "¥" + yenPrinter.Sprintf("%d", amount)
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
