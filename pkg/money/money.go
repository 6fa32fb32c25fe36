// Package money converts between decimal currency strings and YNAB milliunits.
//
// All arithmetic is done with exact decimals. Rounding is half-up (away from
// zero) at the hundredths boundary, matching how both services present cents.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when an amount string cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// Milliunits per major currency unit.
const Milliunits = 1000

var (
	thousand      = decimal.NewFromInt(Milliunits)
	two           = decimal.NewFromInt(2)
	minMilliunits = decimal.NewFromInt(math.MinInt64)
	maxMilliunits = decimal.NewFromInt(math.MaxInt64)
)

// Parse parses a decimal amount such as "12.34". An empty string is zero.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ToMilliunits converts a decimal amount string to milliunits.
// The value is rounded half-up to cents before it is scaled.
func ToMilliunits(s string) (int64, error) {
	d, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return DecimalToMilliunits(d)
}

// DecimalToMilliunits rounds d to cents and scales it by 1000. Amounts
// whose milliunits do not fit in an int64 are rejected.
func DecimalToMilliunits(d decimal.Decimal) (int64, error) {
	m := d.Round(2).Mul(thousand)
	if m.LessThan(minMilliunits) || m.GreaterThan(maxMilliunits) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, d.String())
	}
	return m.IntPart(), nil
}

// FromMilliunits converts milliunits to a decimal rounded half-up to cents.
func FromMilliunits(m int64) decimal.Decimal {
	return decimal.NewFromInt(m).Div(thousand).Round(2)
}

// AbsFromMilliunits is FromMilliunits of the absolute value.
func AbsFromMilliunits(m int64) decimal.Decimal {
	return FromMilliunits(m).Abs()
}

// Format renders d with exactly two decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatMilliunits renders milliunits as a two-decimal string.
func FormatMilliunits(m int64) string {
	return Format(FromMilliunits(m))
}

// SplitHalf splits cost between a counterpart and self. The counterpart
// share is half the cost rounded half-up to cents and self takes the
// remainder, so the shares always add up to cost.
func SplitHalf(cost decimal.Decimal) (counterpart, self decimal.Decimal) {
	cost = cost.Round(2)
	counterpart = cost.Div(two).Round(2)
	self = cost.Sub(counterpart).Round(2)
	return counterpart, self
}

// IsPositive reports whether the amount string is strictly greater than zero.
func IsPositive(s string) (bool, error) {
	d, err := Parse(s)
	if err != nil {
		return false, err
	}
	return d.IsPositive(), nil
}
