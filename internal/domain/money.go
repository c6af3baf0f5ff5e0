package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	errPriceNotDecimal = errors.New("price must be a decimal number")
	errPricePrecision  = errors.New("price must have at most 2 decimal places")
)

var hundred = decimal.NewFromInt(100)

// ParseCents converts decimal text such as "183.09" to an int64 amount of
// cents. Values with more than two significant fractional digits are
// rejected; trailing zeros ("1.500") are accepted.
func ParseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, errPriceNotDecimal
	}
	if !d.Equal(d.Truncate(2)) {
		return 0, errPricePrecision
	}
	return d.Shift(2).IntPart(), nil
}

// CentsToDecimal converts cents to a decimal amount of currency units.
func CentsToDecimal(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// FormatCents renders cents with exactly two fractional digits.
func FormatCents(c int64) string {
	return CentsToDecimal(c).StringFixed(2)
}

// PriceBand returns the inclusive range of whole-cent prices that lie
// within percent of the reference price.
func PriceBand(reference int64, percent int) (lo, hi int64) {
	ref := decimal.NewFromInt(reference)
	delta := ref.Mul(decimal.NewFromInt(int64(percent))).Div(hundred)
	return ref.Sub(delta).Ceil().IntPart(), ref.Add(delta).Floor().IntPart()
}

// WithinBand reports whether price lies within percent of reference.
func WithinBand(price, reference int64, percent int) bool {
	lo, hi := PriceBand(reference, percent)
	return price >= lo && price <= hi
}
