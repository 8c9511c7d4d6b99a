// Package money converts between integer minor units and decimal major units.
// Storage and arithmetic always use minor units.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const minorExponent = 2

// FromCents returns the major-unit decimal for an amount in cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-minorExponent)
}

// ToCents converts a major-unit decimal into cents. Amounts with sub-cent
// precision are rejected rather than rounded.
func ToCents(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(minorExponent)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), minorExponent)
	}
	return shifted.IntPart(), nil
}

// ParseCents parses a major-unit string such as "25.00" into cents.
func ParseCents(value string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return ToCents(d)
}

// Format renders cents as a dollar string, e.g. 2500 -> "$25.00".
func Format(cents int64) string {
	if cents < 0 {
		return "-$" + FromCents(-cents).StringFixed(minorExponent)
	}
	return "$" + FromCents(cents).StringFixed(minorExponent)
}
