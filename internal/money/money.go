// Package money converts between the decimal-string amounts used at API
// boundaries and the int64 minor-unit amounts used everywhere internally.
// Arithmetic on amounts never goes through floating point.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorUnitExponent is the number of decimal places in a minor unit (cents).
const minorUnitExponent = 2

var minorUnitFactor = decimal.New(1, minorUnitExponent) // 100

// Parse converts a decimal string such as "100.00" or "33.34" into minor
// units. It rejects empty input, malformed numbers, and amounts with more
// than two decimal places, so no rounding ever happens at the boundary.
func Parse(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if d.Exponent() < -minorUnitExponent {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, minorUnitExponent)
	}

	minor := d.Mul(minorUnitFactor)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q is not representable in minor units", s)
	}

	return minor.IntPart(), nil
}

// Format renders minor units as a decimal string with exactly two decimal
// places, e.g. 10050 -> "100.50" and -1 -> "-0.01".
func Format(minor int64) string {
	return decimal.New(minor, -minorUnitExponent).StringFixed(minorUnitExponent)
}
