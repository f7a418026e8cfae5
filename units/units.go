// Package units converts between human decimal strings and fixed-point
// integer strings in contract (smallest) units. All arithmetic goes
// through shopspring/decimal; binary floating point would lose precision
// long before the 24 decimal places the native currency uses.
package units

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest decimal exponent in use on the target
// chain (the native currency). Conversions reject exponents outside
// [0, MaxDecimals].
const MaxDecimals = 24

// ToContractUnits parses a human decimal string and scales it by
// 10^decimals, truncating any precision beyond that. Scientific
// notation is accepted. Empty or all-zero input converts to "0" without
// error; non-numeric or negative input returns "0" together with a
// validation error the caller must surface.
func ToContractUnits(amount string, decimals int) (string, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return "0", fmt.Errorf("decimals %d out of range [0, %d]", decimals, MaxDecimals)
	}
	amount = strings.TrimSpace(amount)
	if amount == "" || isZeroString(amount) {
		return "0", nil
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "0", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return "0", fmt.Errorf("amount %q must not be negative", amount)
	}

	// Shift left by the token exponent, then truncate: fractional
	// contract units never round up.
	return d.Shift(int32(decimals)).Truncate(0).String(), nil
}

// ToDisplayString is the inverse of ToContractUnits: it scales an
// integer string in contract units down by 10^decimals and truncates
// the result to maxFractionDigits. The raw value must be a plain
// integer string.
func ToDisplayString(raw string, decimals int, maxFractionDigits int) (string, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return "0", fmt.Errorf("decimals %d out of range [0, %d]", decimals, MaxDecimals)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "0", nil
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "0", fmt.Errorf("invalid contract amount %q: %w", raw, err)
	}
	if d.Exponent() < 0 || !d.Equal(d.Truncate(0)) {
		return "0", fmt.Errorf("contract amount %q is not an integer", raw)
	}
	if d.IsNegative() {
		return "0", fmt.Errorf("contract amount %q must not be negative", raw)
	}

	return d.Shift(int32(-decimals)).Truncate(int32(maxFractionDigits)).String(), nil
}

// isZeroString reports whether the input spells zero, e.g. "0", "0.0",
// ".000". Anything else (including garbage) returns false and goes
// through the real parser.
func isZeroString(s string) bool {
	seenDigit := false
	for _, r := range s {
		switch {
		case r == '0':
			seenDigit = true
		case r == '.':
		default:
			return false
		}
	}
	return seenDigit
}
