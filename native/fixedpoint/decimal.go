package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var errInvalidAmount = errors.New("fixedpoint: invalid decimal amount")

// ParseDecimal converts a human readable decimal ("1500.25") into its
// 1e18-scaled integer form. Fractions finer than 1e-18 are rejected.
func ParseDecimal(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errInvalidAmount
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidAmount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative", errInvalidAmount)
	}
	scaled := d.Shift(18)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than 18 decimals", errInvalidAmount)
	}
	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, ErrMathOverflow
	}
	return out, nil
}

// MustParseDecimal is ParseDecimal for constants.
func MustParseDecimal(value string) *uint256.Int {
	out, err := ParseDecimal(value)
	if err != nil {
		panic(err)
	}
	return out
}

// FormatDecimal renders a 1e18-scaled integer as a decimal string.
func FormatDecimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	if IsMax(v) {
		return "max"
	}
	return decimal.NewFromBigInt(v.ToBig(), -18).String()
}

// FormatInteger renders v as a base-10 integer.
func FormatInteger(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.ToBig().String()
}

// ParseInteger parses a base-10 integer.
func ParseInteger(value string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || b.Sign() < 0 {
		return nil, errInvalidAmount
	}
	out, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrMathOverflow
	}
	return out, nil
}
