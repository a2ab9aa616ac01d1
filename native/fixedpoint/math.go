package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrMathOverflow is returned whenever a checked operation would wrap.
	ErrMathOverflow = errors.New("fixedpoint: math overflow")
	// ErrMathUnderflow is returned when a subtraction would go below zero.
	ErrMathUnderflow = errors.New("fixedpoint: math underflow")
	// ErrDivisionByZero is returned when dividing by zero.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
)

var (
	// DecimalPrecision is the 1e18 scale shared by every amount and ratio.
	DecimalPrecision = uint256.NewInt(1_000_000_000_000_000_000)
	// NICRPrecision scales the nominal collateral ratio.
	NICRPrecision = uint256.MustFromDecimal("100000000000000000000")
	// ScaleFactor rescales the stability pool product when it gets too small.
	ScaleFactor = uint256.NewInt(1_000_000_000)

	halfDecimal = uint256.NewInt(500_000_000_000_000_000)
	maxValue    = new(uint256.Int).SetAllOne()
)

// Zero returns a fresh zero value.
func Zero() *uint256.Int { return new(uint256.Int) }

// One returns a fresh copy of DecimalPrecision (1.0).
func One() *uint256.Int { return new(uint256.Int).Set(DecimalPrecision) }

// Max returns the largest representable value, used as the "infinite" ratio.
func Max() *uint256.Int { return new(uint256.Int).Set(maxValue) }

// IsMax reports whether v is the saturated maximum.
func IsMax(v *uint256.Int) bool { return v != nil && v.Eq(maxValue) }

// Clone copies v, treating nil as zero.
func Clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

func Add(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(Clone(a), Clone(b))
	if overflow {
		return nil, ErrMathOverflow
	}
	return out, nil
}

func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(Clone(a), Clone(b))
	if underflow {
		return nil, ErrMathUnderflow
	}
	return out, nil
}

// SubFloor subtracts b from a, clamping at zero.
func SubFloor(a, b *uint256.Int) *uint256.Int {
	if Clone(a).Lt(Clone(b)) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(Clone(a), Clone(b))
}

func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(Clone(a), Clone(b))
	if overflow {
		return nil, ErrMathOverflow
	}
	return out, nil
}

func Div(a, b *uint256.Int) (*uint256.Int, error) {
	if b == nil || b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(Clone(a), b), nil
}

// MulDiv computes a*b/c with floor division, failing if a*b overflows.
func MulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return Div(product, c)
}

// Min returns a copy of the smaller operand.
func Min(a, b *uint256.Int) *uint256.Int {
	if Clone(a).Lt(Clone(b)) {
		return Clone(a)
	}
	return Clone(b)
}

// DecMul multiplies two 1e18-scaled values rounding half up.
func DecMul(x, y *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(x, y)
	if err != nil {
		return nil, err
	}
	rounded, err := Add(product, halfDecimal)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Div(rounded, DecimalPrecision), nil
}

// MaxDecPowMinutes bounds the exponent accepted by DecPow (1000 years).
const MaxDecPowMinutes uint64 = 525_600_000

// DecPow raises a 1e18-scaled base to an integer power by squaring. The
// exponent is capped at MaxDecPowMinutes.
func DecPow(base *uint256.Int, minutes uint64) (*uint256.Int, error) {
	if minutes > MaxDecPowMinutes {
		minutes = MaxDecPowMinutes
	}
	if minutes == 0 {
		return One(), nil
	}
	y := One()
	x := Clone(base)
	n := minutes
	var err error
	for n > 1 {
		if n%2 == 0 {
			if x, err = DecMul(x, x); err != nil {
				return nil, err
			}
			n /= 2
			continue
		}
		if y, err = DecMul(x, y); err != nil {
			return nil, err
		}
		if x, err = DecMul(x, x); err != nil {
			return nil, err
		}
		n = (n - 1) / 2
	}
	return DecMul(x, y)
}
