package fixedpoint

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func dec(v string) *uint256.Int { return MustParseDecimal(v) }

func TestCheckedArithmetic(t *testing.T) {
	_, err := Add(Max(), uint256.NewInt(1))
	require.ErrorIs(t, err, ErrMathOverflow)

	_, err = Sub(uint256.NewInt(1), uint256.NewInt(2))
	require.ErrorIs(t, err, ErrMathUnderflow)

	_, err = Mul(Max(), uint256.NewInt(2))
	require.ErrorIs(t, err, ErrMathOverflow)

	_, err = Div(uint256.NewInt(1), Zero())
	require.ErrorIs(t, err, ErrDivisionByZero)

	got, err := MulDiv(uint256.NewInt(7), uint256.NewInt(3), uint256.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, uint64(10), got.Uint64())

	require.True(t, SubFloor(uint256.NewInt(1), uint256.NewInt(5)).IsZero())
	require.Equal(t, uint64(2), Min(uint256.NewInt(2), uint256.NewInt(9)).Uint64())
}

func TestDecMulRoundsHalfUp(t *testing.T) {
	got, err := DecMul(dec("1.5"), dec("2"))
	require.NoError(t, err)
	require.Equal(t, dec("3"), got)

	// 0.5e-18 * 1 rounds up to 1 wei.
	got, err = DecMul(uint256.NewInt(1), halfDecimal)
	require.NoError(t, err)
	require.Equal(t, uint64(1), got.Uint64())
}

func TestDecPow(t *testing.T) {
	base := dec("0.5")
	for _, tc := range []struct {
		minutes uint64
		want    string
	}{
		{0, "1"},
		{1, "0.5"},
		{2, "0.25"},
		{3, "0.125"},
		{10, "0.0009765625"},
	} {
		got, err := DecPow(base, tc.minutes)
		require.NoError(t, err)
		require.Equal(t, dec(tc.want), got, "minutes=%d", tc.minutes)
	}

	capped, err := DecPow(dec("0.999037758833783"), MaxDecPowMinutes+1_000_000)
	require.NoError(t, err)
	atCap, err := DecPow(dec("0.999037758833783"), MaxDecPowMinutes)
	require.NoError(t, err)
	require.Equal(t, atCap, capped)
	require.True(t, capped.IsZero())
}

func TestComputeCR(t *testing.T) {
	cr, err := ComputeCR(dec("1000"), dec("500"), dec("2"))
	require.NoError(t, err)
	require.Equal(t, dec("4"), cr)

	cr, err = ComputeCR(uint256.NewInt(10), uint256.NewInt(3), uint256.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint64(3), cr.Uint64())

	cr, err = ComputeCR(dec("1"), Zero(), dec("1"))
	require.NoError(t, err)
	require.True(t, IsMax(cr))

	_, err = ComputeCR(Max(), uint256.NewInt(1), uint256.NewInt(2))
	require.ErrorIs(t, err, ErrMathOverflow)

	nicr, err := ComputeNominalCR(dec("2"), dec("1"))
	require.NoError(t, err)
	require.Equal(t, uint256.MustFromDecimal("200000000000000000000"), nicr)

	nicr, err = ComputeNominalCR(dec("2"), nil)
	require.NoError(t, err)
	require.True(t, IsMax(nicr))
}

func TestPerUnitWithErrorBoundsRemainder(t *testing.T) {
	total := uint256.NewInt(3)
	lastErr := Zero()
	distributed := Zero()
	for i := 0; i < 25; i++ {
		perUnit, nextErr, err := PerUnitWithError(uint256.NewInt(1), lastErr, total)
		require.NoError(t, err)
		require.True(t, nextErr.Lt(total))
		distributed.Add(distributed, new(uint256.Int).Mul(perUnit, total))
		lastErr = nextErr
	}
	// Every unit handed out plus the carried error equals what went in.
	expected := new(uint256.Int).Mul(uint256.NewInt(25), DecimalPrecision)
	require.Equal(t, expected, new(uint256.Int).Add(distributed, lastErr))

	_, _, err := PerUnitWithError(uint256.NewInt(1), Zero(), Zero())
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestDecimalRoundTrip(t *testing.T) {
	v, err := ParseDecimal("1500.25")
	require.NoError(t, err)
	require.Equal(t, uint256.MustFromDecimal("1500250000000000000000"), v)
	require.Equal(t, "1500.25", FormatDecimal(v))

	_, err = ParseDecimal("-1")
	require.Error(t, err)
	_, err = ParseDecimal("0.0000000000000000001")
	require.Error(t, err)
	_, err = ParseDecimal("abc")
	require.Error(t, err)

	require.Equal(t, "max", FormatDecimal(Max()))
	n, err := ParseInteger("42")
	require.NoError(t, err)
	require.Equal(t, "42", FormatInteger(n))
}
