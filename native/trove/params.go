package trove

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"solusd/native/fixedpoint"
)

// Params carries the protocol constants used by borrower operations,
// liquidations and redemptions.
type Params struct {
	MCR                *uint256.Int
	CCR                *uint256.Int
	GasCompensation    *uint256.Int
	MinNetDebt         *uint256.Int
	PercentDivisor     uint64
	BorrowingFeeFloor  *uint256.Int
	MaxBorrowingFee    *uint256.Int
	RedemptionFeeFloor *uint256.Int
	MinuteDecayFactor  *uint256.Int
	Beta               uint64
	BootstrapPeriod    time.Duration
}

// DefaultParams returns the production constants.
func DefaultParams() Params {
	return Params{
		MCR:                fixedpoint.MustParseDecimal("1.1"),
		CCR:                fixedpoint.MustParseDecimal("1.5"),
		GasCompensation:    fixedpoint.MustParseDecimal("200"),
		MinNetDebt:         fixedpoint.MustParseDecimal("1800"),
		PercentDivisor:     200,
		BorrowingFeeFloor:  fixedpoint.MustParseDecimal("0.005"),
		MaxBorrowingFee:    fixedpoint.MustParseDecimal("0.05"),
		RedemptionFeeFloor: fixedpoint.MustParseDecimal("0.005"),
		MinuteDecayFactor:  uint256.NewInt(999_037_758_833_783_000),
		Beta:               2,
		BootstrapPeriod:    14 * 24 * time.Hour,
	}
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	return Params{
		MCR:                fixedpoint.Clone(p.MCR),
		CCR:                fixedpoint.Clone(p.CCR),
		GasCompensation:    fixedpoint.Clone(p.GasCompensation),
		MinNetDebt:         fixedpoint.Clone(p.MinNetDebt),
		PercentDivisor:     p.PercentDivisor,
		BorrowingFeeFloor:  fixedpoint.Clone(p.BorrowingFeeFloor),
		MaxBorrowingFee:    fixedpoint.Clone(p.MaxBorrowingFee),
		RedemptionFeeFloor: fixedpoint.Clone(p.RedemptionFeeFloor),
		MinuteDecayFactor:  fixedpoint.Clone(p.MinuteDecayFactor),
		Beta:               p.Beta,
		BootstrapPeriod:    p.BootstrapPeriod,
	}
}

// Validate rejects parameter sets the engine cannot operate with.
func (p Params) Validate() error {
	one := fixedpoint.DecimalPrecision
	switch {
	case p.MCR == nil || p.MCR.Lt(one):
		return fmt.Errorf("%w: mcr must be at least 100%%", ErrInvalidParams)
	case p.CCR == nil || !p.CCR.Gt(p.MCR):
		return fmt.Errorf("%w: ccr must exceed mcr", ErrInvalidParams)
	case p.GasCompensation == nil || p.MinNetDebt == nil:
		return fmt.Errorf("%w: gas compensation and min net debt required", ErrInvalidParams)
	case p.PercentDivisor == 0:
		return fmt.Errorf("%w: percent divisor must be positive", ErrInvalidParams)
	case p.BorrowingFeeFloor == nil || p.MaxBorrowingFee == nil || p.BorrowingFeeFloor.Gt(p.MaxBorrowingFee):
		return fmt.Errorf("%w: borrowing fee floor exceeds cap", ErrInvalidParams)
	case p.MaxBorrowingFee.Gt(one):
		return fmt.Errorf("%w: borrowing fee cap above 100%%", ErrInvalidParams)
	case p.RedemptionFeeFloor == nil || p.RedemptionFeeFloor.Gt(one):
		return fmt.Errorf("%w: redemption fee floor above 100%%", ErrInvalidParams)
	case p.MinuteDecayFactor == nil || p.MinuteDecayFactor.IsZero() || p.MinuteDecayFactor.Gt(one):
		return fmt.Errorf("%w: minute decay factor must be in (0, 1]", ErrInvalidParams)
	case p.Beta == 0:
		return fmt.Errorf("%w: beta must be positive", ErrInvalidParams)
	case p.BootstrapPeriod < 0:
		return fmt.Errorf("%w: negative bootstrap period", ErrInvalidParams)
	}
	return nil
}
