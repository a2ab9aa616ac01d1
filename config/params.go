package config

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"solusd/native/fixedpoint"
	"solusd/native/issuance"
	"solusd/native/trove"
)

func parseDecimal(field, value string) (*uint256.Int, error) {
	out, err := fixedpoint.ParseDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid params.%s: %w", field, err)
	}
	return out, nil
}

// TroveParams converts the configured decimals into engine parameters.
func (p Params) TroveParams() (trove.Params, error) {
	out := trove.Params{
		PercentDivisor:  p.PercentDivisor,
		Beta:            p.Beta,
		BootstrapPeriod: time.Duration(p.BootstrapPeriodSeconds) * time.Second,
	}
	fields := []struct {
		name  string
		value string
		dst   **uint256.Int
	}{
		{"MCR", p.MCR, &out.MCR},
		{"CCR", p.CCR, &out.CCR},
		{"GasCompensation", p.GasCompensation, &out.GasCompensation},
		{"MinNetDebt", p.MinNetDebt, &out.MinNetDebt},
		{"BorrowingFeeFloor", p.BorrowingFeeFloor, &out.BorrowingFeeFloor},
		{"MaxBorrowingFee", p.MaxBorrowingFee, &out.MaxBorrowingFee},
		{"RedemptionFeeFloor", p.RedemptionFeeFloor, &out.RedemptionFeeFloor},
		{"MinuteDecayFactor", p.MinuteDecayFactor, &out.MinuteDecayFactor},
	}
	for _, f := range fields {
		v, err := parseDecimal(f.name, f.value)
		if err != nil {
			return trove.Params{}, err
		}
		*f.dst = v
	}
	return out, nil
}

// IssuanceParams converts the configured issuance curve.
func (i Issuance) IssuanceParams() (issuance.Params, error) {
	supplyCap, err := fixedpoint.ParseDecimal(i.SupplyCap)
	if err != nil {
		return issuance.Params{}, fmt.Errorf("invalid issuance.SupplyCap: %w", err)
	}
	factor, err := fixedpoint.ParseDecimal(i.IssuanceFactor)
	if err != nil {
		return issuance.Params{}, fmt.Errorf("invalid issuance.IssuanceFactor: %w", err)
	}
	return issuance.Params{SupplyCap: supplyCap, IssuanceFactor: factor}, nil
}

// MaxAge returns the oracle freshness window.
func (o Oracle) MaxAge() time.Duration {
	return time.Duration(o.MaxAgeSeconds) * time.Second
}
