package fixedpoint

import "github.com/holiman/uint256"

// ComputeCR returns coll*price/debt, saturating to Max when debt is zero.
func ComputeCR(coll, debt, price *uint256.Int) (*uint256.Int, error) {
	if debt == nil || debt.IsZero() {
		return Max(), nil
	}
	return MulDiv(coll, price, debt)
}

// ComputeNominalCR returns coll*1e20/debt, saturating to Max when debt is zero.
func ComputeNominalCR(coll, debt *uint256.Int) (*uint256.Int, error) {
	if debt == nil || debt.IsZero() {
		return Max(), nil
	}
	return MulDiv(coll, NICRPrecision, debt)
}

// PerUnitWithError spreads amount across total units, carrying the floor
// division remainder in lastError. It returns the per-unit quotient and the
// new error term, which always lies in [0, total).
func PerUnitWithError(amount, lastError, total *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if total == nil || total.IsZero() {
		return nil, nil, ErrDivisionByZero
	}
	scaled, err := Mul(amount, DecimalPrecision)
	if err != nil {
		return nil, nil, err
	}
	numerator, err := Add(scaled, lastError)
	if err != nil {
		return nil, nil, err
	}
	perUnit := new(uint256.Int).Div(numerator, total)
	distributed := new(uint256.Int).Mul(perUnit, total)
	return perUnit, new(uint256.Int).Sub(numerator, distributed), nil
}
