// Package errors groups the engine's sentinel errors by cause so transports
// can report them uniformly.
package errors

import (
	stderrors "errors"

	nativecommon "solusd/native/common"
	"solusd/native/fixedpoint"
	"solusd/native/issuance"
	"solusd/native/oracle"
	"solusd/native/stability"
	"solusd/native/staking"
	"solusd/native/trove"
)

// Category names the cause of a failed operation.
type Category string

const (
	CategoryNone          Category = ""
	CategoryAuthorization Category = "authorization"
	CategoryState         Category = "state"
	CategoryParameter     Category = "parameter"
	CategoryArithmetic    Category = "arithmetic"
	CategoryOracle        Category = "oracle"
	CategoryFee           Category = "fee"
	CategoryInternal      Category = "internal"
)

var (
	// ErrUnauthorized rejects callers that may not act as an owner, such as
	// module accounts or the zero address.
	ErrUnauthorized = stderrors.New("unauthorized caller")
	// ErrUnknownOperation rejects operation kinds the processor does not
	// implement.
	ErrUnknownOperation = stderrors.New("unknown operation")
)

var table = []struct {
	category Category
	errs     []error
}{
	{CategoryAuthorization, []error{ErrUnauthorized}},
	{CategoryFee, []error{trove.ErrFeeExceeded, trove.ErrFeeEatsCollateral}},
	{CategoryArithmetic, []error{
		fixedpoint.ErrMathOverflow,
		fixedpoint.ErrMathUnderflow,
		fixedpoint.ErrDivisionByZero,
		issuance.ErrFractionRange,
	}},
	{CategoryOracle, []error{
		oracle.ErrStale,
		oracle.ErrInvalidConfig,
		oracle.ErrMismatch,
		oracle.ErrNotFound,
		trove.ErrZeroPrice,
		stability.ErrZeroPrice,
	}},
	{CategoryState, []error{
		nativecommon.ErrModulePaused,
		trove.ErrTroveNotActive,
		trove.ErrTroveActive,
		trove.ErrICRBelowMCR,
		trove.ErrICRBelowCCR,
		trove.ErrICRDecreased,
		trove.ErrTCRBelowCCR,
		trove.ErrCollWithdrawalInRecovery,
		trove.ErrRecoveryMode,
		trove.ErrOnlyOneTrove,
		trove.ErrNothingToLiquidate,
		trove.ErrNoStakes,
		trove.ErrNoCollToClaim,
		trove.ErrBootstrapPeriod,
		trove.ErrTCRBelowMCR,
		trove.ErrUnableToRedeem,
		stability.ErrNoDeposit,
		stability.ErrHasDeposit,
		stability.ErrFrontEndRegistered,
		stability.ErrFrontEndNotRegistered,
		stability.ErrUnderCollateralizedTroves,
		stability.ErrNoActiveTrove,
		stability.ErrNoCollGain,
		stability.ErrOffsetExceedsDeposits,
		staking.ErrNoStake,
	}},
	{CategoryParameter, []error{
		ErrUnknownOperation,
		trove.ErrInvalidParams,
		trove.ErrInvalidMaxFee,
		trove.ErrNetDebtTooLow,
		trove.ErrZeroDebtChange,
		trove.ErrZeroAdjustment,
		trove.ErrRepaymentTooLarge,
		trove.ErrCollWithdrawalTooLarge,
		trove.ErrZeroCollateral,
		trove.ErrEmptyLiquidationList,
		trove.ErrZeroAmount,
		stability.ErrZeroAmount,
		stability.ErrInvalidKickbackRate,
		staking.ErrZeroAmount,
		issuance.ErrInvalidParams,
	}},
}

// Classify maps err onto its category. Errors outside the taxonomy are
// internal.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}
	for _, entry := range table {
		for _, target := range entry.errs {
			if stderrors.Is(err, target) {
				return entry.category
			}
		}
	}
	return CategoryInternal
}
