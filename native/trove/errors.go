package trove

import "errors"

var (
	ErrNilState                 = errors.New("trove: state not configured")
	ErrInvalidParams            = errors.New("trove: invalid parameters")
	ErrZeroPrice                = errors.New("trove: price must be positive")
	ErrTroveNotActive           = errors.New("trove: trove does not exist or is closed")
	ErrTroveActive              = errors.New("trove: trove is active")
	ErrInvalidMaxFee            = errors.New("trove: max fee percentage out of range")
	ErrFeeExceeded              = errors.New("trove: fee exceeded provided maximum")
	ErrNetDebtTooLow            = errors.New("trove: net debt must be at least the minimum")
	ErrZeroDebtChange           = errors.New("trove: debt increase requires non-zero debt change")
	ErrZeroAdjustment           = errors.New("trove: there must be either a collateral change or a debt change")
	ErrICRBelowMCR              = errors.New("trove: operation would leave trove with ICR < MCR")
	ErrICRBelowCCR              = errors.New("trove: operation must leave trove with ICR >= CCR")
	ErrICRDecreased             = errors.New("trove: cannot decrease your trove's ICR in recovery mode")
	ErrTCRBelowCCR              = errors.New("trove: operation would leave TCR < CCR")
	ErrCollWithdrawalInRecovery = errors.New("trove: collateral withdrawal not permitted in recovery mode")
	ErrRecoveryMode             = errors.New("trove: operation not permitted during recovery mode")
	ErrRepaymentTooLarge        = errors.New("trove: amount repaid must not be larger than the trove's debt")
	ErrCollWithdrawalTooLarge   = errors.New("trove: collateral withdrawal exceeds trove collateral")
	ErrOnlyOneTrove             = errors.New("trove: there is only one trove in the system")
	ErrZeroCollateral           = errors.New("trove: collateral must be positive")
	ErrNothingToLiquidate       = errors.New("trove: nothing to liquidate")
	ErrEmptyLiquidationList     = errors.New("trove: liquidation list must not be empty")
	ErrNoStakes                 = errors.New("trove: total stakes is zero")
	ErrNoCollToClaim            = errors.New("trove: no collateral available to claim")
	ErrZeroAmount               = errors.New("trove: amount must be greater than zero")
	ErrBootstrapPeriod          = errors.New("trove: redemptions are not allowed during bootstrap phase")
	ErrTCRBelowMCR              = errors.New("trove: cannot redeem when TCR < MCR")
	ErrUnableToRedeem           = errors.New("trove: unable to redeem any amount")
	ErrFeeEatsCollateral        = errors.New("trove: fee would eat up all returned collateral")
)
