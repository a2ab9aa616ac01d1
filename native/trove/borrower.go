package trove

import (
	"github.com/holiman/uint256"

	"solusd/core/events"
	"solusd/core/types"
	"solusd/crypto"
	nativecommon "solusd/native/common"
	"solusd/native/fixedpoint"
)

// AdjustRequest describes a change to an existing trove.
type AdjustRequest struct {
	Owner          crypto.Address
	CollChange     *uint256.Int
	IsCollIncrease bool
	DebtChange     *uint256.Int
	IsDebtIncrease bool
	MaxFee         *uint256.Int
}

func (e *Engine) requireValidMaxFee(maxFee *uint256.Int, recovery bool) error {
	fee := fixedpoint.Clone(maxFee)
	if fee.Gt(fixedpoint.DecimalPrecision) {
		return ErrInvalidMaxFee
	}
	if !recovery && fee.Lt(e.params.BorrowingFeeFloor) {
		return ErrInvalidMaxFee
	}
	return nil
}

func (e *Engine) requireAtLeastMinNetDebt(netDebt *uint256.Int) error {
	if fixedpoint.Clone(netDebt).Lt(e.params.MinNetDebt) {
		return ErrNetDebtTooLow
	}
	return nil
}

// triggerBorrowingFee decays the base rate, charges the borrowing fee on
// amount and mints it to the fee recipient.
func (e *Engine) triggerBorrowingFee(ledger *types.SystemLedger, owner crypto.Address, amount, maxFee *uint256.Int) (*uint256.Int, error) {
	if err := e.decayBaseRateFromBorrowing(ledger); err != nil {
		return nil, err
	}
	fee, err := e.borrowingFee(ledger.BaseRate, amount)
	if err != nil {
		return nil, err
	}
	if err := requireUserAcceptsFee(fee, amount, maxFee); err != nil {
		return nil, err
	}
	if fee.IsZero() {
		return fee, nil
	}
	if e.fees == nil {
		return nil, ErrNilState
	}
	if err := e.fees.IncreaseFDebt(fee); err != nil {
		return nil, err
	}
	e.pools.MintDebt(e.fees.Account(), fee)
	e.state.Emit(events.BorrowingFeePaid{Owner: owner, Fee: fee}.Event())
	return fee, nil
}

// OpenTrove creates an active trove for owner backed by coll and mints
// debtAmount to the owner.
func (e *Engine) OpenTrove(owner crypto.Address, maxFee, debtAmount, coll, price *uint256.Int) (*types.Trove, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTrove); err != nil {
		return nil, err
	}
	if err := requirePrice(price); err != nil {
		return nil, err
	}
	recovery, err := e.CheckRecoveryMode(price)
	if err != nil {
		return nil, err
	}
	if err := e.requireValidMaxFee(maxFee, recovery); err != nil {
		return nil, err
	}
	trove, err := e.state.Trove(owner)
	if err != nil {
		return nil, err
	}
	if trove.IsActive() {
		return nil, ErrTroveActive
	}
	if coll == nil || coll.IsZero() {
		return nil, ErrZeroCollateral
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return nil, err
	}

	netDebt := fixedpoint.Clone(debtAmount)
	if !recovery {
		fee, err := e.triggerBorrowingFee(ledger, owner, netDebt, maxFee)
		if err != nil {
			return nil, err
		}
		if netDebt, err = fixedpoint.Add(netDebt, fee); err != nil {
			return nil, err
		}
	}
	if err := e.requireAtLeastMinNetDebt(netDebt); err != nil {
		return nil, err
	}
	compositeDebt, err := fixedpoint.Add(netDebt, e.params.GasCompensation)
	if err != nil {
		return nil, err
	}
	icr, err := fixedpoint.ComputeCR(coll, compositeDebt, price)
	if err != nil {
		return nil, err
	}
	nicr, err := fixedpoint.ComputeNominalCR(coll, compositeDebt)
	if err != nil {
		return nil, err
	}
	if recovery {
		if icr.Lt(e.params.CCR) {
			return nil, ErrICRBelowCCR
		}
	} else {
		if icr.Lt(e.params.MCR) {
			return nil, ErrICRBelowMCR
		}
		newTCR, err := e.newTCRFromTroveChange(coll, true, compositeDebt, true, price)
		if err != nil {
			return nil, err
		}
		if newTCR.Lt(e.params.CCR) {
			return nil, ErrTCRBelowCCR
		}
	}

	status, err := trove.Status.Transition(types.TroveActive)
	if err != nil {
		return nil, err
	}
	trove.Status = status
	trove.Coll = fixedpoint.Clone(coll)
	trove.Debt = compositeDebt
	updateRewardSnapshots(trove, ledger)
	trove.Stake = fixedpoint.Zero()
	if err := updateStakeAndTotalStakes(trove, ledger); err != nil {
		return nil, err
	}
	if err := e.index().insert(owner, nicr); err != nil {
		return nil, err
	}
	if err := e.state.PutTrove(trove); err != nil {
		return nil, err
	}
	if err := e.state.PutSystemLedger(ledger); err != nil {
		return nil, err
	}

	if err := e.pools.ReceiveCollateral(types.ActivePool, owner, coll); err != nil {
		return nil, err
	}
	if err := e.pools.IncreaseDebt(types.ActivePool, netDebt); err != nil {
		return nil, err
	}
	e.pools.MintDebt(owner, debtAmount)
	if err := e.pools.IncreaseDebt(types.ActivePool, e.params.GasCompensation); err != nil {
		return nil, err
	}
	if err := e.pools.MintGasCompensation(e.params.GasCompensation); err != nil {
		return nil, err
	}
	e.emitTroveUpdated(trove, events.TroveOperationOpen)
	return trove, nil
}

// AdjustTrove changes the collateral and/or debt of the caller's trove.
func (e *Engine) AdjustTrove(req AdjustRequest, price *uint256.Int) (*types.Trove, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTrove); err != nil {
		return nil, err
	}
	return e.adjustTrove(req, req.Owner, price)
}

// MoveCollGainToTrove tops up owner's trove with collateral paid out of the
// stability pool account.
func (e *Engine) MoveCollGainToTrove(owner, source crypto.Address, coll, price *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	_, err := e.adjustTrove(AdjustRequest{
		Owner:          owner,
		CollChange:     coll,
		IsCollIncrease: true,
		DebtChange:     fixedpoint.Zero(),
	}, source, price)
	return err
}

func (e *Engine) adjustTrove(req AdjustRequest, collSource crypto.Address, price *uint256.Int) (*types.Trove, error) {
	if err := requirePrice(price); err != nil {
		return nil, err
	}
	collChange := fixedpoint.Clone(req.CollChange)
	debtChange := fixedpoint.Clone(req.DebtChange)

	recovery, err := e.CheckRecoveryMode(price)
	if err != nil {
		return nil, err
	}
	if req.IsDebtIncrease {
		if err := e.requireValidMaxFee(req.MaxFee, recovery); err != nil {
			return nil, err
		}
		if debtChange.IsZero() {
			return nil, ErrZeroDebtChange
		}
	}
	if collChange.IsZero() && debtChange.IsZero() {
		return nil, ErrZeroAdjustment
	}
	trove, err := e.loadActive(req.Owner)
	if err != nil {
		return nil, err
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return nil, err
	}
	if err := e.applyPendingRewards(trove, ledger); err != nil {
		return nil, err
	}

	netDebtChange := debtChange
	if req.IsDebtIncrease && !recovery {
		fee, err := e.triggerBorrowingFee(ledger, req.Owner, debtChange, req.MaxFee)
		if err != nil {
			return nil, err
		}
		if netDebtChange, err = fixedpoint.Add(netDebtChange, fee); err != nil {
			return nil, err
		}
	}

	collIncrease := req.IsCollIncrease || collChange.IsZero()
	if !collIncrease && collChange.Gt(trove.Coll) {
		return nil, ErrCollWithdrawalTooLarge
	}
	oldICR, err := fixedpoint.ComputeCR(trove.Coll, trove.Debt, price)
	if err != nil {
		return nil, err
	}
	newColl, err := applyChange(trove.Coll, collChange, collIncrease)
	if err != nil {
		return nil, err
	}
	if !req.IsDebtIncrease {
		repayable, err := fixedpoint.Sub(trove.Debt, e.params.GasCompensation)
		if err != nil {
			return nil, err
		}
		if netDebtChange.Gt(repayable) {
			return nil, ErrRepaymentTooLarge
		}
	}
	newDebt, err := applyChange(trove.Debt, netDebtChange, req.IsDebtIncrease)
	if err != nil {
		return nil, err
	}
	newICR, err := fixedpoint.ComputeCR(newColl, newDebt, price)
	if err != nil {
		return nil, err
	}

	if recovery {
		if !collIncrease {
			return nil, ErrCollWithdrawalInRecovery
		}
		if req.IsDebtIncrease {
			if newICR.Lt(e.params.CCR) {
				return nil, ErrICRBelowCCR
			}
			if newICR.Lt(oldICR) {
				return nil, ErrICRDecreased
			}
		}
	} else {
		if newICR.Lt(e.params.MCR) {
			return nil, ErrICRBelowMCR
		}
		newTCR, err := e.newTCRFromTroveChange(collChange, collIncrease, netDebtChange, req.IsDebtIncrease, price)
		if err != nil {
			return nil, err
		}
		if newTCR.Lt(e.params.CCR) {
			return nil, ErrTCRBelowCCR
		}
	}
	if !req.IsDebtIncrease && !debtChange.IsZero() {
		netDebt, err := fixedpoint.Sub(newDebt, e.params.GasCompensation)
		if err != nil {
			return nil, err
		}
		if err := e.requireAtLeastMinNetDebt(netDebt); err != nil {
			return nil, err
		}
	}

	trove.Coll = newColl
	trove.Debt = newDebt
	if err := updateStakeAndTotalStakes(trove, ledger); err != nil {
		return nil, err
	}
	nicr, err := fixedpoint.ComputeNominalCR(newColl, newDebt)
	if err != nil {
		return nil, err
	}
	if err := e.state.PutTrove(trove); err != nil {
		return nil, err
	}
	if err := e.index().reInsert(req.Owner, nicr); err != nil {
		return nil, err
	}
	if err := e.state.PutSystemLedger(ledger); err != nil {
		return nil, err
	}

	if req.IsDebtIncrease {
		if err := e.pools.IncreaseDebt(types.ActivePool, netDebtChange); err != nil {
			return nil, err
		}
		e.pools.MintDebt(req.Owner, debtChange)
	} else if !debtChange.IsZero() {
		if err := e.pools.DecreaseDebt(types.ActivePool, debtChange); err != nil {
			return nil, err
		}
		e.pools.BurnDebt(req.Owner, debtChange)
	}
	if !collChange.IsZero() {
		if collIncrease {
			err = e.pools.ReceiveCollateral(types.ActivePool, collSource, collChange)
		} else {
			err = e.pools.SendCollateral(types.ActivePool, req.Owner, collChange)
		}
		if err != nil {
			return nil, err
		}
	}
	e.emitTroveUpdated(trove, events.TroveOperationAdjust)
	return trove, nil
}

// CloseTrove repays the owner's debt and returns their collateral.
func (e *Engine) CloseTrove(owner crypto.Address, price *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTrove); err != nil {
		return err
	}
	if err := requirePrice(price); err != nil {
		return err
	}
	trove, err := e.loadActive(owner)
	if err != nil {
		return err
	}
	recovery, err := e.CheckRecoveryMode(price)
	if err != nil {
		return err
	}
	if recovery {
		return ErrRecoveryMode
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return err
	}
	if err := e.applyPendingRewards(trove, ledger); err != nil {
		return err
	}
	coll := fixedpoint.Clone(trove.Coll)
	debt := fixedpoint.Clone(trove.Debt)
	repay, err := fixedpoint.Sub(debt, e.params.GasCompensation)
	if err != nil {
		return err
	}
	newTCR, err := e.newTCRFromTroveChange(coll, false, debt, false, price)
	if err != nil {
		return err
	}
	if newTCR.Lt(e.params.CCR) {
		return ErrTCRBelowCCR
	}
	if err := removeStake(trove, ledger); err != nil {
		return err
	}
	if err := e.closeTrove(trove, types.TroveClosedByOwner); err != nil {
		return err
	}
	if err := e.state.PutSystemLedger(ledger); err != nil {
		return err
	}

	if err := e.pools.DecreaseDebt(types.ActivePool, repay); err != nil {
		return err
	}
	e.pools.BurnDebt(owner, repay)
	if err := e.pools.DecreaseDebt(types.ActivePool, e.params.GasCompensation); err != nil {
		return err
	}
	if err := e.pools.BurnGasCompensation(e.params.GasCompensation); err != nil {
		return err
	}
	if err := e.pools.SendCollateral(types.ActivePool, owner, coll); err != nil {
		return err
	}
	e.emitTroveUpdated(trove, events.TroveOperationClose)
	return nil
}

// ClaimCollateral pays out surplus collateral left by a capped liquidation
// or a full redemption.
func (e *Engine) ClaimCollateral(owner crypto.Address) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTrove); err != nil {
		return nil, err
	}
	amount, err := e.state.Surplus(owner)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, ErrNoCollToClaim
	}
	if err := e.state.PutSurplus(owner, nil); err != nil {
		return nil, err
	}
	if err := e.pools.SendCollateral(types.CollSurplusPool, owner, amount); err != nil {
		return nil, err
	}
	e.state.Emit(events.CollateralClaimed{Owner: owner, Amount: amount}.Event())
	return amount, nil
}

// accountSurplus records collateral claimable by owner.
func (e *Engine) accountSurplus(owner crypto.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	current, err := e.state.Surplus(owner)
	if err != nil {
		return err
	}
	total, err := fixedpoint.Add(current, amount)
	if err != nil {
		return err
	}
	if err := e.state.PutSurplus(owner, total); err != nil {
		return err
	}
	e.state.Emit(events.CollSurplusRecorded{Owner: owner, Amount: amount, Total: total}.Event())
	return nil
}
