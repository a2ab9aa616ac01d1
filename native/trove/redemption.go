package trove

import (
	"github.com/holiman/uint256"

	"solusd/core/events"
	"solusd/core/types"
	"solusd/crypto"
	nativecommon "solusd/native/common"
	"solusd/native/fixedpoint"
)

// RedemptionRequest exchanges debt tokens for collateral at face value.
type RedemptionRequest struct {
	Redeemer crypto.Address
	Amount   *uint256.Int
	// MaxIterations bounds the number of troves visited; zero means no bound.
	MaxIterations int
	MaxFee        *uint256.Int
	// PartialHintNICR is the caller's expected NICR of the trove left
	// partially redeemed. Zero lets the ordered index place it; any other
	// value must match exactly or the partial step is cancelled.
	PartialHintNICR *uint256.Int
}

// RedemptionResult summarises a completed redemption.
type RedemptionResult struct {
	Attempted *uint256.Int
	Redeemed  *uint256.Int
	CollDrawn *uint256.Int
	CollFee   *uint256.Int
	CollSent  *uint256.Int
	Troves    []crypto.Address
}

type singleRedemption struct {
	debtLot          *uint256.Int
	collLot          *uint256.Int
	cancelledPartial bool
}

func (e *Engine) requireAfterBootstrap() error {
	issuance, err := e.state.IssuanceState()
	if err != nil {
		return err
	}
	end := issuance.DeploymentTime + uint64(e.params.BootstrapPeriod.Seconds())
	if e.now() < end {
		return ErrBootstrapPeriod
	}
	return nil
}

func (e *Engine) redeemFromTrove(ledger *types.SystemLedger, owner crypto.Address, maxAmount, price, hint *uint256.Int) (*singleRedemption, error) {
	trove, err := e.state.Trove(owner)
	if err != nil {
		return nil, err
	}
	redeemable, err := fixedpoint.Sub(trove.Debt, e.params.GasCompensation)
	if err != nil {
		return nil, err
	}
	out := &singleRedemption{debtLot: fixedpoint.Min(maxAmount, redeemable)}
	if out.collLot, err = fixedpoint.MulDiv(out.debtLot, fixedpoint.DecimalPrecision, price); err != nil {
		return nil, err
	}
	newDebt, err := fixedpoint.Sub(trove.Debt, out.debtLot)
	if err != nil {
		return nil, err
	}
	newColl, err := fixedpoint.Sub(trove.Coll, out.collLot)
	if err != nil {
		return nil, err
	}

	if newDebt.Eq(e.params.GasCompensation) {
		if err := removeStake(trove, ledger); err != nil {
			return nil, err
		}
		if err := e.closeTrove(trove, types.TroveClosedByRedemption); err != nil {
			return nil, err
		}
		if err := e.pools.BurnGasCompensation(e.params.GasCompensation); err != nil {
			return nil, err
		}
		if err := e.pools.DecreaseDebt(types.ActivePool, e.params.GasCompensation); err != nil {
			return nil, err
		}
		if err := e.accountSurplus(owner, newColl); err != nil {
			return nil, err
		}
		if !newColl.IsZero() {
			if err := e.pools.MoveCollateral(types.ActivePool, types.CollSurplusPool, newColl); err != nil {
				return nil, err
			}
		}
		e.emitTroveUpdated(trove, events.TroveOperationRedeem)
		return out, nil
	}

	newNICR, err := fixedpoint.ComputeNominalCR(newColl, newDebt)
	if err != nil {
		return nil, err
	}
	netDebt, err := fixedpoint.Sub(newDebt, e.params.GasCompensation)
	if err != nil {
		return nil, err
	}
	hinted := hint != nil && !hint.IsZero()
	if (hinted && !hint.Eq(newNICR)) || netDebt.Lt(e.params.MinNetDebt) {
		out.cancelledPartial = true
		return out, nil
	}
	trove.Debt = newDebt
	trove.Coll = newColl
	if err := updateStakeAndTotalStakes(trove, ledger); err != nil {
		return nil, err
	}
	if err := e.state.PutTrove(trove); err != nil {
		return nil, err
	}
	if err := e.index().reInsert(owner, newNICR); err != nil {
		return nil, err
	}
	e.emitTroveUpdated(trove, events.TroveOperationRedeem)
	return out, nil
}

// firstRedemptionCandidate returns the lowest trove whose ICR is at least MCR.
func (e *Engine) firstRedemptionCandidate(price *uint256.Int) (crypto.Address, bool, error) {
	owner, ok, err := e.index().last()
	for err == nil && ok {
		icr, icrErr := e.currentICR(owner, price)
		if icrErr != nil {
			return crypto.ZeroAddress, false, icrErr
		}
		if !icr.Lt(e.params.MCR) {
			return owner, true, nil
		}
		owner, ok, err = e.index().prev(owner)
	}
	return crypto.ZeroAddress, false, err
}

// RedeemCollateral walks troves from the lowest collateral ratio upwards,
// cancelling debt against their collateral until the amount is exhausted.
func (e *Engine) RedeemCollateral(req RedemptionRequest, price *uint256.Int) (*RedemptionResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if e.fees == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleRedemption); err != nil {
		return nil, err
	}
	maxFee := fixedpoint.Clone(req.MaxFee)
	if maxFee.Lt(e.params.RedemptionFeeFloor) || maxFee.Gt(fixedpoint.DecimalPrecision) {
		return nil, ErrInvalidMaxFee
	}
	if err := e.requireAfterBootstrap(); err != nil {
		return nil, err
	}
	if err := requirePrice(price); err != nil {
		return nil, err
	}
	tcr, err := e.TCR(price)
	if err != nil {
		return nil, err
	}
	if tcr.Lt(e.params.MCR) {
		return nil, ErrTCRBelowMCR
	}
	if req.Amount == nil || req.Amount.IsZero() {
		return nil, ErrZeroAmount
	}
	_, totalSupply, err := e.pools.EntireSystem()
	if err != nil {
		return nil, err
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return nil, err
	}

	result := &RedemptionResult{
		Attempted: fixedpoint.Clone(req.Amount),
		Redeemed:  fixedpoint.Zero(),
		CollDrawn: fixedpoint.Zero(),
	}
	remaining := fixedpoint.Clone(req.Amount)
	current, ok, err := e.firstRedemptionCandidate(price)
	if err != nil {
		return nil, err
	}
	iterations := req.MaxIterations
	for ok && !remaining.IsZero() && (req.MaxIterations <= 0 || iterations > 0) {
		iterations--
		next, hasNext, err := e.index().prev(current)
		if err != nil {
			return nil, err
		}
		trove, err := e.state.Trove(current)
		if err != nil {
			return nil, err
		}
		if err := e.applyPendingRewards(trove, ledger); err != nil {
			return nil, err
		}
		single, err := e.redeemFromTrove(ledger, current, remaining, price, req.PartialHintNICR)
		if err != nil {
			return nil, err
		}
		if single.cancelledPartial {
			break
		}
		if result.Redeemed, err = fixedpoint.Add(result.Redeemed, single.debtLot); err != nil {
			return nil, err
		}
		if result.CollDrawn, err = fixedpoint.Add(result.CollDrawn, single.collLot); err != nil {
			return nil, err
		}
		if remaining, err = fixedpoint.Sub(remaining, single.debtLot); err != nil {
			return nil, err
		}
		result.Troves = append(result.Troves, current)
		current, ok = next, hasNext
	}
	if result.CollDrawn.IsZero() {
		return nil, ErrUnableToRedeem
	}

	if err := e.updateBaseRateFromRedemption(ledger, result.CollDrawn, price, totalSupply); err != nil {
		return nil, err
	}
	if result.CollFee, err = e.redemptionFee(ledger.BaseRate, result.CollDrawn); err != nil {
		return nil, err
	}
	if err := requireUserAcceptsFee(result.CollFee, result.CollDrawn, maxFee); err != nil {
		return nil, err
	}
	if err := e.state.PutSystemLedger(ledger); err != nil {
		return nil, err
	}
	if err := e.pools.SendCollateral(types.ActivePool, e.fees.Account(), result.CollFee); err != nil {
		return nil, err
	}
	if err := e.fees.IncreaseFColl(result.CollFee); err != nil {
		return nil, err
	}
	if result.CollSent, err = fixedpoint.Sub(result.CollDrawn, result.CollFee); err != nil {
		return nil, err
	}

	e.state.Emit(events.Redemption{
		Redeemer:        req.Redeemer,
		AttemptedAmount: result.Attempted,
		ActualAmount:    result.Redeemed,
		CollSent:        result.CollSent,
		CollFee:         result.CollFee,
		Troves:          len(result.Troves),
	}.Event())
	e.pools.BurnDebt(req.Redeemer, result.Redeemed)
	if err := e.pools.DecreaseDebt(types.ActivePool, result.Redeemed); err != nil {
		return nil, err
	}
	if err := e.pools.SendCollateral(types.ActivePool, req.Redeemer, result.CollSent); err != nil {
		return nil, err
	}
	return result, nil
}
