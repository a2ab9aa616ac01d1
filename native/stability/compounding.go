package stability

import (
	"github.com/holiman/uint256"

	"solusd/core/events"
	"solusd/core/types"
	"solusd/native/fixedpoint"
)

// TotalDeposits returns the debt tokens currently held by the pool.
func (e *Engine) TotalDeposits() (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	sp, err := e.state.StabilityPool()
	if err != nil {
		return nil, err
	}
	return sp.TotalDeposits, nil
}

// TriggerIssuance pulls newly issued rewards into G and returns the amount.
// Nothing is issued while the pool is empty, so rewards accrue until the
// next deposit exists to receive them.
func (e *Engine) TriggerIssuance() (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	sp, err := e.state.StabilityPool()
	if err != nil {
		return nil, err
	}
	issued, err := e.triggerIssuance(sp)
	if err != nil {
		return nil, err
	}
	if err := e.state.PutStabilityPool(sp); err != nil {
		return nil, err
	}
	return issued, nil
}

func (e *Engine) triggerIssuance(sp *types.StabilityPool) (*uint256.Int, error) {
	if e.issuer == nil || sp.TotalDeposits.IsZero() {
		return fixedpoint.Zero(), nil
	}
	issued, err := e.issuer.Issue()
	if err != nil {
		return nil, err
	}
	if err := e.updateG(sp, issued); err != nil {
		return nil, err
	}
	return issued, nil
}

func (e *Engine) updateG(sp *types.StabilityPool, issued *uint256.Int) error {
	if issued == nil || issued.IsZero() || sp.TotalDeposits.IsZero() {
		return nil
	}
	perUnit, lastErr, err := fixedpoint.PerUnitWithError(issued, sp.LastIssuanceError, sp.TotalDeposits)
	if err != nil {
		return err
	}
	sp.LastIssuanceError = lastErr
	marginal, err := fixedpoint.Mul(perUnit, sp.P)
	if err != nil {
		return err
	}
	sums, err := e.state.EpochScaleSums(sp.CurrentEpoch, sp.CurrentScale)
	if err != nil {
		return err
	}
	if sums.G, err = fixedpoint.Add(sums.G, marginal); err != nil {
		return err
	}
	return e.state.PutEpochScaleSums(sp.CurrentEpoch, sp.CurrentScale, sums)
}

// rewardsPerUnitStaked splits an offset over the deposits. Collateral gain
// rounds down with the remainder carried forward; debt loss rounds up so
// deposits never shrink by less than the debt they absorbed.
func rewardsPerUnitStaked(sp *types.StabilityPool, collToAdd, debtToOffset *uint256.Int) (collGain, debtLoss *uint256.Int, err error) {
	total := sp.TotalDeposits
	if debtToOffset.Gt(total) {
		return nil, nil, ErrOffsetExceedsDeposits
	}
	collGain, collErr, err := fixedpoint.PerUnitWithError(collToAdd, sp.LastCollError, total)
	if err != nil {
		return nil, nil, err
	}
	sp.LastCollError = collErr

	if debtToOffset.Eq(total) {
		sp.LastDebtLossError = fixedpoint.Zero()
		return collGain, fixedpoint.One(), nil
	}
	scaled, err := fixedpoint.Mul(debtToOffset, fixedpoint.DecimalPrecision)
	if err != nil {
		return nil, nil, err
	}
	numerator, err := fixedpoint.Sub(scaled, sp.LastDebtLossError)
	if err != nil {
		return nil, nil, err
	}
	debtLoss = new(uint256.Int).Div(numerator, total)
	debtLoss.AddUint64(debtLoss, 1)
	absorbed := new(uint256.Int).Mul(debtLoss, total)
	sp.LastDebtLossError = new(uint256.Int).Sub(absorbed, numerator)
	return collGain, debtLoss, nil
}

func (e *Engine) updateRewardSumAndProduct(sp *types.StabilityPool, collGainPerUnit, debtLossPerUnit *uint256.Int) (*uint256.Int, error) {
	factor, err := fixedpoint.Sub(fixedpoint.DecimalPrecision, debtLossPerUnit)
	if err != nil {
		return nil, err
	}
	sums, err := e.state.EpochScaleSums(sp.CurrentEpoch, sp.CurrentScale)
	if err != nil {
		return nil, err
	}
	marginal, err := fixedpoint.Mul(collGainPerUnit, sp.P)
	if err != nil {
		return nil, err
	}
	if sums.S, err = fixedpoint.Add(sums.S, marginal); err != nil {
		return nil, err
	}
	if err := e.state.PutEpochScaleSums(sp.CurrentEpoch, sp.CurrentScale, sums); err != nil {
		return nil, err
	}

	switch {
	case factor.IsZero():
		sp.CurrentEpoch++
		sp.CurrentScale = 0
		sp.P = fixedpoint.One()
	default:
		next, err := fixedpoint.MulDiv(sp.P, factor, fixedpoint.DecimalPrecision)
		if err != nil {
			return nil, err
		}
		if next.Lt(fixedpoint.ScaleFactor) {
			scaled, err := fixedpoint.Mul(sp.P, factor)
			if err != nil {
				return nil, err
			}
			if next, err = fixedpoint.MulDiv(scaled, fixedpoint.ScaleFactor, fixedpoint.DecimalPrecision); err != nil {
				return nil, err
			}
			sp.CurrentScale++
		}
		if next.IsZero() {
			return nil, fixedpoint.ErrMathUnderflow
		}
		sp.P = next
	}
	return sums.S, nil
}

// Offset cancels debtToOffset against the deposits and credits the pool
// with collToAdd taken from the active pool.
func (e *Engine) Offset(debtToOffset, collToAdd *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	sp, err := e.state.StabilityPool()
	if err != nil {
		return err
	}
	if sp.TotalDeposits.IsZero() || debtToOffset == nil || debtToOffset.IsZero() {
		return nil
	}
	if _, err := e.triggerIssuance(sp); err != nil {
		return err
	}
	collGain, debtLoss, err := rewardsPerUnitStaked(sp, collToAdd, debtToOffset)
	if err != nil {
		return err
	}
	s, err := e.updateRewardSumAndProduct(sp, collGain, debtLoss)
	if err != nil {
		return err
	}

	if err := e.pools.DecreaseDebt(types.ActivePool, debtToOffset); err != nil {
		return err
	}
	if sp.TotalDeposits, err = fixedpoint.Sub(sp.TotalDeposits, debtToOffset); err != nil {
		return err
	}
	e.pools.BurnDebt(e.Account(), debtToOffset)
	if err := e.pools.SendCollateral(types.ActivePool, e.Account(), collToAdd); err != nil {
		return err
	}
	if sp.Coll, err = fixedpoint.Add(sp.Coll, collToAdd); err != nil {
		return err
	}
	if err := e.state.PutStabilityPool(sp); err != nil {
		return err
	}
	e.state.Emit(events.PoolOffset{
		DebtOffset: debtToOffset,
		CollAdded:  collToAdd,
		P:          sp.P,
		S:          s,
		Epoch:      sp.CurrentEpoch,
		Scale:      sp.CurrentScale,
	}.Event())
	return nil
}

// compoundedStake applies the product accumulated since snap to initial.
func compoundedStake(sp *types.StabilityPool, initial *uint256.Int, snap types.DepositSnapshot) (*uint256.Int, error) {
	if initial == nil || initial.IsZero() || snap.Epoch < sp.CurrentEpoch {
		return fixedpoint.Zero(), nil
	}
	if snap.P == nil || snap.P.IsZero() || snap.Scale > sp.CurrentScale {
		return fixedpoint.Zero(), nil
	}
	var compounded *uint256.Int
	switch sp.CurrentScale - snap.Scale {
	case 0:
		v, err := fixedpoint.MulDiv(initial, sp.P, snap.P)
		if err != nil {
			return nil, err
		}
		compounded = v
	case 1:
		v, err := fixedpoint.MulDiv(initial, sp.P, snap.P)
		if err != nil {
			return nil, err
		}
		compounded = v.Div(v, fixedpoint.ScaleFactor)
	default:
		return fixedpoint.Zero(), nil
	}
	dust := new(uint256.Int).Div(initial, fixedpoint.ScaleFactor)
	if compounded.Lt(dust) {
		return fixedpoint.Zero(), nil
	}
	return compounded, nil
}

type sumSelector func(*types.EpochScaleSums) *uint256.Int

func selectS(s *types.EpochScaleSums) *uint256.Int { return s.S }
func selectG(s *types.EpochScaleSums) *uint256.Int { return s.G }

// gainFromSnapshots returns initial*(sum - snapshot + nextScaleSum/SCALE)/P/1e18.
func (e *Engine) gainFromSnapshots(initial *uint256.Int, snap types.DepositSnapshot, snapSum *uint256.Int, pick sumSelector) (*uint256.Int, error) {
	if initial == nil || initial.IsZero() || snap.P == nil || snap.P.IsZero() {
		return fixedpoint.Zero(), nil
	}
	current, err := e.state.EpochScaleSums(snap.Epoch, snap.Scale)
	if err != nil {
		return nil, err
	}
	next, err := e.state.EpochScaleSums(snap.Epoch, snap.Scale+1)
	if err != nil {
		return nil, err
	}
	first, err := fixedpoint.Sub(pick(current), snapSum)
	if err != nil {
		return nil, err
	}
	second := new(uint256.Int).Div(pick(next), fixedpoint.ScaleFactor)
	portion, err := fixedpoint.Add(first, second)
	if err != nil {
		return nil, err
	}
	gain, err := fixedpoint.MulDiv(initial, portion, snap.P)
	if err != nil {
		return nil, err
	}
	return gain.Div(gain, fixedpoint.DecimalPrecision), nil
}

func (e *Engine) collGain(deposit *types.Deposit) (*uint256.Int, error) {
	return e.gainFromSnapshots(deposit.InitialValue, deposit.Snapshot, deposit.Snapshot.S, selectS)
}

func kickbackOf(frontEnd *types.FrontEnd) *uint256.Int {
	if frontEnd == nil {
		return fixedpoint.One()
	}
	return frontEnd.KickbackRate
}

// depositorIssuanceGain is the depositor's kickback share of the issuance
// earned by the deposit.
func (e *Engine) depositorIssuanceGain(deposit *types.Deposit) (*uint256.Int, error) {
	if deposit.InitialValue.IsZero() {
		return fixedpoint.Zero(), nil
	}
	var frontEnd *types.FrontEnd
	if !deposit.FrontEndTag.IsZero() {
		var err error
		if frontEnd, err = e.state.FrontEnd(deposit.FrontEndTag); err != nil {
			return nil, err
		}
	}
	gain, err := e.gainFromSnapshots(deposit.InitialValue, deposit.Snapshot, deposit.Snapshot.G, selectG)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(kickbackOf(frontEnd), gain, fixedpoint.DecimalPrecision)
}

// frontEndIssuanceGain is the front end's share of the issuance earned by
// the deposits tagged with it.
func (e *Engine) frontEndIssuanceGain(frontEnd *types.FrontEnd) (*uint256.Int, error) {
	if frontEnd.Stake.IsZero() {
		return fixedpoint.Zero(), nil
	}
	share, err := fixedpoint.Sub(fixedpoint.DecimalPrecision, frontEnd.KickbackRate)
	if err != nil {
		return nil, err
	}
	gain, err := e.gainFromSnapshots(frontEnd.Stake, frontEnd.Snapshot, frontEnd.Snapshot.G, selectG)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(share, gain, fixedpoint.DecimalPrecision)
}

func (e *Engine) currentSnapshot(sp *types.StabilityPool) (types.DepositSnapshot, error) {
	sums, err := e.state.EpochScaleSums(sp.CurrentEpoch, sp.CurrentScale)
	if err != nil {
		return types.DepositSnapshot{}, err
	}
	return types.DepositSnapshot{
		S:     sums.S,
		P:     fixedpoint.Clone(sp.P),
		G:     sums.G,
		Scale: sp.CurrentScale,
		Epoch: sp.CurrentEpoch,
	}, nil
}
