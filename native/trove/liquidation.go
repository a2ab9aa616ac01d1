package trove

import (
	"github.com/holiman/uint256"

	"solusd/core/events"
	"solusd/core/types"
	"solusd/crypto"
	nativecommon "solusd/native/common"
	"solusd/native/fixedpoint"
)

// LiquidationValues is the outcome of liquidating a single trove. For every
// liquidated trove DebtToOffset+DebtToRedistribute equals EntireDebt and
// CollToSendToSP+CollToRedistribute+CollGasCompensation+CollSurplus equals
// EntireColl.
type LiquidationValues struct {
	Owner               crypto.Address
	EntireDebt          *uint256.Int
	EntireColl          *uint256.Int
	CollGasCompensation *uint256.Int
	DebtGasCompensation *uint256.Int
	DebtToOffset        *uint256.Int
	CollToSendToSP      *uint256.Int
	DebtToRedistribute  *uint256.Int
	CollToRedistribute  *uint256.Int
	CollSurplus         *uint256.Int
}

func zeroLiquidationValues() *LiquidationValues {
	return &LiquidationValues{
		EntireDebt:          fixedpoint.Zero(),
		EntireColl:          fixedpoint.Zero(),
		CollGasCompensation: fixedpoint.Zero(),
		DebtGasCompensation: fixedpoint.Zero(),
		DebtToOffset:        fixedpoint.Zero(),
		CollToSendToSP:      fixedpoint.Zero(),
		DebtToRedistribute:  fixedpoint.Zero(),
		CollToRedistribute:  fixedpoint.Zero(),
		CollSurplus:         fixedpoint.Zero(),
	}
}

// LiquidationTotals accumulates LiquidationValues across a batch.
type LiquidationTotals struct {
	TotalCollInSequence      *uint256.Int
	TotalDebtInSequence      *uint256.Int
	TotalCollGasCompensation *uint256.Int
	TotalDebtGasCompensation *uint256.Int
	TotalDebtToOffset        *uint256.Int
	TotalCollToSendToSP      *uint256.Int
	TotalDebtToRedistribute  *uint256.Int
	TotalCollToRedistribute  *uint256.Int
	TotalCollSurplus         *uint256.Int
	Liquidated               []*LiquidationValues
}

func newLiquidationTotals() *LiquidationTotals {
	return &LiquidationTotals{
		TotalCollInSequence:      fixedpoint.Zero(),
		TotalDebtInSequence:      fixedpoint.Zero(),
		TotalCollGasCompensation: fixedpoint.Zero(),
		TotalDebtGasCompensation: fixedpoint.Zero(),
		TotalDebtToOffset:        fixedpoint.Zero(),
		TotalCollToSendToSP:      fixedpoint.Zero(),
		TotalDebtToRedistribute:  fixedpoint.Zero(),
		TotalCollToRedistribute:  fixedpoint.Zero(),
		TotalCollSurplus:         fixedpoint.Zero(),
	}
}

func (t *LiquidationTotals) add(v *LiquidationValues) error {
	pairs := []struct {
		total **uint256.Int
		delta *uint256.Int
	}{
		{&t.TotalCollInSequence, v.EntireColl},
		{&t.TotalDebtInSequence, v.EntireDebt},
		{&t.TotalCollGasCompensation, v.CollGasCompensation},
		{&t.TotalDebtGasCompensation, v.DebtGasCompensation},
		{&t.TotalDebtToOffset, v.DebtToOffset},
		{&t.TotalCollToSendToSP, v.CollToSendToSP},
		{&t.TotalDebtToRedistribute, v.DebtToRedistribute},
		{&t.TotalCollToRedistribute, v.CollToRedistribute},
		{&t.TotalCollSurplus, v.CollSurplus},
	}
	for _, p := range pairs {
		sum, err := fixedpoint.Add(*p.total, p.delta)
		if err != nil {
			return err
		}
		*p.total = sum
	}
	if !v.EntireDebt.IsZero() {
		t.Liquidated = append(t.Liquidated, v)
	}
	return nil
}

// offsetAndRedistributionVals splits debt and collateral between the
// stability pool and redistribution.
func offsetAndRedistributionVals(debt, coll, spDeposits *uint256.Int) (debtToOffset, collToSP, debtToRedistribute, collToRedistribute *uint256.Int, err error) {
	if spDeposits == nil || spDeposits.IsZero() {
		return fixedpoint.Zero(), fixedpoint.Zero(), fixedpoint.Clone(debt), fixedpoint.Clone(coll), nil
	}
	debtToOffset = fixedpoint.Min(debt, spDeposits)
	if collToSP, err = fixedpoint.MulDiv(coll, debtToOffset, debt); err != nil {
		return
	}
	if debtToRedistribute, err = fixedpoint.Sub(debt, debtToOffset); err != nil {
		return
	}
	collToRedistribute, err = fixedpoint.Sub(coll, collToSP)
	return
}

func (e *Engine) collGasCompensation(coll *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(fixedpoint.Clone(coll), uint256.NewInt(e.params.PercentDivisor))
}

// cappedOffsetVals sends collateral worth debt*MCR to the pool and leaves
// the excess as a claimable surplus.
func (e *Engine) cappedOffsetVals(debt, coll, price *uint256.Int) (*LiquidationValues, error) {
	capped, err := fixedpoint.MulDiv(debt, e.params.MCR, price)
	if err != nil {
		return nil, err
	}
	v := zeroLiquidationValues()
	v.EntireDebt = fixedpoint.Clone(debt)
	v.EntireColl = fixedpoint.Clone(coll)
	v.CollGasCompensation = e.collGasCompensation(capped)
	v.DebtGasCompensation = fixedpoint.Clone(e.params.GasCompensation)
	v.DebtToOffset = fixedpoint.Clone(debt)
	if v.CollToSendToSP, err = fixedpoint.Sub(capped, v.CollGasCompensation); err != nil {
		return nil, err
	}
	if v.CollSurplus, err = fixedpoint.Sub(coll, capped); err != nil {
		return nil, err
	}
	return v, nil
}

// beginLiquidation pulls the trove's pending rewards into the active pool and
// drops its stake.
func (e *Engine) beginLiquidation(trove *types.Trove, ledger *types.SystemLedger, amounts *troveAmounts) error {
	if err := e.pools.MoveToActive(amounts.PendingColl, amounts.PendingDebt); err != nil {
		return err
	}
	return removeStake(trove, ledger)
}

func (e *Engine) finishLiquidation(trove *types.Trove, v *LiquidationValues, mode string) error {
	if err := e.closeTrove(trove, types.TroveClosedByLiquidation); err != nil {
		return err
	}
	e.state.Emit(events.TroveLiquidated{Owner: trove.Owner, Debt: v.EntireDebt, Coll: v.EntireColl, Mode: mode}.Event())
	return nil
}

func (e *Engine) liquidateNormalMode(ledger *types.SystemLedger, owner crypto.Address, spDeposits *uint256.Int) (*LiquidationValues, error) {
	trove, err := e.state.Trove(owner)
	if err != nil {
		return nil, err
	}
	amounts, err := entireDebtAndColl(trove, ledger)
	if err != nil {
		return nil, err
	}
	if err := e.beginLiquidation(trove, ledger, amounts); err != nil {
		return nil, err
	}
	v := zeroLiquidationValues()
	v.Owner = owner
	v.EntireDebt = amounts.Debt
	v.EntireColl = amounts.Coll
	v.CollGasCompensation = e.collGasCompensation(amounts.Coll)
	v.DebtGasCompensation = fixedpoint.Clone(e.params.GasCompensation)
	collToLiquidate, err := fixedpoint.Sub(amounts.Coll, v.CollGasCompensation)
	if err != nil {
		return nil, err
	}
	if v.DebtToOffset, v.CollToSendToSP, v.DebtToRedistribute, v.CollToRedistribute, err = offsetAndRedistributionVals(amounts.Debt, collToLiquidate, spDeposits); err != nil {
		return nil, err
	}
	if err := e.finishLiquidation(trove, v, events.LiquidationModeNormal); err != nil {
		return nil, err
	}
	return v, nil
}

// liquidateRecoveryMode applies the three recovery-mode branches. A trove
// that qualifies for none of them is skipped and zero values are returned.
func (e *Engine) liquidateRecoveryMode(ledger *types.SystemLedger, owner crypto.Address, icr, spDeposits, tcr, price *uint256.Int) (*LiquidationValues, error) {
	size, err := e.index().size()
	if err != nil {
		return nil, err
	}
	if size <= 1 {
		return zeroLiquidationValues(), nil
	}
	trove, err := e.state.Trove(owner)
	if err != nil {
		return nil, err
	}
	amounts, err := entireDebtAndColl(trove, ledger)
	if err != nil {
		return nil, err
	}

	switch {
	case !icr.Gt(fixedpoint.DecimalPrecision):
		if err := e.beginLiquidation(trove, ledger, amounts); err != nil {
			return nil, err
		}
		v := zeroLiquidationValues()
		v.Owner = owner
		v.EntireDebt = amounts.Debt
		v.EntireColl = amounts.Coll
		v.CollGasCompensation = e.collGasCompensation(amounts.Coll)
		v.DebtGasCompensation = fixedpoint.Clone(e.params.GasCompensation)
		v.DebtToRedistribute = fixedpoint.Clone(amounts.Debt)
		if v.CollToRedistribute, err = fixedpoint.Sub(amounts.Coll, v.CollGasCompensation); err != nil {
			return nil, err
		}
		if err := e.finishLiquidation(trove, v, events.LiquidationModeRecovery); err != nil {
			return nil, err
		}
		return v, nil

	case icr.Lt(e.params.MCR):
		if err := e.beginLiquidation(trove, ledger, amounts); err != nil {
			return nil, err
		}
		v := zeroLiquidationValues()
		v.Owner = owner
		v.EntireDebt = amounts.Debt
		v.EntireColl = amounts.Coll
		v.CollGasCompensation = e.collGasCompensation(amounts.Coll)
		v.DebtGasCompensation = fixedpoint.Clone(e.params.GasCompensation)
		collToLiquidate, err := fixedpoint.Sub(amounts.Coll, v.CollGasCompensation)
		if err != nil {
			return nil, err
		}
		if v.DebtToOffset, v.CollToSendToSP, v.DebtToRedistribute, v.CollToRedistribute, err = offsetAndRedistributionVals(amounts.Debt, collToLiquidate, spDeposits); err != nil {
			return nil, err
		}
		if err := e.finishLiquidation(trove, v, events.LiquidationModeRecovery); err != nil {
			return nil, err
		}
		return v, nil

	case icr.Lt(tcr) && !amounts.Debt.Gt(spDeposits):
		if err := e.beginLiquidation(trove, ledger, amounts); err != nil {
			return nil, err
		}
		v, err := e.cappedOffsetVals(amounts.Debt, amounts.Coll, price)
		if err != nil {
			return nil, err
		}
		v.Owner = owner
		if err := e.finishLiquidation(trove, v, events.LiquidationModeRecovery); err != nil {
			return nil, err
		}
		if err := e.accountSurplus(owner, v.CollSurplus); err != nil {
			return nil, err
		}
		return v, nil
	}
	return zeroLiquidationValues(), nil
}

// Liquidate closes a single active trove that is eligible for liquidation.
func (e *Engine) Liquidate(liquidator, owner crypto.Address, price *uint256.Int) (*LiquidationTotals, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := e.loadActive(owner); err != nil {
		return nil, err
	}
	return e.BatchLiquidate(liquidator, []crypto.Address{owner}, price)
}

// LiquidateTroves walks up to n troves from the lowest NICR.
func (e *Engine) LiquidateTroves(liquidator crypto.Address, n int, price *uint256.Int) (*LiquidationTotals, error) {
	return e.liquidate(liquidator, price, func(ledger *types.SystemLedger, spDeposits *uint256.Int, recovery bool) (*LiquidationTotals, error) {
		if recovery {
			return e.sequenceRecoveryMode(ledger, n, spDeposits, price)
		}
		return e.sequenceNormalMode(ledger, n, spDeposits, price)
	})
}

// BatchLiquidate liquidates an explicit list of troves, skipping those that
// are inactive or ineligible.
func (e *Engine) BatchLiquidate(liquidator crypto.Address, owners []crypto.Address, price *uint256.Int) (*LiquidationTotals, error) {
	if len(owners) == 0 {
		return nil, ErrEmptyLiquidationList
	}
	return e.liquidate(liquidator, price, func(ledger *types.SystemLedger, spDeposits *uint256.Int, recovery bool) (*LiquidationTotals, error) {
		if recovery {
			return e.batchRecoveryMode(ledger, owners, spDeposits, price)
		}
		return e.batchNormalMode(ledger, owners, spDeposits, price)
	})
}

type liquidationPlan func(ledger *types.SystemLedger, spDeposits *uint256.Int, recovery bool) (*LiquidationTotals, error)

func (e *Engine) liquidate(liquidator crypto.Address, price *uint256.Int, plan liquidationPlan) (*LiquidationTotals, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleTrove); err != nil {
		return nil, err
	}
	if err := requirePrice(price); err != nil {
		return nil, err
	}
	spDeposits := fixedpoint.Zero()
	if e.stability != nil {
		deposits, err := e.stability.TotalDeposits()
		if err != nil {
			return nil, err
		}
		spDeposits = deposits
	}
	recovery, err := e.CheckRecoveryMode(price)
	if err != nil {
		return nil, err
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return nil, err
	}
	totals, err := plan(ledger, spDeposits, recovery)
	if err != nil {
		return nil, err
	}
	if totals.TotalDebtInSequence.IsZero() {
		return nil, ErrNothingToLiquidate
	}

	if !totals.TotalDebtToOffset.IsZero() {
		if e.stability == nil {
			return nil, ErrNilState
		}
		if err := e.stability.Offset(totals.TotalDebtToOffset, totals.TotalCollToSendToSP); err != nil {
			return nil, err
		}
	}
	if err := e.redistributeDebtAndColl(ledger, totals.TotalDebtToRedistribute, totals.TotalCollToRedistribute); err != nil {
		return nil, err
	}
	if !totals.TotalCollSurplus.IsZero() {
		if err := e.pools.MoveCollateral(types.ActivePool, types.CollSurplusPool, totals.TotalCollSurplus); err != nil {
			return nil, err
		}
	}
	if err := e.updateSystemSnapshots(ledger, totals.TotalCollGasCompensation); err != nil {
		return nil, err
	}
	if err := e.state.PutSystemLedger(ledger); err != nil {
		return nil, err
	}

	liquidatedColl, err := fixedpoint.Sub(totals.TotalCollInSequence, totals.TotalCollGasCompensation)
	if err != nil {
		return nil, err
	}
	if liquidatedColl, err = fixedpoint.Sub(liquidatedColl, totals.TotalCollSurplus); err != nil {
		return nil, err
	}
	e.state.Emit(events.Liquidation{
		Liquidator:          liquidator,
		LiquidatedDebt:      totals.TotalDebtInSequence,
		LiquidatedColl:      liquidatedColl,
		CollGasCompensation: totals.TotalCollGasCompensation,
		DebtGasCompensation: totals.TotalDebtGasCompensation,
		Troves:              len(totals.Liquidated),
	}.Event())

	if err := e.pools.PayGasCompensation(liquidator, totals.TotalDebtGasCompensation); err != nil {
		return nil, err
	}
	if err := e.pools.SendCollateral(types.ActivePool, liquidator, totals.TotalCollGasCompensation); err != nil {
		return nil, err
	}
	return totals, nil
}

func (e *Engine) sequenceNormalMode(ledger *types.SystemLedger, n int, spDeposits, price *uint256.Int) (*LiquidationTotals, error) {
	totals := newLiquidationTotals()
	remaining := fixedpoint.Clone(spDeposits)
	for i := 0; i < n; i++ {
		owner, ok, err := e.index().last()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		icr, err := e.currentICR(owner, price)
		if err != nil {
			return nil, err
		}
		if !icr.Lt(e.params.MCR) {
			break
		}
		v, err := e.liquidateNormalMode(ledger, owner, remaining)
		if err != nil {
			return nil, err
		}
		if remaining, err = fixedpoint.Sub(remaining, v.DebtToOffset); err != nil {
			return nil, err
		}
		if err := totals.add(v); err != nil {
			return nil, err
		}
	}
	return totals, nil
}

// recoveryTracker carries the running system totals while a recovery-mode
// batch is processed so later troves see the effect of earlier ones.
type recoveryTracker struct {
	remaining    *uint256.Int
	systemColl   *uint256.Int
	systemDebt   *uint256.Int
	backToNormal bool
}

func (e *Engine) newRecoveryTracker(spDeposits *uint256.Int) (*recoveryTracker, error) {
	coll, debt, err := e.pools.EntireSystem()
	if err != nil {
		return nil, err
	}
	return &recoveryTracker{remaining: fixedpoint.Clone(spDeposits), systemColl: coll, systemDebt: debt}, nil
}

// recoveryStep liquidates owner under the tracker's current mode. skip reports that
// the caller should stop (sequence) or move on (batch).
func (e *Engine) recoveryStep(ledger *types.SystemLedger, tr *recoveryTracker, totals *LiquidationTotals, owner crypto.Address, price *uint256.Int) (skip bool, err error) {
	icr, err := e.currentICR(owner, price)
	if err != nil {
		return false, err
	}
	if !tr.backToNormal {
		if !icr.Lt(e.params.MCR) && tr.remaining.IsZero() {
			return true, nil
		}
		tcr, err := fixedpoint.ComputeCR(tr.systemColl, tr.systemDebt, price)
		if err != nil {
			return false, err
		}
		v, err := e.liquidateRecoveryMode(ledger, owner, icr, tr.remaining, tcr, price)
		if err != nil {
			return false, err
		}
		if tr.remaining, err = fixedpoint.Sub(tr.remaining, v.DebtToOffset); err != nil {
			return false, err
		}
		if tr.systemDebt, err = fixedpoint.Sub(tr.systemDebt, v.DebtToOffset); err != nil {
			return false, err
		}
		for _, leaving := range []*uint256.Int{v.CollToSendToSP, v.CollGasCompensation, v.CollSurplus} {
			if tr.systemColl, err = fixedpoint.Sub(tr.systemColl, leaving); err != nil {
				return false, err
			}
		}
		if err := totals.add(v); err != nil {
			return false, err
		}
		recovery, err := e.checkPotentialRecoveryMode(tr.systemColl, tr.systemDebt, price)
		if err != nil {
			return false, err
		}
		tr.backToNormal = !recovery
		return false, nil
	}
	if icr.Lt(e.params.MCR) {
		v, err := e.liquidateNormalMode(ledger, owner, tr.remaining)
		if err != nil {
			return false, err
		}
		if tr.remaining, err = fixedpoint.Sub(tr.remaining, v.DebtToOffset); err != nil {
			return false, err
		}
		return false, totals.add(v)
	}
	return true, nil
}

func (e *Engine) sequenceRecoveryMode(ledger *types.SystemLedger, n int, spDeposits, price *uint256.Int) (*LiquidationTotals, error) {
	totals := newLiquidationTotals()
	tr, err := e.newRecoveryTracker(spDeposits)
	if err != nil {
		return nil, err
	}
	owner, ok, err := e.index().last()
	if err != nil || !ok {
		return totals, err
	}
	firstOwner, _, err := e.index().first()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n && ok && owner != firstOwner; i++ {
		next, hasNext, err := e.index().prev(owner)
		if err != nil {
			return nil, err
		}
		stop, err := e.recoveryStep(ledger, tr, totals, owner, price)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
		owner, ok = next, hasNext
	}
	return totals, nil
}

func (e *Engine) batchNormalMode(ledger *types.SystemLedger, owners []crypto.Address, spDeposits, price *uint256.Int) (*LiquidationTotals, error) {
	totals := newLiquidationTotals()
	remaining := fixedpoint.Clone(spDeposits)
	for _, owner := range owners {
		trove, err := e.state.Trove(owner)
		if err != nil {
			return nil, err
		}
		if !trove.IsActive() {
			continue
		}
		icr, err := e.currentICR(owner, price)
		if err != nil {
			return nil, err
		}
		if !icr.Lt(e.params.MCR) {
			continue
		}
		v, err := e.liquidateNormalMode(ledger, owner, remaining)
		if err != nil {
			return nil, err
		}
		if remaining, err = fixedpoint.Sub(remaining, v.DebtToOffset); err != nil {
			return nil, err
		}
		if err := totals.add(v); err != nil {
			return nil, err
		}
	}
	return totals, nil
}

func (e *Engine) batchRecoveryMode(ledger *types.SystemLedger, owners []crypto.Address, spDeposits, price *uint256.Int) (*LiquidationTotals, error) {
	totals := newLiquidationTotals()
	tr, err := e.newRecoveryTracker(spDeposits)
	if err != nil {
		return nil, err
	}
	for _, owner := range owners {
		trove, err := e.state.Trove(owner)
		if err != nil {
			return nil, err
		}
		if !trove.IsActive() {
			continue
		}
		if _, err := e.recoveryStep(ledger, tr, totals, owner, price); err != nil {
			return nil, err
		}
	}
	return totals, nil
}
