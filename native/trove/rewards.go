package trove

import (
	"github.com/holiman/uint256"

	"solusd/core/events"
	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
)

func troveUpdatedEvent(trove *types.Trove, operation string) *types.Event {
	return events.TroveUpdated{
		Owner:     trove.Owner,
		Coll:      trove.Coll,
		Debt:      trove.Debt,
		Stake:     trove.Stake,
		Status:    trove.Status,
		Operation: operation,
	}.Event()
}

// pendingReward returns stake*(accumulator-snapshot)/1e18 for an active trove.
func pendingReward(trove *types.Trove, accumulator, snapshot *uint256.Int) (*uint256.Int, error) {
	if !trove.IsActive() {
		return fixedpoint.Zero(), nil
	}
	delta, err := fixedpoint.Sub(accumulator, snapshot)
	if err != nil {
		return nil, err
	}
	if delta.IsZero() {
		return fixedpoint.Zero(), nil
	}
	return fixedpoint.MulDiv(trove.Stake, delta, fixedpoint.DecimalPrecision)
}

func pendingCollReward(trove *types.Trove, ledger *types.SystemLedger) (*uint256.Int, error) {
	return pendingReward(trove, ledger.LColl, trove.Snapshot.LColl)
}

func pendingDebtReward(trove *types.Trove, ledger *types.SystemLedger) (*uint256.Int, error) {
	return pendingReward(trove, ledger.LDebt, trove.Snapshot.LDebt)
}

// hasPendingRewards compares the collateral snapshot only; every
// redistribution moves collateral whenever it moves debt.
func hasPendingRewards(trove *types.Trove, ledger *types.SystemLedger) bool {
	if !trove.IsActive() {
		return false
	}
	return fixedpoint.Clone(trove.Snapshot.LColl).Lt(ledger.LColl)
}

// troveAmounts is a trove's debt and collateral including rewards that still
// sit in the default pool.
type troveAmounts struct {
	Debt        *uint256.Int
	Coll        *uint256.Int
	PendingDebt *uint256.Int
	PendingColl *uint256.Int
}

func entireDebtAndColl(trove *types.Trove, ledger *types.SystemLedger) (*troveAmounts, error) {
	pendingColl, err := pendingCollReward(trove, ledger)
	if err != nil {
		return nil, err
	}
	pendingDebt, err := pendingDebtReward(trove, ledger)
	if err != nil {
		return nil, err
	}
	coll, err := fixedpoint.Add(trove.Coll, pendingColl)
	if err != nil {
		return nil, err
	}
	debt, err := fixedpoint.Add(trove.Debt, pendingDebt)
	if err != nil {
		return nil, err
	}
	return &troveAmounts{Debt: debt, Coll: coll, PendingDebt: pendingDebt, PendingColl: pendingColl}, nil
}

func updateRewardSnapshots(trove *types.Trove, ledger *types.SystemLedger) {
	trove.Snapshot.LColl = fixedpoint.Clone(ledger.LColl)
	trove.Snapshot.LDebt = fixedpoint.Clone(ledger.LDebt)
}

// applyPendingRewards folds the trove's share of redistributions into its
// stored debt and collateral and pulls the matching amounts back into the
// active pool.
func (e *Engine) applyPendingRewards(trove *types.Trove, ledger *types.SystemLedger) error {
	if !hasPendingRewards(trove, ledger) {
		return nil
	}
	amounts, err := entireDebtAndColl(trove, ledger)
	if err != nil {
		return err
	}
	trove.Coll = amounts.Coll
	trove.Debt = amounts.Debt
	updateRewardSnapshots(trove, ledger)
	if err := e.pools.MoveToActive(amounts.PendingColl, amounts.PendingDebt); err != nil {
		return err
	}
	if err := e.state.PutTrove(trove); err != nil {
		return err
	}
	e.emitTroveUpdated(trove, events.TroveOperationApply)
	return nil
}

// computeNewStake scales collateral by the stake/collateral ratio captured at
// the last liquidation.
func computeNewStake(coll *uint256.Int, ledger *types.SystemLedger) (*uint256.Int, error) {
	if fixedpoint.Clone(ledger.TotalCollateralSnapshot).IsZero() {
		return fixedpoint.Clone(coll), nil
	}
	return fixedpoint.MulDiv(coll, ledger.TotalStakesSnapshot, ledger.TotalCollateralSnapshot)
}

func updateStakeAndTotalStakes(trove *types.Trove, ledger *types.SystemLedger) error {
	newStake, err := computeNewStake(trove.Coll, ledger)
	if err != nil {
		return err
	}
	total, err := fixedpoint.Sub(ledger.TotalStakes, trove.Stake)
	if err != nil {
		return err
	}
	if total, err = fixedpoint.Add(total, newStake); err != nil {
		return err
	}
	ledger.TotalStakes = total
	trove.Stake = newStake
	return nil
}

func removeStake(trove *types.Trove, ledger *types.SystemLedger) error {
	total, err := fixedpoint.Sub(ledger.TotalStakes, trove.Stake)
	if err != nil {
		return err
	}
	ledger.TotalStakes = total
	trove.Stake = fixedpoint.Zero()
	return nil
}

// redistributeDebtAndColl spreads debt and collateral over every active stake
// using error-corrected division, then moves both into the default pool.
func (e *Engine) redistributeDebtAndColl(ledger *types.SystemLedger, debt, coll *uint256.Int) error {
	if debt == nil || debt.IsZero() {
		return nil
	}
	if fixedpoint.Clone(ledger.TotalStakes).IsZero() {
		return ErrNoStakes
	}
	collPerStake, collErr, err := fixedpoint.PerUnitWithError(coll, ledger.LastCollError, ledger.TotalStakes)
	if err != nil {
		return err
	}
	debtPerStake, debtErr, err := fixedpoint.PerUnitWithError(debt, ledger.LastDebtError, ledger.TotalStakes)
	if err != nil {
		return err
	}
	lColl, err := fixedpoint.Add(ledger.LColl, collPerStake)
	if err != nil {
		return err
	}
	lDebt, err := fixedpoint.Add(ledger.LDebt, debtPerStake)
	if err != nil {
		return err
	}
	ledger.LColl, ledger.LDebt = lColl, lDebt
	ledger.LastCollError, ledger.LastDebtError = collErr, debtErr
	if err := e.pools.MoveToDefault(coll, debt); err != nil {
		return err
	}
	e.state.Emit(events.Redistribution{Debt: debt, Coll: coll, LColl: lColl, LDebt: lDebt}.Event())
	return nil
}

// updateSystemSnapshots records the stake and collateral totals used to size
// new stakes, excluding collateral about to leave the active pool.
func (e *Engine) updateSystemSnapshots(ledger *types.SystemLedger, collRemainder *uint256.Int) error {
	active, def, err := e.pools.Totals()
	if err != nil {
		return err
	}
	activeColl, err := fixedpoint.Sub(active.Coll, collRemainder)
	if err != nil {
		return err
	}
	totalColl, err := fixedpoint.Add(activeColl, def.Coll)
	if err != nil {
		return err
	}
	ledger.TotalStakesSnapshot = fixedpoint.Clone(ledger.TotalStakes)
	ledger.TotalCollateralSnapshot = totalColl
	e.state.Emit(events.SystemSnapshotsUpdated{
		TotalStakesSnapshot:     ledger.TotalStakesSnapshot,
		TotalCollateralSnapshot: totalColl,
	}.Event())
	return nil
}

// closeTrove zeroes a trove, sets its closed status and drops it from the
// ordered index. The last trove in the system can never be closed.
func (e *Engine) closeTrove(trove *types.Trove, status types.TroveStatus) error {
	sorted, err := e.state.SortedTroves()
	if err != nil {
		return err
	}
	if len(sorted.Owners) <= 1 {
		return ErrOnlyOneTrove
	}
	next, err := trove.Status.Transition(status)
	if err != nil {
		return err
	}
	trove.Status = next
	trove.Coll = fixedpoint.Zero()
	trove.Debt = fixedpoint.Zero()
	trove.Stake = fixedpoint.Zero()
	trove.Snapshot = types.RewardSnapshot{LColl: fixedpoint.Zero(), LDebt: fixedpoint.Zero()}
	if err := e.index().remove(trove.Owner); err != nil {
		return err
	}
	return e.state.PutTrove(trove)
}

func (e *Engine) loadActive(owner crypto.Address) (*types.Trove, error) {
	trove, err := e.state.Trove(owner)
	if err != nil {
		return nil, err
	}
	if !trove.IsActive() {
		return nil, ErrTroveNotActive
	}
	return trove, nil
}
