package state

import (
	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
)

// Trove loads the trove owned by owner. Unknown owners yield a NonExistent
// trove.
func (t *Txn) Trove(owner crypto.Address) (*types.Trove, error) {
	trove := types.NewTrove(owner)
	ok, err := t.get(troveKey(owner), trove)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewTrove(owner), nil
	}
	return trove.Clone(), nil
}

func (t *Txn) PutTrove(trove *types.Trove) error {
	return t.put(troveKey(trove.Owner), trove)
}

func (t *Txn) SystemLedger() (*types.SystemLedger, error) {
	ledger := types.NewSystemLedger()
	if _, err := t.get(systemLedgerKey, ledger); err != nil {
		return nil, err
	}
	return ledger.Clone(), nil
}

func (t *Txn) PutSystemLedger(ledger *types.SystemLedger) error {
	return t.put(systemLedgerKey, ledger)
}

func (t *Txn) Pool(id types.PoolID) (*types.Pool, error) {
	pool := types.NewPool()
	if _, err := t.get(poolKey(id), pool); err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

func (t *Txn) PutPool(id types.PoolID, pool *types.Pool) error {
	return t.put(poolKey(id), pool)
}

// Surplus returns the claimable collateral recorded for owner.
func (t *Txn) Surplus(owner crypto.Address) (*uint256.Int, error) {
	amount := new(uint256.Int)
	if _, err := t.get(surplusKey(owner), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (t *Txn) PutSurplus(owner crypto.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return t.delete(surplusKey(owner))
	}
	return t.put(surplusKey(owner), amount)
}

func (t *Txn) SortedTroves() (*types.SortedTroves, error) {
	sorted := &types.SortedTroves{}
	if _, err := t.get(sortedTrovesKey, sorted); err != nil {
		return nil, err
	}
	return sorted.Clone(), nil
}

func (t *Txn) PutSortedTroves(sorted *types.SortedTroves) error {
	return t.put(sortedTrovesKey, sorted)
}

func (t *Txn) StabilityPool() (*types.StabilityPool, error) {
	pool := types.NewStabilityPool(fixedpoint.DecimalPrecision)
	if _, err := t.get(stabilityPoolKey, pool); err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

func (t *Txn) PutStabilityPool(pool *types.StabilityPool) error {
	return t.put(stabilityPoolKey, pool)
}

// EpochScaleSums returns the S/G sums of a bucket; untouched buckets are zero.
func (t *Txn) EpochScaleSums(epoch, scale uint64) (*types.EpochScaleSums, error) {
	sums := types.NewEpochScaleSums()
	if _, err := t.get(epochScaleKey(epoch, scale), sums); err != nil {
		return nil, err
	}
	return sums.Clone(), nil
}

func (t *Txn) PutEpochScaleSums(epoch, scale uint64, sums *types.EpochScaleSums) error {
	return t.put(epochScaleKey(epoch, scale), sums)
}

func (t *Txn) Deposit(owner crypto.Address) (*types.Deposit, error) {
	deposit := types.NewDeposit(owner)
	ok, err := t.get(depositKey(owner), deposit)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewDeposit(owner), nil
	}
	return deposit.Clone(), nil
}

func (t *Txn) PutDeposit(deposit *types.Deposit) error {
	if deposit.InitialValue == nil || deposit.InitialValue.IsZero() {
		return t.delete(depositKey(deposit.Owner))
	}
	return t.put(depositKey(deposit.Owner), deposit)
}

func (t *Txn) FrontEnd(owner crypto.Address) (*types.FrontEnd, error) {
	frontEnd := types.NewFrontEnd(owner)
	ok, err := t.get(frontEndKey(owner), frontEnd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewFrontEnd(owner), nil
	}
	return frontEnd.Clone(), nil
}

func (t *Txn) PutFrontEnd(frontEnd *types.FrontEnd) error {
	return t.put(frontEndKey(frontEnd.Owner), frontEnd)
}

func (t *Txn) IssuanceState() (*types.IssuanceState, error) {
	state := &types.IssuanceState{TotalIssued: new(uint256.Int)}
	if _, err := t.get(issuanceKey, state); err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

func (t *Txn) PutIssuanceState(state *types.IssuanceState) error {
	return t.put(issuanceKey, state)
}

// HasIssuanceState reports whether the deployment record has been written.
func (t *Txn) HasIssuanceState() (bool, error) {
	return t.get(issuanceKey, &types.IssuanceState{})
}

func (t *Txn) StakingPool() (*types.StakingPool, error) {
	pool := types.NewStakingPool()
	if _, err := t.get(stakingPoolKey, pool); err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

func (t *Txn) PutStakingPool(pool *types.StakingPool) error {
	return t.put(stakingPoolKey, pool)
}

func (t *Txn) StakerPosition(owner crypto.Address) (*types.StakerPosition, error) {
	position := types.NewStakerPosition(owner)
	ok, err := t.get(stakerKey(owner), position)
	if err != nil {
		return nil, err
	}
	if !ok {
		return types.NewStakerPosition(owner), nil
	}
	return position.Clone(), nil
}

func (t *Txn) PutStakerPosition(position *types.StakerPosition) error {
	if position.Stake == nil || position.Stake.IsZero() {
		return t.delete(stakerKey(position.Owner))
	}
	return t.put(stakerKey(position.Owner), position)
}
