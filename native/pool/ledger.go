package pool

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
)

var errNilState = errors.New("pool: state not configured")

type engineState interface {
	Pool(id types.PoolID) (*types.Pool, error)
	PutPool(id types.PoolID, pool *types.Pool) error
	RecordTransfer(req types.TransferRequest)
}

// Ledger keeps the pool totals in step with the token movements requested
// from the host. Every method both mutates the bookkeeping and queues the
// matching transfer request.
type Ledger struct {
	state engineState
}

// NewLedger binds a ledger to state.
func NewLedger(state engineState) *Ledger {
	return &Ledger{state: state}
}

// Account returns the module account that holds a pool's tokens.
func Account(id types.PoolID) crypto.Address {
	switch id {
	case types.ActivePool:
		return types.ModuleAccount(types.ModuleActivePool)
	case types.DefaultPool:
		return types.ModuleAccount(types.ModuleDefaultPool)
	case types.CollSurplusPool:
		return types.ModuleAccount(types.ModuleCollSurplusPool)
	case types.GasPool:
		return types.ModuleAccount(types.ModuleGasPool)
	default:
		return types.ModuleAccount(string(id))
	}
}

// Totals returns the active and default pools.
func (l *Ledger) Totals() (*types.Pool, *types.Pool, error) {
	if l == nil || l.state == nil {
		return nil, nil, errNilState
	}
	active, err := l.state.Pool(types.ActivePool)
	if err != nil {
		return nil, nil, err
	}
	def, err := l.state.Pool(types.DefaultPool)
	if err != nil {
		return nil, nil, err
	}
	return active, def, nil
}

// EntireSystem returns active plus default collateral and debt.
func (l *Ledger) EntireSystem() (*uint256.Int, *uint256.Int, error) {
	active, def, err := l.Totals()
	if err != nil {
		return nil, nil, err
	}
	coll, err := fixedpoint.Add(active.Coll, def.Coll)
	if err != nil {
		return nil, nil, err
	}
	debt, err := fixedpoint.Add(active.Debt, def.Debt)
	if err != nil {
		return nil, nil, err
	}
	return coll, debt, nil
}

func (l *Ledger) adjust(id types.PoolID, collDelta, debtDelta *uint256.Int, increase bool) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	p, err := l.state.Pool(id)
	if err != nil {
		return err
	}
	apply := fixedpoint.Sub
	if increase {
		apply = fixedpoint.Add
	}
	if collDelta != nil && !collDelta.IsZero() {
		if p.Coll, err = apply(p.Coll, collDelta); err != nil {
			return fmt.Errorf("pool %s coll: %w", id, err)
		}
	}
	if debtDelta != nil && !debtDelta.IsZero() {
		if p.Debt, err = apply(p.Debt, debtDelta); err != nil {
			return fmt.Errorf("pool %s debt: %w", id, err)
		}
	}
	return l.state.PutPool(id, p)
}

// IncreaseDebt records debt owed to a pool without moving tokens.
func (l *Ledger) IncreaseDebt(id types.PoolID, amount *uint256.Int) error {
	return l.adjust(id, nil, amount, true)
}

// DecreaseDebt releases pool debt without moving tokens.
func (l *Ledger) DecreaseDebt(id types.PoolID, amount *uint256.Int) error {
	return l.adjust(id, nil, amount, false)
}

// ReceiveCollateral credits collateral paid in by from.
func (l *Ledger) ReceiveCollateral(id types.PoolID, from crypto.Address, amount *uint256.Int) error {
	if err := l.adjust(id, amount, nil, true); err != nil {
		return err
	}
	l.state.RecordTransfer(types.TransferRequest{Kind: types.TransferMove, Asset: types.AssetCollateral, From: from, To: Account(id), Amount: amount})
	return nil
}

// SendCollateral debits a pool and pays the collateral out to to.
func (l *Ledger) SendCollateral(id types.PoolID, to crypto.Address, amount *uint256.Int) error {
	if err := l.adjust(id, amount, nil, false); err != nil {
		return err
	}
	l.state.RecordTransfer(types.TransferRequest{Kind: types.TransferMove, Asset: types.AssetCollateral, From: Account(id), To: to, Amount: amount})
	return nil
}

// MoveCollateral shifts collateral between two tracked pools.
func (l *Ledger) MoveCollateral(from, to types.PoolID, amount *uint256.Int) error {
	if err := l.SendCollateral(from, Account(to), amount); err != nil {
		return err
	}
	return l.adjust(to, amount, nil, true)
}

// MoveToDefault transfers redistributed collateral and debt from the active
// pool to the default pool.
func (l *Ledger) MoveToDefault(coll, debt *uint256.Int) error {
	if err := l.DecreaseDebt(types.ActivePool, debt); err != nil {
		return err
	}
	if err := l.IncreaseDebt(types.DefaultPool, debt); err != nil {
		return err
	}
	return l.MoveCollateral(types.ActivePool, types.DefaultPool, coll)
}

// MoveToActive pulls pending rewards back from the default pool.
func (l *Ledger) MoveToActive(coll, debt *uint256.Int) error {
	if err := l.DecreaseDebt(types.DefaultPool, debt); err != nil {
		return err
	}
	if err := l.IncreaseDebt(types.ActivePool, debt); err != nil {
		return err
	}
	return l.MoveCollateral(types.DefaultPool, types.ActivePool, coll)
}

// MintDebt asks the host to mint debt tokens to to.
func (l *Ledger) MintDebt(to crypto.Address, amount *uint256.Int) {
	l.state.RecordTransfer(types.TransferRequest{Kind: types.TransferMint, Asset: types.AssetDebt, To: to, Amount: amount})
}

// BurnDebt asks the host to burn debt tokens held by from.
func (l *Ledger) BurnDebt(from crypto.Address, amount *uint256.Int) {
	l.state.RecordTransfer(types.TransferRequest{Kind: types.TransferBurn, Asset: types.AssetDebt, From: from, Amount: amount})
}

// TransferToken moves a token between two accounts.
func (l *Ledger) TransferToken(asset types.Asset, from, to crypto.Address, amount *uint256.Int) {
	l.state.RecordTransfer(types.TransferRequest{Kind: types.TransferMove, Asset: asset, From: from, To: to, Amount: amount})
}

// MintGasCompensation mints the liquidation reserve into the gas pool.
func (l *Ledger) MintGasCompensation(amount *uint256.Int) error {
	if err := l.IncreaseDebt(types.GasPool, amount); err != nil {
		return err
	}
	l.MintDebt(Account(types.GasPool), amount)
	return nil
}

// BurnGasCompensation burns the reserve held by the gas pool.
func (l *Ledger) BurnGasCompensation(amount *uint256.Int) error {
	if err := l.DecreaseDebt(types.GasPool, amount); err != nil {
		return err
	}
	l.BurnDebt(Account(types.GasPool), amount)
	return nil
}

// PayGasCompensation sends the reserve held by the gas pool to to.
func (l *Ledger) PayGasCompensation(to crypto.Address, amount *uint256.Int) error {
	if err := l.DecreaseDebt(types.GasPool, amount); err != nil {
		return err
	}
	l.TransferToken(types.AssetDebt, Account(types.GasPool), to, amount)
	return nil
}
