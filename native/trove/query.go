package trove

import (
	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
)

// TroveView is a trove together with the values derived from the current
// redistribution accumulators.
type TroveView struct {
	Trove             *types.Trove `json:"trove"`
	EntireDebt        *uint256.Int `json:"entireDebt"`
	EntireColl        *uint256.Int `json:"entireColl"`
	PendingDebtReward *uint256.Int `json:"pendingDebtReward"`
	PendingCollReward *uint256.Int `json:"pendingCollReward"`
	ICR               *uint256.Int `json:"icr"`
	NICR              *uint256.Int `json:"nicr"`
}

// SystemView summarises the system-wide collateralisation.
type SystemView struct {
	ActivePool   *types.Pool         `json:"activePool"`
	DefaultPool  *types.Pool         `json:"defaultPool"`
	TCR          *uint256.Int        `json:"tcr"`
	RecoveryMode bool                `json:"recoveryMode"`
	Ledger       *types.SystemLedger `json:"ledger"`
	TroveCount   int                 `json:"troveCount"`
}

// TroveView returns owner's trove including pending rewards.
func (e *Engine) TroveView(owner crypto.Address, price *uint256.Int) (*TroveView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	trove, err := e.state.Trove(owner)
	if err != nil {
		return nil, err
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return nil, err
	}
	amounts, err := entireDebtAndColl(trove, ledger)
	if err != nil {
		return nil, err
	}
	view := &TroveView{
		Trove:             trove,
		EntireDebt:        amounts.Debt,
		EntireColl:        amounts.Coll,
		PendingDebtReward: amounts.PendingDebt,
		PendingCollReward: amounts.PendingColl,
	}
	if view.NICR, err = fixedpoint.ComputeNominalCR(amounts.Coll, amounts.Debt); err != nil {
		return nil, err
	}
	if price != nil && !price.IsZero() {
		if view.ICR, err = fixedpoint.ComputeCR(amounts.Coll, amounts.Debt, price); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// SystemView returns pool totals, TCR and the recovery-mode flag at price.
func (e *Engine) SystemView(price *uint256.Int) (*SystemView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	active, def, err := e.pools.Totals()
	if err != nil {
		return nil, err
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return nil, err
	}
	count, err := e.index().size()
	if err != nil {
		return nil, err
	}
	view := &SystemView{ActivePool: active, DefaultPool: def, Ledger: ledger, TroveCount: count}
	if price != nil && !price.IsZero() {
		if view.TCR, err = e.TCR(price); err != nil {
			return nil, err
		}
		view.RecoveryMode = view.TCR.Lt(e.params.CCR)
	}
	return view, nil
}

// SortedOwners lists active troves from the highest NICR to the lowest.
func (e *Engine) SortedOwners() ([]crypto.Address, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.index().owners()
}

// HasActiveTrove reports whether owner has an active trove.
func (e *Engine) HasActiveTrove(owner crypto.Address) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	trove, err := e.state.Trove(owner)
	if err != nil {
		return false, err
	}
	return trove.IsActive(), nil
}

// LowestICRBelowMCR reports whether the trove with the lowest NICR is under
// collateralised at price.
func (e *Engine) LowestICRBelowMCR(price *uint256.Int) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	owner, ok, err := e.index().last()
	if err != nil || !ok {
		return false, err
	}
	icr, err := e.currentICR(owner, price)
	if err != nil {
		return false, err
	}
	return icr.Lt(e.params.MCR), nil
}
