package core

import (
	"github.com/holiman/uint256"

	"solusd/core/state"
	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/stability"
	"solusd/native/staking"
	"solusd/native/trove"
)

// SystemStatus is the system-wide view at the current oracle price.
type SystemStatus struct {
	Price          *uint256.Int         `json:"price"`
	System         *trove.SystemView    `json:"system"`
	StabilityPool  *types.StabilityPool `json:"stabilityPool"`
	Staking        *types.StakingPool   `json:"staking"`
	Issuance       *types.IssuanceState `json:"issuance"`
	BorrowingRate  *uint256.Int         `json:"borrowingRate"`
	RedemptionRate *uint256.Int         `json:"redemptionRate"`
}

// StakerStatus is a staker's position with pending fee gains.
type StakerStatus struct {
	Position *types.StakerPosition `json:"position"`
	Gains    staking.Gains         `json:"gains"`
}

// read runs fn against a transaction that is always discarded.
func (p *Processor) read(fn func(e *engines) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	txn := p.state.Begin()
	defer txn.Discard()
	return fn(p.wire(txn))
}

func (p *Processor) readTxn(fn func(txn *state.Txn, e *engines) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	txn := p.state.Begin()
	defer txn.Discard()
	return fn(txn, p.wire(txn))
}

// Trove returns owner's trove with pending rewards and its ICR at the
// current price.
func (p *Processor) Trove(owner crypto.Address) (*trove.TroveView, error) {
	price, err := p.price()
	if err != nil {
		return nil, err
	}
	var view *trove.TroveView
	err = p.read(func(e *engines) error {
		var err error
		view, err = e.troves.TroveView(owner, price)
		return err
	})
	return view, err
}

// System returns pool totals, TCR, recovery mode and fee rates.
func (p *Processor) System() (*SystemStatus, error) {
	price, err := p.price()
	if err != nil {
		return nil, err
	}
	out := &SystemStatus{Price: price}
	err = p.readTxn(func(txn *state.Txn, e *engines) error {
		var err error
		if out.System, err = e.troves.SystemView(price); err != nil {
			return err
		}
		if out.StabilityPool, err = e.stability.Pool(); err != nil {
			return err
		}
		if out.Staking, err = e.staking.Pool(); err != nil {
			return err
		}
		if out.Issuance, err = e.issuance.State(); err != nil {
			return err
		}
		if out.BorrowingRate, err = e.troves.BorrowingRate(); err != nil {
			return err
		}
		out.RedemptionRate, err = e.troves.RedemptionRate()
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SortedTroves lists active trove owners from the highest NICR to the lowest.
func (p *Processor) SortedTroves() ([]crypto.Address, error) {
	var owners []crypto.Address
	err := p.read(func(e *engines) error {
		var err error
		owners, err = e.troves.SortedOwners()
		return err
	})
	return owners, err
}

func (p *Processor) Deposit(owner crypto.Address) (*stability.DepositView, error) {
	var view *stability.DepositView
	err := p.read(func(e *engines) error {
		var err error
		view, err = e.stability.DepositView(owner)
		return err
	})
	return view, err
}

func (p *Processor) FrontEnd(owner crypto.Address) (*stability.FrontEndView, error) {
	var view *stability.FrontEndView
	err := p.read(func(e *engines) error {
		var err error
		view, err = e.stability.FrontEndView(owner)
		return err
	})
	return view, err
}

func (p *Processor) Staker(owner crypto.Address) (*StakerStatus, error) {
	out := &StakerStatus{}
	err := p.read(func(e *engines) error {
		var err error
		if out.Position, err = e.staking.Position(owner); err != nil {
			return err
		}
		out.Gains, err = e.staking.PendingGains(owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Surplus returns collateral owner can reclaim with OpClaimCollateral.
func (p *Processor) Surplus(owner crypto.Address) (*uint256.Int, error) {
	var out *uint256.Int
	err := p.readTxn(func(txn *state.Txn, _ *engines) error {
		var err error
		out, err = txn.Surplus(owner)
		return err
	})
	return out, err
}
