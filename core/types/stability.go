package types

import (
	"github.com/holiman/uint256"

	"solusd/crypto"
)

// StabilityPool is the global state of the debt-absorbing pool.
type StabilityPool struct {
	TotalDeposits     *uint256.Int
	Coll              *uint256.Int
	P                 *uint256.Int
	CurrentEpoch      uint64
	CurrentScale      uint64
	LastIssuanceError *uint256.Int
	LastCollError     *uint256.Int
	LastDebtLossError *uint256.Int
}

// NewStabilityPool returns an empty pool with P at 1.0.
func NewStabilityPool(precision *uint256.Int) *StabilityPool {
	pool := (&StabilityPool{}).Clone()
	pool.P = cloneInt(precision)
	return pool
}

func (s *StabilityPool) Clone() *StabilityPool {
	if s == nil {
		return nil
	}
	return &StabilityPool{
		TotalDeposits:     cloneInt(s.TotalDeposits),
		Coll:              cloneInt(s.Coll),
		P:                 cloneInt(s.P),
		CurrentEpoch:      s.CurrentEpoch,
		CurrentScale:      s.CurrentScale,
		LastIssuanceError: cloneInt(s.LastIssuanceError),
		LastCollError:     cloneInt(s.LastCollError),
		LastDebtLossError: cloneInt(s.LastDebtLossError),
	}
}

// EpochScale identifies one bucket of the running sums.
type EpochScale struct {
	Epoch uint64
	Scale uint64
}

// EpochScaleSums holds the S (collateral) and G (issuance) running sums of a
// bucket. Absent buckets read as zero.
type EpochScaleSums struct {
	S *uint256.Int
	G *uint256.Int
}

func NewEpochScaleSums() *EpochScaleSums {
	return &EpochScaleSums{S: new(uint256.Int), G: new(uint256.Int)}
}

func (e *EpochScaleSums) Clone() *EpochScaleSums {
	if e == nil {
		return NewEpochScaleSums()
	}
	return &EpochScaleSums{S: cloneInt(e.S), G: cloneInt(e.G)}
}

// DepositSnapshot captures the pool accumulators at a depositor's last
// interaction.
type DepositSnapshot struct {
	S     *uint256.Int
	P     *uint256.Int
	G     *uint256.Int
	Scale uint64
	Epoch uint64
}

func (s DepositSnapshot) Clone() DepositSnapshot {
	return DepositSnapshot{
		S:     cloneInt(s.S),
		P:     cloneInt(s.P),
		G:     cloneInt(s.G),
		Scale: s.Scale,
		Epoch: s.Epoch,
	}
}

// Deposit is a depositor's position in the stability pool.
type Deposit struct {
	Owner        crypto.Address
	InitialValue *uint256.Int
	FrontEndTag  crypto.Address
	Snapshot     DepositSnapshot
}

func NewDeposit(owner crypto.Address) *Deposit {
	return &Deposit{Owner: owner, InitialValue: new(uint256.Int), Snapshot: DepositSnapshot{}.Clone()}
}

func (d *Deposit) Clone() *Deposit {
	if d == nil {
		return nil
	}
	return &Deposit{
		Owner:        d.Owner,
		InitialValue: cloneInt(d.InitialValue),
		FrontEndTag:  d.FrontEndTag,
		Snapshot:     d.Snapshot.Clone(),
	}
}

// FrontEnd is an intermediary that tags deposits and keeps part of their
// issuance gains.
type FrontEnd struct {
	Owner        crypto.Address
	KickbackRate *uint256.Int
	Registered   bool
	Stake        *uint256.Int
	Snapshot     DepositSnapshot
}

func NewFrontEnd(owner crypto.Address) *FrontEnd {
	return &FrontEnd{Owner: owner, KickbackRate: new(uint256.Int), Stake: new(uint256.Int), Snapshot: DepositSnapshot{}.Clone()}
}

func (f *FrontEnd) Clone() *FrontEnd {
	if f == nil {
		return nil
	}
	return &FrontEnd{
		Owner:        f.Owner,
		KickbackRate: cloneInt(f.KickbackRate),
		Registered:   f.Registered,
		Stake:        cloneInt(f.Stake),
		Snapshot:     f.Snapshot.Clone(),
	}
}
