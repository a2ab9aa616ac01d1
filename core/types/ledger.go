package types

import (
	"github.com/holiman/uint256"

	"solusd/crypto"
)

// SystemLedger holds the global redistribution and fee accumulators.
type SystemLedger struct {
	TotalStakes             *uint256.Int
	TotalStakesSnapshot     *uint256.Int
	TotalCollateralSnapshot *uint256.Int
	LColl                   *uint256.Int
	LDebt                   *uint256.Int
	LastCollError           *uint256.Int
	LastDebtError           *uint256.Int
	BaseRate                *uint256.Int
	// LastFeeOperationTime is a unix timestamp in seconds.
	LastFeeOperationTime uint64
}

// NewSystemLedger returns a zeroed ledger.
func NewSystemLedger() *SystemLedger {
	return (&SystemLedger{}).Clone()
}

func (l *SystemLedger) Clone() *SystemLedger {
	if l == nil {
		return nil
	}
	return &SystemLedger{
		TotalStakes:             cloneInt(l.TotalStakes),
		TotalStakesSnapshot:     cloneInt(l.TotalStakesSnapshot),
		TotalCollateralSnapshot: cloneInt(l.TotalCollateralSnapshot),
		LColl:                   cloneInt(l.LColl),
		LDebt:                   cloneInt(l.LDebt),
		LastCollError:           cloneInt(l.LastCollError),
		LastDebtError:           cloneInt(l.LastDebtError),
		BaseRate:                cloneInt(l.BaseRate),
		LastFeeOperationTime:    l.LastFeeOperationTime,
	}
}

// PoolID names one of the collateral/debt holding pools.
type PoolID string

const (
	ActivePool      PoolID = "active"
	DefaultPool     PoolID = "default"
	CollSurplusPool PoolID = "collSurplus"
	GasPool         PoolID = "gas"
)

// Pool tracks the collateral and debt attributed to a pool.
type Pool struct {
	Coll *uint256.Int
	Debt *uint256.Int
}

func NewPool() *Pool {
	return &Pool{Coll: new(uint256.Int), Debt: new(uint256.Int)}
}

func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	return &Pool{Coll: cloneInt(p.Coll), Debt: cloneInt(p.Debt)}
}

// SortedTroves is the persisted ordering of active troves by nominal ICR,
// highest first.
type SortedTroves struct {
	Owners []crypto.Address
}

func (s *SortedTroves) Clone() *SortedTroves {
	if s == nil {
		return &SortedTroves{}
	}
	return &SortedTroves{Owners: append([]crypto.Address(nil), s.Owners...)}
}
