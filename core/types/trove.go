package types

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"solusd/crypto"
)

// TroveStatus is the lifecycle state of a Trove.
type TroveStatus uint8

const (
	TroveNonExistent TroveStatus = iota
	TroveActive
	TroveClosedByOwner
	TroveClosedByLiquidation
	TroveClosedByRedemption
)

// ErrInvalidStatusTransition is returned when a lifecycle move is not allowed.
var ErrInvalidStatusTransition = errors.New("trove: invalid status transition")

func (s TroveStatus) String() string {
	switch s {
	case TroveNonExistent:
		return "nonExistent"
	case TroveActive:
		return "active"
	case TroveClosedByOwner:
		return "closedByOwner"
	case TroveClosedByLiquidation:
		return "closedByLiquidation"
	case TroveClosedByRedemption:
		return "closedByRedemption"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// IsClosed reports whether the status is one of the closed variants.
func (s TroveStatus) IsClosed() bool {
	return s == TroveClosedByOwner || s == TroveClosedByLiquidation || s == TroveClosedByRedemption
}

// Transition validates moving from s to next and returns next on success.
func (s TroveStatus) Transition(next TroveStatus) (TroveStatus, error) {
	switch {
	case next == TroveActive && (s == TroveNonExistent || s.IsClosed()):
		return next, nil
	case s == TroveActive && next.IsClosed():
		return next, nil
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s, next)
}

// RewardSnapshot records the redistribution accumulators last applied to a Trove.
type RewardSnapshot struct {
	LColl *uint256.Int
	LDebt *uint256.Int
}

// Trove is a single borrower position.
type Trove struct {
	Owner    crypto.Address
	Coll     *uint256.Int
	Debt     *uint256.Int
	Stake    *uint256.Int
	Status   TroveStatus
	Snapshot RewardSnapshot
}

// NewTrove returns an empty, non-existent trove for owner.
func NewTrove(owner crypto.Address) *Trove {
	return &Trove{
		Owner: owner,
		Coll:  new(uint256.Int),
		Debt:  new(uint256.Int),
		Stake: new(uint256.Int),
		Snapshot: RewardSnapshot{
			LColl: new(uint256.Int),
			LDebt: new(uint256.Int),
		},
	}
}

// IsActive reports whether the trove participates in the system.
func (t *Trove) IsActive() bool {
	return t != nil && t.Status == TroveActive
}

// Clone returns a deep copy of the trove.
func (t *Trove) Clone() *Trove {
	if t == nil {
		return nil
	}
	return &Trove{
		Owner:  t.Owner,
		Coll:   cloneInt(t.Coll),
		Debt:   cloneInt(t.Debt),
		Stake:  cloneInt(t.Stake),
		Status: t.Status,
		Snapshot: RewardSnapshot{
			LColl: cloneInt(t.Snapshot.LColl),
			LDebt: cloneInt(t.Snapshot.LDebt),
		},
	}
}

func cloneInt(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
