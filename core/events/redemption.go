package events

import (
	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
)

const (
	TypeRedemption      = "redemption.completed"
	TypeBaseRateUpdated = "redemption.baseRateUpdated"
)

// Redemption summarises a redemption walk.
type Redemption struct {
	Redeemer        crypto.Address
	AttemptedAmount *uint256.Int
	ActualAmount    *uint256.Int
	CollSent        *uint256.Int
	CollFee         *uint256.Int
	Troves          int
}

func (Redemption) EventType() string { return TypeRedemption }

func (e Redemption) Event() *types.Event {
	return &types.Event{
		Type: TypeRedemption,
		Attributes: map[string]string{
			"redeemer":        formatAddress(e.Redeemer),
			"attemptedAmount": formatAmount(e.AttemptedAmount),
			"actualAmount":    formatAmount(e.ActualAmount),
			"collSent":        formatAmount(e.CollSent),
			"collFee":         formatAmount(e.CollFee),
			"troves":          formatUint(uint64(e.Troves)),
		},
	}
}

// BaseRateUpdated is emitted whenever the fee multiplier or its clock moves.
type BaseRateUpdated struct {
	BaseRate             *uint256.Int
	LastFeeOperationTime uint64
}

func (BaseRateUpdated) EventType() string { return TypeBaseRateUpdated }

func (e BaseRateUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeBaseRateUpdated,
		Attributes: map[string]string{
			"baseRate":             formatAmount(e.BaseRate),
			"lastFeeOperationTime": formatUint(e.LastFeeOperationTime),
		},
	}
}
