package events

import (
	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
)

const (
	TypeTroveUpdated           = "trove.updated"
	TypeTroveLiquidated        = "trove.liquidated"
	TypeBorrowingFeePaid       = "trove.borrowingFeePaid"
	TypeLiquidation            = "liquidation.completed"
	TypeRedistribution         = "liquidation.redistributed"
	TypeSystemSnapshotsUpdated = "liquidation.snapshotsUpdated"
	TypeCollSurplusRecorded    = "surplus.recorded"
	TypeCollateralClaimed      = "surplus.claimed"

	TroveOperationOpen   = "open"
	TroveOperationAdjust = "adjust"
	TroveOperationClose  = "close"
	TroveOperationRedeem = "redeem"
	TroveOperationApply  = "applyPendingRewards"

	LiquidationModeNormal   = "normal"
	LiquidationModeRecovery = "recovery"
)

// TroveUpdated reports the stored state of a trove after an operation.
type TroveUpdated struct {
	Owner     crypto.Address
	Coll      *uint256.Int
	Debt      *uint256.Int
	Stake     *uint256.Int
	Status    types.TroveStatus
	Operation string
}

// EventType satisfies the Event interface.
func (TroveUpdated) EventType() string { return TypeTroveUpdated }

// Event converts the structured payload into a broadcastable event.
func (e TroveUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeTroveUpdated,
		Attributes: map[string]string{
			"owner":     formatAddress(e.Owner),
			"coll":      formatAmount(e.Coll),
			"debt":      formatAmount(e.Debt),
			"stake":     formatAmount(e.Stake),
			"status":    e.Status.String(),
			"operation": e.Operation,
		},
	}
}

// TroveLiquidated reports a single closed trove.
type TroveLiquidated struct {
	Owner crypto.Address
	Debt  *uint256.Int
	Coll  *uint256.Int
	Mode  string
}

func (TroveLiquidated) EventType() string { return TypeTroveLiquidated }

func (e TroveLiquidated) Event() *types.Event {
	return &types.Event{
		Type: TypeTroveLiquidated,
		Attributes: map[string]string{
			"owner": formatAddress(e.Owner),
			"debt":  formatAmount(e.Debt),
			"coll":  formatAmount(e.Coll),
			"mode":  e.Mode,
		},
	}
}

type BorrowingFeePaid struct {
	Owner crypto.Address
	Fee   *uint256.Int
}

func (BorrowingFeePaid) EventType() string { return TypeBorrowingFeePaid }

func (e BorrowingFeePaid) Event() *types.Event {
	return &types.Event{
		Type: TypeBorrowingFeePaid,
		Attributes: map[string]string{
			"owner": formatAddress(e.Owner),
			"fee":   formatAmount(e.Fee),
		},
	}
}

// Liquidation summarises a liquidation call across every trove it touched.
type Liquidation struct {
	Liquidator          crypto.Address
	LiquidatedDebt      *uint256.Int
	LiquidatedColl      *uint256.Int
	CollGasCompensation *uint256.Int
	DebtGasCompensation *uint256.Int
	Troves              int
}

func (Liquidation) EventType() string { return TypeLiquidation }

func (e Liquidation) Event() *types.Event {
	return &types.Event{
		Type: TypeLiquidation,
		Attributes: map[string]string{
			"liquidator":          formatAddress(e.Liquidator),
			"liquidatedDebt":      formatAmount(e.LiquidatedDebt),
			"liquidatedColl":      formatAmount(e.LiquidatedColl),
			"collGasCompensation": formatAmount(e.CollGasCompensation),
			"debtGasCompensation": formatAmount(e.DebtGasCompensation),
			"troves":              formatUint(uint64(e.Troves)),
		},
	}
}

// Redistribution reports the new L terms after debt and collateral were
// spread across active troves.
type Redistribution struct {
	Debt  *uint256.Int
	Coll  *uint256.Int
	LColl *uint256.Int
	LDebt *uint256.Int
}

func (Redistribution) EventType() string { return TypeRedistribution }

func (e Redistribution) Event() *types.Event {
	return &types.Event{
		Type: TypeRedistribution,
		Attributes: map[string]string{
			"debt":  formatAmount(e.Debt),
			"coll":  formatAmount(e.Coll),
			"lColl": formatAmount(e.LColl),
			"lDebt": formatAmount(e.LDebt),
		},
	}
}

type SystemSnapshotsUpdated struct {
	TotalStakesSnapshot     *uint256.Int
	TotalCollateralSnapshot *uint256.Int
}

func (SystemSnapshotsUpdated) EventType() string { return TypeSystemSnapshotsUpdated }

func (e SystemSnapshotsUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeSystemSnapshotsUpdated,
		Attributes: map[string]string{
			"totalStakesSnapshot":     formatAmount(e.TotalStakesSnapshot),
			"totalCollateralSnapshot": formatAmount(e.TotalCollateralSnapshot),
		},
	}
}

// CollSurplusRecorded reports collateral set aside for a closed trove's owner.
type CollSurplusRecorded struct {
	Owner  crypto.Address
	Amount *uint256.Int
	Total  *uint256.Int
}

func (CollSurplusRecorded) EventType() string { return TypeCollSurplusRecorded }

func (e CollSurplusRecorded) Event() *types.Event {
	return &types.Event{
		Type: TypeCollSurplusRecorded,
		Attributes: map[string]string{
			"owner":  formatAddress(e.Owner),
			"amount": formatAmount(e.Amount),
			"total":  formatAmount(e.Total),
		},
	}
}

type CollateralClaimed struct {
	Owner  crypto.Address
	Amount *uint256.Int
}

func (CollateralClaimed) EventType() string { return TypeCollateralClaimed }

func (e CollateralClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralClaimed,
		Attributes: map[string]string{
			"owner":  formatAddress(e.Owner),
			"amount": formatAmount(e.Amount),
		},
	}
}
