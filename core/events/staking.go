package events

import (
	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
)

const (
	TypeStakeChanged        = "staking.stakeChanged"
	TypeStakingGainsPaid    = "staking.gainsPaid"
	TypeStakingFeeAccrued   = "staking.feeAccrued"
	TypeIssuanceTriggered   = "issuance.triggered"
	TypeIssuanceDistributed = "issuance.sent"

	StakingFeeCollateral = "coll"
	StakingFeeDebt       = "debt"
)

type StakeChanged struct {
	Owner crypto.Address
	Stake *uint256.Int
	Total *uint256.Int
}

func (StakeChanged) EventType() string { return TypeStakeChanged }

func (e StakeChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeChanged,
		Attributes: map[string]string{
			"owner": formatAddress(e.Owner),
			"stake": formatAmount(e.Stake),
			"total": formatAmount(e.Total),
		},
	}
}

type StakingGainsPaid struct {
	Owner crypto.Address
	Coll  *uint256.Int
	Debt  *uint256.Int
}

func (StakingGainsPaid) EventType() string { return TypeStakingGainsPaid }

func (e StakingGainsPaid) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingGainsPaid,
		Attributes: map[string]string{
			"owner": formatAddress(e.Owner),
			"coll":  formatAmount(e.Coll),
			"debt":  formatAmount(e.Debt),
		},
	}
}

// StakingFeeAccrued reports a fee folded into F_COLL or F_DEBT.
type StakingFeeAccrued struct {
	Kind        string
	Fee         *uint256.Int
	Accumulator *uint256.Int
}

func (StakingFeeAccrued) EventType() string { return TypeStakingFeeAccrued }

func (e StakingFeeAccrued) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingFeeAccrued,
		Attributes: map[string]string{
			"kind":        e.Kind,
			"fee":         formatAmount(e.Fee),
			"accumulator": formatAmount(e.Accumulator),
		},
	}
}

type IssuanceTriggered struct {
	Issued      *uint256.Int
	TotalIssued *uint256.Int
}

func (IssuanceTriggered) EventType() string { return TypeIssuanceTriggered }

func (e IssuanceTriggered) Event() *types.Event {
	return &types.Event{
		Type: TypeIssuanceTriggered,
		Attributes: map[string]string{
			"issued":      formatAmount(e.Issued),
			"totalIssued": formatAmount(e.TotalIssued),
		},
	}
}

type IssuanceDistributed struct {
	Recipient crypto.Address
	Amount    *uint256.Int
}

func (IssuanceDistributed) EventType() string { return TypeIssuanceDistributed }

func (e IssuanceDistributed) Event() *types.Event {
	return &types.Event{
		Type: TypeIssuanceDistributed,
		Attributes: map[string]string{
			"recipient": formatAddress(e.Recipient),
			"amount":    formatAmount(e.Amount),
		},
	}
}
