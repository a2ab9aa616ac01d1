package events

import (
	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
)

const (
	TypeDepositUpdated       = "stability.depositUpdated"
	TypeCollGainWithdrawn    = "stability.collGainWithdrawn"
	TypeIssuancePaid         = "stability.issuancePaid"
	TypeFrontEndRegistered   = "stability.frontEndRegistered"
	TypeFrontEndStakeUpdated = "stability.frontEndStakeUpdated"
	TypePoolOffset           = "stability.offset"
)

type DepositUpdated struct {
	Owner    crypto.Address
	Value    *uint256.Int
	FrontEnd crypto.Address
}

func (DepositUpdated) EventType() string { return TypeDepositUpdated }

func (e DepositUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeDepositUpdated,
		Attributes: map[string]string{
			"owner":    formatAddress(e.Owner),
			"value":    formatAmount(e.Value),
			"frontEnd": formatAddress(e.FrontEnd),
		},
	}
}

// CollGainWithdrawn reports the collateral paid out to a depositor together
// with the deposit loss realised since the last snapshot.
type CollGainWithdrawn struct {
	Owner    crypto.Address
	Coll     *uint256.Int
	DebtLoss *uint256.Int
}

func (CollGainWithdrawn) EventType() string { return TypeCollGainWithdrawn }

func (e CollGainWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeCollGainWithdrawn,
		Attributes: map[string]string{
			"owner":    formatAddress(e.Owner),
			"coll":     formatAmount(e.Coll),
			"debtLoss": formatAmount(e.DebtLoss),
		},
	}
}

type IssuancePaid struct {
	Recipient crypto.Address
	Amount    *uint256.Int
	FrontEnd  bool
}

func (IssuancePaid) EventType() string { return TypeIssuancePaid }

func (e IssuancePaid) Event() *types.Event {
	role := "depositor"
	if e.FrontEnd {
		role = "frontEnd"
	}
	return &types.Event{
		Type: TypeIssuancePaid,
		Attributes: map[string]string{
			"recipient": formatAddress(e.Recipient),
			"amount":    formatAmount(e.Amount),
			"role":      role,
		},
	}
}

type FrontEndRegistered struct {
	FrontEnd     crypto.Address
	KickbackRate *uint256.Int
}

func (FrontEndRegistered) EventType() string { return TypeFrontEndRegistered }

func (e FrontEndRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeFrontEndRegistered,
		Attributes: map[string]string{
			"frontEnd":     formatAddress(e.FrontEnd),
			"kickbackRate": formatAmount(e.KickbackRate),
		},
	}
}

type FrontEndStakeUpdated struct {
	FrontEnd crypto.Address
	Stake    *uint256.Int
}

func (FrontEndStakeUpdated) EventType() string { return TypeFrontEndStakeUpdated }

func (e FrontEndStakeUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFrontEndStakeUpdated,
		Attributes: map[string]string{
			"frontEnd": formatAddress(e.FrontEnd),
			"stake":    formatAmount(e.Stake),
		},
	}
}

// PoolOffset reports the pool accumulators after absorbing liquidated debt.
type PoolOffset struct {
	DebtOffset *uint256.Int
	CollAdded  *uint256.Int
	P          *uint256.Int
	S          *uint256.Int
	Epoch      uint64
	Scale      uint64
}

func (PoolOffset) EventType() string { return TypePoolOffset }

func (e PoolOffset) Event() *types.Event {
	return &types.Event{
		Type: TypePoolOffset,
		Attributes: map[string]string{
			"debtOffset": formatAmount(e.DebtOffset),
			"collAdded":  formatAmount(e.CollAdded),
			"p":          formatAmount(e.P),
			"s":          formatAmount(e.S),
			"epoch":      formatUint(e.Epoch),
			"scale":      formatUint(e.Scale),
		},
	}
}
