package types

import (
	"github.com/holiman/uint256"

	"solusd/crypto"
)

// IssuanceState drives the decaying emission schedule.
type IssuanceState struct {
	TotalIssued *uint256.Int
	// DeploymentTime is a unix timestamp in seconds.
	DeploymentTime uint64
}

func (s *IssuanceState) Clone() *IssuanceState {
	if s == nil {
		return nil
	}
	return &IssuanceState{TotalIssued: cloneInt(s.TotalIssued), DeploymentTime: s.DeploymentTime}
}

// StakingPool accumulates fee income per staked issuance token.
type StakingPool struct {
	TotalStaked *uint256.Int
	FColl       *uint256.Int
	FDebt       *uint256.Int
}

func NewStakingPool() *StakingPool {
	return &StakingPool{TotalStaked: new(uint256.Int), FColl: new(uint256.Int), FDebt: new(uint256.Int)}
}

func (s *StakingPool) Clone() *StakingPool {
	if s == nil {
		return nil
	}
	return &StakingPool{TotalStaked: cloneInt(s.TotalStaked), FColl: cloneInt(s.FColl), FDebt: cloneInt(s.FDebt)}
}

// StakerPosition is a single staker's balance and fee snapshots.
type StakerPosition struct {
	Owner         crypto.Address
	Stake         *uint256.Int
	FCollSnapshot *uint256.Int
	FDebtSnapshot *uint256.Int
}

func NewStakerPosition(owner crypto.Address) *StakerPosition {
	return &StakerPosition{Owner: owner, Stake: new(uint256.Int), FCollSnapshot: new(uint256.Int), FDebtSnapshot: new(uint256.Int)}
}

func (s *StakerPosition) Clone() *StakerPosition {
	if s == nil {
		return nil
	}
	return &StakerPosition{
		Owner:         s.Owner,
		Stake:         cloneInt(s.Stake),
		FCollSnapshot: cloneInt(s.FCollSnapshot),
		FDebtSnapshot: cloneInt(s.FDebtSnapshot),
	}
}
