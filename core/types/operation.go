package types

import (
	"github.com/holiman/uint256"

	"solusd/crypto"
)

// OpType names an engine operation.
type OpType string

const (
	OpOpenTrove               OpType = "open_trove"
	OpAdjustTrove             OpType = "adjust_trove"
	OpCloseTrove              OpType = "close_trove"
	OpClaimCollateral         OpType = "claim_collateral"
	OpLiquidate               OpType = "liquidate"
	OpLiquidateTroves         OpType = "liquidate_troves"
	OpBatchLiquidate          OpType = "batch_liquidate"
	OpRedeemCollateral        OpType = "redeem_collateral"
	OpProvideToStabilityPool  OpType = "provide_to_stability_pool"
	OpWithdrawFromStability   OpType = "withdraw_from_stability_pool"
	OpWithdrawCollGainToTrove OpType = "withdraw_coll_gain_to_trove"
	OpRegisterFrontEnd        OpType = "register_front_end"
	OpStake                   OpType = "stake"
	OpUnstake                 OpType = "unstake"
	OpIssue                   OpType = "issue"
)

// NeedsPrice reports whether the operation reads the collateral price.
func (t OpType) NeedsPrice() bool {
	switch t {
	case OpOpenTrove, OpAdjustTrove, OpCloseTrove, OpLiquidate, OpLiquidateTroves,
		OpBatchLiquidate, OpRedeemCollateral, OpWithdrawFromStability, OpWithdrawCollGainToTrove:
		return true
	default:
		return false
	}
}

// Operation is one request against the engine. Fields not used by Type are
// ignored.
type Operation struct {
	Type   OpType         `json:"type"`
	Caller crypto.Address `json:"caller"`

	// Amount is the debt drawn or repaid, the amount redeemed, deposited,
	// withdrawn, staked or unstaked.
	Amount         *uint256.Int `json:"amount,omitempty"`
	Collateral     *uint256.Int `json:"collateral,omitempty"`
	IsCollIncrease bool         `json:"isCollIncrease,omitempty"`
	IsDebtIncrease bool         `json:"isDebtIncrease,omitempty"`
	MaxFee         *uint256.Int `json:"maxFee,omitempty"`

	// Target is the trove liquidated by OpLiquidate.
	Target  crypto.Address   `json:"target,omitempty"`
	Targets []crypto.Address `json:"targets,omitempty"`
	// Count bounds LiquidateTroves and the redemption walk.
	Count    int          `json:"count,omitempty"`
	HintNICR *uint256.Int `json:"hintNICR,omitempty"`

	FrontEnd     crypto.Address `json:"frontEnd,omitempty"`
	KickbackRate *uint256.Int   `json:"kickbackRate,omitempty"`
}
