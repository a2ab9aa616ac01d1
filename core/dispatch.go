package core

import (
	"github.com/holiman/uint256"

	coreerrors "solusd/core/errors"
	"solusd/core/types"
	nativecommon "solusd/native/common"
	"solusd/native/fixedpoint"
	"solusd/native/staking"
	"solusd/native/trove"
)

// StakeResult reports the fee gains paid out by a stake or unstake.
type StakeResult struct {
	Gains staking.Gains `json:"gains"`
}

// IssueResult reports the issuance folded into the stability pool.
type IssueResult struct {
	Issued *uint256.Int `json:"issued"`
}

// ClaimResult reports collateral surplus returned to its owner.
type ClaimResult struct {
	Collateral *uint256.Int `json:"collateral"`
}

func amountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return fixedpoint.Zero()
	}
	return v
}

func (p *Processor) dispatch(e *engines, op types.Operation, price *uint256.Int) (interface{}, error) {
	switch op.Type {
	case types.OpOpenTrove:
		return e.troves.OpenTrove(op.Caller, amountOrZero(op.MaxFee), amountOrZero(op.Amount), amountOrZero(op.Collateral), price)
	case types.OpAdjustTrove:
		return e.troves.AdjustTrove(trove.AdjustRequest{
			Owner:          op.Caller,
			CollChange:     amountOrZero(op.Collateral),
			IsCollIncrease: op.IsCollIncrease,
			DebtChange:     amountOrZero(op.Amount),
			IsDebtIncrease: op.IsDebtIncrease,
			MaxFee:         amountOrZero(op.MaxFee),
		}, price)
	case types.OpCloseTrove:
		return nil, e.troves.CloseTrove(op.Caller, price)
	case types.OpClaimCollateral:
		coll, err := e.troves.ClaimCollateral(op.Caller)
		if err != nil {
			return nil, err
		}
		return &ClaimResult{Collateral: coll}, nil
	case types.OpLiquidate:
		return e.troves.Liquidate(op.Caller, op.Target, price)
	case types.OpLiquidateTroves:
		return e.troves.LiquidateTroves(op.Caller, op.Count, price)
	case types.OpBatchLiquidate:
		return e.troves.BatchLiquidate(op.Caller, op.Targets, price)
	case types.OpRedeemCollateral:
		return e.troves.RedeemCollateral(trove.RedemptionRequest{
			Redeemer:        op.Caller,
			Amount:          amountOrZero(op.Amount),
			MaxIterations:   op.Count,
			MaxFee:          amountOrZero(op.MaxFee),
			PartialHintNICR: op.HintNICR,
		}, price)
	case types.OpProvideToStabilityPool:
		return e.stability.ProvideToStabilityPool(op.Caller, amountOrZero(op.Amount), op.FrontEnd)
	case types.OpWithdrawFromStability:
		return e.stability.WithdrawFromStabilityPool(op.Caller, amountOrZero(op.Amount), price)
	case types.OpWithdrawCollGainToTrove:
		return e.stability.WithdrawCollateralGainToTrove(op.Caller, price)
	case types.OpRegisterFrontEnd:
		if err := e.stability.RegisterFrontEnd(op.Caller, amountOrZero(op.KickbackRate)); err != nil {
			return nil, err
		}
		return e.stability.FrontEndView(op.Caller)
	case types.OpStake:
		gains, err := e.staking.Stake(op.Caller, amountOrZero(op.Amount))
		if err != nil {
			return nil, err
		}
		return &StakeResult{Gains: gains}, nil
	case types.OpUnstake:
		gains, err := e.staking.Unstake(op.Caller, amountOrZero(op.Amount))
		if err != nil {
			return nil, err
		}
		return &StakeResult{Gains: gains}, nil
	case types.OpIssue:
		if err := nativecommon.Guard(p.cfg.Pauses, nativecommon.ModuleIssuance); err != nil {
			return nil, err
		}
		issued, err := e.stability.TriggerIssuance()
		if err != nil {
			return nil, err
		}
		return &IssueResult{Issued: issued}, nil
	default:
		return nil, coreerrors.ErrUnknownOperation
	}
}
