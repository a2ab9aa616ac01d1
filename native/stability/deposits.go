package stability

import (
	"github.com/holiman/uint256"

	"solusd/core/events"
	"solusd/core/types"
	"solusd/crypto"
	nativecommon "solusd/native/common"
	"solusd/native/fixedpoint"
)

// DepositResult summarises what a deposit operation paid out.
type DepositResult struct {
	Deposit       *uint256.Int
	CollGain      *uint256.Int
	DebtLoss      *uint256.Int
	IssuanceGain  *uint256.Int
	FrontEndGain  *uint256.Int
	FrontEndStake *uint256.Int
}

// position is the loaded and settled view of a depositor.
type position struct {
	sp         *types.StabilityPool
	deposit    *types.Deposit
	frontEnd   *types.FrontEnd
	compounded *uint256.Int
	collGain   *uint256.Int
	feCompound *uint256.Int
	result     *DepositResult
}

// settle triggers issuance, measures the deposit against the accumulators
// and pays out pending issuance. Snapshots are left untouched for the
// caller to refresh.
func (e *Engine) settle(owner crypto.Address, tag *crypto.Address) (*position, error) {
	sp, err := e.state.StabilityPool()
	if err != nil {
		return nil, err
	}
	if _, err := e.triggerIssuance(sp); err != nil {
		return nil, err
	}
	deposit, err := e.state.Deposit(owner)
	if err != nil {
		return nil, err
	}
	if tag != nil && deposit.InitialValue.IsZero() {
		deposit.FrontEndTag = *tag
	}
	p := &position{sp: sp, deposit: deposit, result: &DepositResult{FrontEndGain: fixedpoint.Zero()}}
	if !deposit.FrontEndTag.IsZero() {
		if p.frontEnd, err = e.state.FrontEnd(deposit.FrontEndTag); err != nil {
			return nil, err
		}
	}
	if p.collGain, err = e.collGain(deposit); err != nil {
		return nil, err
	}
	if p.compounded, err = compoundedStake(sp, deposit.InitialValue, deposit.Snapshot); err != nil {
		return nil, err
	}
	if p.result.DebtLoss, err = fixedpoint.Sub(deposit.InitialValue, p.compounded); err != nil {
		return nil, err
	}
	if err := e.payOutIssuanceGains(p); err != nil {
		return nil, err
	}
	if p.frontEnd != nil {
		if p.feCompound, err = compoundedStake(sp, p.frontEnd.Stake, p.frontEnd.Snapshot); err != nil {
			return nil, err
		}
	}
	p.result.CollGain = p.collGain
	return p, nil
}

func (e *Engine) payOutIssuanceGains(p *position) error {
	if p.frontEnd != nil {
		gain, err := e.frontEndIssuanceGain(p.frontEnd)
		if err != nil {
			return err
		}
		if err := e.sendIssuance(p.frontEnd.Owner, gain, true); err != nil {
			return err
		}
		p.result.FrontEndGain = gain
	}
	gain, err := e.depositorIssuanceGain(p.deposit)
	if err != nil {
		return err
	}
	if err := e.sendIssuance(p.deposit.Owner, gain, false); err != nil {
		return err
	}
	p.result.IssuanceGain = gain
	return nil
}

func (e *Engine) sendIssuance(to crypto.Address, amount *uint256.Int, frontEnd bool) error {
	if amount.IsZero() {
		return nil
	}
	if e.issuer == nil {
		return ErrNilState
	}
	if err := e.issuer.SendIssuance(to, amount); err != nil {
		return err
	}
	e.state.Emit(events.IssuancePaid{Recipient: to, Amount: amount, FrontEnd: frontEnd}.Event())
	return nil
}

func (e *Engine) updateFrontEndStake(p *position, stake *uint256.Int) error {
	if p.frontEnd == nil {
		return nil
	}
	p.frontEnd.Stake = stake
	if stake.IsZero() {
		p.frontEnd.Snapshot = types.DepositSnapshot{}.Clone()
	} else {
		snap, err := e.currentSnapshot(p.sp)
		if err != nil {
			return err
		}
		snap.S = fixedpoint.Zero()
		p.frontEnd.Snapshot = snap
	}
	if err := e.state.PutFrontEnd(p.frontEnd); err != nil {
		return err
	}
	p.result.FrontEndStake = stake
	e.state.Emit(events.FrontEndStakeUpdated{FrontEnd: p.frontEnd.Owner, Stake: stake}.Event())
	return nil
}

func (e *Engine) updateDeposit(p *position, value *uint256.Int) error {
	p.deposit.InitialValue = value
	if value.IsZero() {
		p.deposit.FrontEndTag = crypto.ZeroAddress
		p.deposit.Snapshot = types.DepositSnapshot{}.Clone()
	} else {
		snap, err := e.currentSnapshot(p.sp)
		if err != nil {
			return err
		}
		p.deposit.Snapshot = snap
	}
	if err := e.state.PutDeposit(p.deposit); err != nil {
		return err
	}
	p.result.Deposit = value
	e.state.Emit(events.DepositUpdated{Owner: p.deposit.Owner, Value: value, FrontEnd: p.deposit.FrontEndTag}.Event())
	return nil
}

// payCollGain releases the depositor's collateral gain from the pool
// balance. When toTrove is set the transfer is left to the trove engine.
func (e *Engine) payCollGain(p *position, toTrove bool) error {
	var err error
	if p.sp.Coll, err = fixedpoint.Sub(p.sp.Coll, p.collGain); err != nil {
		return err
	}
	e.state.Emit(events.CollGainWithdrawn{Owner: p.deposit.Owner, Coll: p.collGain, DebtLoss: p.result.DebtLoss}.Event())
	if !toTrove && !p.collGain.IsZero() {
		e.pools.TransferToken(types.AssetCollateral, e.Account(), p.deposit.Owner, p.collGain)
	}
	return nil
}

// ProvideToStabilityPool adds amount to owner's deposit. frontEndTag only
// takes effect when owner has no deposit yet.
func (e *Engine) ProvideToStabilityPool(owner crypto.Address, amount *uint256.Int, frontEndTag crypto.Address) (*DepositResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleStability); err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}
	if err := e.requireNotFrontEnd(owner); err != nil {
		return nil, err
	}
	if !frontEndTag.IsZero() {
		fe, err := e.state.FrontEnd(frontEndTag)
		if err != nil {
			return nil, err
		}
		if !fe.Registered {
			return nil, ErrFrontEndNotRegistered
		}
	}

	p, err := e.settle(owner, &frontEndTag)
	if err != nil {
		return nil, err
	}
	if p.frontEnd != nil {
		stake, err := fixedpoint.Add(p.feCompound, amount)
		if err != nil {
			return nil, err
		}
		if err := e.updateFrontEndStake(p, stake); err != nil {
			return nil, err
		}
	}
	if p.sp.TotalDeposits, err = fixedpoint.Add(p.sp.TotalDeposits, amount); err != nil {
		return nil, err
	}
	e.pools.TransferToken(types.AssetDebt, owner, e.Account(), amount)

	value, err := fixedpoint.Add(p.compounded, amount)
	if err != nil {
		return nil, err
	}
	if err := e.updateDeposit(p, value); err != nil {
		return nil, err
	}
	if err := e.payCollGain(p, false); err != nil {
		return nil, err
	}
	if err := e.state.PutStabilityPool(p.sp); err != nil {
		return nil, err
	}
	return p.result, nil
}

// WithdrawFromStabilityPool withdraws up to amount of owner's compounded
// deposit together with all gains. A zero amount only claims gains and is
// allowed while undercollateralized troves exist.
func (e *Engine) WithdrawFromStabilityPool(owner crypto.Address, amount, price *uint256.Int) (*DepositResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleStability); err != nil {
		return nil, err
	}
	if amount == nil {
		amount = fixedpoint.Zero()
	}
	if !amount.IsZero() {
		if err := e.requireNoUnderCollateralizedTroves(price); err != nil {
			return nil, err
		}
	}
	current, err := e.state.Deposit(owner)
	if err != nil {
		return nil, err
	}
	if current.InitialValue.IsZero() {
		return nil, ErrNoDeposit
	}

	p, err := e.settle(owner, nil)
	if err != nil {
		return nil, err
	}
	withdraw := fixedpoint.Min(amount, p.compounded)
	if p.frontEnd != nil {
		// Front end stake compounds separately and may round below the
		// deposit being withdrawn.
		stake := fixedpoint.SubFloor(p.feCompound, withdraw)
		if err := e.updateFrontEndStake(p, stake); err != nil {
			return nil, err
		}
	}
	if !withdraw.IsZero() {
		if p.sp.TotalDeposits, err = fixedpoint.Sub(p.sp.TotalDeposits, withdraw); err != nil {
			return nil, err
		}
		e.pools.TransferToken(types.AssetDebt, e.Account(), owner, withdraw)
	}
	value := new(uint256.Int).Sub(p.compounded, withdraw)
	if err := e.updateDeposit(p, value); err != nil {
		return nil, err
	}
	if err := e.payCollGain(p, false); err != nil {
		return nil, err
	}
	if err := e.state.PutStabilityPool(p.sp); err != nil {
		return nil, err
	}
	return p.result, nil
}

// WithdrawCollateralGainToTrove moves owner's collateral gain into their
// active trove instead of paying it out.
func (e *Engine) WithdrawCollateralGainToTrove(owner crypto.Address, price *uint256.Int) (*DepositResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleStability); err != nil {
		return nil, err
	}
	if err := requirePrice(price); err != nil {
		return nil, err
	}
	if e.troves == nil {
		return nil, ErrNilState
	}
	current, err := e.state.Deposit(owner)
	if err != nil {
		return nil, err
	}
	if current.InitialValue.IsZero() {
		return nil, ErrNoDeposit
	}
	active, err := e.troves.HasActiveTrove(owner)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrNoActiveTrove
	}
	gain, err := e.collGain(current)
	if err != nil {
		return nil, err
	}
	if gain.IsZero() {
		return nil, ErrNoCollGain
	}

	p, err := e.settle(owner, nil)
	if err != nil {
		return nil, err
	}
	if p.frontEnd != nil {
		if err := e.updateFrontEndStake(p, p.feCompound); err != nil {
			return nil, err
		}
	}
	if err := e.updateDeposit(p, p.compounded); err != nil {
		return nil, err
	}
	if err := e.payCollGain(p, true); err != nil {
		return nil, err
	}
	if err := e.state.PutStabilityPool(p.sp); err != nil {
		return nil, err
	}
	if err := e.troves.MoveCollGainToTrove(owner, e.Account(), p.collGain, price); err != nil {
		return nil, err
	}
	return p.result, nil
}

// RegisterFrontEnd makes owner a front end that keeps 1-kickbackRate of the
// issuance earned by deposits tagged with it.
func (e *Engine) RegisterFrontEnd(owner crypto.Address, kickbackRate *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleStability); err != nil {
		return err
	}
	if err := e.requireNotFrontEnd(owner); err != nil {
		return err
	}
	deposit, err := e.state.Deposit(owner)
	if err != nil {
		return err
	}
	if !deposit.InitialValue.IsZero() {
		return ErrHasDeposit
	}
	if kickbackRate == nil || kickbackRate.Gt(fixedpoint.DecimalPrecision) {
		return ErrInvalidKickbackRate
	}
	fe := types.NewFrontEnd(owner)
	fe.KickbackRate = fixedpoint.Clone(kickbackRate)
	fe.Registered = true
	if err := e.state.PutFrontEnd(fe); err != nil {
		return err
	}
	e.state.Emit(events.FrontEndRegistered{FrontEnd: owner, KickbackRate: fe.KickbackRate}.Event())
	return nil
}

func (e *Engine) requireNotFrontEnd(owner crypto.Address) error {
	fe, err := e.state.FrontEnd(owner)
	if err != nil {
		return err
	}
	if fe.Registered {
		return ErrFrontEndRegistered
	}
	return nil
}

func (e *Engine) requireNoUnderCollateralizedTroves(price *uint256.Int) error {
	if err := requirePrice(price); err != nil {
		return err
	}
	if e.troves == nil {
		return ErrNilState
	}
	below, err := e.troves.LowestICRBelowMCR(price)
	if err != nil {
		return err
	}
	if below {
		return ErrUnderCollateralizedTroves
	}
	return nil
}
