package staking

import (
	"errors"

	"github.com/holiman/uint256"

	"solusd/core/events"
	"solusd/core/types"
	"solusd/crypto"
	nativecommon "solusd/native/common"
	"solusd/native/fixedpoint"
)

var (
	ErrNilState   = errors.New("staking: state not configured")
	ErrZeroAmount = errors.New("staking: amount must be non-zero")
	ErrNoStake    = errors.New("staking: user has no stake")
)

type engineState interface {
	StakingPool() (*types.StakingPool, error)
	PutStakingPool(pool *types.StakingPool) error
	StakerPosition(owner crypto.Address) (*types.StakerPosition, error)
	PutStakerPosition(position *types.StakerPosition) error
	RecordTransfer(req types.TransferRequest)
	Emit(evt *types.Event)
}

// Engine tracks issuance-token stakes and distributes protocol fees to them
// pro rata.
type Engine struct {
	state  engineState
	pauses nativecommon.PauseView
}

func NewEngine() *Engine { return &Engine{} }

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// Account holds staked tokens and undistributed fees.
func (e *Engine) Account() crypto.Address {
	return types.ModuleAccount(types.ModuleStaking)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	return nil
}

// Gains is the pending fee income of a staker.
type Gains struct {
	Coll *uint256.Int
	Debt *uint256.Int
}

func pendingGain(stake, accumulator, snapshot *uint256.Int) (*uint256.Int, error) {
	delta := fixedpoint.SubFloor(accumulator, snapshot)
	return fixedpoint.MulDiv(stake, delta, fixedpoint.DecimalPrecision)
}

func (e *Engine) gains(pool *types.StakingPool, pos *types.StakerPosition) (Gains, error) {
	coll, err := pendingGain(pos.Stake, pool.FColl, pos.FCollSnapshot)
	if err != nil {
		return Gains{}, err
	}
	debt, err := pendingGain(pos.Stake, pool.FDebt, pos.FDebtSnapshot)
	if err != nil {
		return Gains{}, err
	}
	return Gains{Coll: coll, Debt: debt}, nil
}

// PendingGains reports the fees owner could withdraw right now.
func (e *Engine) PendingGains(owner crypto.Address) (Gains, error) {
	if err := e.ready(); err != nil {
		return Gains{}, err
	}
	pool, err := e.state.StakingPool()
	if err != nil {
		return Gains{}, err
	}
	pos, err := e.state.StakerPosition(owner)
	if err != nil {
		return Gains{}, err
	}
	return e.gains(pool, pos)
}

// Position returns the stake record of owner.
func (e *Engine) Position(owner crypto.Address) (*types.StakerPosition, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.state.StakerPosition(owner)
}

// Pool returns the global staking totals.
func (e *Engine) Pool() (*types.StakingPool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.state.StakingPool()
}

// settle pays out pending gains and refreshes the snapshots.
func (e *Engine) settle(pool *types.StakingPool, pos *types.StakerPosition) (Gains, error) {
	gains := Gains{Coll: fixedpoint.Zero(), Debt: fixedpoint.Zero()}
	if !pos.Stake.IsZero() {
		var err error
		if gains, err = e.gains(pool, pos); err != nil {
			return Gains{}, err
		}
	}
	pos.FCollSnapshot = fixedpoint.Clone(pool.FColl)
	pos.FDebtSnapshot = fixedpoint.Clone(pool.FDebt)
	if gains.Debt.Sign() > 0 {
		e.state.RecordTransfer(types.TransferRequest{Kind: types.TransferMove, Asset: types.AssetDebt, From: e.Account(), To: pos.Owner, Amount: gains.Debt})
	}
	if gains.Coll.Sign() > 0 {
		e.state.RecordTransfer(types.TransferRequest{Kind: types.TransferMove, Asset: types.AssetCollateral, From: e.Account(), To: pos.Owner, Amount: gains.Coll})
	}
	if gains.Coll.Sign() > 0 || gains.Debt.Sign() > 0 {
		e.state.Emit(events.StakingGainsPaid{Owner: pos.Owner, Coll: gains.Coll, Debt: gains.Debt}.Event())
	}
	return gains, nil
}

// Stake locks amount of the issuance token and pays out any gains accrued
// on the existing stake.
func (e *Engine) Stake(owner crypto.Address, amount *uint256.Int) (Gains, error) {
	if err := e.ready(); err != nil {
		return Gains{}, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleStaking); err != nil {
		return Gains{}, err
	}
	if amount == nil || amount.IsZero() {
		return Gains{}, ErrZeroAmount
	}
	pool, err := e.state.StakingPool()
	if err != nil {
		return Gains{}, err
	}
	pos, err := e.state.StakerPosition(owner)
	if err != nil {
		return Gains{}, err
	}
	gains, err := e.settle(pool, pos)
	if err != nil {
		return Gains{}, err
	}
	if pos.Stake, err = fixedpoint.Add(pos.Stake, amount); err != nil {
		return Gains{}, err
	}
	if pool.TotalStaked, err = fixedpoint.Add(pool.TotalStaked, amount); err != nil {
		return Gains{}, err
	}
	e.state.RecordTransfer(types.TransferRequest{Kind: types.TransferMove, Asset: types.AssetIssuance, From: owner, To: e.Account(), Amount: amount})
	if err := e.persist(pool, pos); err != nil {
		return Gains{}, err
	}
	return gains, nil
}

// Unstake withdraws up to amount of the stake. A zero amount only claims
// gains.
func (e *Engine) Unstake(owner crypto.Address, amount *uint256.Int) (Gains, error) {
	if err := e.ready(); err != nil {
		return Gains{}, err
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleStaking); err != nil {
		return Gains{}, err
	}
	pool, err := e.state.StakingPool()
	if err != nil {
		return Gains{}, err
	}
	pos, err := e.state.StakerPosition(owner)
	if err != nil {
		return Gains{}, err
	}
	if pos.Stake.IsZero() {
		return Gains{}, ErrNoStake
	}
	gains, err := e.settle(pool, pos)
	if err != nil {
		return Gains{}, err
	}
	if amount != nil && amount.Sign() > 0 {
		withdraw := fixedpoint.Min(amount, pos.Stake)
		pos.Stake = new(uint256.Int).Sub(pos.Stake, withdraw)
		if pool.TotalStaked, err = fixedpoint.Sub(pool.TotalStaked, withdraw); err != nil {
			return Gains{}, err
		}
		e.state.RecordTransfer(types.TransferRequest{Kind: types.TransferMove, Asset: types.AssetIssuance, From: e.Account(), To: owner, Amount: withdraw})
	}
	if err := e.persist(pool, pos); err != nil {
		return Gains{}, err
	}
	return gains, nil
}

func (e *Engine) persist(pool *types.StakingPool, pos *types.StakerPosition) error {
	if err := e.state.PutStakingPool(pool); err != nil {
		return err
	}
	if err := e.state.PutStakerPosition(pos); err != nil {
		return err
	}
	e.state.Emit(events.StakeChanged{Owner: pos.Owner, Stake: pos.Stake, Total: pool.TotalStaked}.Event())
	return nil
}

// IncreaseFColl folds a redemption fee into the per-stake collateral sum.
// Fees that arrive while nothing is staked stay in the module account.
func (e *Engine) IncreaseFColl(fee *uint256.Int) error {
	return e.accrue(fee, events.StakingFeeCollateral)
}

// IncreaseFDebt folds a borrowing fee into the per-stake debt sum.
func (e *Engine) IncreaseFDebt(fee *uint256.Int) error {
	return e.accrue(fee, events.StakingFeeDebt)
}

func (e *Engine) accrue(fee *uint256.Int, kind string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if fee == nil || fee.IsZero() {
		return nil
	}
	pool, err := e.state.StakingPool()
	if err != nil {
		return err
	}
	if pool.TotalStaked.IsZero() {
		return nil
	}
	perUnit, err := fixedpoint.MulDiv(fee, fixedpoint.DecimalPrecision, pool.TotalStaked)
	if err != nil {
		return err
	}
	accumulator := &pool.FDebt
	if kind == events.StakingFeeCollateral {
		accumulator = &pool.FColl
	}
	if *accumulator, err = fixedpoint.Add(*accumulator, perUnit); err != nil {
		return err
	}
	if err := e.state.PutStakingPool(pool); err != nil {
		return err
	}
	e.state.Emit(events.StakingFeeAccrued{Kind: kind, Fee: fee, Accumulator: *accumulator}.Event())
	return nil
}
