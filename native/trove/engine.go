package trove

import (
	"time"

	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
	nativecommon "solusd/native/common"
	"solusd/native/fixedpoint"
	"solusd/native/pool"
)

type engineState interface {
	Trove(owner crypto.Address) (*types.Trove, error)
	PutTrove(trove *types.Trove) error
	SystemLedger() (*types.SystemLedger, error)
	PutSystemLedger(ledger *types.SystemLedger) error
	SortedTroves() (*types.SortedTroves, error)
	PutSortedTroves(sorted *types.SortedTroves) error
	Surplus(owner crypto.Address) (*uint256.Int, error)
	PutSurplus(owner crypto.Address, amount *uint256.Int) error
	IssuanceState() (*types.IssuanceState, error)
	Pool(id types.PoolID) (*types.Pool, error)
	PutPool(id types.PoolID, pool *types.Pool) error
	RecordTransfer(req types.TransferRequest)
	Emit(evt *types.Event)
}

// StabilityPool is the debt absorber used by liquidations.
type StabilityPool interface {
	TotalDeposits() (*uint256.Int, error)
	Offset(debtToOffset, collToAdd *uint256.Int) error
}

// FeeRecipient receives borrowing and redemption fees.
type FeeRecipient interface {
	IncreaseFColl(fee *uint256.Int) error
	IncreaseFDebt(fee *uint256.Int) error
	Account() crypto.Address
}

// Engine implements borrower operations, redistribution, liquidation and
// redemption over a single collateral asset.
type Engine struct {
	state     engineState
	pools     *pool.Ledger
	params    Params
	stability StabilityPool
	fees      FeeRecipient
	pauses    nativecommon.PauseView
	nowFn     func() time.Time
}

// NewEngine constructs a trove engine with the supplied parameters.
func NewEngine(params Params) *Engine {
	return &Engine{
		params: params.Clone(),
		nowFn:  time.Now,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.pools = pool.NewLedger(state)
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetStabilityPool wires the pool that absorbs liquidated debt.
func (e *Engine) SetStabilityPool(sp StabilityPool) {
	if e == nil {
		return
	}
	e.stability = sp
}

// SetFeeRecipient wires the staking module that collects fees.
func (e *Engine) SetFeeRecipient(fees FeeRecipient) {
	if e == nil {
		return
	}
	e.fees = fees
}

// SetClock overrides the time source used for fee decay and the bootstrap
// window.
func (e *Engine) SetClock(now func() time.Time) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// Params returns a copy of the engine parameters.
func (e *Engine) Params() Params {
	return e.params.Clone()
}

func (e *Engine) now() uint64 {
	ts := e.nowFn().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.pools == nil {
		return ErrNilState
	}
	return nil
}

func requirePrice(price *uint256.Int) error {
	if price == nil || price.IsZero() {
		return ErrZeroPrice
	}
	return nil
}

// TCR returns the total collateral ratio across the active and default pools.
func (e *Engine) TCR(price *uint256.Int) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	coll, debt, err := e.pools.EntireSystem()
	if err != nil {
		return nil, err
	}
	return fixedpoint.ComputeCR(coll, debt, price)
}

// CheckRecoveryMode reports whether TCR < CCR at price.
func (e *Engine) CheckRecoveryMode(price *uint256.Int) (bool, error) {
	tcr, err := e.TCR(price)
	if err != nil {
		return false, err
	}
	return tcr.Lt(e.params.CCR), nil
}

func (e *Engine) checkPotentialRecoveryMode(coll, debt, price *uint256.Int) (bool, error) {
	tcr, err := fixedpoint.ComputeCR(coll, debt, price)
	if err != nil {
		return false, err
	}
	return tcr.Lt(e.params.CCR), nil
}

// newTCRFromTroveChange projects the TCR after a trove gains or loses the
// given collateral and debt.
func (e *Engine) newTCRFromTroveChange(collChange *uint256.Int, collIncrease bool, debtChange *uint256.Int, debtIncrease bool, price *uint256.Int) (*uint256.Int, error) {
	coll, debt, err := e.pools.EntireSystem()
	if err != nil {
		return nil, err
	}
	if coll, err = applyChange(coll, collChange, collIncrease); err != nil {
		return nil, err
	}
	if debt, err = applyChange(debt, debtChange, debtIncrease); err != nil {
		return nil, err
	}
	return fixedpoint.ComputeCR(coll, debt, price)
}

func applyChange(value, change *uint256.Int, increase bool) (*uint256.Int, error) {
	if increase {
		return fixedpoint.Add(value, change)
	}
	return fixedpoint.Sub(value, change)
}

func (e *Engine) emitTroveUpdated(trove *types.Trove, operation string) {
	e.state.Emit(troveUpdatedEvent(trove, operation))
}
