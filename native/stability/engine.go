package stability

import (
	"errors"

	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
	nativecommon "solusd/native/common"
	"solusd/native/pool"
)

var (
	ErrNilState                  = errors.New("stability: state not configured")
	ErrZeroPrice                 = errors.New("stability: price must be positive")
	ErrZeroAmount                = errors.New("stability: amount must be non-zero")
	ErrNoDeposit                 = errors.New("stability: user must have a non-zero deposit")
	ErrHasDeposit                = errors.New("stability: user must have no deposit")
	ErrFrontEndRegistered        = errors.New("stability: front end already registered")
	ErrFrontEndNotRegistered     = errors.New("stability: tag must be a registered front end or zero")
	ErrInvalidKickbackRate       = errors.New("stability: kickback rate must be in [0, 1]")
	ErrUnderCollateralizedTroves = errors.New("stability: cannot withdraw while there are troves with ICR < MCR")
	ErrNoActiveTrove             = errors.New("stability: caller must have an active trove")
	ErrNoCollGain                = errors.New("stability: caller must have a non-zero collateral gain")
	ErrOffsetExceedsDeposits     = errors.New("stability: offset exceeds total deposits")
)

type engineState interface {
	StabilityPool() (*types.StabilityPool, error)
	PutStabilityPool(pool *types.StabilityPool) error
	EpochScaleSums(epoch, scale uint64) (*types.EpochScaleSums, error)
	PutEpochScaleSums(epoch, scale uint64, sums *types.EpochScaleSums) error
	Deposit(owner crypto.Address) (*types.Deposit, error)
	PutDeposit(deposit *types.Deposit) error
	FrontEnd(owner crypto.Address) (*types.FrontEnd, error)
	PutFrontEnd(frontEnd *types.FrontEnd) error
	Pool(id types.PoolID) (*types.Pool, error)
	PutPool(id types.PoolID, pool *types.Pool) error
	RecordTransfer(req types.TransferRequest)
	Emit(evt *types.Event)
}

// Issuer mints the issuance token rewarded to depositors.
type Issuer interface {
	Issue() (*uint256.Int, error)
	SendIssuance(to crypto.Address, amount *uint256.Int) error
}

// TroveManager is the part of the trove engine the pool relies on.
type TroveManager interface {
	HasActiveTrove(owner crypto.Address) (bool, error)
	LowestICRBelowMCR(price *uint256.Int) (bool, error)
	MoveCollGainToTrove(owner, source crypto.Address, coll, price *uint256.Int) error
}

// Engine runs the stability pool: deposits absorb liquidated debt and earn
// the liquidated collateral plus issuance rewards.
type Engine struct {
	state  engineState
	pools  *pool.Ledger
	issuer Issuer
	troves TroveManager
	pauses nativecommon.PauseView
}

func NewEngine() *Engine { return &Engine{} }

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

// SetIssuer wires the community issuance module.
func (e *Engine) SetIssuer(issuer Issuer) {
	if e == nil {
		return
	}
	e.issuer = issuer
}

// SetTroveManager wires the trove engine.
func (e *Engine) SetTroveManager(troves TroveManager) {
	if e == nil {
		return
	}
	e.troves = troves
}

// Account is the module account holding deposits and collateral gains.
func (e *Engine) Account() crypto.Address {
	return types.ModuleAccount(types.ModuleStabilityPool)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
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
