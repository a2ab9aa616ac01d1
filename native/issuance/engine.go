package issuance

import (
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"solusd/core/events"
	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
)

var (
	ErrNilState      = errors.New("issuance: state not configured")
	ErrInvalidParams = errors.New("issuance: invalid parameters")
	ErrFractionRange = errors.New("issuance: cumulative fraction out of range")
)

const secondsInOneMinute = 60

// Params defines the emission curve.
type Params struct {
	SupplyCap      *uint256.Int
	IssuanceFactor *uint256.Int
}

// DefaultParams issues 32M tokens, half of them in the first year.
func DefaultParams() Params {
	return Params{
		SupplyCap:      fixedpoint.MustParseDecimal("32000000"),
		IssuanceFactor: uint256.NewInt(999_998_681_227_695_000),
	}
}

func (p Params) Clone() Params {
	return Params{SupplyCap: fixedpoint.Clone(p.SupplyCap), IssuanceFactor: fixedpoint.Clone(p.IssuanceFactor)}
}

func (p Params) Validate() error {
	if p.SupplyCap == nil || p.SupplyCap.IsZero() {
		return fmt.Errorf("%w: supply cap must be positive", ErrInvalidParams)
	}
	if p.IssuanceFactor == nil || p.IssuanceFactor.IsZero() || !p.IssuanceFactor.Lt(fixedpoint.DecimalPrecision) {
		return fmt.Errorf("%w: issuance factor must be in (0, 1)", ErrInvalidParams)
	}
	return nil
}

type engineState interface {
	IssuanceState() (*types.IssuanceState, error)
	PutIssuanceState(state *types.IssuanceState) error
	RecordTransfer(req types.TransferRequest)
	Emit(evt *types.Event)
}

// Engine runs the community issuance schedule.
type Engine struct {
	state  engineState
	params Params
	nowFn  func() time.Time
}

func NewEngine(params Params) *Engine {
	return &Engine{params: params.Clone(), nowFn: time.Now}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetClock(now func() time.Time) {
	if e == nil || now == nil {
		return
	}
	e.nowFn = now
}

// Account is the module account issuance is paid from.
func (e *Engine) Account() crypto.Address {
	return types.ModuleAccount(types.ModuleCommunityIssuance)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	return nil
}

// CumulativeIssuanceFraction returns 1 - factor^minutesSinceDeployment.
func (e *Engine) CumulativeIssuanceFraction() (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	st, err := e.state.IssuanceState()
	if err != nil {
		return nil, err
	}
	return e.fraction(st)
}

func (e *Engine) fraction(st *types.IssuanceState) (*uint256.Int, error) {
	var minutes uint64
	now := e.nowFn().Unix()
	if now > 0 && uint64(now) > st.DeploymentTime {
		minutes = (uint64(now) - st.DeploymentTime) / secondsInOneMinute
	}
	power, err := fixedpoint.DecPow(e.params.IssuanceFactor, minutes)
	if err != nil {
		return nil, err
	}
	fraction, err := fixedpoint.Sub(fixedpoint.DecimalPrecision, power)
	if err != nil {
		return nil, ErrFractionRange
	}
	return fraction, nil
}

// Issue advances totalIssued to the curve's current value and returns the
// newly issuable amount.
func (e *Engine) Issue() (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	st, err := e.state.IssuanceState()
	if err != nil {
		return nil, err
	}
	fraction, err := e.fraction(st)
	if err != nil {
		return nil, err
	}
	latest, err := fixedpoint.MulDiv(e.params.SupplyCap, fraction, fixedpoint.DecimalPrecision)
	if err != nil {
		return nil, err
	}
	if !latest.Gt(st.TotalIssued) {
		return fixedpoint.Zero(), nil
	}
	issued := new(uint256.Int).Sub(latest, st.TotalIssued)
	st.TotalIssued = latest
	if err := e.state.PutIssuanceState(st); err != nil {
		return nil, err
	}
	e.state.Emit(events.IssuanceTriggered{Issued: issued, TotalIssued: latest}.Event())
	return issued, nil
}

// SendIssuance pays amount of the issuance token to to.
func (e *Engine) SendIssuance(to crypto.Address, amount *uint256.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	e.state.RecordTransfer(types.TransferRequest{
		Kind:   types.TransferMove,
		Asset:  types.AssetIssuance,
		From:   e.Account(),
		To:     to,
		Amount: amount,
	})
	e.state.Emit(events.IssuanceDistributed{Recipient: to, Amount: amount}.Event())
	return nil
}

// State returns the persisted issuance totals.
func (e *Engine) State() (*types.IssuanceState, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.state.IssuanceState()
}
