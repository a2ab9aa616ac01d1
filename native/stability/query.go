package stability

import (
	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
)

// DepositView is a read-only snapshot of a depositor's position.
type DepositView struct {
	Owner        crypto.Address `json:"owner"`
	Initial      *uint256.Int   `json:"initial"`
	Compounded   *uint256.Int   `json:"compounded"`
	CollGain     *uint256.Int   `json:"collGain"`
	IssuanceGain *uint256.Int   `json:"issuanceGain"`
	FrontEndTag  crypto.Address `json:"frontEndTag"`
}

func (e *Engine) DepositView(owner crypto.Address) (*DepositView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	sp, err := e.state.StabilityPool()
	if err != nil {
		return nil, err
	}
	deposit, err := e.state.Deposit(owner)
	if err != nil {
		return nil, err
	}
	compounded, err := compoundedStake(sp, deposit.InitialValue, deposit.Snapshot)
	if err != nil {
		return nil, err
	}
	collGain, err := e.collGain(deposit)
	if err != nil {
		return nil, err
	}
	issuance, err := e.depositorIssuanceGain(deposit)
	if err != nil {
		return nil, err
	}
	return &DepositView{
		Owner:        owner,
		Initial:      deposit.InitialValue,
		Compounded:   compounded,
		CollGain:     collGain,
		IssuanceGain: issuance,
		FrontEndTag:  deposit.FrontEndTag,
	}, nil
}

// FrontEndView reports a front end's compounded stake and pending issuance.
type FrontEndView struct {
	Owner        crypto.Address `json:"owner"`
	Registered   bool           `json:"registered"`
	KickbackRate *uint256.Int   `json:"kickbackRate"`
	Stake        *uint256.Int   `json:"stake"`
	IssuanceGain *uint256.Int   `json:"issuanceGain"`
}

func (e *Engine) FrontEndView(owner crypto.Address) (*FrontEndView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	sp, err := e.state.StabilityPool()
	if err != nil {
		return nil, err
	}
	fe, err := e.state.FrontEnd(owner)
	if err != nil {
		return nil, err
	}
	stake, err := compoundedStake(sp, fe.Stake, fe.Snapshot)
	if err != nil {
		return nil, err
	}
	gain, err := e.frontEndIssuanceGain(fe)
	if err != nil {
		return nil, err
	}
	return &FrontEndView{
		Owner:        owner,
		Registered:   fe.Registered,
		KickbackRate: fe.KickbackRate,
		Stake:        stake,
		IssuanceGain: gain,
	}, nil
}

// Pool returns the global pool accumulators.
func (e *Engine) Pool() (*types.StabilityPool, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.state.StabilityPool()
}
