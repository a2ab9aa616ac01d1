package server

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
)

// operationRequest is the wire form of an operation. Amounts are decimal
// strings with up to 18 fractional digits.
type operationRequest struct {
	Type           string   `json:"type"`
	Amount         string   `json:"amount,omitempty"`
	Collateral     string   `json:"collateral,omitempty"`
	IsCollIncrease bool     `json:"isCollIncrease,omitempty"`
	IsDebtIncrease bool     `json:"isDebtIncrease,omitempty"`
	MaxFee         string   `json:"maxFee,omitempty"`
	Target         string   `json:"target,omitempty"`
	Targets        []string `json:"targets,omitempty"`
	Count          int      `json:"count,omitempty"`
	HintNICR       string   `json:"hintNICR,omitempty"`
	FrontEnd       string   `json:"frontEnd,omitempty"`
	KickbackRate   string   `json:"kickbackRate,omitempty"`
}

func (r operationRequest) toOperation(caller crypto.Address) (types.Operation, error) {
	op := types.Operation{
		Type:           types.OpType(strings.TrimSpace(r.Type)),
		Caller:         caller,
		IsCollIncrease: r.IsCollIncrease,
		IsDebtIncrease: r.IsDebtIncrease,
		Count:          r.Count,
	}
	if op.Type == "" {
		return op, fmt.Errorf("type required")
	}
	if r.Count < 0 {
		return op, fmt.Errorf("count must not be negative")
	}
	var err error
	if op.Amount, err = optionalDecimal("amount", r.Amount); err != nil {
		return op, err
	}
	if op.Collateral, err = optionalDecimal("collateral", r.Collateral); err != nil {
		return op, err
	}
	if op.MaxFee, err = optionalDecimal("maxFee", r.MaxFee); err != nil {
		return op, err
	}
	if op.HintNICR, err = optionalDecimal("hintNICR", r.HintNICR); err != nil {
		return op, err
	}
	if op.KickbackRate, err = optionalDecimal("kickbackRate", r.KickbackRate); err != nil {
		return op, err
	}
	if op.Target, err = optionalAddress("target", r.Target); err != nil {
		return op, err
	}
	if op.FrontEnd, err = optionalAddress("frontEnd", r.FrontEnd); err != nil {
		return op, err
	}
	for i, raw := range r.Targets {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
		if err != nil {
			return op, fmt.Errorf("targets[%d]: %w", i, err)
		}
		op.Targets = append(op.Targets, addr)
	}
	return op, nil
}

func optionalDecimal(field, raw string) (*uint256.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := fixedpoint.ParseDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func optionalAddress(field, raw string) (crypto.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return crypto.Address{}, nil
	}
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}
