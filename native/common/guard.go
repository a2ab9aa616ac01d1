package common

import (
	"errors"
	"fmt"
)

// Module names understood by the pause switches.
const (
	ModuleTrove      = "trove"
	ModuleStability  = "stability"
	ModuleRedemption = "redemption"
	ModuleStaking    = "staking"
	ModuleIssuance   = "issuance"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%w: %s", ErrModulePaused, module)
	}
	return nil
}
