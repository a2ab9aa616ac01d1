package core

import (
	"errors"
	"fmt"

	"solusd/core/genesis"
	"solusd/core/types"
	"solusd/native/fixedpoint"
)

// ErrGenesisApplied is returned when genesis is applied to an initialised store.
var ErrGenesisApplied = errors.New("core: genesis already applied")

// Initialized reports whether genesis has been applied to the store.
func (p *Processor) Initialized() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	txn := p.state.Begin()
	defer txn.Discard()
	return txn.HasIssuanceState()
}

// InitGenesis records the issuance deployment time and registers the
// genesis front ends. Applying genesis twice is rejected.
func (p *Processor) InitGenesis(spec *genesis.GenesisSpec) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	txn := p.state.Begin()
	ok, err := txn.HasIssuanceState()
	if err != nil {
		txn.Discard()
		return err
	}
	if ok {
		txn.Discard()
		return ErrGenesisApplied
	}
	deployed := spec.GenesisTimestamp().Unix()
	if deployed < 0 {
		txn.Discard()
		return fmt.Errorf("core: genesis time before unix epoch")
	}
	if err := txn.PutIssuanceState(&types.IssuanceState{TotalIssued: fixedpoint.Zero(), DeploymentTime: uint64(deployed)}); err != nil {
		txn.Discard()
		return err
	}
	e := p.wire(txn)
	for _, fe := range spec.FrontEnds {
		if err := e.stability.RegisterFrontEnd(fe.Owner(), fe.Kickback()); err != nil {
			txn.Discard()
			return fmt.Errorf("genesis front end %s: %w", fe.Owner(), err)
		}
	}
	if _, err := txn.Commit(); err != nil {
		return err
	}
	p.logger.Info("genesis applied",
		"genesis_time", spec.GenesisTimestamp().UTC().Format("2006-01-02T15:04:05Z07:00"),
		"front_ends", len(spec.FrontEnds))
	return nil
}
