package types

import (
	"fmt"

	"github.com/holiman/uint256"

	"solusd/crypto"
)

// Asset names a token the engine asks the transfer collaborator to move.
type Asset string

const (
	AssetCollateral Asset = "SOL"
	AssetDebt       Asset = "SOLUSD"
	AssetIssuance   Asset = "SOLID"
)

// TransferKind distinguishes plain transfers from supply changes.
type TransferKind string

const (
	TransferMove TransferKind = "transfer"
	TransferMint TransferKind = "mint"
	TransferBurn TransferKind = "burn"
)

// TransferRequest is a token movement the host must execute after the
// operation commits. Mint leaves From empty; Burn leaves To empty.
type TransferRequest struct {
	Kind   TransferKind   `json:"kind"`
	Asset  Asset          `json:"asset"`
	From   crypto.Address `json:"from"`
	To     crypto.Address `json:"to"`
	Amount *uint256.Int   `json:"amount"`
}

func (r TransferRequest) String() string {
	switch r.Kind {
	case TransferMint:
		return fmt.Sprintf("mint %s %s -> %s", r.Amount.Dec(), r.Asset, r.To)
	case TransferBurn:
		return fmt.Sprintf("burn %s %s <- %s", r.Amount.Dec(), r.Asset, r.From)
	default:
		return fmt.Sprintf("transfer %s %s %s -> %s", r.Amount.Dec(), r.Asset, r.From, r.To)
	}
}

// Module account names.
const (
	ModuleActivePool        = "activePool"
	ModuleDefaultPool       = "defaultPool"
	ModuleStabilityPool     = "stabilityPool"
	ModuleCollSurplusPool   = "collSurplusPool"
	ModuleGasPool           = "gasPool"
	ModuleStaking           = "staking"
	ModuleCommunityIssuance = "communityIssuance"
)

// ModuleAccount returns the derived address holding a module's balances.
func ModuleAccount(name string) crypto.Address {
	return crypto.ModuleAddress(name)
}
