package config

import nativecommon "solusd/native/common"

// Params carries the trove engine constants. Ratios and amounts are decimal
// strings ("1.1", "200") scaled to 1e18 when parsed.
type Params struct {
	MCR                    string `toml:"MCR"`
	CCR                    string `toml:"CCR"`
	GasCompensation        string `toml:"GasCompensation"`
	MinNetDebt             string `toml:"MinNetDebt"`
	PercentDivisor         uint64 `toml:"PercentDivisor"`
	BorrowingFeeFloor      string `toml:"BorrowingFeeFloor"`
	MaxBorrowingFee        string `toml:"MaxBorrowingFee"`
	RedemptionFeeFloor     string `toml:"RedemptionFeeFloor"`
	MinuteDecayFactor      string `toml:"MinuteDecayFactor"`
	Beta                   uint64 `toml:"Beta"`
	BootstrapPeriodSeconds uint64 `toml:"BootstrapPeriodSeconds"`
}

// Issuance configures the community issuance curve.
type Issuance struct {
	SupplyCap      string `toml:"SupplyCap"`
	IssuanceFactor string `toml:"IssuanceFactor"`
}

// Oracle selects the priced asset and the feeds consulted for it.
type Oracle struct {
	Asset         string `toml:"Asset"`
	Quote         string `toml:"Quote"`
	MaxAgeSeconds uint64 `toml:"MaxAgeSeconds"`
	// Endpoint, when set, registers an HTTP feed ahead of the manual feed.
	Endpoint string `toml:"Endpoint,omitempty"`
	APIKey   string `toml:"APIKey,omitempty"`
	// ManualPrice seeds the manual feed, useful for local deployments.
	ManualPrice string `toml:"ManualPrice,omitempty"`
}

// Pauses switches individual modules off.
type Pauses struct {
	Trove      bool `toml:"Trove"`
	Stability  bool `toml:"Stability"`
	Redemption bool `toml:"Redemption"`
	Staking    bool `toml:"Staking"`
	Issuance   bool `toml:"Issuance"`
}

// IsPaused reports whether the named module is paused.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case nativecommon.ModuleTrove:
		return p.Trove
	case nativecommon.ModuleStability:
		return p.Stability
	case nativecommon.ModuleRedemption:
		return p.Redemption
	case nativecommon.ModuleStaking:
		return p.Staking
	case nativecommon.ModuleIssuance:
		return p.Issuance
	default:
		return false
	}
}

// Global bundles runtime switches that may change without a redeploy.
type Global struct {
	Pauses Pauses `toml:"pauses"`
}
