package config

import (
	"fmt"
	"strings"
)

// Validate rejects configurations the engines cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	switch cfg.Backend {
	case BackendMemory, BackendLevelDB, BackendBolt:
	default:
		return fmt.Errorf("config: unknown backend %q", cfg.Backend)
	}
	troveParams, err := cfg.Params.TroveParams()
	if err != nil {
		return err
	}
	if err := troveParams.Validate(); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	issuanceParams, err := cfg.Issuance.IssuanceParams()
	if err != nil {
		return err
	}
	if err := issuanceParams.Validate(); err != nil {
		return fmt.Errorf("issuance: %w", err)
	}
	if strings.TrimSpace(cfg.Oracle.Asset) == "" || strings.TrimSpace(cfg.Oracle.Quote) == "" {
		return fmt.Errorf("oracle: asset and quote required")
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Oracle.Asset), strings.TrimSpace(cfg.Oracle.Quote)) {
		return fmt.Errorf("oracle: asset and quote must differ")
	}
	return nil
}
