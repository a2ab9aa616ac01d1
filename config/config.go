package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"solusd/crypto"
)

// Storage backends understood by storage.Open.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

type Config struct {
	DataDir           string   `toml:"DataDir"`
	Backend           string   `toml:"Backend"`
	OwnerKeystorePath string   `toml:"OwnerKeystorePath"`
	Params            Params   `toml:"params"`
	Issuance          Issuance `toml:"issuance"`
	Oracle            Oracle   `toml:"oracle"`
	Global            Global   `toml:"global"`
}

// Default returns the production parameter set with a local data dir.
func Default() *Config {
	return &Config{
		DataDir: "./solusd-data",
		Backend: BackendLevelDB,
		Params: Params{
			MCR:                    "1.1",
			CCR:                    "1.5",
			GasCompensation:        "200",
			MinNetDebt:             "1800",
			PercentDivisor:         200,
			BorrowingFeeFloor:      "0.005",
			MaxBorrowingFee:        "0.05",
			RedemptionFeeFloor:     "0.005",
			MinuteDecayFactor:      "0.999037758833783",
			Beta:                   2,
			BootstrapPeriodSeconds: 14 * 24 * 60 * 60,
		},
		Issuance: Issuance{
			SupplyCap:      "32000000",
			IssuanceFactor: "0.999998681227695",
		},
		Oracle: Oracle{
			Asset:         "ETH",
			Quote:         "USD",
			MaxAgeSeconds: 3600,
		},
	}
}

// Load loads the configuration from the given path, writing the defaults
// (and a fresh owner keystore) when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = BackendLevelDB
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.OwnerKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.OwnerKeystorePath != keystorePath {
		cfg.OwnerKeystorePath = keystorePath
		return Save(configPath, cfg)
	}
	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "owner.keystore")
}
