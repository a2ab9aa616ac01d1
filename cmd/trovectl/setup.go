package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"solusd/cmd/internal/passphrase"
	"solusd/config"
	"solusd/core"
	"solusd/core/genesis"
	"solusd/crypto"
	"solusd/node"
	"solusd/observability/logging"
)

func runInit(args []string, out io.Writer) error {
	fs := newFlagSet("init")
	configPath := fs.String("config", defaultConfig, "Path to the engine config file")
	genesisPath := fs.String("genesis", defaultGenesis, "Path to the genesis file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, err := os.Stat(*genesisPath); os.IsNotExist(err) {
		data, err := json.MarshalIndent(genesis.NewGenesisSpec(time.Now()), "", "  ")
		if err != nil {
			return err
		}
		if dir := filepath.Dir(*genesisPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(*genesisPath, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write genesis: %w", err)
		}
	} else if err != nil {
		return err
	}
	owner, err := loadOwner(cfg, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "config:   %s\n", *configPath)
	fmt.Fprintf(out, "keystore: %s\n", cfg.OwnerKeystorePath)
	fmt.Fprintf(out, "owner:    %s\n", owner)
	fmt.Fprintf(out, "genesis:  %s\n", *genesisPath)
	return nil
}

func runKeygen(args []string, out io.Writer) error {
	fs := newFlagSet("keygen")
	outPath := fs.String("out", "owner.keystore", "Output path for the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(*outPath); err == nil && !*force {
		return fmt.Errorf("keystore %s already exists (use -force to overwrite)", *outPath)
	}
	pass, err := passphrase.NewSource(*passEnv, "owner keystore").Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*outPath, key, pass); err != nil {
		return fmt.Errorf("save keystore: %w", err)
	}
	fmt.Fprintf(out, "address:  %s\nkeystore: %s\n", key.PubKey().Address(), *outPath)
	return nil
}

func runGenesis(args []string, out io.Writer) error {
	fs := newFlagSet("genesis")
	configPath := fs.String("config", defaultConfig, "Path to the engine config file")
	genesisPath := fs.String("genesis", defaultGenesis, "Path to the genesis file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	spec, err := genesis.LoadGenesisSpec(*genesisPath)
	if err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	n, err := openNode(cfg)
	if err != nil {
		return err
	}
	defer n.Close()
	if err := n.Processor.InitGenesis(spec); err != nil {
		return err
	}
	fmt.Fprintf(out, "genesis applied at %s\n", spec.GenesisTimestamp().UTC().Format(time.RFC3339))
	return nil
}

// openNode opens the engine with logs on stderr so stdout stays parseable.
func openNode(cfg *config.Config) (*node.Node, error) {
	logger := slog.New(logging.NewHandler(os.Stderr)).With("service", "trovectl")
	return node.Open(cfg, nil, core.WithLogger(logger))
}

// loadOwner decrypts the owner keystore referenced by cfg. Keystores created
// by config.Load carry an empty passphrase; others are unlocked via passEnv.
func loadOwner(cfg *config.Config, passEnv string) (crypto.Address, error) {
	key, err := crypto.LoadFromKeystore(cfg.OwnerKeystorePath, "")
	if err == nil {
		return key.PubKey().Address(), nil
	}
	if passEnv == "" {
		passEnv = defaultPassEnv
	}
	pass, perr := passphrase.NewSource(passEnv, "owner keystore").Get()
	if perr != nil {
		return crypto.Address{}, fmt.Errorf("unlock owner keystore: %w", perr)
	}
	key, err = crypto.LoadFromKeystore(cfg.OwnerKeystorePath, pass)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("unlock owner keystore: %w", err)
	}
	return key.PubKey().Address(), nil
}
