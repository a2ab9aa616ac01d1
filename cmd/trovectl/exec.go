package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"solusd/config"
	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
)

// opFlags mirrors types.Operation with decimal string inputs.
type opFlags struct {
	opType         string
	caller         string
	amount         string
	collateral     string
	maxFee         string
	target         string
	targets        string
	count          int
	hint           string
	frontEnd       string
	kickback       string
	isCollIncrease bool
	isDebtIncrease bool
}

func (f *opFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.opType, "type", "", "Operation type (open_trove, adjust_trove, liquidate, redeem_collateral, ...)")
	fs.StringVar(&f.caller, "caller", "", "Caller address (defaults to the owner keystore)")
	fs.StringVar(&f.amount, "amount", "", "Debt, deposit, stake or redemption amount")
	fs.StringVar(&f.collateral, "collateral", "", "Collateral amount")
	fs.StringVar(&f.maxFee, "max-fee", "", "Maximum fee fraction, e.g. 0.05")
	fs.StringVar(&f.target, "target", "", "Trove owner to liquidate")
	fs.StringVar(&f.targets, "targets", "", "Comma separated trove owners for batch liquidation")
	fs.IntVar(&f.count, "count", 0, "Troves to liquidate or redemption iterations")
	fs.StringVar(&f.hint, "hint", "", "Partial redemption NICR hint")
	fs.StringVar(&f.frontEnd, "front-end", "", "Front end tag for deposits")
	fs.StringVar(&f.kickback, "kickback", "", "Kickback rate when registering a front end")
	fs.BoolVar(&f.isCollIncrease, "coll-increase", false, "Adjustment adds collateral")
	fs.BoolVar(&f.isDebtIncrease, "debt-increase", false, "Adjustment draws debt")
}

func (f *opFlags) operation(caller crypto.Address) (types.Operation, error) {
	op := types.Operation{
		Type:           types.OpType(trimmed(f.opType)),
		Caller:         caller,
		Count:          f.count,
		IsCollIncrease: f.isCollIncrease,
		IsDebtIncrease: f.isDebtIncrease,
	}
	if op.Type == "" {
		return op, fmt.Errorf("-type is required")
	}
	if f.count < 0 {
		return op, fmt.Errorf("-count must not be negative")
	}
	decimals := []struct {
		name string
		raw  string
		dst  **uint256.Int
	}{
		{"amount", f.amount, &op.Amount},
		{"collateral", f.collateral, &op.Collateral},
		{"max-fee", f.maxFee, &op.MaxFee},
		{"hint", f.hint, &op.HintNICR},
		{"kickback", f.kickback, &op.KickbackRate},
	}
	for _, d := range decimals {
		if trimmed(d.raw) == "" {
			continue
		}
		v, err := fixedpoint.ParseDecimal(d.raw)
		if err != nil {
			return op, fmt.Errorf("-%s: %w", d.name, err)
		}
		*d.dst = v
	}
	var err error
	if op.Target, err = optionalAddress("target", f.target); err != nil {
		return op, err
	}
	if op.FrontEnd, err = optionalAddress("front-end", f.frontEnd); err != nil {
		return op, err
	}
	if raw := trimmed(f.targets); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			addr, err := crypto.DecodeAddress(trimmed(part))
			if err != nil {
				return op, fmt.Errorf("-targets: %w", err)
			}
			op.Targets = append(op.Targets, addr)
		}
	}
	return op, nil
}

func optionalAddress(name, raw string) (crypto.Address, error) {
	if trimmed(raw) == "" {
		return crypto.Address{}, nil
	}
	addr, err := crypto.DecodeAddress(trimmed(raw))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("-%s: %w", name, err)
	}
	return addr, nil
}

func runExec(args []string, out io.Writer) error {
	fs := newFlagSet("exec")
	configPath := fs.String("config", defaultConfig, "Path to the engine config file")
	price := fs.String("price", "", "Override the manual oracle price for this run")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the owner keystore passphrase")
	var flags opFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	caller, err := resolveCaller(cfg, flags.caller, *passEnv)
	if err != nil {
		return err
	}
	op, err := flags.operation(caller)
	if err != nil {
		return err
	}
	n, err := openNode(cfg)
	if err != nil {
		return err
	}
	defer n.Close()
	if p := trimmed(*price); p != "" {
		if n.Manual == nil {
			return fmt.Errorf("-price requires oracle.ManualPrice in %s", *configPath)
		}
		if err := n.Manual.SetDecimal(cfg.Oracle.Asset, p, time.Now()); err != nil {
			return err
		}
	}
	receipt, err := n.Processor.Execute(context.Background(), op)
	if err != nil {
		return err
	}
	return printJSON(out, receipt)
}

func resolveCaller(cfg *config.Config, raw, passEnv string) (crypto.Address, error) {
	if trimmed(raw) != "" {
		return crypto.DecodeAddress(trimmed(raw))
	}
	return loadOwner(cfg, passEnv)
}
