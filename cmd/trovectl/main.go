package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	defaultConfig  = "./solusd.toml"
	defaultGenesis = "./genesis.json"
	defaultPassEnv = "SOLUSD_KEYSTORE_PASS"
)

type command struct {
	summary string
	run     func(args []string, out io.Writer) error
}

var commands = map[string]command{
	"init":     {"write a default engine config, owner keystore and genesis file", runInit},
	"keygen":   {"generate an owner keypair into a passphrase-protected keystore", runKeygen},
	"genesis":  {"apply a genesis file to the configured store", runGenesis},
	"exec":     {"execute one operation against the configured store", runExec},
	"system":   {"print system totals, pools and fee rates", runSystem},
	"troves":   {"list active troves from lowest to highest NICR", runSortedTroves},
	"trove":    {"print a trove with pending rewards", ownerQuery("trove")},
	"deposit":  {"print a stability pool deposit", ownerQuery("deposit")},
	"frontend": {"print a front end", ownerQuery("frontend")},
	"staker":   {"print a staker's stake and pending gains", ownerQuery("staker")},
	"surplus":  {"print claimable surplus collateral", ownerQuery("surplus")},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return flag.ErrHelp
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(args[1:], out)
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Usage: trovectl <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func trimmed(s string) string { return strings.TrimSpace(s) }
