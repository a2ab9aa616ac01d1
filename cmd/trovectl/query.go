package main

import (
	"fmt"
	"io"

	"solusd/config"
	"solusd/crypto"
	"solusd/node"
)

// query opens the configured store and prints fn's result as JSON.
func query(cfgPath string, out io.Writer, fn func(n *node.Node) (interface{}, error)) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	n, err := openNode(cfg)
	if err != nil {
		return err
	}
	defer n.Close()
	result, err := fn(n)
	if err != nil {
		return err
	}
	return printJSON(out, result)
}

func runSystem(args []string, out io.Writer) error {
	fs := newFlagSet("system")
	configPath := fs.String("config", defaultConfig, "Path to the engine config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return query(*configPath, out, func(n *node.Node) (interface{}, error) {
		return n.Processor.System()
	})
}

func runSortedTroves(args []string, out io.Writer) error {
	fs := newFlagSet("troves")
	configPath := fs.String("config", defaultConfig, "Path to the engine config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return query(*configPath, out, func(n *node.Node) (interface{}, error) {
		owners, err := n.Processor.SortedTroves()
		if owners == nil {
			owners = []crypto.Address{}
		}
		return owners, err
	})
}

func ownerQuery(kind string) func([]string, io.Writer) error {
	return func(args []string, out io.Writer) error {
		fs := newFlagSet(kind)
		configPath := fs.String("config", defaultConfig, "Path to the engine config file")
		ownerFlag := fs.String("owner", "", "Owner address")
		if err := fs.Parse(args); err != nil {
			return err
		}
		owner, err := crypto.DecodeAddress(trimmed(*ownerFlag))
		if err != nil {
			return fmt.Errorf("-owner: %w", err)
		}
		return query(*configPath, out, func(n *node.Node) (interface{}, error) {
			switch kind {
			case "trove":
				return n.Processor.Trove(owner)
			case "deposit":
				return n.Processor.Deposit(owner)
			case "frontend":
				return n.Processor.FrontEnd(owner)
			case "staker":
				return n.Processor.Staker(owner)
			case "surplus":
				amount, err := n.Processor.Surplus(owner)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"owner": owner, "collateral": amount}, nil
			default:
				return nil, fmt.Errorf("unknown query %q", kind)
			}
		})
	}
}
