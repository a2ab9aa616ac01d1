// Package node assembles a Processor from an engine configuration file.
package node

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"solusd/config"
	"solusd/core"
	"solusd/native/oracle"
	"solusd/storage"
)

const (
	feedHTTP   = "http"
	feedManual = "manual"
)

// Node is an opened engine with its price sources.
type Node struct {
	Processor *core.Processor
	// Manual is the operator-controlled feed. It is nil when no manual price
	// is configured.
	Manual *oracle.ManualFeed
}

// Close releases the engine's database.
func (n *Node) Close() {
	if n != nil && n.Processor != nil {
		n.Processor.Close()
	}
}

// BuildFeed returns the price feed described by cfg. With an endpoint the
// HTTP feed takes priority and the manual price acts as a fallback; both are
// subject to the freshness window.
func BuildFeed(cfg config.Oracle, client oracle.HTTPDoer, now time.Time) (oracle.PriceFeed, *oracle.ManualFeed, error) {
	var manual *oracle.ManualFeed
	if price := strings.TrimSpace(cfg.ManualPrice); price != "" {
		manual = oracle.NewManualFeed(cfg.Quote)
		if err := manual.SetDecimal(cfg.Asset, price, now); err != nil {
			return nil, nil, fmt.Errorf("oracle.ManualPrice: %w", err)
		}
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		if manual == nil {
			return nil, nil, fmt.Errorf("%w: no price source configured", oracle.ErrInvalidConfig)
		}
		return manual, manual, nil
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	httpFeed, err := oracle.NewHTTPFeed(client, cfg.Endpoint, cfg.APIKey)
	if err != nil {
		return nil, nil, err
	}
	agg := oracle.NewAggregator(cfg.Quote, []string{feedHTTP, feedManual}, cfg.MaxAge())
	agg.Register(feedHTTP, httpFeed)
	if manual != nil {
		agg.Register(feedManual, manual)
	}
	return agg, manual, nil
}

// Open builds the processor for cfg over its configured storage backend.
func Open(cfg *config.Config, client oracle.HTTPDoer, opts ...core.Option) (*Node, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	troveParams, err := cfg.Params.TroveParams()
	if err != nil {
		return nil, err
	}
	issuanceParams, err := cfg.Issuance.IssuanceParams()
	if err != nil {
		return nil, err
	}
	feed, manual, err := BuildFeed(cfg.Oracle, client, time.Now())
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	proc, err := core.NewProcessor(db, feed, core.Config{
		Trove:    troveParams,
		Issuance: issuanceParams,
		Asset:    cfg.Oracle.Asset,
		Pauses:   cfg.Global.Pauses,
	}, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Node{Processor: proc, Manual: manual}, nil
}
