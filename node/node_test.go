package node

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solusd/config"
	"solusd/core/genesis"
	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
	"solusd/native/oracle"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	cfg.Oracle.ManualPrice = "2000"
	return cfg
}

func TestBuildFeedRequiresSource(t *testing.T) {
	_, _, err := BuildFeed(config.Oracle{Asset: "ETH", Quote: "USD"}, nil, time.Now())
	require.ErrorIs(t, err, oracle.ErrInvalidConfig)

	_, _, err = BuildFeed(config.Oracle{Asset: "ETH", Quote: "USD", ManualPrice: "abc"}, nil, time.Now())
	require.Error(t, err)
}

func TestBuildFeedPrefersHTTP(t *testing.T) {
	now := time.Now()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"base": r.URL.Query().Get("asset"), "quote": "USD", "price": "2100.5", "timestamp": now.Unix(),
		})
	}))
	defer srv.Close()

	feed, manual, err := BuildFeed(config.Oracle{
		Asset: "ETH", Quote: "USD", MaxAgeSeconds: 60, Endpoint: srv.URL, ManualPrice: "1900",
	}, srv.Client(), now)
	require.NoError(t, err)
	require.NotNil(t, manual)
	quote, err := feed.GetPrice("ETH")
	require.NoError(t, err)
	require.Equal(t, fixedpoint.MustParseDecimal("2100.5"), quote.Price)

	srv.Close()
	quote, err = feed.GetPrice("ETH")
	require.NoError(t, err)
	require.Equal(t, fixedpoint.MustParseDecimal("1900"), quote.Price)
}

func TestOpenRunsOperations(t *testing.T) {
	n, err := Open(memoryConfig(), nil)
	require.NoError(t, err)
	defer n.Close()
	require.NotNil(t, n.Manual)

	require.NoError(t, n.Processor.InitGenesis(genesis.NewGenesisSpec(time.Now())))
	var alice crypto.Address
	alice[19] = 1
	receipt, err := n.Processor.Execute(context.Background(), types.Operation{
		Type:       types.OpOpenTrove,
		Caller:     alice,
		Collateral: fixedpoint.MustParseDecimal("2"),
		Amount:     fixedpoint.MustParseDecimal("2000"),
		MaxFee:     fixedpoint.MustParseDecimal("0.05"),
	})
	require.NoError(t, err)
	require.Equal(t, fixedpoint.MustParseDecimal("2000"), receipt.Price)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Params.MCR = "abc"
	_, err := Open(cfg, nil)
	require.Error(t, err)

	cfg = memoryConfig()
	cfg.Oracle.Asset = ""
	_, err = Open(cfg, nil)
	require.Error(t, err)

	_, err = Open(nil, nil)
	require.Error(t, err)
}

