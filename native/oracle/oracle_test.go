package oracle

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solusd/native/fixedpoint"
)

func TestManualFeedProvidesQuotes(t *testing.T) {
	feed := NewManualFeed("usd")
	now := time.Unix(1_700_000_000, 0)
	require.NoError(t, feed.SetDecimal("eth", "1800.25", now))

	quote, err := feed.GetPrice("ETH")
	require.NoError(t, err)
	require.Equal(t, fixedpoint.MustParseDecimal("1800.25"), quote.Price)
	require.Equal(t, "USD", quote.Quote)
	require.True(t, quote.Timestamp.Equal(now))

	quote.Price.SetUint64(1)
	again, err := feed.GetPrice("eth")
	require.NoError(t, err)
	require.Equal(t, fixedpoint.MustParseDecimal("1800.25"), again.Price)

	_, err = feed.GetPrice("btc")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, feed.SetDecimal("eth", "0", now), ErrInvalidConfig)
}

func TestAggregatorRejectsStaleQuote(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	feed := NewManualFeed("USD")
	require.NoError(t, feed.SetDecimal("ETH", "1000", now.Add(-2*time.Minute)))

	agg := NewAggregator("USD", nil, time.Minute)
	agg.SetClock(func() time.Time { return now })
	agg.Register("manual", feed)

	_, err := agg.GetPrice("ETH")
	require.ErrorIs(t, err, ErrStale)
}

func TestAggregatorPriorityFallback(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	manual := NewManualFeed("USD")
	require.NoError(t, manual.SetDecimal("ETH", "1250", now))

	agg := NewAggregator("USD", []string{"primary", "manual"}, 5*time.Minute)
	agg.SetClock(func() time.Time { return now })
	agg.Register("primary", FeedFunc(func(string) (Quote, error) {
		return Quote{}, errors.New("primary down")
	}))
	agg.Register("manual", manual)

	quote, err := agg.GetPrice("eth")
	require.NoError(t, err)
	require.Equal(t, "manual", quote.Source)
	require.Equal(t, fixedpoint.MustParseDecimal("1250"), quote.Price)
}

func TestAggregatorRejectsMismatchedPair(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	eur := NewManualFeed("EUR")
	require.NoError(t, eur.SetDecimal("ETH", "900", now))

	agg := NewAggregator("USD", nil, 0)
	agg.SetClock(func() time.Time { return now })
	agg.Register("eur", eur)

	_, err := agg.GetPrice("ETH")
	require.ErrorIs(t, err, ErrMismatch)

	_, err = NewAggregator("USD", nil, 0).GetPrice("ETH")
	require.ErrorIs(t, err, ErrStale)
}

func TestHTTPFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ETH", r.URL.Query().Get("asset"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"base":      "eth",
			"quote":     "usd",
			"price":     "1999.5",
			"timestamp": 1_700_000_000,
		})
	}))
	defer server.Close()

	feed, err := NewHTTPFeed(server.Client(), server.URL, "secret")
	require.NoError(t, err)
	quote, err := feed.GetPrice("eth")
	require.NoError(t, err)
	require.Equal(t, "ETH", quote.Base)
	require.Equal(t, "USD", quote.Quote)
	require.Equal(t, fixedpoint.MustParseDecimal("1999.5"), quote.Price)
	require.Equal(t, int64(1_700_000_000), quote.Timestamp.Unix())

	_, err = NewHTTPFeed(nil, " ", "")
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestHTTPFeedStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	feed, err := NewHTTPFeed(server.Client(), server.URL, "")
	require.NoError(t, err)
	_, err = feed.GetPrice("ETH")
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}
