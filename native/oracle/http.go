package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"solusd/native/fixedpoint"
)

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPFeed polls a JSON price endpoint of the form
// {"base":"ETH","quote":"USD","price":"1800.5","timestamp":1700000000}.
type HTTPFeed struct {
	client   HTTPDoer
	endpoint string
	apiKey   string
}

// NewHTTPFeed constructs an HTTP feed. When client is nil http.DefaultClient
// is used.
func NewHTTPFeed(client HTTPDoer, endpoint, apiKey string) (*HTTPFeed, error) {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		return nil, fmt.Errorf("%w: endpoint required", ErrInvalidConfig)
	}
	if _, err := url.Parse(ep); err != nil {
		return nil, fmt.Errorf("%w: endpoint: %v", ErrInvalidConfig, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFeed{client: client, endpoint: ep, apiKey: strings.TrimSpace(apiKey)}, nil
}

func (f *HTTPFeed) GetPrice(asset string) (Quote, error) {
	if f == nil {
		return Quote{}, fmt.Errorf("%w: http feed not configured", ErrInvalidConfig)
	}
	req, err := http.NewRequest(http.MethodGet, f.endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	values := url.Values{}
	values.Set("asset", normaliseSymbol(asset))
	req.URL.RawQuery = values.Encode()
	if f.apiKey != "" {
		req.Header.Set("x-api-key", f.apiKey)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Quote{}, fmt.Errorf("http feed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload struct {
		Base      string `json:"base"`
		Quote     string `json:"quote"`
		Price     string `json:"price"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("http feed: decode: %w", err)
	}
	price, err := fixedpoint.ParseDecimal(payload.Price)
	if err != nil {
		return Quote{}, fmt.Errorf("http feed: invalid price %q: %w", payload.Price, err)
	}
	return Quote{
		Base:      normaliseSymbol(payload.Base),
		Quote:     normaliseSymbol(payload.Quote),
		Price:     price,
		Timestamp: time.Unix(payload.Timestamp, 0),
		Source:    "http",
	}, nil
}
