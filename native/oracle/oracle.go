package oracle

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"solusd/native/fixedpoint"
)

var (
	ErrStale         = errors.New("oracle: no fresh price available")
	ErrInvalidConfig = errors.New("oracle: invalid feed configuration")
	ErrMismatch      = errors.New("oracle: product or quote currency mismatch")
	ErrNotFound      = errors.New("oracle: price not found")
)

// Quote captures a 1e18-scaled price for Base denominated in Quote together
// with the time reported by the upstream source.
type Quote struct {
	Base      string
	Quote     string
	Price     *uint256.Int
	Timestamp time.Time
	Source    string
}

// Clone returns a deep copy of the quote.
func (q Quote) Clone() Quote {
	clone := q
	clone.Price = fixedpoint.Clone(q.Price)
	return clone
}

// PriceFeed resolves the current price of an asset.
type PriceFeed interface {
	GetPrice(asset string) (Quote, error)
}

// FeedFunc adapts a function to the PriceFeed interface.
type FeedFunc func(asset string) (Quote, error)

func (f FeedFunc) GetPrice(asset string) (Quote, error) { return f(asset) }

func normaliseSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ManualFeed is an in-memory feed used for tests, local tooling and manual
// overrides.
type ManualFeed struct {
	mu     sync.RWMutex
	quote  string
	prices map[string]Quote
}

// NewManualFeed constructs an empty feed quoting every asset in quote.
func NewManualFeed(quote string) *ManualFeed {
	return &ManualFeed{quote: normaliseSymbol(quote), prices: make(map[string]Quote)}
}

// SetDecimal records a human-readable decimal price for asset.
func (m *ManualFeed) SetDecimal(asset, price string, ts time.Time) error {
	if m == nil {
		return fmt.Errorf("%w: manual feed not configured", ErrInvalidConfig)
	}
	value, err := fixedpoint.ParseDecimal(price)
	if err != nil {
		return fmt.Errorf("manual feed: %w", err)
	}
	return m.Set(asset, value, ts)
}

// Set stores a 1e18-scaled price for asset.
func (m *ManualFeed) Set(asset string, price *uint256.Int, ts time.Time) error {
	if m == nil {
		return fmt.Errorf("%w: manual feed not configured", ErrInvalidConfig)
	}
	symbol := normaliseSymbol(asset)
	if symbol == "" {
		return fmt.Errorf("%w: asset required", ErrInvalidConfig)
	}
	if price == nil || price.IsZero() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidConfig)
	}
	m.mu.Lock()
	m.prices[symbol] = Quote{Base: symbol, Quote: m.quote, Price: fixedpoint.Clone(price), Timestamp: ts, Source: "manual"}
	m.mu.Unlock()
	return nil
}

func (m *ManualFeed) GetPrice(asset string) (Quote, error) {
	if m == nil {
		return Quote{}, fmt.Errorf("%w: manual feed not configured", ErrInvalidConfig)
	}
	m.mu.RLock()
	stored, ok := m.prices[normaliseSymbol(asset)]
	m.mu.RUnlock()
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrNotFound, asset)
	}
	return stored.Clone(), nil
}

// Aggregator consults registered feeds in priority order until one returns a
// fresh quote for the configured quote currency.
type Aggregator struct {
	mu       sync.RWMutex
	quote    string
	priority []string
	feeds    map[string]PriceFeed
	maxAge   time.Duration
	nowFn    func() time.Time
}

// NewAggregator builds an aggregator that accepts prices denominated in quote
// and no older than maxAge. A zero maxAge disables the freshness check.
func NewAggregator(quote string, priority []string, maxAge time.Duration) *Aggregator {
	return &Aggregator{
		quote:    normaliseSymbol(quote),
		priority: append([]string{}, priority...),
		feeds:    make(map[string]PriceFeed),
		maxAge:   maxAge,
		nowFn:    time.Now,
	}
}

// SetClock overrides the time source used for freshness checks.
func (a *Aggregator) SetClock(now func() time.Time) {
	if a == nil || now == nil {
		return
	}
	a.mu.Lock()
	a.nowFn = now
	a.mu.Unlock()
}

// Register adds or replaces a feed under name, appending it to the priority
// list when absent.
func (a *Aggregator) Register(name string, feed PriceFeed) {
	if a == nil {
		return
	}
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" || feed == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.feeds[trimmed] = feed
	for _, entry := range a.priority {
		if strings.EqualFold(entry, trimmed) {
			return
		}
	}
	a.priority = append(a.priority, trimmed)
}

// GetPrice returns the first fresh, well-formed quote for asset. The last
// feed error is returned when none qualifies.
func (a *Aggregator) GetPrice(asset string) (Quote, error) {
	if a == nil {
		return Quote{}, fmt.Errorf("%w: aggregator not configured", ErrInvalidConfig)
	}
	symbol := normaliseSymbol(asset)
	if symbol == "" || a.quote == "" {
		return Quote{}, fmt.Errorf("%w: asset and quote currency required", ErrInvalidConfig)
	}
	a.mu.RLock()
	priority := append([]string{}, a.priority...)
	maxAge := a.maxAge
	now := a.nowFn()
	a.mu.RUnlock()

	var lastErr error
	for _, name := range priority {
		a.mu.RLock()
		feed := a.feeds[strings.ToLower(name)]
		a.mu.RUnlock()
		if feed == nil {
			continue
		}
		quote, err := feed.GetPrice(symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if normaliseSymbol(quote.Base) != symbol || normaliseSymbol(quote.Quote) != a.quote {
			lastErr = fmt.Errorf("%w: %s returned %s/%s", ErrMismatch, name, quote.Base, quote.Quote)
			continue
		}
		if quote.Price == nil || quote.Price.IsZero() {
			lastErr = fmt.Errorf("%w: %s returned zero price", ErrInvalidConfig, name)
			continue
		}
		if maxAge > 0 && quote.Timestamp.Before(now.Add(-maxAge)) {
			lastErr = ErrStale
			continue
		}
		result := quote.Clone()
		if strings.TrimSpace(result.Source) == "" {
			result.Source = strings.ToLower(name)
		}
		return result, nil
	}
	if lastErr == nil {
		lastErr = ErrStale
	}
	return Quote{}, lastErr
}
