package sources

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/rate-oracle/pkg/logging"
	"tc.com/rate-oracle/pkg/metrics"
	"tc.com/rate-oracle/pkg/oracle"
)

// BaseSource provides common functionality for all price feeds: quote and
// round bookkeeping, health state, subscriber fan-out and shutdown.
//
// Every accepted quote is converted to a raw integer at the feed's fixed
// decimals and appended as a new round to the symbol's RoundBook, which is
// what the rate engine reads through Feed.
type BaseSource struct {
	name       string
	sourcetype SourceType
	decimals   uint8
	symbols    []string
	pairs      map[string]string // unified symbol -> source-specific symbol
	books      map[string]*RoundBook

	prices   map[string]Price
	pricesMu sync.RWMutex

	lastUpdate time.Time
	updateMu   sync.RWMutex

	healthy  bool
	healthMu sync.RWMutex

	subscribers   []chan<- PriceUpdate
	subscribersMu sync.RWMutex

	stopChan chan struct{}
	logger   *logging.Logger
}

// NewBaseSource creates a new base feed with pair mappings.
// pairs: map of unified symbol (e.g. "ATOM/USD") -> source-specific symbol
// (e.g. "ATOMUSDT"). decimals is the fixed precision of raw prices.
func NewBaseSource(name string, sourcetype SourceType, decimals uint8, pairs map[string]string, logger *logging.Logger) *BaseSource {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	symbols := make([]string, 0, len(pairs))
	books := make(map[string]*RoundBook, len(pairs))
	for unified := range pairs {
		symbols = append(symbols, unified)
		books[unified] = NewRoundBook()
	}

	return &BaseSource{
		name:       name,
		sourcetype: sourcetype,
		decimals:   decimals,
		symbols:    symbols,
		pairs:      pairs,
		books:      books,
		prices:     make(map[string]Price),
		stopChan:   make(chan struct{}),
		logger:     logger,
	}
}

// Name returns the feed name.
func (b *BaseSource) Name() string {
	return b.name
}

// Type returns the feed type.
func (b *BaseSource) Type() SourceType {
	return b.sourcetype
}

// Symbols returns the symbols this feed provides.
func (b *BaseSource) Symbols() []string {
	return b.symbols
}

// Decimals returns the fixed precision of raw prices from this feed.
func (b *BaseSource) Decimals() uint8 {
	return b.decimals
}

// Feed returns the per-symbol price source backed by the symbol's rounds.
func (b *BaseSource) Feed(symbol string) (oracle.PriceSource, error) {
	book, ok := b.books[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
	}
	return &bookFeed{book: book, decimals: b.decimals}, nil
}

// Book returns the round book of a symbol, nil if the symbol is unknown.
func (b *BaseSource) Book(symbol string) *RoundBook {
	return b.books[symbol]
}

// IsHealthy returns the health status.
func (b *BaseSource) IsHealthy() bool {
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()
	return b.healthy
}

// SetHealthy sets the health status.
func (b *BaseSource) SetHealthy(healthy bool) {
	b.healthMu.Lock()
	b.healthy = healthy
	b.healthMu.Unlock()

	metrics.RecordSourceHealth(b.name, string(b.sourcetype), healthy)
}

// LastUpdate returns the time of the last successful price update.
func (b *BaseSource) LastUpdate() time.Time {
	b.updateMu.RLock()
	defer b.updateMu.RUnlock()
	return b.lastUpdate
}

// SetLastUpdate sets the last update time.
func (b *BaseSource) SetLastUpdate(t time.Time) {
	b.updateMu.Lock()
	defer b.updateMu.Unlock()
	b.lastUpdate = t
}

// SetPrice records a quote for a symbol: the decimal quote is shifted to
// the feed's fixed precision, truncated to an integer and appended as a new
// round starting at timestamp. Subscribers are notified.
func (b *BaseSource) SetPrice(symbol string, price decimal.Decimal, timestamp time.Time) {
	book, ok := b.books[symbol]
	if !ok {
		b.logger.Warn("Dropping quote for unknown symbol", "source", b.name, "symbol", symbol)
		return
	}

	raw := price.Shift(int32(b.decimals)).BigInt()
	book.Append(raw, uint64(timestamp.Unix())) // #nosec G115 -- quote timestamps are post-1970

	p := Price{
		Symbol:    symbol,
		Price:     price,
		Timestamp: timestamp,
		Source:    b.name,
	}
	b.pricesMu.Lock()
	b.prices[symbol] = p
	b.pricesMu.Unlock()

	metrics.RecordSourceRound(b.name, symbol)

	b.notifySubscribers(PriceUpdate{
		Source: b.name,
		Prices: map[string]Price{symbol: p},
	})
}

// GetPrice returns a single quote by symbol.
func (b *BaseSource) GetPrice(symbol string) (Price, bool) {
	b.pricesMu.RLock()
	defer b.pricesMu.RUnlock()
	price, ok := b.prices[symbol]
	return price, ok
}

// GetAllPrices returns a copy of all current quotes.
func (b *BaseSource) GetAllPrices() map[string]Price {
	b.pricesMu.RLock()
	defer b.pricesMu.RUnlock()

	prices := make(map[string]Price, len(b.prices))
	for k, v := range b.prices {
		prices[k] = v
	}
	return prices
}

// AddSubscriber adds a price update subscriber.
func (b *BaseSource) AddSubscriber(ch chan<- PriceUpdate) {
	b.subscribersMu.Lock()
	defer b.subscribersMu.Unlock()
	b.subscribers = append(b.subscribers, ch)
}

// notifySubscribers sends price updates to all subscribers.
func (b *BaseSource) notifySubscribers(update PriceUpdate) {
	b.subscribersMu.RLock()
	defer b.subscribersMu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- update:
		default:
			b.logger.Warn("Subscriber channel full, skipping update", "source", b.name)
		}
	}
}

// GetSourceSymbol converts a unified symbol to the source-specific symbol.
// Returns empty string if not found.
func (b *BaseSource) GetSourceSymbol(unifiedSymbol string) string {
	return b.pairs[unifiedSymbol]
}

// GetUnifiedSymbol finds the unified symbol for a source-specific symbol.
// Returns empty string if not found.
func (b *BaseSource) GetUnifiedSymbol(sourceSymbol string) string {
	for unified, source := range b.pairs {
		if source == sourceSymbol {
			return unified
		}
	}
	return ""
}

// StopChan returns the stop channel.
func (b *BaseSource) StopChan() <-chan struct{} {
	return b.stopChan
}

// Close closes the stop channel.
func (b *BaseSource) Close() {
	select {
	case <-b.stopChan:
		// Already closed
	default:
		close(b.stopChan)
	}
}

// Logger returns the logger.
func (b *BaseSource) Logger() *logging.Logger {
	return b.logger
}
