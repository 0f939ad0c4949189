package sources

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/rate-oracle/pkg/oracle"
)

// SourceType represents the type of price feed.
type SourceType string

const (
	SourceTypeCEX    SourceType = "cex"
	SourceTypeEVM    SourceType = "evm"
	SourceTypeFiat   SourceType = "fiat"
	SourceTypeStatic SourceType = "static"
)

// Price represents a quote for a symbol at a specific time.
type Price struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
}

// PriceUpdate represents a price update event.
type PriceUpdate struct {
	Source string
	Prices map[string]Price
	Error  error
}

// Source defines the interface that all price feeds implement. A feed
// serves one or more symbols; each symbol's round history is exposed to the
// rate engine through Feed.
type Source interface {
	// Initialize prepares the feed for operation.
	Initialize(ctx context.Context) error

	// Start begins fetching prices.
	Start(ctx context.Context) error

	// Stop halts the feed and cleans up resources.
	Stop() error

	// Name returns the unique name of this feed.
	Name() string

	// Type returns the type of this feed.
	Type() SourceType

	// Symbols returns the list of symbols this feed provides.
	Symbols() []string

	// Decimals returns the fixed number of fractional digits raw prices
	// from this feed are expressed in.
	Decimals() uint8

	// Feed returns the per-symbol price source serving the rate engine.
	Feed(symbol string) (oracle.PriceSource, error)

	// GetPrices returns the current quotes for all symbols.
	GetPrices(ctx context.Context) (map[string]Price, error)

	// Subscribe allows other components to receive price updates.
	Subscribe(updates chan<- PriceUpdate) error

	// IsHealthy returns whether the feed is currently healthy.
	IsHealthy() bool

	// LastUpdate returns the timestamp of the last successful update.
	LastUpdate() time.Time
}

// SourceFactory is a function that creates a new Source instance.
type SourceFactory func(config map[string]interface{}) (Source, error)
