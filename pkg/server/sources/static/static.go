// Package static provides a fixed-price feed for development and tests.
package static

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/rate-oracle/pkg/server/sources"
)

// FixedSource serves a fixed set of quotes from configuration. Each
// configured symbol gets exactly one round, started when the feed starts.
type FixedSource struct {
	*sources.BaseSource
	quotes map[string]decimal.Decimal
}

// NewFixedSource creates a fixed feed from config.
// Expected format: prices: { "ATOM/USD": "9.37", "OSMO/USD": "0.41" }.
func NewFixedSource(config map[string]interface{}) (sources.Source, error) {
	pricesRaw, ok := config["prices"].(map[string]interface{})
	if !ok || len(pricesRaw) == 0 {
		return nil, fmt.Errorf("%w: 'prices' map", sources.ErrInvalidConfig)
	}

	quotes := make(map[string]decimal.Decimal, len(pricesRaw))
	pairs := make(map[string]string, len(pricesRaw))
	for symbol, raw := range pricesRaw {
		if err := sources.ValidateSymbolFormat(symbol); err != nil {
			return nil, err
		}
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: price for %s is %T, want string", sources.ErrInvalidConfig, symbol, raw)
		}
		quote, err := decimal.NewFromString(str)
		if err != nil {
			return nil, fmt.Errorf("%w: price for %s: %v", sources.ErrInvalidConfig, symbol, err)
		}
		quotes[symbol] = quote
		pairs[symbol] = symbol
	}

	decimals, err := sources.GetDecimalsFromConfig(config, 8)
	if err != nil {
		return nil, err
	}

	logger := sources.GetLoggerFromConfig(config)
	base := sources.NewBaseSource("fixed", sources.SourceTypeStatic, decimals, pairs, logger)

	return &FixedSource{
		BaseSource: base,
		quotes:     quotes,
	}, nil
}

// Initialize prepares the feed.
func (s *FixedSource) Initialize(_ context.Context) error {
	return nil
}

// Start records one round per configured symbol.
func (s *FixedSource) Start(_ context.Context) error {
	now := time.Now()
	for symbol, quote := range s.quotes {
		s.SetPrice(symbol, quote, now)
	}
	s.SetLastUpdate(now)
	s.SetHealthy(true)

	s.Logger().Info("Fixed feed started", "symbols", len(s.quotes))
	return nil
}

// Stop halts the feed.
func (s *FixedSource) Stop() error {
	s.Close()
	return nil
}

// GetPrices returns the configured quotes.
func (s *FixedSource) GetPrices(_ context.Context) (map[string]sources.Price, error) {
	return s.GetAllPrices(), nil
}

// Subscribe adds a subscriber to price updates.
func (s *FixedSource) Subscribe(updates chan<- sources.PriceUpdate) error {
	s.AddSubscriber(updates)
	return nil
}

func init() {
	sources.Register("static.fixed", NewFixedSource)
}
