// Package cex provides centralized-exchange price feeds.
package cex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/rate-oracle/pkg/server/sources"
	"tc.com/rate-oracle/pkg/version"
)

const (
	binanceBaseURL  = "https://api.binance.com"
	binanceTimeout  = 10 * time.Second
	binancePollRate = 15 * time.Second
)

// BinanceSource polls spot prices from the Binance REST API. Every poll
// that yields a changed or fresh quote appends a round per tracked symbol.
type BinanceSource struct {
	*sources.BaseSource
	apiURL   string
	interval time.Duration
	client   *http.Client
}

// binancePriceTicker is the lightweight /ticker/price payload.
type binancePriceTicker struct {
	Symbol string `json:"symbol"` // e.g. "ATOMUSDT"
	Price  string `json:"price"`
}

// NewBinanceSource creates a new Binance feed from config.
func NewBinanceSource(config map[string]interface{}) (sources.Source, error) {
	pairs, err := sources.ParsePairsFromMap(config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pairs: %w", err)
	}

	decimals, err := sources.GetDecimalsFromConfig(config, 8)
	if err != nil {
		return nil, err
	}

	apiURL := binanceBaseURL
	if url, ok := config["api_url"].(string); ok && url != "" {
		apiURL = url
	}

	interval := binancePollRate
	if i, ok := config["interval"].(int); ok && i > 0 {
		interval = time.Duration(i) * time.Millisecond
	}

	logger := sources.GetLoggerFromConfig(config)
	base := sources.NewBaseSource("binance", sources.SourceTypeCEX, decimals, pairs, logger)

	return &BinanceSource{
		BaseSource: base,
		apiURL:     apiURL,
		interval:   interval,
		client:     &http.Client{Timeout: binanceTimeout},
	}, nil
}

// Initialize prepares the feed for operation.
func (s *BinanceSource) Initialize(_ context.Context) error {
	s.Logger().Info("Initializing Binance feed", "pairs", len(s.Symbols()))
	return nil
}

// Start performs an initial fetch and begins the poll loop.
func (s *BinanceSource) Start(ctx context.Context) error {
	if err := s.fetchPrices(ctx); err != nil {
		s.Logger().Warn("Initial fetch failed", "error", err.Error())
	} else {
		s.SetHealthy(true)
	}

	go s.pollLoop(ctx)
	return nil
}

// Stop halts the feed and cleans up resources.
func (s *BinanceSource) Stop() error {
	s.Logger().Info("Stopping Binance feed")
	s.Close()
	return nil
}

// GetPrices returns the latest quotes.
func (s *BinanceSource) GetPrices(_ context.Context) (map[string]sources.Price, error) {
	return s.GetAllPrices(), nil
}

// Subscribe allows other components to receive price updates.
func (s *BinanceSource) Subscribe(updates chan<- sources.PriceUpdate) error {
	s.AddSubscriber(updates)
	return nil
}

// pollLoop continuously fetches prices at the configured interval.
func (s *BinanceSource) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.StopChan():
			return
		case <-ticker.C:
			if err := s.fetchPrices(ctx); err != nil {
				s.Logger().Error("Failed to fetch prices", "error", err)
				s.SetHealthy(false)
			} else {
				s.SetHealthy(true)
			}
		}
	}
}

// fetchPrices retrieves current prices from the REST API.
func (s *BinanceSource) fetchPrices(ctx context.Context) error {
	url := s.apiURL + "/api/v3/ticker/price"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.AgentString())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		s.Logger().Warn("Rate limit exceeded", "source", s.Name())
		return fmt.Errorf("%w", sources.ErrRateLimitExceeded)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", sources.ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var tickers []binancePriceTicker
	if err := json.Unmarshal(body, &tickers); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	updated := 0
	now := time.Now()
	for _, ticker := range tickers {
		unified := s.GetUnifiedSymbol(strings.ToUpper(ticker.Symbol))
		if unified == "" {
			continue
		}

		quote, err := decimal.NewFromString(ticker.Price)
		if err != nil {
			s.Logger().Warn("Failed to parse price", "symbol", ticker.Symbol, "price", ticker.Price, "error", err)
			continue
		}

		s.SetPrice(unified, quote, now)
		updated++
	}

	if updated == 0 {
		return fmt.Errorf("%w", sources.ErrNoPricesFetched)
	}

	s.SetLastUpdate(now)
	s.Logger().Debug("Updated prices from Binance", "count", updated)
	return nil
}

func init() {
	sources.Register("cex.binance", NewBinanceSource)
}
