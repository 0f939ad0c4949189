package fiat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/rate-oracle/pkg/server/sources"
	"tc.com/rate-oracle/pkg/version"
)

const (
	frankfurterBaseURL  = "https://api.frankfurter.app"
	frankfurterTimeout  = 5 * time.Second
	frankfurterInterval = 15 * time.Minute
)

// FrankfurterSource fetches fiat rates from the Frankfurter API (free, no
// API key). Rates come USD-based and are inverted to X/USD quotes; each
// fetch appends a round per symbol.
type FrankfurterSource struct {
	*sources.BaseSource
	interval time.Duration
	client   *http.Client
}

type frankfurterResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

// NewFrankfurterSource creates a new Frankfurter feed from config.
func NewFrankfurterSource(config map[string]interface{}) (sources.Source, error) {
	symbolsIface, ok := config["symbols"]
	if !ok {
		return nil, fmt.Errorf("%w", ErrMissingSymbolsInConfig)
	}
	symbolList, ok := symbolsIface.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w", ErrInvalidSymbolsType)
	}

	pairs := make(map[string]string)
	for _, s := range symbolList {
		str, ok := s.(string)
		if !ok || !strings.HasSuffix(str, "/USD") {
			continue
		}
		pairs[str] = strings.TrimSuffix(str, "/USD")
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w", ErrNoValidSymbols)
	}

	decimals, err := sources.GetDecimalsFromConfig(config, 6)
	if err != nil {
		return nil, err
	}

	interval := frankfurterInterval
	if i, ok := config["interval"].(int); ok && i > 0 {
		interval = time.Duration(i) * time.Millisecond
	}

	logger := sources.GetLoggerFromConfig(config)
	base := sources.NewBaseSource("frankfurter", sources.SourceTypeFiat, decimals, pairs, logger)

	return &FrankfurterSource{
		BaseSource: base,
		interval:   interval,
		client:     &http.Client{Timeout: frankfurterTimeout},
	}, nil
}

// Initialize prepares the feed.
func (s *FrankfurterSource) Initialize(_ context.Context) error {
	return nil
}

// Start performs an initial fetch and begins the interval loop.
func (s *FrankfurterSource) Start(ctx context.Context) error {
	s.Logger().Info("Starting Frankfurter feed", "symbols", len(s.Symbols()))

	if err := s.fetchPrices(ctx); err != nil {
		s.Logger().Warn("Initial price fetch failed", "error", err)
	} else {
		s.SetHealthy(true)
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.StopChan():
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.fetchPrices(ctx); err != nil {
					s.Logger().Error("Failed to fetch rates", "error", err)
					s.SetHealthy(false)
				} else {
					s.SetHealthy(true)
				}
			}
		}
	}()

	return nil
}

// Stop halts the feed.
func (s *FrankfurterSource) Stop() error {
	s.Close()
	return nil
}

// GetPrices returns the current quotes.
func (s *FrankfurterSource) GetPrices(_ context.Context) (map[string]sources.Price, error) {
	return s.GetAllPrices(), nil
}

// Subscribe adds a subscriber to price updates.
func (s *FrankfurterSource) Subscribe(updates chan<- sources.PriceUpdate) error {
	s.AddSubscriber(updates)
	return nil
}

func (s *FrankfurterSource) fetchPrices(ctx context.Context) error {
	currencies := make([]string, 0, len(s.Symbols()))
	for _, symbol := range s.Symbols() {
		currencies = append(currencies, s.GetSourceSymbol(symbol))
	}
	if len(currencies) == 0 {
		return fmt.Errorf("%w", ErrNoCurrenciesToFetch)
	}

	url := fmt.Sprintf("%s/latest?from=USD&to=%s", frankfurterBaseURL, strings.Join(currencies, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.AgentString())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch rates: %w", err)
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

	var data frankfurterResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	now := time.Now()
	updated := 0
	for currency, rate := range data.Rates {
		if rate == 0 {
			s.Logger().Warn("Skipping zero rate", "currency", currency)
			continue
		}
		// Frankfurter reports USD->X; the feed serves X/USD.
		quote := decimal.NewFromInt(1).Div(decimal.NewFromFloat(rate))
		s.SetPrice(currency+"/USD", quote, now)
		updated++
	}
	if updated == 0 {
		return fmt.Errorf("%w", sources.ErrNoPricesFetched)
	}

	s.SetLastUpdate(now)
	s.Logger().Debug("Updated rates from Frankfurter", "count", updated)
	return nil
}

func init() {
	sources.Register("fiat.frankfurter", NewFrankfurterSource)
}
