// Package api provides HTTP and WebSocket API endpoints for the rate server.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tc.com/rate-oracle/pkg/logging"
	"tc.com/rate-oracle/pkg/metrics"
	"tc.com/rate-oracle/pkg/oracle"
	"tc.com/rate-oracle/pkg/server/sources"
)

// Server represents the HTTP API server.
type Server struct {
	addr       string
	engine     *oracle.Engine
	sources    []sources.Source
	feeds      map[string]sources.Source // Keyed "type.name" for binding registration
	adminToken string
	server     *http.Server
	logger     *logging.Logger
	wsServer   *WebSocketServer // Optional WebSocket server for streaming
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, engine *oracle.Engine, sourcesSlice []sources.Source, feeds map[string]sources.Source, adminToken string, logger *logging.Logger) *Server {
	return &Server{
		addr:       addr,
		engine:     engine,
		sources:    sourcesSlice,
		feeds:      feeds,
		adminToken: adminToken,
		logger:     logger,
	}
}

// SetWebSocketServer sets the WebSocket server for streaming updates.
func (s *Server) SetWebSocketServer(ws *WebSocketServer) {
	s.wsServer = ws
}

// Handler builds the route multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/prices", s.handlePrices)
	mux.HandleFunc("GET /v1/price/{asset}", s.handlePrice)
	mux.HandleFunc("GET /v1/cross/{base}/{quote}", s.handleCross)
	mux.HandleFunc("GET /v1/cross/{base}/{quote}/historical", s.handleHistoricalCross)
	mux.HandleFunc("GET /v1/bindings", s.handleListBindings)
	mux.HandleFunc("POST /v1/bindings", s.handleRegisterBinding)
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePrices handles /v1/prices: current quotes from every healthy feed.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/prices", status, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	allPrices := make(map[string]sources.Price)
	for _, source := range s.sources {
		if !source.IsHealthy() {
			s.logger.Warn("Skipping unhealthy source", "source", source.Name())
			continue
		}

		prices, err := source.GetPrices(ctx)
		if err != nil {
			s.logger.Error("Failed to get prices from source", "source", source.Name(), "error", err.Error())
			continue
		}
		for symbol, price := range prices {
			allPrices[symbol] = price
		}
	}

	if len(allPrices) == 0 {
		status = "503"
		http.Error(w, "No prices available", http.StatusServiceUnavailable)
		return
	}

	if s.wsServer != nil {
		s.wsServer.SendUpdate(allPrices)
	}

	s.sendJSON(w, s.convertToArray(allPrices))
}

// handlePrice handles /v1/price/{asset}: the normalized current price.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/price", status, time.Since(start))
	}()

	asset := r.PathValue("asset")

	price, err := s.engine.CurrentPrice(r.Context(), asset)
	if err != nil {
		status = s.sendError(w, err)
		metrics.RecordRateQuery("price", "error", time.Since(start))
		return
	}
	metrics.RecordRateQuery("price", "ok", time.Since(start))

	s.sendJSON(w, map[string]interface{}{
		"asset":    asset,
		"price":    price.String(),
		"decimals": oracle.CanonicalDecimals,
	})
}

// handleCross handles /v1/cross/{base}/{quote}: the current exchange rate.
func (s *Server) handleCross(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/cross", status, time.Since(start))
	}()

	base := r.PathValue("base")
	quote := r.PathValue("quote")

	rate, err := s.engine.CurrentCrossPrice(r.Context(), base, quote)
	if err != nil {
		status = s.sendError(w, err)
		metrics.RecordRateQuery("cross", "error", time.Since(start))
		return
	}
	metrics.RecordRateQuery("cross", "ok", time.Since(start))

	s.sendCross(w, base, quote, rate)
}

// handleHistoricalCross handles /v1/cross/{base}/{quote}/historical with
// base_round, quote_round and timestamp query parameters.
func (s *Server) handleHistoricalCross(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/cross/historical", status, time.Since(start))
	}()

	base := r.PathValue("base")
	quote := r.PathValue("quote")

	baseRound, err := parseUintParam(r, "base_round")
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	quoteRound, err := parseUintParam(r, "quote_round")
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	timestamp, err := parseUintParam(r, "timestamp")
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rate, err := s.engine.HistoricalCrossPrice(r.Context(), base, baseRound, quote, quoteRound, timestamp)
	if err != nil {
		status = s.sendError(w, err)
		metrics.RecordRateQuery("historical_cross", "error", time.Since(start))
		return
	}
	metrics.RecordRateQuery("historical_cross", "ok", time.Since(start))

	s.sendCross(w, base, quote, rate)
}

// handleListBindings handles GET /v1/bindings.
func (s *Server) handleListBindings(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/v1/bindings", "200", time.Since(start))
	}()

	bindings := s.engine.Bindings()
	result := make([]map[string]interface{}, 0, len(bindings))
	for _, b := range bindings {
		result = append(result, map[string]interface{}{
			"asset":    b.Asset,
			"decimals": b.Source.Decimals(),
		})
	}
	s.sendJSON(w, result)
}

type registerBindingRequest struct {
	Asset  string `json:"asset"`
	Source string `json:"source"` // "type.name" of a configured feed
	Feed   string `json:"feed"`   // Symbol served by that feed
}

// handleRegisterBinding handles POST /v1/bindings. Requires the admin
// bearer token; an existing binding for the asset is replaced.
func (s *Server) handleRegisterBinding(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/bindings", status, time.Since(start))
	}()

	if !s.authorized(r) {
		status = "401"
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req registerBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = "400"
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Asset == "" || req.Source == "" || req.Feed == "" {
		status = "400"
		http.Error(w, "asset, source and feed are required", http.StatusBadRequest)
		return
	}

	source, ok := s.feeds[req.Source]
	if !ok {
		status = "404"
		http.Error(w, fmt.Sprintf("Unknown source: %s", req.Source), http.StatusNotFound)
		return
	}

	feed, err := source.Feed(req.Feed)
	if err != nil {
		status = "404"
		http.Error(w, fmt.Sprintf("Unknown feed %s on source %s", req.Feed, req.Source), http.StatusNotFound)
		return
	}

	if err := s.engine.RegisterSource(req.Asset, feed); err != nil {
		status = s.sendError(w, err)
		return
	}
	metrics.SetRegisteredBindings(len(s.engine.Bindings()))

	s.logger.Info("Registered binding", "asset", req.Asset, "source", req.Source, "feed", req.Feed)
	s.sendJSON(w, map[string]interface{}{
		"asset":  req.Asset,
		"source": req.Source,
		"feed":   req.Feed,
	})
}

// authorized checks the admin bearer token.
func (s *Server) authorized(r *http.Request) bool {
	if s.adminToken == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	return ok && token == s.adminToken
}

// sendError maps engine errors onto HTTP status codes and writes the
// response. Returns the status for metrics.
func (s *Server) sendError(w http.ResponseWriter, err error) string {
	var code int
	switch {
	case errors.Is(err, oracle.ErrUnknownAsset):
		code = http.StatusNotFound
	case errors.Is(err, oracle.ErrOutOfRange):
		code = http.StatusBadRequest
	case errors.Is(err, oracle.ErrDivisionByZero), errors.Is(err, oracle.ErrOverflow):
		code = http.StatusUnprocessableEntity
	default:
		code = http.StatusBadGateway
	}

	s.logger.Warn("Request failed", "error", err.Error(), "status", code)
	http.Error(w, err.Error(), code)
	return strconv.Itoa(code)
}

func (s *Server) sendCross(w http.ResponseWriter, base, quote string, rate *big.Int) {
	s.sendJSON(w, map[string]interface{}{
		"base":     base,
		"quote":    quote,
		"rate":     rate.String(),
		"decimals": oracle.CanonicalDecimals,
	})
}

func parseUintParam(r *http.Request, name string) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing query parameter %s", name)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid query parameter %s", name)
	}
	return v, nil
}

// convertToArray converts price map to array format.
func (s *Server) convertToArray(prices map[string]sources.Price) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(prices))
	for _, price := range prices {
		result = append(result, map[string]interface{}{
			"symbol": price.Symbol,
			"price":  price.Price.String(),
			"source": price.Source,
		})
	}
	return result
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
