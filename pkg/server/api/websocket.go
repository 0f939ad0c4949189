package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tc.com/rate-oracle/pkg/logging"
	"tc.com/rate-oracle/pkg/server/sources"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// WebSocketServer streams quote updates to connected clients.
type WebSocketServer struct {
	addr     string
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]bool

	updates chan map[string]sources.Price

	ctx    context.Context
	cancel context.CancelFunc
}

type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *WebSocketServer

	mu       sync.RWMutex
	allPairs bool
	pairs    map[string]bool
}

// clientMessage is what clients send: subscribe, unsubscribe or ping.
type clientMessage struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
}

// quoteUpdateMessage is pushed to clients on new quotes.
type quoteUpdateMessage struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Quotes    []quoteData `json:"quotes"`
}

type quoteData struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Source string `json:"source,omitempty"`
}

// NewWebSocketServer creates a new WebSocket server.
func NewWebSocketServer(addr string, logger *logging.Logger) *WebSocketServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &WebSocketServer{
		addr:   addr,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[*wsClient]bool),
		updates: make(chan map[string]sources.Price, 100),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start runs the WebSocket server until Stop is called.
func (s *WebSocketServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go s.broadcastLoop()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("WebSocket server error", "error", err)
		}
	}()

	<-s.ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Stop stops the WebSocket server.
func (s *WebSocketServer) Stop() {
	s.cancel()
}

// SendUpdate queues quote updates for broadcast to connected clients.
func (s *WebSocketServer) SendUpdate(prices map[string]sources.Price) {
	select {
	case s.updates <- prices:
	case <-time.After(100 * time.Millisecond):
		s.logger.Warn("Update channel full, dropping quote update")
	}
}

// Pump forwards feed updates into the broadcast channel until the context
// ends.
func (s *WebSocketServer) Pump(ctx context.Context, updates <-chan sources.PriceUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case update := <-updates:
			s.SendUpdate(update.Prices)
		}
	}
}

func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &wsClient{
		conn:     conn,
		send:     make(chan []byte, 256),
		server:   s,
		allPairs: true,
		pairs:    make(map[string]bool),
	}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()

	go client.writePump()
	go client.readPump()

	s.logger.Info("New WebSocket client connected", "remote", conn.RemoteAddr())
}

func (s *WebSocketServer) dropClient(client *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
}

func (s *WebSocketServer) broadcastLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case prices := <-s.updates:
			s.broadcast(prices)
		}
	}
}

func (s *WebSocketServer) broadcast(prices map[string]sources.Price) {
	if len(prices) == 0 {
		return
	}

	quotes := make([]quoteData, 0, len(prices))
	for _, price := range prices {
		quotes = append(quotes, quoteData{
			Symbol: price.Symbol,
			Price:  price.Price.String(),
			Source: price.Source,
		})
	}

	message := quoteUpdateMessage{
		Type:      "quote_update",
		Timestamp: time.Now().Format(time.RFC3339),
		Quotes:    quotes,
	}

	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("Failed to marshal quote update", "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.clients {
		if client.wants(prices) {
			select {
			case client.send <- data:
			default:
				s.logger.Warn("Client send buffer full, skipping update")
			}
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.server.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.server.dropClient(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *wsClient) handleMessage(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.server.logger.Warn("Invalid client message", "error", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.subscribe(msg.Symbols)
	case "unsubscribe":
		c.unsubscribe(msg.Symbols)
	case "ping":
		c.sendPong()
	default:
		c.server.logger.Warn("Unknown message type", "type", msg.Type)
	}
}

func (c *wsClient) subscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(symbols) == 0 || (len(symbols) == 1 && symbols[0] == "*") {
		c.allPairs = true
		c.pairs = make(map[string]bool)
	} else {
		c.allPairs = false
		for _, symbol := range symbols {
			c.pairs[symbol] = true
		}
	}

	c.server.logger.Debug("Client subscribed", "symbols", symbols)
}

func (c *wsClient) unsubscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(symbols) == 0 || (len(symbols) == 1 && symbols[0] == "*") {
		c.allPairs = false
		c.pairs = make(map[string]bool)
	} else {
		for _, symbol := range symbols {
			delete(c.pairs, symbol)
		}
	}

	c.server.logger.Debug("Client unsubscribed", "symbols", symbols)
}

func (c *wsClient) wants(prices map[string]sources.Price) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.allPairs {
		return true
	}

	for symbol := range prices {
		if c.pairs[symbol] {
			return true
		}
	}
	return false
}

func (c *wsClient) sendPong() {
	pong := map[string]string{"type": "pong"}
	data, _ := json.Marshal(pong)
	select {
	case c.send <- data:
	default:
	}
}
