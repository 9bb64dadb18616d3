// Package feed broadcasts contract events to websocket subscribers.
// Observers get every event appended to the log, in order, as JSON.
package feed

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"aw-token-ledger/internal/domain"
	"aw-token-ledger/internal/observability"
)

// Message is the wire form of one event. Amounts travel as decimal strings;
// empty means the event carries no value for the field.
type Message struct {
	Seq          int64  `json:"seq"`
	Kind         string `json:"kind"`
	Timestamp    int64  `json:"timestamp"`
	Account      string `json:"account,omitempty"`
	Pool         string `json:"pool,omitempty"`
	SqrtPriceX96 string `json:"sqrt_price_x96,omitempty"`
	PositionID   uint64 `json:"position_id,omitempty"`
	Liquidity    string `json:"liquidity,omitempty"`
	AmountToken  string `json:"amount_token,omitempty"`
	AmountBase   string `json:"amount_base,omitempty"`
}

// MessageFromEvent converts an event to its wire form.
func MessageFromEvent(e *domain.Event) Message {
	m := Message{
		Seq:        e.Seq,
		Kind:       string(e.Kind),
		Timestamp:  e.Timestamp,
		Account:    e.Account.String(),
		Pool:       e.Pool.String(),
		PositionID: e.PositionID,
	}
	if e.SqrtPriceX96 != nil {
		m.SqrtPriceX96 = e.SqrtPriceX96.Dec()
	}
	if e.Liquidity != nil {
		m.Liquidity = e.Liquidity.Dec()
	}
	if e.AmountToken != nil {
		m.AmountToken = e.AmountToken.Dec()
	}
	if e.AmountBase != nil {
		m.AmountBase = e.AmountBase.Dec()
	}
	return m
}

// Config configures hub behavior.
type Config struct {
	// WriteTimeout is the timeout for writing one message to a client.
	WriteTimeout time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// SendBuffer is the per-client outbound buffer. A client that falls
	// this far behind is disconnected rather than allowed to stall the
	// broadcast.
	SendBuffer int
}

// DefaultConfig returns default hub configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
		SendBuffer:   256,
	}
}

// Hub fans events out to connected websocket clients. Safe for concurrent
// use; implements http.Handler for the subscription endpoint.
type Hub struct {
	config   Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// NewHub creates a hub.
func NewHub(config *Config) *Hub {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is broadcast-only public data.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		done:    make(chan struct{}),
	}
}

// ServeHTTP upgrades the request and subscribes the connection to the feed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "feed closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[feed] upgrade failed: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Message, h.config.SendBuffer),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.SetFeedClients(n)

	h.wg.Add(2)
	go h.writeLoop(c)
	go h.readLoop(c)
}

// Broadcast sends an event to every connected client. Clients whose buffers
// are full are dropped; the feed never blocks the caller.
func (h *Hub) Broadcast(e *domain.Event) {
	if h.closed.Load() {
		return
	}
	msg := MessageFromEvent(e)

	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.dropLocked(c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	observability.RecordFeedBroadcast()
	observability.SetFeedClients(n)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and shuts the hub down.
func (h *Hub) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	close(h.done)

	h.mu.Lock()
	for c := range h.clients {
		h.dropLocked(c)
	}
	h.mu.Unlock()
	observability.SetFeedClients(0)

	h.wg.Wait()
	return nil
}

// dropLocked removes a client and closes its channel. Caller must hold h.mu.
func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// drop removes a client outside a broadcast.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	h.dropLocked(c)
	n := len(h.clients)
	h.mu.Unlock()
	observability.SetFeedClients(n)
}

// writeLoop delivers queued messages and keepalive pings to one client.
func (h *Hub) writeLoop(c *client) {
	defer h.wg.Done()
	defer c.conn.Close()

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				h.drop(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		case <-h.done:
			return
		}
	}
}

// readLoop discards inbound frames so close and pong handling runs.
func (h *Hub) readLoop(c *client) {
	defer h.wg.Done()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}
