package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blueprintdash/blueprintdash/internal/alerts"
	"github.com/blueprintdash/blueprintdash/internal/metrics"
	"github.com/blueprintdash/blueprintdash/internal/poller"
	"github.com/blueprintdash/blueprintdash/pkg/types"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// Event names.
const (
	EventBlueprints = "blueprints"
	EventError      = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Message string `json:"message"`
}

// Source hands out poller subscriptions.
type Source interface {
	Subscribe() *poller.Subscription
}

// Snapshotter provides the last-known-good collection.
type Snapshotter interface {
	List() []types.Blueprint
}

// Hub tracks connected clients, each backed by its own subscription.
type Hub struct {
	src   Source
	store Snapshotter

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	sub  *poller.Subscription

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// New creates a Hub subscribing to src and seeding clients from st.
func New(src Source, st Snapshotter) *Hub {
	return &Hub{
		src:     src,
		store:   st,
		clients: make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}

	// Seed with the last good collection so the UI has data right away.
	if bps := h.store.List(); bps != nil {
		if data, err := json.Marshal(Message{Event: EventBlueprints, Data: bps}); err == nil {
			c.trySend(data)
		}
	}

	c.sub = h.src.Subscribe()
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	go h.forward(c)
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.SetWSClients(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		c.sub.Unsubscribe()
		c.close()
		metrics.SetWSClients(n)
	}
}

// forward relays the client's subscription until it ends.
func (h *Hub) forward(c *client) {
	for u := range c.sub.C {
		if u.Err != nil {
			data, _ := json.Marshal(Message{Event: EventError, Data: ErrorData{Message: errorText(u.Err)}})
			c.trySend(data)
			h.unregister(c)
			return
		}
		bps := u.Blueprints
		if bps == nil {
			bps = []types.Blueprint{}
		}
		data, err := json.Marshal(Message{Event: EventBlueprints, Data: bps})
		if err != nil {
			slog.Error("ws: encode blueprints", "err", err)
			continue
		}
		if !c.trySend(data) {
			// Client's outgoing buffer is full; disconnect it.
			h.unregister(c)
			return
		}
	}
}

// errorText joins the upstream messages for err, falling back to the generic
// alert text.
func errorText(err error) string {
	msgs := poller.Messages(err)
	nonEmpty := msgs[:0:0]
	for _, m := range msgs {
		if m != "" {
			nonEmpty = append(nonEmpty, m)
		}
	}
	if len(nonEmpty) == 0 {
		return alerts.GenericMessage
	}
	return strings.Join(nonEmpty, "; ")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		h.unregister(c)
	}
}

// trySend queues data without blocking. It reports false when the buffer is
// full or the client is closed.
func (c *client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages
// (pong, close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
