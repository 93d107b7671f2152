package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/painless-params/painless/server/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// maxMessageSize bounds a single client command.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Store is the subset of the parameter store the hub needs.
type Store interface {
	List() ([]store.Parameter, error)
	Set(name, value string) error
	Remove(name string) error
}

// Options tunes a Hub.
type Options struct {
	// CommandsPerSecond limits update/remove commands per client. Zero
	// means unlimited.
	CommandsPerSecond float64

	// Burst is the number of commands a client may send back to back.
	Burst int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Hub manages WebSocket clients and pushes the parameter list to them.
type Hub struct {
	store  Store
	opts   Options
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Hub backed by st.
func New(st Store, opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		store:   st,
		opts:    opts,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// The current parameter list is sent immediately; afterwards the client
// receives every broadcast and may send commands. Blocks until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	id := uuid.NewString()
	c := &client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, sendBufSize),
		limiter: h.newLimiter(),
		logger:  h.logger.With("client", id),
	}
	h.register(c)
	defer h.unregister(c)

	c.logger.Info("ws: client connected", "remote", r.RemoteAddr, "clients", h.Count())

	if data, err := h.listMessage(); err != nil {
		c.logger.Error("ws: list parameters failed", "err", err)
		h.sendError(c, err)
	} else {
		h.sendTo(c, data)
	}

	go c.writePump()
	h.readPump(c) // blocks until connection closes

	c.logger.Info("ws: client disconnected")
}

// Broadcast sends the current parameter list to every connected client.
func (h *Hub) Broadcast() {
	data, err := h.listMessage()
	if err != nil {
		h.logger.Error("ws: broadcast skipped, list parameters failed", "err", err)
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// A client whose outgoing buffer is full is disconnected.
	for _, c := range slow {
		c.logger.Warn("ws: send buffer full, dropping client")
		h.unregister(c)
	}
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- commands ---------------------------------------------------------------

// handle executes one client frame.
func (h *Hub) handle(c *client, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendError(c, fmt.Errorf("malformed message: %w", err))
		return
	}

	if !c.limiter.Allow() {
		c.logger.Warn("ws: command rate exceeded", "event", msg.Event)
		h.sendError(c, fmt.Errorf("rate limit exceeded, %q dropped", msg.Event))
		return
	}

	switch msg.Event {
	case EventUpdate:
		var cmd UpdateCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			h.sendError(c, fmt.Errorf("malformed update: %w", err))
			return
		}
		c.logger.Info("ws: updating parameter", "parameter", cmd.Parameter, "value", cmd.Value)
		if err := h.store.Set(cmd.Parameter, cmd.Value); err != nil {
			c.logger.Warn("ws: update failed", "parameter", cmd.Parameter, "err", err)
			h.sendError(c, err)
			return
		}

	case EventRemove:
		var cmd RemoveCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			h.sendError(c, fmt.Errorf("malformed remove: %w", err))
			return
		}
		c.logger.Info("ws: removing parameter", "parameter", cmd.Parameter)
		if err := h.store.Remove(cmd.Parameter); err != nil {
			c.logger.Warn("ws: remove failed", "parameter", cmd.Parameter, "err", err)
			h.sendError(c, err)
			return
		}

	default:
		h.sendError(c, fmt.Errorf("unknown event %q", msg.Event))
		return
	}

	h.Broadcast()
}

// --- internal ---------------------------------------------------------------

func (h *Hub) newLimiter() *rate.Limiter {
	if h.opts.CommandsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := h.opts.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.opts.CommandsPerSecond), burst)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// sendTo queues data for one client. The send channel is only closed under
// the write lock, so holding the read lock keeps it open.
func (h *Hub) sendTo(c *client, data []byte) {
	h.mu.RLock()
	_, ok := h.clients[c]
	full := false
	if ok {
		select {
		case c.send <- data:
		default:
			full = true
		}
	}
	h.mu.RUnlock()

	if full {
		c.logger.Warn("ws: send buffer full, dropping client")
		h.unregister(c)
	}
}

func (h *Hub) sendError(c *client, err error) {
	data, mErr := encode(EventError, ErrorPayload{Message: err.Error()})
	if mErr != nil {
		return
	}
	h.sendTo(c, data)
}

func (h *Hub) listMessage() ([]byte, error) {
	params, err := h.store.List()
	if err != nil {
		return nil, err
	}
	return encode(EventParameterList, ParameterList{Parameters: params})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
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

// readPump reads client frames, dispatches commands and detects disconnects.
// Blocks until the connection closes.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		h.handle(c, data)
	}
}
