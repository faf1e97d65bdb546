package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentpulse/agentpulse/pkg/types"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before the connection is dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16

	// EventSnapshot names the only message type sent to clients.
	EventSnapshot = "snapshot"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS is applied at the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string         `json:"event"`
	Data  types.Snapshot `json:"data"`
}

// SnapshotSource computes the current health snapshot.
type SnapshotSource interface {
	Snapshot() types.Snapshot
}

// Hub streams a freshly computed health snapshot to every connected client
// once per interval.
type Hub struct {
	src      SnapshotSource
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that reads snapshots from src and broadcasts every interval.
func New(src SnapshotSource, interval time.Duration) *Hub {
	return &Hub{
		src:      src,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run broadcasts until ctx is cancelled, then closes all connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast()
		}
	}
}

// ServeHTTP upgrades the connection, sends the current snapshot at once and
// then streams ticks. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade replied with an HTTP error
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}

	if data, err := h.buildMessage(); err == nil {
		c.send <- data
	}
	h.register(c)
	defer h.unregister(c)

	slog.Debug("ws: client connected", "remote", r.RemoteAddr, "clients", h.Count())

	go c.writePump()
	c.readPump()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

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

func (h *Hub) broadcast() {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	if n == 0 {
		return
	}

	data, err := h.buildMessage()
	if err != nil {
		return
	}

	// Sends happen under the read lock so unregister cannot close a channel
	// mid-send.
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

	for _, c := range slow {
		slog.Warn("ws: dropping slow client", "remote", c.conn.RemoteAddr().String())
		h.unregister(c)
	}
}

func (h *Hub) buildMessage() ([]byte, error) {
	data, err := json.Marshal(Message{Event: EventSnapshot, Data: h.src.Snapshot()})
	if err != nil {
		slog.Error("ws: encode snapshot", "err", err)
		return nil, err
	}
	return data, nil
}

// closeAll drops every client; their writers send a close frame and exit.
func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
	}
}

// write sends one frame under the write deadline.
func (c *client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
	return c.conn.WriteMessage(messageType, data)
}

// writePump owns all writes to conn. It exits when send is closed or a write
// fails.
func (c *client) writePump() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case msg, open := <-c.send:
			if !open {
				c.write(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			err = c.write(websocket.TextMessage, msg)
		case <-ping.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

// readPump discards inbound frames; it only keeps the read deadline moving on
// pongs and returns once the peer is gone.
func (c *client) readPump() {
	defer c.conn.Close()

	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	c.conn.SetReadLimit(512)
	extend("") //nolint:errcheck
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
