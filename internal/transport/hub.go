package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Rajchodisetti/wealth-dashboard/internal/engine"
	"github.com/Rajchodisetti/wealth-dashboard/internal/observ"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard UI is served from the same host; cross-origin
	// streaming is fine for a personal deployment.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans each published snapshot out to stream clients. Slow clients
// get dropped messages, not a stalled tick path. Client presence is
// reported through the first/last callbacks so the scheduler can treat
// "someone is watching" as its visibility signal.
type Hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*client]bool
	closed  bool

	// presenceMu holds a first/last transition and its callback
	// together, so the scheduler sees transitions in the order they
	// happened even when a disconnect and a reconnect overlap.
	presenceMu sync.Mutex
	onFirst    func()
	onLast     func()
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*client]bool),
	}
}

// OnPresence registers callbacks fired when the first client connects
// and when the last client leaves. Set before serving.
func (h *Hub) OnPresence(first, last func()) {
	h.onFirst = first
	h.onLast = last
}

// Broadcast sends a snapshot to every connected client. Implements the
// engine's snapshot callback; must stay non-blocking.
func (h *Hub) Broadcast(snap *engine.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		h.log.Error("marshal snapshot for stream failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			observ.IncCounter("stream_dropped_total", nil)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches the client to the hub. The
// current snapshot is queued immediately so a new client does not wait
// for the next tick to paint.
func (h *Hub) ServeWS(current func() *engine.Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("stream upgrade failed", zap.Error(err))
			return
		}

		c := &client{
			hub:    h,
			conn:   conn,
			remote: conn.RemoteAddr().String(),
			send:   make(chan []byte, 16),
		}
		if !h.register(c) {
			conn.Close()
			return
		}

		if snap := current(); snap != nil {
			if payload, err := json.Marshal(snap); err == nil {
				h.send(c, payload)
			}
		}

		go c.writePump()
		go c.readPump()
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]bool)
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
}

// send queues one payload for one client, dropping it when the client
// has already detached or its buffer is full.
func (h *Hub) send(c *client, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- payload:
	default:
		observ.IncCounter("stream_dropped_total", nil)
	}
}

func (h *Hub) register(c *client) bool {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = true
	first := len(h.clients) == 1
	h.mu.Unlock()

	observ.SetGauge("stream_clients", float64(h.ClientCount()), nil)
	h.log.Info("stream client connected", zap.String("remote", c.remote))
	if first && h.onFirst != nil {
		h.onFirst()
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	last := len(h.clients) == 0 && !h.closed
	h.mu.Unlock()

	close(c.send)
	observ.SetGauge("stream_clients", float64(h.ClientCount()), nil)
	h.log.Info("stream client disconnected", zap.String("remote", c.remote))
	if last && h.onLast != nil {
		h.onLast()
	}
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	remote string
	send   chan []byte
}

// readPump discards inbound frames (the stream is one-way) and keeps
// the pong deadline fresh; any read error detaches the client.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
