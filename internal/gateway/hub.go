// Package gateway exposes refresh progress over WebSocket. Monitoring
// frontends connect to /ws/status and receive one envelope per refreshed
// series plus a run summary when a pass completes.
package gateway

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"indicator-systemv1/internal/model"
)

const (
	// Channel names carried in the envelope.
	chanRefresh = "refresh"
	chanSummary = "summary"
)

// Hub manages WebSocket clients and fans refresh events out to them.
// It implements model.EventSink so the engine can emit directly into it.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64
}

type latestEntry struct {
	Data []byte
	TS   time.Time
}

// NewHub creates a Hub with no connected clients.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
	}
}

// Emit broadcasts a per-series refresh event. Satisfies model.EventSink.
func (h *Hub) Emit(ev model.RefreshEvent) {
	h.broadcast(chanRefresh, ev.JSON())
}

// EmitSummary broadcasts a finished-run summary.
func (h *Hub) EmitSummary(s model.RunSummary) {
	h.broadcast(chanSummary, s.JSON())
}

// broadcast wraps data in an envelope and sends it to every client.
// The envelope is hand-crafted JSON to keep the hot path allocation-light.
func (h *Hub) broadcast(channel string, data []byte) {
	now := time.Now().UTC()

	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.latest[channel] = latestEntry{Data: data, TS: now}
	h.mu.Unlock()

	buf := make([]byte, 0, len(channel)+len(data)+80)
	buf = append(buf, `{"channel":"`...)
	buf = append(buf, channel...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- buf:
		default:
			// Slow client: drop rather than stall the refresh run.
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("ws client connected", "total", count)

	go client.sendLatest()
	go client.writePump()
	go client.readPump()
}

// removeClient unregisters a client and closes its send channel.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
