package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/intelevision/internal/log"
	"github.com/ayusman/intelevision/internal/snapshot"
)

const (
	clientBuffer = 8
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// SnapshotHub pushes every published snapshot to connected websocket
// clients as one JSON text message. A client that cannot keep up loses
// messages rather than slowing the publisher down.
type SnapshotHub struct {
	store *snapshot.Store
	sub   *snapshot.Subscription

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool

	dropped atomic.Uint64
}

// NewSnapshotHub creates a hub subscribed to store.
func NewSnapshotHub(store *snapshot.Store) *SnapshotHub {
	h := &SnapshotHub{
		store:   store,
		clients: make(map[*hubClient]struct{}),
	}
	h.sub = store.Subscribe(h.broadcast)
	return h
}

// ServeHTTP handles WebSocket upgrade requests. The current snapshot is
// sent first, then every later one.
func (h *SnapshotHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade error", "error", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, clientBuffer)}
	if msg, err := json.Marshal(h.store.Current()); err == nil {
		c.send <- msg
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *SnapshotHub) writePump(c *hubClient) {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (h *SnapshotHub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast runs inside the store's publish and must not block.
func (h *SnapshotHub) broadcast(s snapshot.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(s)
	if err != nil {
		log.Error("failed to encode snapshot", "error", err)
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients returns the number of connected clients.
func (h *SnapshotHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns how many messages were skipped for slow clients.
func (h *SnapshotHub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close unsubscribes from the store and disconnects every client.
func (h *SnapshotHub) Close() {
	h.sub.Cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
