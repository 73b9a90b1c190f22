package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/amanigreeva/Sociosphere-sub001/internal/cache"
)

// conn is the slice of *websocket.Conn the hub needs; tests register fakes.
type conn interface {
	WriteJSON(v interface{}) error
}

// safeConn serializes writes to one connection. The underlying websocket
// allows a single concurrent writer, while pushes arrive from request
// goroutines, the bus consumer, and bot timers at once.
type safeConn struct {
	mu sync.Mutex
	c  conn
}

func (s *safeConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.WriteJSON(v)
}

// Hub is the process-wide presence registry: online user id to active
// connections. A user may hold several connections at once (multi-device).
// Lifecycle is process uptime; all access goes through Join/Leave/Lookup.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[string]conn // userID -> connID -> conn
	owners  map[string]string          // connID -> userID

	presence *cache.Client
	log      *zap.SugaredLogger
}

func NewHub(presence *cache.Client, log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:  make(map[string]map[string]conn),
		owners:   make(map[string]string),
		presence: presence,
		log:      log,
	}
}

// Join registers a connection under a user. Re-joining an existing connID
// under a different user moves it.
func (h *Hub) Join(userID, connID string, c conn) {
	h.mu.Lock()
	if prev, ok := h.owners[connID]; ok && prev != userID {
		h.dropLocked(prev, connID)
	}
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[string]conn)
	}
	h.clients[userID][connID] = &safeConn{c: c}
	h.owners[connID] = userID
	h.mu.Unlock()

	h.mirrorPresence(userID, true)
	h.log.Infow("ws connected", "user", userID, "conn", connID)
}

// Leave removes a connection from whichever user owns it. Unknown ids are
// a no-op.
func (h *Hub) Leave(connID string) {
	h.mu.Lock()
	userID, ok := h.owners[connID]
	var offline bool
	if ok {
		offline = h.dropLocked(userID, connID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	if offline {
		h.mirrorPresence(userID, false)
	}
	h.log.Infow("ws disconnected", "user", userID, "conn", connID)
}

// dropLocked removes connID from userID and reports whether the user went
// fully offline. Caller holds h.mu.
func (h *Hub) dropLocked(userID, connID string) bool {
	delete(h.owners, connID)
	conns := h.clients[userID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(h.clients, userID)
		return true
	}
	return false
}

// Lookup returns the active connection ids for a user; offline users yield
// an empty slice.
func (h *Hub) Lookup(userID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.clients[userID]))
	for id := range h.clients[userID] {
		out = append(out, id)
	}
	return out
}

// SendToUser pushes the payload to every active connection of the user.
// Best effort: write failures are logged and the event is not requeued.
func (h *Hub) SendToUser(userID string, payload interface{}) {
	h.mu.RLock()
	conns := make(map[string]conn, len(h.clients[userID]))
	for id, c := range h.clients[userID] {
		conns[id] = c
	}
	h.mu.RUnlock()

	for id, c := range conns {
		if err := c.WriteJSON(payload); err != nil {
			h.log.Warnw("ws push failed", "user", userID, "conn", id, "err", err)
		}
	}
}

func (h *Hub) mirrorPresence(userID string, online bool) {
	if h.presence == nil {
		return
	}
	if err := h.presence.SetPresence(context.Background(), userID, online); err != nil {
		h.log.Warnw("presence mirror failed", "user", userID, "err", err)
	}
}
