package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/metrics"
)

// Message is the envelope written to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Inbound is the envelope read from clients; Data is decoded per type.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub routes events to per-user and per-room channels. Room membership is
// mirrored into the presence registry so other components can query it.
type Hub struct {
	clients map[*Client]bool
	users   map[int64]map[*Client]bool
	rooms   map[string]map[*Client]bool

	Register   chan *Client
	Unregister chan *Client

	presence Presence
	log      *zap.Logger
	mu       sync.RWMutex
	done     chan struct{}
}

func NewHub(presence Presence, log *zap.Logger) *Hub {
	if presence == nil {
		presence = NewMemoryPresence()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		users:      make(map[int64]map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		presence:   presence,
		log:        logger.OrNop(log).With(zap.String("component", "realtime-hub")),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Presence() Presence {
	return h.presence
}

// RunWithContext processes registrations until ctx is done, then closes
// every client.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			n := h.ClientCount()
			h.closeAll()
			h.log.Info("hub stopped", zap.Int("clients_closed", n))
			return nil
		case c := <-h.Register:
			h.add(c)
		case c := <-h.Unregister:
			h.remove(context.Background(), c)
		}
	}
}

// Attach hands c to the running hub. It reports false once the hub has
// stopped.
func (h *Hub) Attach(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Detach removes c from the running hub; it is a no-op after shutdown.
func (h *Hub) Detach(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	if h.users[c.profileID] == nil {
		h.users[c.profileID] = make(map[*Client]bool)
	}
	h.users[c.profileID][c] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.TrackConnection(true)
	h.log.Info("client connected", zap.Int64("profile_id", c.profileID), zap.String("conn_id", c.connID), zap.Int("total_clients", total))
}

func (h *Hub) remove(ctx context.Context, c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	if set := h.users[c.profileID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, c.profileID)
		}
	}
	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
		h.detach(c, roomID)
	}
	close(c.send)
	total := len(h.clients)
	h.mu.Unlock()

	for _, roomID := range rooms {
		if err := h.presence.Leave(ctx, roomID, c.profileID, c.connID); err != nil {
			h.log.Warn("presence leave on disconnect", zap.String("room_id", roomID), zap.Error(err))
		}
	}
	metrics.TrackConnection(false)
	h.log.Info("client disconnected", zap.Int64("profile_id", c.profileID), zap.String("conn_id", c.connID), zap.Int("total_clients", total))
}

// detach drops c from a room. Caller holds h.mu.
func (h *Hub) detach(c *Client, roomID string) {
	delete(c.rooms, roomID)
	if set := h.rooms[roomID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// JoinRoom subscribes the connection to a room channel and marks its
// profile present. Joining twice is a no-op.
func (h *Hub) JoinRoom(ctx context.Context, c *Client, roomID string) error {
	h.mu.Lock()
	if !h.clients[c] || c.rooms[roomID] {
		h.mu.Unlock()
		return nil
	}
	c.rooms[roomID] = true
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
	h.mu.Unlock()

	return h.presence.Join(ctx, roomID, c.profileID, c.connID)
}

func (h *Hub) LeaveRoom(ctx context.Context, c *Client, roomID string) error {
	h.mu.Lock()
	if !c.rooms[roomID] {
		h.mu.Unlock()
		return nil
	}
	h.detach(c, roomID)
	h.mu.Unlock()

	return h.presence.Leave(ctx, roomID, c.profileID, c.connID)
}

// RefreshPresence renews the presence lease of every room c has joined.
func (h *Hub) RefreshPresence(ctx context.Context, c *Client) {
	h.mu.RLock()
	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	h.mu.RUnlock()

	for _, roomID := range rooms {
		if err := h.presence.Refresh(ctx, roomID, c.profileID, c.connID); err != nil {
			h.log.Warn("presence refresh", zap.String("room_id", roomID), zap.String("conn_id", c.connID), zap.Error(err))
		}
	}
}

func (h *Hub) EmitToUser(profileID int64, event string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[profileID] {
		c.trySend(Message{Type: event, Data: payload})
	}
}

func (h *Hub) EmitToRoom(roomID string, event string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.trySend(Message{Type: event, Data: payload})
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) IsOnline(profileID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[profileID]) > 0
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.remove(context.Background(), c)
	}
}
