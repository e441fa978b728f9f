package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 64
)

// IntentHandler processes client intents other than ping.
type IntentHandler interface {
	HandleIntent(ctx context.Context, c *Client, in Inbound)
}

// Client is one live connection bound to an authenticated profile for its
// whole lifetime.
type Client struct {
	connID    string
	profileID int64
	hub       *Hub
	conn      *websocket.Conn
	send      chan Message
	handler   IntentHandler
	log       *zap.Logger

	// rooms is owned by the hub and guarded by hub.mu.
	rooms map[string]bool

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, profileID int64, handler IntentHandler) *Client {
	connID := uuid.NewString()
	return &Client{
		connID:    connID,
		profileID: profileID,
		hub:       hub,
		conn:      conn,
		send:      make(chan Message, sendBuffer),
		handler:   handler,
		log:       hub.log.With(zap.Int64("profile_id", profileID), zap.String("conn_id", connID)),
		rooms:     make(map[string]bool),
	}
}

func (c *Client) ProfileID() int64 { return c.profileID }
func (c *Client) ConnID() string   { return c.connID }

// Send queues an event for this connection only.
func (c *Client) Send(event string, payload interface{}) {
	c.trySend(Message{Type: event, Data: payload})
}

// trySend never blocks. A client whose buffer is full is disconnected.
func (c *Client) trySend(msg Message) {
	defer func() {
		// send may already be closed by the hub.
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
		c.log.Warn("send buffer full, dropping connection")
		c.shutdown()
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// Start runs the pumps. ctx scopes every intent handled for this
// connection and is cancelled when the read side ends.
func (c *Client) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	go c.writePump()
	go func() {
		defer cancel()
		c.readPump(ctx)
	}()
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Detach(c)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error("failed to set read deadline", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		c.hub.RefreshPresence(ctx, c)
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in Inbound
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected websocket close", zap.Error(err))
			}
			return
		}

		if in.Type == domain.IntentPing {
			c.hub.RefreshPresence(ctx, c)
			c.Send(domain.EventPong, nil)
			continue
		}
		if c.handler != nil {
			c.handler.HandleIntent(ctx, c, in)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Warn("failed to write message", zap.String("type", msg.Type), zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
