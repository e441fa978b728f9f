package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/metrics"
	"github.com/gdugdh24/soundmatch-backend/internal/realtime"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/messaging"
)

type roomPayload struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
}

type sendPayload struct {
	RoomID   string  `json:"roomId" validate:"required,max=64"`
	Content  string  `json:"content" validate:"required"`
	ClientID *string `json:"clientId" validate:"omitempty,max=128"`
}

type readPayload struct {
	RoomID     string  `json:"roomId" validate:"required,max=64"`
	MessageIDs []int64 `json:"messageIds" validate:"required,min=1,dive,gt=0"`
}

// AckPayload confirms a live send to the sending connection.
type AckPayload struct {
	ClientID *string         `json:"clientId"`
	Message  *domain.Message `json:"message"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Code     string  `json:"code"`
	Message  string  `json:"message"`
	ClientID *string `json:"clientId,omitempty"`
}

// WSHandler upgrades authenticated requests and serves client intents on
// the resulting connection.
type WSHandler struct {
	hub       *realtime.Hub
	messaging *messaging.MessagingUseCase
	upgrader  websocket.Upgrader
	validate  *validator.Validate
	log       *zap.Logger
}

func NewWSHandler(hub *realtime.Hub, messagingUseCase *messaging.MessagingUseCase, allowedOrigins []string, log *zap.Logger) *WSHandler {
	h := &WSHandler{
		hub:       hub,
		messaging: messagingUseCase,
		validate:  validator.New(),
		log:       logger.OrNop(log).With(zap.String("component", "ws")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      originChecker(allowedOrigins),
	}
	return h
}

// originChecker accepts requests without an Origin header (native clients)
// and browser origins on the allow list.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// Connect handles GET /ws
func (h *WSHandler) Connect(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Int64("profile_id", id), zap.Error(err))
		return
	}

	client := realtime.NewClient(h.hub, conn, id, h)
	if !h.hub.Attach(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	// The request context ends when this handler returns; the connection
	// outlives it.
	client.Start(context.WithoutCancel(c.Request.Context()))
}

// HandleIntent dispatches one client intent.
func (h *WSHandler) HandleIntent(ctx context.Context, c *realtime.Client, in realtime.Inbound) {
	switch in.Type {
	case domain.IntentRoomJoin:
		h.joinRoom(ctx, c, in.Data)
	case domain.IntentRoomLeave:
		h.leaveRoom(ctx, c, in.Data)
	case domain.IntentMessageSend:
		h.sendMessage(ctx, c, in.Data)
	case domain.IntentMessageRead:
		h.markRead(ctx, c, in.Data)
	default:
		c.Send(domain.EventError, ErrorPayload{Code: CodeInvalidInput, Message: "unknown event type " + in.Type})
	}
}

func (h *WSHandler) decode(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return domain.ErrInvalidInput
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.ErrInvalidInput
	}
	if err := h.validate.Struct(dst); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

func (h *WSHandler) joinRoom(ctx context.Context, c *realtime.Client, raw json.RawMessage) {
	var p roomPayload
	if err := h.decode(raw, &p); err != nil {
		h.sendError(c, err, nil)
		return
	}
	if _, err := h.messaging.AuthorizeRoom(ctx, c.ProfileID(), p.RoomID); err != nil {
		h.sendError(c, err, nil)
		return
	}
	if err := h.hub.JoinRoom(ctx, c, p.RoomID); err != nil {
		h.log.Warn("join room", zap.String("room_id", p.RoomID), zap.Error(err))
	}
	if _, err := h.messaging.DeliverPending(ctx, c.ProfileID(), p.RoomID); err != nil {
		h.log.Warn("deliver pending messages", zap.String("room_id", p.RoomID), zap.Error(err))
	}
}

func (h *WSHandler) leaveRoom(ctx context.Context, c *realtime.Client, raw json.RawMessage) {
	var p roomPayload
	if err := h.decode(raw, &p); err != nil {
		h.sendError(c, err, nil)
		return
	}
	if err := h.hub.LeaveRoom(ctx, c, p.RoomID); err != nil {
		h.log.Warn("leave room", zap.String("room_id", p.RoomID), zap.Error(err))
	}
}

func (h *WSHandler) sendMessage(ctx context.Context, c *realtime.Client, raw json.RawMessage) {
	var p sendPayload
	if err := h.decode(raw, &p); err != nil {
		h.sendError(c, err, p.ClientID)
		return
	}
	result, err := h.messaging.Send(ctx, messaging.SendInput{
		RoomID:   p.RoomID,
		SenderID: c.ProfileID(),
		Content:  p.Content,
		ClientID: p.ClientID,
	}, metrics.PathLive)
	if err != nil {
		h.sendError(c, err, p.ClientID)
		return
	}
	c.Send(domain.EventMessageAck, AckPayload{ClientID: p.ClientID, Message: result.Message})
}

func (h *WSHandler) markRead(ctx context.Context, c *realtime.Client, raw json.RawMessage) {
	var p readPayload
	if err := h.decode(raw, &p); err != nil {
		h.sendError(c, err, nil)
		return
	}
	if _, err := h.messaging.MarkRead(ctx, c.ProfileID(), p.RoomID, p.MessageIDs); err != nil {
		h.sendError(c, err, nil)
	}
}

func (h *WSHandler) sendError(c *realtime.Client, err error, clientID *string) {
	status, code := errorStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error("intent failed", zap.Int64("profile_id", c.ProfileID()), zap.Error(err))
		message = http.StatusText(status)
	}
	c.Send(domain.EventError, ErrorPayload{Code: code, Message: message, ClientID: clientID})
}
