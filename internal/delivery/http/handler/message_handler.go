package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/metrics"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/messaging"
)

type MessageHandler struct {
	messagingUseCase *messaging.MessagingUseCase
	log              *zap.Logger
}

func NewMessageHandler(messagingUseCase *messaging.MessagingUseCase, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messagingUseCase: messagingUseCase,
		log:              logger.OrNop(log),
	}
}

type SendMessageRequest struct {
	Content  string  `json:"content" binding:"required"`
	ClientID *string `json:"clientId" binding:"omitempty,max=128"`
}

type MarkMessagesReadRequest struct {
	MessageIDs []int64 `json:"messageIds" binding:"required,dive,gt=0"`
}

// ListMessages handles GET /rooms/:room_id/messages?lastId=&limit=
// @Summary Room history page
// @Tags messages
// @Security BearerAuth
// @Produce json
// @Param room_id path string true "Room ID"
// @Param lastId query int false "Oldest id of the previous page"
// @Param limit query int false "Page size"
// @Success 200 {object} messaging.FetchResult
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /rooms/{room_id}/messages [get]
func (h *MessageHandler) ListMessages(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	var lastID *int64
	if raw := c.Query("lastId"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			badRequest(c, "invalid lastId")
			return
		}
		lastID = &v
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = v
	}

	result, err := h.messagingUseCase.Fetch(c.Request.Context(), id, c.Param("room_id"), lastID, limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SendMessage handles POST /rooms/:room_id/messages, the fallback path for
// clients without a live connection.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.messagingUseCase.Send(c.Request.Context(), messaging.SendInput{
		RoomID:   c.Param("room_id"),
		SenderID: id,
		Content:  req.Content,
		ClientID: req.ClientID,
	}, metrics.PathREST)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"message":   result.Message,
		"duplicate": result.Duplicate,
	})
}

// MarkRead handles POST /rooms/:room_id/messages/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	var req MarkMessagesReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.messagingUseCase.MarkRead(c.Request.Context(), id, c.Param("room_id"), req.MessageIDs)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Previews handles GET /conversations/previews
func (h *MessageHandler) Previews(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	previews, err := h.messagingUseCase.Previews(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": previews})
}

// UnreadCount handles GET /conversations/unread-count
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	count, err := h.messagingUseCase.UnreadConversationCount(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}
