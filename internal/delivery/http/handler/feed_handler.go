package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/feed"
)

type FeedHandler struct {
	feedUseCase *feed.FeedUseCase
	log         *zap.Logger
}

func NewFeedHandler(feedUseCase *feed.FeedUseCase, log *zap.Logger) *FeedHandler {
	return &FeedHandler{
		feedUseCase: feedUseCase,
		log:         logger.OrNop(log),
	}
}

// GetFeed handles GET /feed?cursor=
// @Summary Ranked discovery feed
// @Tags feed
// @Security BearerAuth
// @Produce json
// @Param cursor query int false "nextCursor of the previous page"
// @Success 200 {object} feed.FeedPage
// @Failure 503 {object} ErrorResponse
// @Router /feed [get]
func (h *FeedHandler) GetFeed(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	var cursor *int64
	if raw := c.Query("cursor"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			badRequest(c, "invalid cursor")
			return
		}
		cursor = &v
	}

	page, err := h.feedUseCase.GetFeed(c.Request.Context(), id, cursor)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, page)
}
