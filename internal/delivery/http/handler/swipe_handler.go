package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/swipe"
)

type SwipeHandler struct {
	swipeUseCase *swipe.SwipeUseCase
	log          *zap.Logger
}

func NewSwipeHandler(swipeUseCase *swipe.SwipeUseCase, log *zap.Logger) *SwipeHandler {
	return &SwipeHandler{
		swipeUseCase: swipeUseCase,
		log:          logger.OrNop(log),
	}
}

type SwipeRequest struct {
	CandidateID int64 `json:"candidateId" binding:"required,gt=0"`
}

type MarkMatchesReadRequest struct {
	MatchIDs []string `json:"matchIds" binding:"required,dive,uuid"`
}

// Like handles POST /swipe/like
// @Summary Like a candidate
// @Tags swipe
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body SwipeRequest true "Candidate"
// @Success 200 {object} swipe.LikeResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /swipe/like [post]
func (h *SwipeHandler) Like(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	var req SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.swipeUseCase.Like(c.Request.Context(), id, req.CandidateID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Dislike handles POST /swipe/dislike
func (h *SwipeHandler) Dislike(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	var req SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.swipeUseCase.Dislike(c.Request.Context(), id, req.CandidateID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMatches handles GET /matches
func (h *SwipeHandler) ListMatches(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	matches, err := h.swipeUseCase.ListMatches(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// UnreadCount handles GET /matches/unread-count
func (h *SwipeHandler) UnreadCount(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	count, err := h.swipeUseCase.UnreadMatchCount(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkRead handles POST /matches/read
func (h *SwipeHandler) MarkRead(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	var req MarkMatchesReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	modified, unread, err := h.swipeUseCase.MarkMatchesRead(c.Request.Context(), id, req.MatchIDs)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"modifiedCount": modified,
		"unreadCount":   unread,
	})
}

// Unmatch handles DELETE /matches/:match_id
// @Summary Unmatch
// @Tags swipe
// @Security BearerAuth
// @Param match_id path string true "Match ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /matches/{match_id} [delete]
func (h *SwipeHandler) Unmatch(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	if err := h.swipeUseCase.Unmatch(c.Request.Context(), id, c.Param("match_id")); err != nil {
		writeError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
