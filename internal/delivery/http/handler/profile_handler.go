package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/profile"
)

type ProfileHandler struct {
	profileUseCase *profile.ProfileUseCase
	log            *zap.Logger
}

func NewProfileHandler(profileUseCase *profile.ProfileUseCase, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileUseCase: profileUseCase,
		log:            logger.OrNop(log),
	}
}

// GetMyProfile handles GET /profile/me
// @Summary Get my profile
// @Tags profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.Profile
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /profile/me [get]
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	p, err := h.profileUseCase.GetMyProfile(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// UpdateMusic handles PUT /profile/me/music
// @Summary Replace my music source
// @Description Stores tracks, recomputes the music analysis and profile status
// @Tags profile
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body profile.UpdateMusicRequest true "Music source"
// @Success 200 {object} domain.Profile
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /profile/me/music [put]
func (h *ProfileHandler) UpdateMusic(c *gin.Context) {
	id, ok := profileID(c)
	if !ok {
		return
	}

	var req profile.UpdateMusicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	p, err := h.profileUseCase.UpdateMusic(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, p)
}
