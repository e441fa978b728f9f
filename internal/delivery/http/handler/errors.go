package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/soundmatch-backend/internal/domain"
)

// ErrorResponse represents error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

const (
	CodeNotFound       = "not_found"
	CodeInvalidInput   = "invalid_input"
	CodeForbidden      = "forbidden"
	CodeUnavailable    = "feed_unavailable"
	CodePartialFailure = "partial_failure"
	CodeInternal       = "internal"
	CodeUnauthorized   = "unauthorized"
)

// errorStatus maps a domain error onto an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrMatchNotFound),
		errors.Is(err, domain.ErrRoomNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidRoomID),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrCannotSwipeSelf),
		errors.Is(err, domain.ErrStatusRegression):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, domain.ErrNotRoomMember):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, domain.ErrFeedUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.Is(err, domain.ErrPartialMatch),
		errors.Is(err, domain.ErrPartialUnmatch):
		return http.StatusInternalServerError, CodePartialFailure
	}
	return http.StatusInternalServerError, CodeInternal
}

// writeError renders err. Internal details are logged, never returned.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", code),
			zap.Error(err))
		message = http.StatusText(status)
	}
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeInvalidInput})
}

// profileID returns the authenticated profile. It writes 401 and reports
// false when the auth middleware did not run.
func profileID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.ProfileIDKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: CodeUnauthorized})
		return 0, false
	}
	id, ok := v.(int64)
	if !ok || id <= 0 {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: CodeUnauthorized})
		return 0, false
	}
	return id, true
}
