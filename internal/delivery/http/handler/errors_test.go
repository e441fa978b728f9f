package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrProfileNotFound, http.StatusNotFound, CodeNotFound},
		{domain.ErrMatchNotFound, http.StatusNotFound, CodeNotFound},
		{domain.ErrRoomNotFound, http.StatusNotFound, CodeNotFound},
		{domain.ErrInvalidRoomID, http.StatusBadRequest, CodeInvalidInput},
		{domain.ErrEmptyMessage, http.StatusBadRequest, CodeInvalidInput},
		{domain.ErrCannotSwipeSelf, http.StatusBadRequest, CodeInvalidInput},
		{fmt.Errorf("%w: too long", domain.ErrInvalidInput), http.StatusBadRequest, CodeInvalidInput},
		{domain.ErrNotRoomMember, http.StatusForbidden, CodeForbidden},
		{fmt.Errorf("%w: timeout", domain.ErrFeedUnavailable), http.StatusServiceUnavailable, CodeUnavailable},
		{domain.ErrPartialMatch, http.StatusInternalServerError, CodePartialFailure},
		{fmt.Errorf("unmatch: %w", domain.ErrPartialUnmatch), http.StatusInternalServerError, CodePartialFailure},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, code := errorStatus(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Fatalf("unexpected mapping: got %d/%s want %d/%s", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(c, zap.NewNop(), fmt.Errorf("load match: %w", errors.New("pq: connection refused")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusInternalServerError)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != http.StatusText(http.StatusInternalServerError) || body.Code != CodeInternal {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestProfileIDRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	if _, ok := profileID(c); ok {
		t.Fatalf("expected missing profile id to fail")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusUnauthorized)
	}
}
