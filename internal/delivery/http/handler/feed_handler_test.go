package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/gdugdh24/soundmatch-backend/internal/delivery/http/middleware"
	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/feed"
)

type feedRepoStub struct {
	viewer    *domain.Profile
	listErr   error
	lastQuery repository.FeedQuery
}

func (s *feedRepoStub) GetByID(_ context.Context, id int64) (*domain.Profile, error) {
	if s.viewer == nil || s.viewer.ID != id {
		return nil, domain.ErrProfileNotFound
	}
	return s.viewer, nil
}

func (s *feedRepoStub) ListFeedCandidates(_ context.Context, q repository.FeedQuery) ([]*domain.Profile, error) {
	s.lastQuery = q
	return nil, s.listErr
}

func (s *feedRepoStub) UpdateMusic(context.Context, int64, *domain.MusicProfile, domain.ProfileStatus) error {
	return nil
}

func (s *feedRepoStub) LockPair(context.Context, int64, int64) error { return nil }

func withProfile(id int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ProfileIDKey, id)
		c.Next()
	}
}

func newFeedRouter(repo *feedRepoStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewFeedHandler(feed.NewFeedUseCase(repo, 10, nil), nil)
	r.GET("/feed", withProfile(1), h.GetFeed)
	r.GET("/anonymous-feed", h.GetFeed)
	return r
}

func serve(r *gin.Engine, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetFeedExhausted(t *testing.T) {
	repo := &feedRepoStub{viewer: &domain.Profile{ID: 1, Preferences: domain.Preferences{Genders: []string{"female"}}}}
	rec := serve(newFeedRouter(repo), "/feed?cursor=40")

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}
	var page feed.FeedPage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if page.Status != feed.StatusNoProfiles || page.Candidates == nil || len(page.Candidates) != 0 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if repo.lastQuery.Cursor == nil || *repo.lastQuery.Cursor != 40 {
		t.Fatalf("cursor not forwarded: %+v", repo.lastQuery.Cursor)
	}
}

func TestGetFeedErrors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		repo     *feedRepoStub
		wantCode int
		wantErr  string
	}{
		{
			name:     "invalid cursor",
			target:   "/feed?cursor=abc",
			repo:     &feedRepoStub{viewer: &domain.Profile{ID: 1}},
			wantCode: http.StatusBadRequest,
			wantErr:  CodeInvalidInput,
		},
		{
			name:     "storage failure",
			target:   "/feed",
			repo:     &feedRepoStub{viewer: &domain.Profile{ID: 1}, listErr: errors.New("timeout")},
			wantCode: http.StatusServiceUnavailable,
			wantErr:  CodeUnavailable,
		},
		{
			name:     "unknown viewer",
			target:   "/feed",
			repo:     &feedRepoStub{},
			wantCode: http.StatusNotFound,
			wantErr:  CodeNotFound,
		},
		{
			name:     "unauthenticated",
			target:   "/anonymous-feed",
			repo:     &feedRepoStub{},
			wantCode: http.StatusUnauthorized,
			wantErr:  CodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newFeedRouter(tt.repo), tt.target)
			if rec.Code != tt.wantCode {
				t.Fatalf("unexpected status: got %d want %d", rec.Code, tt.wantCode)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.wantErr {
				t.Fatalf("unexpected code: got %q want %q", body.Code, tt.wantErr)
			}
		})
	}
}
