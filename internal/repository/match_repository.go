package repository

import (
	"context"
	"time"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
)

type MatchRepository interface {
	// Create inserts one side of a pair and reports false if that side
	// already existed.
	Create(ctx context.Context, match *domain.Match) (bool, error)
	GetByUsers(ctx context.Context, profileID, matchedProfileID int64) (*domain.Match, error)
	GetSides(ctx context.Context, matchID string) ([]domain.Match, error)
	ListByProfile(ctx context.Context, profileID int64) ([]domain.Match, error)
	MarkRead(ctx context.Context, profileID int64, matchIDs []string) (int64, error)
	SetStatus(ctx context.Context, matchID string, status domain.MatchStatus) (int64, error)
	DeleteSide(ctx context.Context, matchID string, profileID int64) (int64, error)
	TouchInteraction(ctx context.Context, a, b int64, at time.Time) error
	// ListOrphans returns sides whose counterpart row is missing.
	ListOrphans(ctx context.Context, limit int) ([]domain.Match, error)
}
