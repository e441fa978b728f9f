package repository

import (
	"context"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
)

// FeedQuery selects eligible feed candidates ordered by id descending.
type FeedQuery struct {
	ExcludeIDs []int64
	Genders    []string
	MinAge     int
	MaxAge     int
	Status     domain.ProfileStatus
	Cursor     *int64
	Limit      int
}

type ProfileRepository interface {
	// GetByID loads the profile together with its likes, dislikes and matches.
	GetByID(ctx context.Context, id int64) (*domain.Profile, error)
	ListFeedCandidates(ctx context.Context, q FeedQuery) ([]*domain.Profile, error)
	UpdateMusic(ctx context.Context, id int64, music *domain.MusicProfile, status domain.ProfileStatus) error
	// LockPair takes row locks on both profiles in ascending id order.
	LockPair(ctx context.Context, a, b int64) error
}
