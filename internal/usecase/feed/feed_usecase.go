package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/metrics"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/similarity"
)

const (
	DefaultPageSize = 10

	// StatusNoProfiles marks an exhausted feed.
	StatusNoProfiles = "NO_PROFILES"
)

type FeedUseCase struct {
	profileRepo repository.ProfileRepository
	pageSize    int
	log         *zap.Logger
}

func NewFeedUseCase(profileRepo repository.ProfileRepository, pageSize int, log *zap.Logger) *FeedUseCase {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &FeedUseCase{
		profileRepo: profileRepo,
		pageSize:    pageSize,
		log:         logger.OrNop(log),
	}
}

// RankedProfile is a candidate together with its compatibility score.
type RankedProfile struct {
	domain.ProfileSummary
	Gender             string                        `json:"gender"`
	CompatibilityScore similarity.CompatibilityScore `json:"compatibilityScore"`
}

type FeedPage struct {
	Candidates []RankedProfile `json:"candidates"`
	HasMore    bool            `json:"hasMore"`
	NextCursor *int64          `json:"nextCursor,omitempty"`
	Status     string          `json:"status,omitempty"`
}

// GetFeed returns one page of candidates for profileID, ranked by
// compatibility. cursor is the nextCursor of the previous page.
func (uc *FeedUseCase) GetFeed(ctx context.Context, profileID int64, cursor *int64) (*FeedPage, error) {
	viewer, err := uc.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, err
		}
		metrics.RecordFeedRequest(metrics.FeedError)
		return nil, fmt.Errorf("%w: load viewer: %v", domain.ErrFeedUnavailable, err)
	}

	candidates, err := uc.profileRepo.ListFeedCandidates(ctx, repository.FeedQuery{
		ExcludeIDs: viewer.ExcludedIDs(),
		Genders:    viewer.Preferences.Genders,
		MinAge:     viewer.Preferences.MinAge,
		MaxAge:     viewer.Preferences.MaxAge,
		Status:     domain.ProfileStatusCompleted,
		Cursor:     cursor,
		Limit:      uc.pageSize + 1,
	})
	if err != nil {
		metrics.RecordFeedRequest(metrics.FeedError)
		uc.log.Error("feed query failed", zap.Int64("profile_id", profileID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
	}

	page := buildPage(viewer, candidates, uc.pageSize)
	if page.Status == StatusNoProfiles {
		metrics.RecordFeedRequest(metrics.FeedEmpty)
	} else {
		metrics.RecordFeedRequest(metrics.FeedOK)
	}
	return page, nil
}

// buildPage trims the look-ahead row, filters anything the store should
// already have excluded and ranks what remains.
func buildPage(viewer *domain.Profile, rows []*domain.Profile, pageSize int) *FeedPage {
	hasMore := len(rows) > pageSize
	if hasMore {
		rows = rows[:pageSize]
	}
	if len(rows) == 0 {
		return &FeedPage{Candidates: []RankedProfile{}, Status: StatusNoProfiles}
	}

	nextCursor := rows[len(rows)-1].ID

	excluded := make(map[int64]struct{})
	for _, id := range viewer.ExcludedIDs() {
		excluded[id] = struct{}{}
	}

	ranked := make([]RankedProfile, 0, len(rows))
	for _, c := range rows {
		if _, ok := excluded[c.ID]; ok {
			continue
		}
		if !eligible(viewer, c) {
			continue
		}
		ranked = append(ranked, RankedProfile{
			ProfileSummary:     c.Summary(),
			Gender:             c.Gender,
			CompatibilityScore: similarity.Score(viewer.Music, c.Music),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CompatibilityScore.Total > ranked[j].CompatibilityScore.Total
	})

	if len(ranked) == 0 && !hasMore {
		return &FeedPage{Candidates: ranked, Status: StatusNoProfiles}
	}
	return &FeedPage{
		Candidates: ranked,
		HasMore:    hasMore,
		NextCursor: &nextCursor,
	}
}

// eligible applies the viewer's preferences to a candidate. Only the
// viewer's side is checked.
func eligible(viewer, candidate *domain.Profile) bool {
	if candidate.Status != domain.ProfileStatusCompleted {
		return false
	}
	if !viewer.Preferences.AcceptsAge(candidate.Age) {
		return false
	}
	return viewer.Preferences.AcceptsGender(candidate.Gender)
}
