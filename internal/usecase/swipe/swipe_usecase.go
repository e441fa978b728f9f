package swipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/metrics"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
)

const icebreakerTimeout = 20 * time.Second

// Notifier pushes an event onto a profile's live channel. Delivery is best
// effort.
type Notifier interface {
	EmitToUser(profileID int64, event string, payload interface{})
}

// Wingman suggests opening lines for a fresh match.
type Wingman interface {
	Icebreakers(ctx context.Context, a, b *domain.Profile) ([]string, error)
}

type SwipeUseCase struct {
	tx           repository.Transactor
	profileRepo  repository.ProfileRepository
	decisionRepo repository.DecisionRepository
	matchRepo    repository.MatchRepository
	notifier     Notifier
	wingman      Wingman
	log          *zap.Logger

	now   func() time.Time
	newID func() string
	spawn func(func())
}

func NewSwipeUseCase(
	tx repository.Transactor,
	profileRepo repository.ProfileRepository,
	decisionRepo repository.DecisionRepository,
	matchRepo repository.MatchRepository,
	notifier Notifier,
	wingman Wingman,
	log *zap.Logger,
) *SwipeUseCase {
	return &SwipeUseCase{
		tx:           tx,
		profileRepo:  profileRepo,
		decisionRepo: decisionRepo,
		matchRepo:    matchRepo,
		notifier:     notifier,
		wingman:      wingman,
		log:          logger.OrNop(log),
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
		spawn:        func(f func()) { go f() },
	}
}

type LikeResult struct {
	Match           bool                   `json:"match"`
	AlreadyDisliked bool                   `json:"alreadyDisliked,omitempty"`
	MatchID         *string                `json:"matchId,omitempty"`
	MatchedProfile  *domain.ProfileSummary `json:"matchedProfile,omitempty"`
	RoomID          string                 `json:"roomId,omitempty"`
}

type DislikeResult struct {
	Success         bool `json:"success"`
	AlreadyDisliked bool `json:"alreadyDisliked,omitempty"`
	AlreadyLiked    bool `json:"alreadyLiked,omitempty"`
}

// MatchNotification is the payload of a match:new event.
type MatchNotification struct {
	MatchID     string                `json:"matchId"`
	Match       domain.ProfileSummary `json:"match"`
	RoomID      string                `json:"roomId"`
	UnreadCount int                   `json:"unreadCount"`
}

type IcebreakerNotification struct {
	MatchID     string   `json:"matchId"`
	RoomID      string   `json:"roomId"`
	Icebreakers []string `json:"icebreakers"`
}

type UnmatchNotification struct {
	MatchID   string `json:"matchId"`
	RoomID    string `json:"roomId"`
	ProfileID int64  `json:"profileId"`
}

// Like records viewer's like of candidate and materializes the match pair
// when the like is mutual. Repeating a like is a no-op that reports the
// current match state.
func (uc *SwipeUseCase) Like(ctx context.Context, viewerID, candidateID int64) (*LikeResult, error) {
	if viewerID == candidateID {
		return nil, domain.ErrCannotSwipeSelf
	}

	var (
		matchID  string
		created  bool
		disliked bool
	)
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.profileRepo.LockPair(ctx, viewerID, candidateID); err != nil {
			return err
		}

		// A decision is terminal: a disliked candidate can never be liked.
		var err error
		disliked, err = uc.decisionRepo.HasDisliked(ctx, viewerID, candidateID)
		if err != nil {
			return fmt.Errorf("check dislike: %w", err)
		}
		if disliked {
			return nil
		}

		fresh, err := uc.decisionRepo.AddLike(ctx, viewerID, candidateID)
		if err != nil {
			return fmt.Errorf("record like: %w", err)
		}

		existing, err := uc.matchRepo.GetByUsers(ctx, viewerID, candidateID)
		switch {
		case err == nil:
			matchID = existing.ID
			return nil
		case !errors.Is(err, domain.ErrMatchNotFound):
			return fmt.Errorf("load match: %w", err)
		}
		if !fresh {
			return nil
		}

		mutual, err := uc.decisionRepo.HasLiked(ctx, candidateID, viewerID)
		if err != nil {
			return fmt.Errorf("check reciprocal like: %w", err)
		}
		if !mutual {
			return nil
		}

		matchID = uc.newID()
		now := uc.now()
		for _, side := range pairSides(matchID, viewerID, candidateID, now) {
			side := side
			if _, err := uc.matchRepo.Create(ctx, &side); err != nil {
				return fmt.Errorf("create match side %d: %w", side.ProfileID, err)
			}
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if disliked {
		return &LikeResult{Match: false, AlreadyDisliked: true}, nil
	}
	if matchID == "" {
		return &LikeResult{Match: false}, nil
	}

	if created {
		if err := uc.verifyPair(ctx, matchID); err != nil {
			return nil, err
		}
		metrics.MatchesCreated.Inc()
	}

	viewer, err := uc.profileRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load viewer: %w", err)
	}
	candidate, err := uc.profileRepo.GetByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load candidate: %w", err)
	}

	summary := candidate.Summary()
	result := &LikeResult{
		Match:          true,
		MatchID:        &matchID,
		MatchedProfile: &summary,
		RoomID:         domain.RoomID(viewerID, candidateID),
	}

	if created {
		uc.notifyMatch(ctx, matchID, viewer, candidate)
		uc.suggestIcebreakers(matchID, viewer, candidate)
	}
	return result, nil
}

func pairSides(matchID string, a, b int64, at time.Time) [2]domain.Match {
	return [2]domain.Match{
		{ID: matchID, ProfileID: a, MatchedProfileID: b, Status: domain.MatchStatusActive, CreatedAt: at},
		{ID: matchID, ProfileID: b, MatchedProfileID: a, Status: domain.MatchStatusActive, CreatedAt: at},
	}
}

// verifyPair re-reads both sides after commit. A lone side is a partial
// failure; it is reported and left for the reconciler.
func (uc *SwipeUseCase) verifyPair(ctx context.Context, matchID string) error {
	sides, err := uc.matchRepo.GetSides(ctx, matchID)
	if err != nil {
		return fmt.Errorf("verify match %s: %w", matchID, err)
	}
	if len(sides) == 2 && sides[0].Mirrors(&sides[1]) {
		return nil
	}
	metrics.RecordPartialFailure(metrics.OpMatch)
	uc.log.Error("match pair is asymmetric",
		logger.PartialFailure(),
		zap.String("match_id", matchID),
		zap.Int("sides", len(sides)),
	)
	return fmt.Errorf("%w: match %s has %d side(s)", domain.ErrPartialMatch, matchID, len(sides))
}

func (uc *SwipeUseCase) notifyMatch(ctx context.Context, matchID string, a, b *domain.Profile) {
	if uc.notifier == nil {
		return
	}
	roomID := domain.RoomID(a.ID, b.ID)
	for _, pair := range [][2]*domain.Profile{{a, b}, {b, a}} {
		recipient, counterpart := pair[0], pair[1]
		unread, err := uc.UnreadMatchCount(ctx, recipient.ID)
		if err != nil {
			uc.log.Warn("unread count for match notification", zap.Int64("profile_id", recipient.ID), zap.Error(err))
		}
		uc.notifier.EmitToUser(recipient.ID, domain.EventMatchNew, MatchNotification{
			MatchID:     matchID,
			Match:       counterpart.Summary(),
			RoomID:      roomID,
			UnreadCount: unread,
		})
	}
}

func (uc *SwipeUseCase) suggestIcebreakers(matchID string, a, b *domain.Profile) {
	if uc.wingman == nil || uc.notifier == nil {
		return
	}
	uc.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), icebreakerTimeout)
		defer cancel()

		lines, err := uc.wingman.Icebreakers(ctx, a, b)
		if err != nil || len(lines) == 0 {
			uc.log.Warn("icebreakers unavailable", zap.String("match_id", matchID), zap.Error(err))
			return
		}
		payload := IcebreakerNotification{
			MatchID:     matchID,
			RoomID:      domain.RoomID(a.ID, b.ID),
			Icebreakers: lines,
		}
		uc.notifier.EmitToUser(a.ID, domain.EventMatchIcebreakers, payload)
		uc.notifier.EmitToUser(b.ID, domain.EventMatchIcebreakers, payload)
	})
}

// Dislike is terminal and idempotent. Disliking a candidate the viewer
// already liked is a no-op.
func (uc *SwipeUseCase) Dislike(ctx context.Context, viewerID, candidateID int64) (*DislikeResult, error) {
	if viewerID == candidateID {
		return nil, domain.ErrCannotSwipeSelf
	}

	result := &DislikeResult{Success: true}
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.profileRepo.LockPair(ctx, viewerID, candidateID); err != nil {
			return err
		}

		liked, err := uc.decisionRepo.HasLiked(ctx, viewerID, candidateID)
		if err != nil {
			return fmt.Errorf("check like: %w", err)
		}
		if liked {
			result.AlreadyLiked = true
			return nil
		}

		created, err := uc.decisionRepo.AddDislike(ctx, viewerID, candidateID)
		if err != nil {
			return fmt.Errorf("record dislike: %w", err)
		}
		result.AlreadyDisliked = !created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type MatchView struct {
	domain.Match
	RoomID  string                `json:"roomId"`
	Profile domain.ProfileSummary `json:"profile"`
}

func (uc *SwipeUseCase) ListMatches(ctx context.Context, profileID int64) ([]MatchView, error) {
	matches, err := uc.matchRepo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		counterpart, err := uc.profileRepo.GetByID(ctx, m.MatchedProfileID)
		if err != nil {
			uc.log.Warn("skip match with missing counterpart",
				zap.String("match_id", m.ID), zap.Int64("counterpart_id", m.MatchedProfileID), zap.Error(err))
			continue
		}
		views = append(views, MatchView{
			Match:   m,
			RoomID:  m.RoomID(),
			Profile: counterpart.Summary(),
		})
	}
	return views, nil
}

// UnreadMatchCount is always recomputed from the stored matches.
func (uc *SwipeUseCase) UnreadMatchCount(ctx context.Context, profileID int64) (int, error) {
	matches, err := uc.matchRepo.ListByProfile(ctx, profileID)
	if err != nil {
		return 0, fmt.Errorf("list matches: %w", err)
	}
	return domain.CountUnread(matches), nil
}

// MarkMatchesRead flags the given matches of profileID as read and returns
// the number changed together with the fresh unread count.
func (uc *SwipeUseCase) MarkMatchesRead(ctx context.Context, profileID int64, matchIDs []string) (int64, int, error) {
	var modified int64
	if len(matchIDs) > 0 {
		n, err := uc.matchRepo.MarkRead(ctx, profileID, matchIDs)
		if err != nil {
			return 0, 0, fmt.Errorf("mark matches read: %w", err)
		}
		modified = n
	}
	unread, err := uc.UnreadMatchCount(ctx, profileID)
	if err != nil {
		return modified, 0, err
	}
	return modified, unread, nil
}

// Unmatch removes both sides of the pair. The room history is kept. Only the
// caller that actually deletes its own side emits match:unmatched, so racing
// unmatches of the same pair notify once.
func (uc *SwipeUseCase) Unmatch(ctx context.Context, profileID int64, matchID string) error {
	var counterpartID int64
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		own, err := uc.ownSide(ctx, profileID, matchID)
		if err != nil {
			return err
		}
		counterpartID = own.MatchedProfileID

		if err := uc.profileRepo.LockPair(ctx, profileID, counterpartID); err != nil {
			return err
		}
		// Re-read under the pair lock: a concurrent unmatch may have won.
		own, err = uc.ownSide(ctx, profileID, matchID)
		if err != nil {
			return err
		}

		if own.Status.CanTransition(domain.MatchStatusUnmatchPending) {
			if _, err := uc.matchRepo.SetStatus(ctx, matchID, domain.MatchStatusUnmatchPending); err != nil {
				return fmt.Errorf("mark unmatch pending: %w", err)
			}
		}
		deleted, err := uc.matchRepo.DeleteSide(ctx, matchID, profileID)
		if err != nil {
			return fmt.Errorf("delete match side %d: %w", profileID, err)
		}
		if deleted == 0 {
			return domain.ErrMatchNotFound
		}
		if _, err := uc.matchRepo.DeleteSide(ctx, matchID, counterpartID); err != nil {
			return fmt.Errorf("delete match side %d: %w", counterpartID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	remaining, err := uc.matchRepo.GetSides(ctx, matchID)
	if err != nil {
		return fmt.Errorf("verify unmatch %s: %w", matchID, err)
	}
	if len(remaining) > 0 {
		metrics.RecordPartialFailure(metrics.OpUnmatch)
		uc.log.Error("unmatch left a side behind",
			logger.PartialFailure(),
			zap.String("match_id", matchID),
			zap.Int("sides", len(remaining)),
		)
		return fmt.Errorf("%w: match %s", domain.ErrPartialUnmatch, matchID)
	}

	if uc.notifier != nil {
		uc.notifier.EmitToUser(counterpartID, domain.EventMatchUnmatched, UnmatchNotification{
			MatchID:   matchID,
			RoomID:    domain.RoomID(profileID, counterpartID),
			ProfileID: profileID,
		})
	}
	return nil
}

func (uc *SwipeUseCase) ownSide(ctx context.Context, profileID int64, matchID string) (*domain.Match, error) {
	sides, err := uc.matchRepo.GetSides(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match: %w", err)
	}
	for i := range sides {
		if sides[i].ProfileID == profileID {
			return &sides[i], nil
		}
	}
	return nil, domain.ErrMatchNotFound
}
