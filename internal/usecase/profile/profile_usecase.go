package profile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/infrastructure/logger"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
	"github.com/gdugdh24/soundmatch-backend/internal/usecase/similarity"
)

type ProfileUseCase struct {
	profileRepo repository.ProfileRepository
	log         *zap.Logger
}

func NewProfileUseCase(profileRepo repository.ProfileRepository, log *zap.Logger) *ProfileUseCase {
	return &ProfileUseCase{
		profileRepo: profileRepo,
		log:         logger.OrNop(log),
	}
}

// UpdateMusicRequest replaces the music source of a profile.
type UpdateMusicRequest struct {
	SourceType string                  `json:"sourceType" binding:"required,oneof=playlist top_tracks"`
	SourceID   string                  `json:"sourceId" binding:"required,max=200"`
	Tracks     []domain.Track          `json:"tracks" binding:"required,min=1"`
	Dimensions *domain.MusicDimensions `json:"dimensions"`
}

// GetMyProfile returns current user's profile
func (uc *ProfileUseCase) GetMyProfile(ctx context.Context, profileID int64) (*domain.Profile, error) {
	return uc.profileRepo.GetByID(ctx, profileID)
}

// UpdateMusic stores a new track list, recomputes the analysis and moves the
// profile status forward if the new data completes a stage.
func (uc *ProfileUseCase) UpdateMusic(ctx context.Context, profileID int64, req *UpdateMusicRequest) (*domain.Profile, error) {
	source := domain.MusicSourceType(req.SourceType)
	if !source.Valid() || strings.TrimSpace(req.SourceID) == "" || len(req.Tracks) == 0 {
		return nil, domain.ErrInvalidInput
	}

	profile, err := uc.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	tracks := req.Tracks
	if len(tracks) > domain.MaxTracks {
		tracks = tracks[:domain.MaxTracks]
	}

	music := &domain.MusicProfile{
		SourceType: source,
		SourceID:   strings.TrimSpace(req.SourceID),
		Tracks:     tracks,
		Analysis:   similarity.Analyze(tracks, req.Dimensions),
	}
	profile.Music = music

	status := domain.AdvanceProfileStatus(profile.Status, domain.ComputeProfileStatus(profile))
	if err := uc.profileRepo.UpdateMusic(ctx, profileID, music, status); err != nil {
		return nil, fmt.Errorf("failed to update music: %w", err)
	}

	if status != profile.Status {
		uc.log.Info("profile status advanced",
			zap.Int64("profile_id", profileID),
			zap.String("from", string(profile.Status)),
			zap.String("to", string(status)))
	}
	profile.Status = status
	return profile, nil
}
