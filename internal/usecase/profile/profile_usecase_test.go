package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
	"github.com/gdugdh24/soundmatch-backend/internal/repository"
)

type stubProfileRepo struct {
	profiles map[int64]*domain.Profile

	savedMusic  *domain.MusicProfile
	savedStatus domain.ProfileStatus
	updateErr   error
}

func (s *stubProfileRepo) GetByID(_ context.Context, id int64) (*domain.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubProfileRepo) ListFeedCandidates(context.Context, repository.FeedQuery) ([]*domain.Profile, error) {
	return nil, nil
}

func (s *stubProfileRepo) UpdateMusic(_ context.Context, _ int64, music *domain.MusicProfile, status domain.ProfileStatus) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.savedMusic = music
	s.savedStatus = status
	return nil
}

func (s *stubProfileRepo) LockPair(context.Context, int64, int64) error { return nil }

func f(v float64) *float64 { return &v }

func sampleTracks(n int) []domain.Track {
	tracks := make([]domain.Track, n)
	for i := range tracks {
		tracks[i] = domain.Track{
			ID:      "t",
			Name:    "track",
			Artists: []domain.Artist{{ID: "a", Name: "artist", Genres: []string{"Indie", "rock"}}},
			Features: &domain.AudioFeatures{
				Energy:  f(0.5),
				Valence: f(0.25),
			},
		}
	}
	return tracks
}

func photoProfile(status domain.ProfileStatus) *domain.Profile {
	return &domain.Profile{
		ID:     1,
		Name:   "Ann",
		Age:    25,
		Gender: "female",
		Photos: []string{"p.jpg"},
		Preferences: domain.Preferences{
			Genders: []string{"male"},
			MinAge:  20,
			MaxAge:  30,
		},
		Status: status,
	}
}

func TestUpdateMusicAnalyzesAndAdvancesStatus(t *testing.T) {
	repo := &stubProfileRepo{profiles: map[int64]*domain.Profile{1: photoProfile(domain.ProfileStatusPhotosUploaded)}}
	uc := NewProfileUseCase(repo, nil)

	dims := &domain.MusicDimensions{Mellow: 0.2, Intense: 0.8}
	got, err := uc.UpdateMusic(context.Background(), 1, &UpdateMusicRequest{
		SourceType: "playlist",
		SourceID:   " pl-1 ",
		Tracks:     sampleTracks(2),
		Dimensions: dims,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Status != domain.ProfileStatusCompleted {
		t.Fatalf("unexpected status: got %s want %s", got.Status, domain.ProfileStatusCompleted)
	}
	if repo.savedStatus != domain.ProfileStatusCompleted {
		t.Fatalf("unexpected saved status: got %s", repo.savedStatus)
	}
	if repo.savedMusic.SourceID != "pl-1" {
		t.Fatalf("unexpected source id: got %q", repo.savedMusic.SourceID)
	}
	a := repo.savedMusic.Analysis
	if a == nil || a.Dimensions != dims {
		t.Fatalf("dimensions must be passed through unchanged")
	}
	if a.AverageFeatures.Energy == nil || *a.AverageFeatures.Energy != 0.5 {
		t.Fatalf("unexpected average energy: %+v", a.AverageFeatures.Energy)
	}
	if a.AverageFeatures.Danceability != nil {
		t.Fatalf("unknown feature must stay nil")
	}
	if a.GenreDistribution["indie"] != 0.5 || a.GenreDistribution["rock"] != 0.5 {
		t.Fatalf("unexpected genre distribution: %v", a.GenreDistribution)
	}
}

func TestUpdateMusicNeverRegressesStatus(t *testing.T) {
	p := photoProfile(domain.ProfileStatusCompleted)
	p.Photos = nil
	repo := &stubProfileRepo{profiles: map[int64]*domain.Profile{1: p}}
	uc := NewProfileUseCase(repo, nil)

	got, err := uc.UpdateMusic(context.Background(), 1, &UpdateMusicRequest{
		SourceType: "top_tracks",
		SourceID:   "me",
		Tracks:     sampleTracks(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.ProfileStatusCompleted {
		t.Fatalf("unexpected status: got %s want %s", got.Status, domain.ProfileStatusCompleted)
	}
}

func TestUpdateMusicCapsTracks(t *testing.T) {
	repo := &stubProfileRepo{profiles: map[int64]*domain.Profile{1: photoProfile(domain.ProfileStatusPhotosUploaded)}}
	uc := NewProfileUseCase(repo, nil)

	if _, err := uc.UpdateMusic(context.Background(), 1, &UpdateMusicRequest{
		SourceType: "playlist",
		SourceID:   "pl",
		Tracks:     sampleTracks(domain.MaxTracks + 10),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.savedMusic.Tracks) != domain.MaxTracks {
		t.Fatalf("unexpected track count: got %d want %d", len(repo.savedMusic.Tracks), domain.MaxTracks)
	}
}

func TestUpdateMusicErrors(t *testing.T) {
	storageErr := errors.New("db down")
	tests := []struct {
		name    string
		id      int64
		req     UpdateMusicRequest
		repoErr error
		want    error
	}{
		{name: "bad source type", id: 1, req: UpdateMusicRequest{SourceType: "radio", SourceID: "x", Tracks: sampleTracks(1)}, want: domain.ErrInvalidInput},
		{name: "blank source id", id: 1, req: UpdateMusicRequest{SourceType: "playlist", SourceID: " ", Tracks: sampleTracks(1)}, want: domain.ErrInvalidInput},
		{name: "no tracks", id: 1, req: UpdateMusicRequest{SourceType: "playlist", SourceID: "x"}, want: domain.ErrInvalidInput},
		{name: "unknown profile", id: 9, req: UpdateMusicRequest{SourceType: "playlist", SourceID: "x", Tracks: sampleTracks(1)}, want: domain.ErrProfileNotFound},
		{name: "storage failure", id: 1, req: UpdateMusicRequest{SourceType: "playlist", SourceID: "x", Tracks: sampleTracks(1)}, repoErr: storageErr, want: storageErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubProfileRepo{
				profiles:  map[int64]*domain.Profile{1: photoProfile(domain.ProfileStatusPhotosUploaded)},
				updateErr: tt.repoErr,
			}
			uc := NewProfileUseCase(repo, nil)
			req := tt.req
			if _, err := uc.UpdateMusic(context.Background(), tt.id, &req); !errors.Is(err, tt.want) {
				t.Fatalf("unexpected error: got %v want %v", err, tt.want)
			}
		})
	}
}
