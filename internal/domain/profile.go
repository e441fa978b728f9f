package domain

import (
	"strings"
	"time"
)

type ProfileStatus string

const (
	ProfileStatusNotStarted         ProfileStatus = "NOT_STARTED"
	ProfileStatusBasicInfoCompleted ProfileStatus = "BASIC_INFO_COMPLETED"
	ProfileStatusPhotosUploaded     ProfileStatus = "PHOTOS_UPLOADED"
	ProfileStatusMusicConnected     ProfileStatus = "MUSIC_CONNECTED"
	ProfileStatusCompleted          ProfileStatus = "COMPLETED"
)

var profileStatusRank = map[ProfileStatus]int{
	ProfileStatusNotStarted:         0,
	ProfileStatusBasicInfoCompleted: 1,
	ProfileStatusPhotosUploaded:     2,
	ProfileStatusMusicConnected:     3,
	ProfileStatusCompleted:          4,
}

func (s ProfileStatus) Valid() bool {
	_, ok := profileStatusRank[s]
	return ok
}

type Preferences struct {
	Genders       []string `json:"genders"`
	MinAge        int      `json:"minAge"`
	MaxAge        int      `json:"maxAge"`
	MaxDistanceKm *int     `json:"maxDistanceKm,omitempty"`
}

func (p Preferences) AcceptsGender(gender string) bool {
	for _, g := range p.Genders {
		if strings.EqualFold(g, gender) {
			return true
		}
	}
	return false
}

func (p Preferences) AcceptsAge(age int) bool {
	if p.MinAge > 0 && age < p.MinAge {
		return false
	}
	if p.MaxAge > 0 && age > p.MaxAge {
		return false
	}
	return true
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Profile struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Age         int           `json:"age"`
	Gender      string        `json:"gender"`
	Bio         *string       `json:"bio"`
	Photos      []string      `json:"photos"`
	Music       *MusicProfile `json:"music,omitempty"`
	Preferences Preferences   `json:"preferences"`
	Location    *GeoPoint     `json:"location,omitempty"`
	Status      ProfileStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`

	LikedIDs    []int64 `json:"-"`
	DislikedIDs []int64 `json:"-"`
	Matches     []Match `json:"-"`
}

// HasLiked and HasDisliked scan the append-only decision sets.
func (p *Profile) HasLiked(id int64) bool    { return containsID(p.LikedIDs, id) }
func (p *Profile) HasDisliked(id int64) bool { return containsID(p.DislikedIDs, id) }

func (p *Profile) MatchWith(id int64) (*Match, bool) {
	for i := range p.Matches {
		if p.Matches[i].MatchedProfileID == id {
			return &p.Matches[i], true
		}
	}
	return nil, false
}

// ExcludedIDs is the set of profiles that must never appear in this
// profile's feed: self, likes, dislikes and matches.
func (p *Profile) ExcludedIDs() []int64 {
	n := 1 + len(p.LikedIDs) + len(p.DislikedIDs) + len(p.Matches)
	seen := make(map[int64]struct{}, n)
	out := make([]int64, 0, n)
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(p.ID)
	for _, id := range p.LikedIDs {
		add(id)
	}
	for _, id := range p.DislikedIDs {
		add(id)
	}
	for _, m := range p.Matches {
		add(m.MatchedProfileID)
	}
	return out
}

// MusicSummary is the public slice of a music profile shown to others.
type MusicSummary struct {
	Analysis   *Analysis       `json:"analysis"`
	SourceType MusicSourceType `json:"sourceType"`
}

// ProfileSummary is what a counterpart sees in match notifications.
type ProfileSummary struct {
	ID     int64         `json:"id"`
	Name   string        `json:"name"`
	Photos []string      `json:"photos"`
	Music  *MusicSummary `json:"music"`
	Age    int           `json:"age"`
	Bio    *string       `json:"bio"`
}

func (p *Profile) Summary() ProfileSummary {
	s := ProfileSummary{
		ID:     p.ID,
		Name:   p.Name,
		Photos: p.Photos,
		Age:    p.Age,
		Bio:    p.Bio,
	}
	if s.Photos == nil {
		s.Photos = []string{}
	}
	if p.Music != nil {
		s.Music = &MusicSummary{Analysis: p.Music.Analysis, SourceType: p.Music.SourceType}
	}
	return s
}

// ComputeProfileStatus derives the lifecycle stage from field completeness.
func ComputeProfileStatus(p *Profile) ProfileStatus {
	basic := strings.TrimSpace(p.Name) != "" && p.Age >= 18 && strings.TrimSpace(p.Gender) != ""
	if !basic {
		return ProfileStatusNotStarted
	}
	if len(p.Photos) == 0 {
		return ProfileStatusBasicInfoCompleted
	}
	if p.Music == nil || len(p.Music.Tracks) == 0 || p.Music.Analysis == nil {
		return ProfileStatusPhotosUploaded
	}
	if len(p.Preferences.Genders) == 0 || p.Preferences.MaxAge < p.Preferences.MinAge {
		return ProfileStatusMusicConnected
	}
	return ProfileStatusCompleted
}

// AdvanceProfileStatus keeps the status monotonic: a computed status lower
// than the current one is ignored.
func AdvanceProfileStatus(current, computed ProfileStatus) ProfileStatus {
	if profileStatusRank[computed] > profileStatusRank[current] {
		return computed
	}
	if !current.Valid() {
		return computed
	}
	return current
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
