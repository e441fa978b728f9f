package domain

import "testing"

func completeProfile() *Profile {
	return &Profile{
		ID:     1,
		Name:   "Ann",
		Age:    27,
		Gender: "female",
		Photos: []string{"https://cdn.example/1.jpg"},
		Music: &MusicProfile{
			SourceType: MusicSourcePlaylist,
			Tracks:     []Track{{ID: "t1"}},
			Analysis:   &Analysis{},
		},
		Preferences: Preferences{Genders: []string{"male"}, MinAge: 21, MaxAge: 35},
	}
}

func TestComputeProfileStatus(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Profile)
		want   ProfileStatus
	}{
		{name: "complete", mutate: func(*Profile) {}, want: ProfileStatusCompleted},
		{name: "missing name", mutate: func(p *Profile) { p.Name = " " }, want: ProfileStatusNotStarted},
		{name: "underage", mutate: func(p *Profile) { p.Age = 16 }, want: ProfileStatusNotStarted},
		{name: "no photos", mutate: func(p *Profile) { p.Photos = nil }, want: ProfileStatusBasicInfoCompleted},
		{name: "no music", mutate: func(p *Profile) { p.Music = nil }, want: ProfileStatusPhotosUploaded},
		{name: "no analysis", mutate: func(p *Profile) { p.Music.Analysis = nil }, want: ProfileStatusPhotosUploaded},
		{name: "no preferences", mutate: func(p *Profile) { p.Preferences.Genders = nil }, want: ProfileStatusMusicConnected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := completeProfile()
			tc.mutate(p)
			if got := ComputeProfileStatus(p); got != tc.want {
				t.Fatalf("unexpected status: got %s want %s", got, tc.want)
			}
		})
	}
}

func TestAdvanceProfileStatusIsMonotonic(t *testing.T) {
	if got := AdvanceProfileStatus(ProfileStatusCompleted, ProfileStatusPhotosUploaded); got != ProfileStatusCompleted {
		t.Fatalf("status regressed to %s", got)
	}
	if got := AdvanceProfileStatus(ProfileStatusBasicInfoCompleted, ProfileStatusMusicConnected); got != ProfileStatusMusicConnected {
		t.Fatalf("status did not advance: %s", got)
	}
	if got := AdvanceProfileStatus("", ProfileStatusNotStarted); got != ProfileStatusNotStarted {
		t.Fatalf("empty status not initialised: %q", got)
	}
}

func TestExcludedIDs(t *testing.T) {
	p := &Profile{
		ID:          1,
		LikedIDs:    []int64{2, 3},
		DislikedIDs: []int64{4, 2},
		Matches:     []Match{{MatchedProfileID: 3}, {MatchedProfileID: 5}},
	}
	got := p.ExcludedIDs()
	want := []int64{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("unexpected exclusion set: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected exclusion set: got %v want %v", got, want)
		}
	}
}

func TestCountUnread(t *testing.T) {
	matches := []Match{{IsRead: false}, {IsRead: true}, {IsRead: false}}
	if got := CountUnread(matches); got != 2 {
		t.Fatalf("unexpected unread count: got %d want 2", got)
	}
}
