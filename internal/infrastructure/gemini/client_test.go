package gemini

import (
	"reflect"
	"testing"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
)

func withGenres(dist map[string]float64) *domain.Profile {
	return &domain.Profile{Music: &domain.MusicProfile{Analysis: &domain.Analysis{GenreDistribution: dist}}}
}

func TestSharedGenres(t *testing.T) {
	a := withGenres(map[string]float64{"indie": 0.5, "jazz": 0.3, "rock": 0.2})
	b := withGenres(map[string]float64{"jazz": 0.6, "rock": 0.1, "metal": 0.3})

	got := SharedGenres(a, b, 5)
	want := []string{"jazz", "rock"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected shared genres: got %v want %v", got, want)
	}
	if got := SharedGenres(a, &domain.Profile{}, 5); len(got) != 0 {
		t.Fatalf("unexpected shared genres without music: %v", got)
	}
}

func TestParseIcebreakers(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "json", raw: `["one", "two"]`, want: []string{"one", "two"}},
		{name: "fenced", raw: "```json\n[\"one\"]\n```", want: []string{"one"}},
		{name: "plain lines", raw: "first line\n\nsecond line", want: []string{"first line", "second line"}},
		{name: "empty", raw: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIcebreakers(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("unexpected lines: got %v want %v", got, tt.want)
			}
		})
	}
}

func TestFallbackIcebreakers(t *testing.T) {
	if got := FallbackIcebreakers(nil); len(got) != 1 {
		t.Fatalf("unexpected fallback: %v", got)
	}
	if got := FallbackIcebreakers([]string{"jazz"}); got[0] != "Looks like we both love jazz. Who got you into it?" {
		t.Fatalf("unexpected fallback: %q", got[0])
	}
}
