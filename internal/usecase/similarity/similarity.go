// Package similarity scores how close two music profiles are.
//
// Every function here is pure. Score never panics outward: a failure while
// scoring one candidate degrades that candidate to zero instead of breaking
// the feed page it belongs to.
package similarity

import (
	"math"
	"strings"

	"github.com/gdugdh24/soundmatch-backend/internal/domain"
)

const (
	DimensionWeight = 0.4
	FeatureWeight   = 0.3
	GenreWeight     = 0.3
)

type Subscores struct {
	Dimension float64 `json:"dimension"`
	Feature   float64 `json:"feature"`
	Genre     float64 `json:"genre"`
}

// CompatibilityScore is the weighted total plus its breakdown. NoData is set
// when either side has no analysis; Subscores is nil whenever the score was
// not actually computed.
type CompatibilityScore struct {
	Total     float64    `json:"total"`
	Subscores *Subscores `json:"subscores"`
	NoData    bool       `json:"noData,omitempty"`
}

// GenreFrequencies builds the genre distribution of a track list. A genre
// shared by several artists of one track counts once for that track, and the
// weights are normalised to sum to 1.
func GenreFrequencies(tracks []domain.Track) map[string]float64 {
	freq := make(map[string]float64)
	total := 0.0
	for _, track := range tracks {
		seen := make(map[string]struct{})
		for _, artist := range track.Artists {
			for _, genre := range artist.Genres {
				g := strings.ToLower(strings.TrimSpace(genre))
				if g == "" {
					continue
				}
				if _, ok := seen[g]; ok {
					continue
				}
				seen[g] = struct{}{}
				freq[g]++
				total++
			}
		}
	}
	if total == 0 {
		return freq
	}
	for g := range freq {
		freq[g] /= total
	}
	return freq
}

// GenreSimilarity sums min(a[g], b[g]) over the union of genres.
func GenreSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	sum := 0.0
	for g, fa := range a {
		if fb, ok := b[g]; ok {
			sum += math.Min(fa, fb)
		}
	}
	return sum
}

// FeatureSimilarity is 1 - RMS difference over the features both sides
// carry. It is not clamped; callers clamp.
func FeatureSimilarity(a, b domain.AudioFeatures) float64 {
	av, bv := a.Values(), b.Values()
	sumSq := 0.0
	n := 0
	for i := range av {
		if av[i] == nil || bv[i] == nil {
			continue
		}
		d := *av[i] - *bv[i]
		sumSq += d * d
		n++
	}
	if n == 0 {
		return 0
	}
	return 1 - math.Sqrt(sumSq/float64(n))
}

// DimensionSimilarity is the cosine of the two dimension vectors.
func DimensionSimilarity(a, b domain.MusicDimensions) float64 {
	av, bv := a.Vector(), b.Vector()
	var dot, na, nb float64
	for i := range av {
		dot += av[i] * bv[i]
		na += av[i] * av[i]
		nb += bv[i] * bv[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Score combines the three subscores into the compatibility score.
func Score(a, b *domain.MusicProfile) (score CompatibilityScore) {
	defer func() {
		if r := recover(); r != nil {
			score = CompatibilityScore{}
		}
	}()

	if a == nil || b == nil || a.Analysis == nil || b.Analysis == nil {
		return CompatibilityScore{NoData: true}
	}

	var dim float64
	if a.Analysis.Dimensions != nil && b.Analysis.Dimensions != nil {
		dim = clamp01(DimensionSimilarity(*a.Analysis.Dimensions, *b.Analysis.Dimensions))
	}
	feature := clamp01(FeatureSimilarity(a.Analysis.AverageFeatures, b.Analysis.AverageFeatures))
	genre := clamp01(GenreSimilarity(a.Analysis.GenreDistribution, b.Analysis.GenreDistribution))

	total := DimensionWeight*dim + FeatureWeight*feature + GenreWeight*genre
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return CompatibilityScore{}
	}
	return CompatibilityScore{
		Total: total,
		Subscores: &Subscores{
			Dimension: dim,
			Feature:   feature,
			Genre:     genre,
		},
	}
}

// Analyze derives average features and the genre distribution from tracks.
// Dimensions are supplied by the client and passed through unchanged.
func Analyze(tracks []domain.Track, dims *domain.MusicDimensions) *domain.Analysis {
	var sums [5]float64
	var counts [5]int
	for _, track := range tracks {
		if track.Features == nil {
			continue
		}
		for i, v := range track.Features.Values() {
			if v == nil {
				continue
			}
			sums[i] += *v
			counts[i]++
		}
	}
	var avg [5]*float64
	for i := range sums {
		if counts[i] == 0 {
			continue
		}
		v := sums[i] / float64(counts[i])
		avg[i] = &v
	}
	return &domain.Analysis{
		AverageFeatures:   domain.AudioFeaturesFromValues(avg),
		GenreDistribution: GenreFrequencies(tracks),
		Dimensions:        dims,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
