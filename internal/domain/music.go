package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

type MusicSourceType string

const (
	MusicSourcePlaylist  MusicSourceType = "playlist"
	MusicSourceTopTracks MusicSourceType = "top_tracks"
)

func (s MusicSourceType) Valid() bool {
	return s == MusicSourcePlaylist || s == MusicSourceTopTracks
}

// MaxTracks caps the number of tracks kept on a music profile.
const MaxTracks = 50

type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// AudioFeatures holds the five canonical features. A nil field means the
// feature is unknown and is skipped by comparisons.
type AudioFeatures struct {
	Danceability     *float64 `json:"danceability,omitempty"`
	Energy           *float64 `json:"energy,omitempty"`
	Acousticness     *float64 `json:"acousticness,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty"`
	Valence          *float64 `json:"valence,omitempty"`
}

func (f AudioFeatures) Values() [5]*float64 {
	return [5]*float64{f.Danceability, f.Energy, f.Acousticness, f.Instrumentalness, f.Valence}
}

func AudioFeaturesFromValues(v [5]*float64) AudioFeatures {
	return AudioFeatures{
		Danceability:     v[0],
		Energy:           v[1],
		Acousticness:     v[2],
		Instrumentalness: v[3],
		Valence:          v[4],
	}
}

type Track struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Artists  []Artist       `json:"artists"`
	Features *AudioFeatures `json:"features,omitempty"`
}

type MusicDimensions struct {
	Mellow        float64 `json:"mellow"`
	Unpretentious float64 `json:"unpretentious"`
	Sophisticated float64 `json:"sophisticated"`
	Intense       float64 `json:"intense"`
	Contemporary  float64 `json:"contemporary"`
}

func (d MusicDimensions) Vector() [5]float64 {
	return [5]float64{d.Mellow, d.Unpretentious, d.Sophisticated, d.Intense, d.Contemporary}
}

type Analysis struct {
	AverageFeatures   AudioFeatures      `json:"averageFeatures"`
	GenreDistribution map[string]float64 `json:"genreDistribution"`
	Dimensions        *MusicDimensions   `json:"dimensions,omitempty"`
}

type MusicProfile struct {
	SourceType MusicSourceType `json:"sourceType"`
	SourceID   string          `json:"sourceId"`
	Tracks     []Track         `json:"tracks"`
	Analysis   *Analysis       `json:"analysis,omitempty"`
}

// Value stores the music profile as a JSONB column.
func (m MusicProfile) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *MusicProfile) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("music profile: unsupported scan type")
	}
	return json.Unmarshal(raw, m)
}
