package services

import (
	"context"

	"github.com/desertthunder/moodtunes/internal/models"
)

// DefaultEmotion is reported when the backend omits a label.
const DefaultEmotion = "Neutral"

// Detector classifies the facial emotion in an image.
type Detector interface {
	// Detect uploads img and returns the emotion label.
	Detect(ctx context.Context, img *models.PendingImage) (string, error)
}

// Recommender maps an emotion label to an ordered list of tracks.
type Recommender interface {
	Recommend(ctx context.Context, emotion string) (models.TrackList, error)
}

// DetectRecommender is the full detection backend contract.
type DetectRecommender interface {
	Detector
	Recommender
}

// Song is a recommendation as returned by the backend.
type Song struct {
	Name    string `json:"name"`
	Artist  string `json:"artist"`
	Album   string `json:"album"`
	Image   string `json:"image"`
	Preview string `json:"preview"`
}

// Track converts the wire shape into a [models.Track], preferring album art over the generic image.
func (s Song) Track() models.Track {
	art := s.Album
	if art == "" {
		art = s.Image
	}

	return models.Track{
		Name:        s.Name,
		Artist:      s.Artist,
		AlbumArtURL: art,
		PreviewURL:  s.Preview,
	}
}
