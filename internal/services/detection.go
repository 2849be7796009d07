package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/shared"
)

const (
	detectPath    = "/detect"
	recommendPath = "/recommend"
	healthPath    = "/"
	imageField    = "image"
)

// DetectionService talks to the emotion detection and recommendation backend.
type DetectionService struct {
	api    *APIService
	logger *log.Logger
}

// NewDetectionService wraps api. A nil logger gets the default logger.
func NewDetectionService(api *APIService, logger *log.Logger) *DetectionService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &DetectionService{api: api, logger: logger}
}

type detectResponse struct {
	Success bool   `json:"success"`
	Emotion string `json:"emotion"`
	Error   string `json:"error"`
}

type recommendRequest struct {
	Emotion string `json:"emotion"`
}

type recommendResponse struct {
	Songs []Song `json:"songs"`
	Error string `json:"error"`
}

// Detect uploads img as the multipart field "image" and returns the detected label.
//
// A missing or empty label is reported as [DefaultEmotion].
func (d *DetectionService) Detect(ctx context.Context, img *models.PendingImage) (string, error) {
	if img == nil {
		return "", shared.ErrNoImage
	}

	resp, err := d.api.PostMultipart(ctx, detectPath, imageField, img.Filename(), img.MIMEType, img.Data)
	if err != nil {
		return "", fmt.Errorf("%w: detect: %v", shared.ErrDetectionRequest, err)
	}

	var out detectResponse
	if err := decode(resp, &out); err != nil {
		return "", fmt.Errorf("%w: detect: %v", shared.ErrDetectionRequest, err)
	}

	if out.Emotion == "" {
		d.logger.Debug("backend returned no emotion", "default", DefaultEmotion)
		return DefaultEmotion, nil
	}

	d.logger.Debug("emotion detected", "emotion", out.Emotion)
	return out.Emotion, nil
}

// Recommend posts the label and returns the backend's songs in order. A missing list is empty.
func (d *DetectionService) Recommend(ctx context.Context, emotion string) (models.TrackList, error) {
	resp, err := d.api.PostJSON(ctx, recommendPath, recommendRequest{Emotion: emotion})
	if err != nil {
		return nil, fmt.Errorf("%w: recommend: %v", shared.ErrDetectionRequest, err)
	}

	var out recommendResponse
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("%w: recommend: %v", shared.ErrDetectionRequest, err)
	}

	tracks := make(models.TrackList, 0, len(out.Songs))
	for _, s := range out.Songs {
		tracks = append(tracks, s.Track())
	}

	d.logger.Debug("recommendations received", "emotion", emotion, "count", len(tracks))
	return tracks, nil
}

// Health checks that the backend root endpoint answers with a 2xx status.
func (d *DetectionService) Health(ctx context.Context) error {
	resp, err := d.api.Get(ctx, healthPath)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

func decode(resp *APIResponse, v any) error {
	if !resp.OK() {
		var body struct {
			Error string `json:"error"`
		}
		if resp.DecodeJSON(&body) == nil && body.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, body.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	return resp.DecodeJSON(v)
}
