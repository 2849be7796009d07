package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/shared"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 480

	captureName = "capture.png"
)

// Options configures a [Session].
type Options struct {
	Width  int // raster width of captured frames
	Height int // raster height of captured frames
	Logger *log.Logger
}

// Session holds the camera stream and the pending image.
//
// device serializes acquisition, capture and release so the device is never opened twice.
// mu only guards the fields, so readers such as [Session.Pending] never wait on the hardware.
type Session struct {
	device  sync.Mutex
	mu      sync.Mutex
	camera  Camera
	stream  Stream
	pending *models.PendingImage
	width   int
	height  int
	logger  *log.Logger
}

// NewSession creates a [Session] that acquires frames from camera, which may be nil when only file selection is used.
func NewSession(camera Camera, opts Options) *Session {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Session{
		camera: camera,
		width:  opts.Width,
		height: opts.Height,
		logger: opts.Logger,
	}
}

// RequestCameraAccess acquires the default video input.
//
// Any previously acquired stream is released first. On failure the pending image is left untouched.
func (s *Session) RequestCameraAccess(ctx context.Context) error {
	s.device.Lock()
	defer s.device.Unlock()

	s.release()

	if s.camera == nil {
		return fmt.Errorf("%w: no camera configured", shared.ErrMediaAccess)
	}

	stream, err := s.camera.Open(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrMediaAccess) {
			return err
		}
		return fmt.Errorf("%w: %v", shared.ErrMediaAccess, err)
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()

	s.logger.Debug("camera stream acquired")
	return nil
}

// CaptureFrame renders the current frame into the fixed-size raster, encodes it as PNG and makes it the pending image.
func (s *Session) CaptureFrame(ctx context.Context) (*models.PendingImage, error) {
	s.device.Lock()
	defer s.device.Unlock()

	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()

	if stream == nil {
		return nil, shared.ErrNoActiveStream
	}

	frame, err := stream.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMediaAccess, err)
	}

	data, err := EncodePNG(Rasterize(frame, s.width, s.height))
	if err != nil {
		return nil, err
	}

	pending := models.NewPendingImage(data, "image/png", captureName)
	s.mu.Lock()
	s.pending = pending
	s.mu.Unlock()

	s.logger.Debug("frame captured", "bytes", len(data), "width", s.width, "height", s.height)
	return pending, nil
}

// SelectFile makes data the pending image. The content is not validated.
func (s *Session) SelectFile(data []byte, mimeType string) *models.PendingImage {
	return s.selectFile(data, mimeType, "")
}

func (s *Session) selectFile(data []byte, mimeType, name string) *models.PendingImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = models.NewPendingImage(data, mimeType, name)
	return s.pending
}

// SelectPath reads an image file from disk and makes it the pending image.
//
// Only image MIME types are accepted, detected from the content and then the extension.
func (s *Session) SelectPath(path string) (*models.PendingImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := DetectImageType(path, data)
	if mimeType == "" {
		return nil, fmt.Errorf("%w: %s is not an image", shared.ErrInvalidInput, filepath.Base(path))
	}

	return s.selectFile(data, mimeType, filepath.Base(path)), nil
}

// DetectImageType sniffs data, falling back to the extension of path. It returns "" for non-image content.
func DetectImageType(path string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}

	byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mt, _, err := mime.ParseMediaType(byExt); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}

	return ""
}

// Pending returns the current pending image, or nil.
func (s *Session) Pending() *models.PendingImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// PreviewURL returns a data URL embedding the pending image.
func (s *Session) PreviewURL() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return "", false
	}
	return "data:" + s.pending.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(s.pending.Data), true
}

// Active reports whether a camera stream is held.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Close releases the camera stream. The pending image is kept.
func (s *Session) Close() error {
	s.device.Lock()
	defer s.device.Unlock()
	return s.release()
}

// release detaches the stream under mu and closes it outside. The caller holds device.
func (s *Session) release() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream == nil {
		return nil
	}

	err := stream.Close()
	if err != nil {
		s.logger.Warn("failed to release camera stream", "error", err)
	}
	return err
}
