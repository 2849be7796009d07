package player

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/shared"
)

// State of a playback [Session].
type State int

const (
	Empty State = iota // no tracks installed
	Ready              // tracks installed, cursor defined
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	default:
		return ""
	}
}

// Session is a cursor over a [models.TrackList] that drives one [Output].
type Session struct {
	mu     sync.Mutex
	output Output
	tracks models.TrackList
	cursor int // -1 when tracks is empty
	logger *log.Logger
}

// NewSession creates an empty [Session] playing through output.
func NewSession(output Output, logger *log.Logger) *Session {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Session{output: output, cursor: -1, logger: logger}
}

// Replace installs tracks, stops playback and moves the cursor to the first track.
func (s *Session) Replace(tracks models.TrackList) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.tracks = tracks.Clone()
	if s.tracks.Len() == 0 {
		s.cursor = -1
	} else {
		s.cursor = 0
	}
}

// PlayAt moves the cursor to i, clamped to the list bounds, and plays that track.
//
// A track without a preview stops playback and leaves the output source as it was.
// It reports whether playback started. Start failures are logged, never returned.
func (s *Session) PlayAt(ctx context.Context, i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playAtLocked(ctx, i)
}

// Next plays the track after the cursor, staying on the last track at the end.
func (s *Session) Next(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor < 0 {
		return false
	}
	return s.playAtLocked(ctx, s.cursor+1)
}

// Previous plays the track before the cursor, staying on the first track at the start.
func (s *Session) Previous(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor < 0 {
		return false
	}
	return s.playAtLocked(ctx, s.cursor-1)
}

// Stop halts playback without moving the cursor.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracks.Len() == 0 {
		return Empty
	}
	return Ready
}

// Cursor returns the current index. ok is false when the list is empty.
func (s *Session) Cursor() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor, s.cursor >= 0
}

// Current returns the track under the cursor.
func (s *Session) Current() (models.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor < 0 {
		return models.Track{}, false
	}
	return s.tracks[s.cursor], true
}

func (s *Session) Tracks() models.TrackList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks.Clone()
}

func (s *Session) playAtLocked(ctx context.Context, i int) bool {
	n := s.tracks.Len()
	if n == 0 {
		return false
	}

	s.cursor = max(0, min(i, n-1))
	track := s.tracks[s.cursor]

	if !track.HasPreview() {
		s.logger.Debug("track has no preview", "index", s.cursor, "name", track.Name)
		s.stopLocked()
		return false
	}

	if err := s.output.Load(track.PreviewURL); err != nil {
		s.logger.Debug("failed to load preview", "index", s.cursor, "error", err)
		return false
	}
	if err := s.output.Play(ctx); err != nil {
		s.logger.Debug("failed to start playback", "index", s.cursor, "error", err)
		return false
	}
	return true
}

func (s *Session) stopLocked() {
	if err := s.output.Stop(); err != nil {
		s.logger.Debug("failed to stop playback", "error", err)
	}
}
