package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/services"
	"github.com/desertthunder/moodtunes/internal/shared"
)

// HistoryRecorder persists completed detections.
type HistoryRecorder interface {
	RecordDetection(ctx context.Context, label string, tracks models.TrackList) (*models.Detection, error)
}

// Snapshot is a consistent view of the recommender state. Label and Tracks always come from the same request.
type Snapshot struct {
	Label      string
	HasLabel   bool
	Tracks     models.TrackList
	Loading    bool
	Err        error // last user-facing failure, cleared when a new request starts
	Generation uint64
}

// Result is returned by a successful [Recommender.DetectAndRecommend].
type Result struct {
	Label      string
	Tracks     models.TrackList
	Detection  *models.Detection // nil when no history is recorded
	Generation uint64
}

// RecommenderOpts configures a [Recommender].
type RecommenderOpts struct {
	History HistoryRecorder
	Logger  *log.Logger
}

// Recommender owns the emotion label and recommendation list produced by the latest request.
type Recommender struct {
	mu          sync.Mutex
	backend     services.DetectRecommender
	history     HistoryRecorder
	logger      *log.Logger
	state       Snapshot
	subscribers map[int]func(Snapshot)
	nextSub     int
}

// NewRecommender creates a [Recommender] backed by the detection service.
func NewRecommender(backend services.DetectRecommender, opts RecommenderOpts) *Recommender {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Recommender{
		backend:     backend,
		history:     opts.History,
		logger:      opts.Logger,
		subscribers: make(map[int]func(Snapshot)),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// DetectAndRecommend submits img for detection, then requests recommendations for the returned label.
//
// The two calls run sequentially and neither is retried. Label and tracks are committed together only when
// both succeed and no newer request has started; otherwise the previous state is kept.
func (r *Recommender) DetectAndRecommend(ctx context.Context, img *models.PendingImage, progress chan<- ProgressUpdate) (*Result, error) {
	if img == nil {
		return nil, shared.ErrNoImage
	}

	gen := r.begin()
	sendProgress(progress, detectUpdate(1, 2))

	label, err := r.backend.Detect(ctx, img)
	if err != nil {
		return nil, r.fail(gen, err)
	}

	sendProgress(progress, recommendUpdate(2, 2, label))

	tracks, err := r.backend.Recommend(ctx, label)
	if err != nil {
		return nil, r.fail(gen, err)
	}

	if !r.commit(gen, label, tracks) {
		r.logger.Debug("discarding stale recommendations", "generation", gen, "label", label)
		return nil, shared.ErrSuperseded
	}

	result := &Result{Label: label, Tracks: tracks.Clone(), Generation: gen}
	if r.history != nil {
		if d, err := r.history.RecordDetection(ctx, label, tracks); err != nil {
			r.logger.Warn("failed to record detection", "error", err)
		} else {
			result.Detection = d
		}
	}

	sendProgress(progress, completeUpdate(label, tracks.Len()))
	return result, nil
}

// Invalidate discards any in-flight request, e.g. when a new image is captured mid-request.
func (r *Recommender) Invalidate() {
	r.mu.Lock()
	r.state.Generation++
	r.state.Loading = false
	snap := r.snapshotLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, snap)
}

// Snapshot returns the current state.
func (r *Recommender) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Loading reports whether the latest request is still in flight.
func (r *Recommender) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Loading
}

// Subscribe registers fn to receive a snapshot on every state change. Call the returned func to stop.
func (r *Recommender) Subscribe(fn func(Snapshot)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subscribers, id)
			r.mu.Unlock()
		})
	}
}

func (r *Recommender) begin() uint64 {
	r.mu.Lock()
	r.state.Generation++
	r.state.Loading = true
	r.state.Err = nil
	gen := r.state.Generation
	snap := r.snapshotLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, snap)
	return gen
}

func (r *Recommender) commit(gen uint64, label string, tracks models.TrackList) bool {
	r.mu.Lock()
	if gen != r.state.Generation {
		r.mu.Unlock()
		return false
	}

	r.state.Label = label
	r.state.HasLabel = true
	r.state.Tracks = tracks.Clone()
	r.state.Loading = false
	snap := r.snapshotLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, snap)
	return true
}

func (r *Recommender) fail(gen uint64, cause error) error {
	err := cause
	if !errors.Is(err, shared.ErrDetectionRequest) {
		err = fmt.Errorf("%w: %v", shared.ErrDetectionRequest, cause)
	}

	r.mu.Lock()
	if gen != r.state.Generation {
		r.mu.Unlock()
		r.logger.Debug("ignoring failure of stale request", "generation", gen, "error", cause)
		return err
	}

	r.state.Err = err
	r.state.Loading = false
	snap := r.snapshotLocked()
	subs := r.subscribersLocked()
	r.mu.Unlock()

	r.logger.Error("detection failed", "error", cause)
	notify(subs, snap)
	return err
}

func (r *Recommender) snapshotLocked() Snapshot {
	snap := r.state
	snap.Tracks = r.state.Tracks.Clone()
	return snap
}

func (r *Recommender) subscribersLocked() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
