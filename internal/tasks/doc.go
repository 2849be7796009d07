// Package tasks runs the detect-and-recommend flow with real-time progress reporting.
//
// # Recommender
//
// [Recommender] owns the state a user sees after submitting an image: the detected emotion label,
// the recommended [models.TrackList], a loading flag and the last failure.
//
//  1. [Recommender.DetectAndRecommend] : Submit an image, then request tracks for the label
//     - Fails with [shared.ErrNoImage] before any request when no image is pending
//     - Loading stays true across both requests
//     - Label and tracks are committed together, or not at all
//     - Failures keep the previous label and tracks and wrap [shared.ErrDetectionRequest]
//
//  2. [Recommender.Invalidate] : Drop whatever is in flight
//
// Each request takes a generation number. Only the latest generation may commit, so a slow response
// can never overwrite the result of a newer one.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # History
//
// The optional [HistoryRecorder] interface persists completed detections.
//
// Recording errors are logged and ignored so they never surface as detection failures.
//
// # Batch Detection
//
// [BatchDetector] runs the same flow over a list of image files with a worker pool and a token bucket,
// exporting each result with the formatter package and writing a manifest.
package tasks
