// Package services implements the HTTP client for the emotion detection backend.
//
// # API Service
//
// [APIService] performs raw requests against the backend base URL and returns an [APIResponse]
// with the status, headers and body. Callers decode JSON with [APIResponse.DecodeJSON].
// Requests can be paced with a token bucket via [APIService.WithRateLimit].
//
// # Detection Service
//
// [DetectionService] implements [Detector] and [Recommender]:
//   - Detect: multipart POST /detect with the image under the "image" field; response {"emotion": string}
//   - Recommend: JSON POST /recommend with {"emotion": label}; response {"songs": [...]}
//   - Health: GET / for reachability
//
// An absent emotion is reported as [DefaultEmotion]. An absent song list is an empty [models.TrackList].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrDetectionRequest] : detect or recommend failed (transport, non-2xx, malformed JSON)
//   - [shared.ErrNoImage] : Detect called without an image
//   - [shared.ErrServiceUnavailable] : health check failed
//
// No request is retried.
package services
