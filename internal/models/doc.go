// Package models defines domain entities and persistence interfaces for moodtunes.
//
// The package contains two categories of types:
//
// 1. Session values: in-memory state shared by the capture, detection and playback components
//   - [PendingImage] : the single image awaiting submission
//   - [Track] : a recommendation entry with optional art and preview URLs
//   - [TrackList] : ordered recommendations, replaced wholesale
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [User] : identities signed in through the OAuth provider
//   - [Detection] : history of detected labels and the tracks recommended for them
//
// All persistent entities implement the [Model] interface providing ID generation, timestamps, validation, and soft delete support.
// The [Repository] interface defines standard CRUD operations for database access.
package models
