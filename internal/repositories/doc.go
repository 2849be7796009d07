// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [UserRepository] : Signed-in identities keyed by provider subject, with the stored OAuth token
//   - [DetectionRepository] : Detection history, one row per detected emotion with its tracks as JSON
//
// [DetectionRecorder] adapts [DetectionRepository] to the history hook of the recommender.
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #42, detection #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
