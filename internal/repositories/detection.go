package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/shared"
)

// DetectionRepository implements [models.Repository] for [models.Detection] history.
//
// Tracks are stored as a JSON array in the tracks column.
type DetectionRepository struct {
	db *sql.DB
}

// NewDetectionRepository creates a new [DetectionRepository] with the given database connection
func NewDetectionRepository(db *sql.DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

const detectionColumns = `id, sequence, user_id, label, tracks, created_at, updated_at, deleted_at`

// Create inserts a detection with generated ID and sequence
func (r *DetectionRepository) Create(d *models.Detection) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tracks, err := json.Marshal(nonNil(d.Tracks()))
	if err != nil {
		return fmt.Errorf("failed to encode tracks: %w", err)
	}

	sequence, err := NextSequence(r.db, "detections")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	d.SetID(id)
	d.SetSequence(sequence)

	query := `
		INSERT INTO detections (id, sequence, user_id, label, tracks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, nullString(d.UserID()), d.Label(), string(tracks), d.CreatedAt(), d.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}

	return nil
}

// Get retrieves a detection by ID, excluding soft-deleted rows
func (r *DetectionRepository) Get(id string) (*models.Detection, error) {
	query := `SELECT ` + detectionColumns + ` FROM detections WHERE id = ? AND deleted_at IS NULL`

	d, err := scanDetection(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrDetectionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query detection: %w", err)
	}
	return d, nil
}

// Update is not supported; detections are immutable history entries.
func (r *DetectionRepository) Update(d *models.Detection) error {
	return fmt.Errorf("%w: detections are immutable", shared.ErrNotImplemented)
}

// Delete soft-deletes a detection by ID
func (r *DetectionRepository) Delete(id string) error {
	query := `
		UPDATE detections
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete detection: %w", err)
	}

	return expectRow(result, shared.ErrDetectionNotFound, id)
}

// List retrieves detections newest first.
//
// Supported criteria: "user_id" (string), "label" (string), "limit" (int).
// A present "user_id" matches exactly, so "" selects detections recorded while signed out.
func (r *DetectionRepository) List(criteria map[string]any) ([]*models.Detection, error) {
	query := `SELECT ` + detectionColumns + ` FROM detections WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok {
		if userID == "" {
			query += " AND user_id IS NULL"
		} else {
			query += " AND user_id = ?"
			args = append(args, userID)
		}
	}
	if label, ok := criteria["label"].(string); ok && label != "" {
		query += " AND label = ? COLLATE NOCASE"
		args = append(args, label)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []*models.Detection
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return detections, nil
}

// Recorder returns a history recorder that attributes detections to the user returned by owner.
func (r *DetectionRepository) Recorder(owner func() string) *DetectionRecorder {
	return &DetectionRecorder{repo: r, owner: owner}
}

// DetectionRecorder stores completed detections for the current user.
type DetectionRecorder struct {
	repo  *DetectionRepository
	owner func() string
}

func (d *DetectionRecorder) RecordDetection(ctx context.Context, label string, tracks models.TrackList) (*models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var userID string
	if d.owner != nil {
		userID = d.owner()
	}

	detection := models.NewDetection(0, userID, label, tracks)
	if err := d.repo.Create(detection); err != nil {
		return nil, err
	}
	return detection, nil
}

func scanDetection(row rowScanner) (*models.Detection, error) {
	var (
		id        string
		sequence  int
		userID    sql.NullString
		label     string
		tracksRaw string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &userID, &label, &tracksRaw, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	var tracks models.TrackList
	if err := json.Unmarshal([]byte(tracksRaw), &tracks); err != nil {
		return nil, fmt.Errorf("failed to decode tracks for %s: %w", id, err)
	}

	d := models.NewDetection(sequence, userID.String, label, tracks)
	d.SetID(id)
	d.SetCreatedAt(createdAt)
	d.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		d.SetDeletedAt(&deletedAt.Time)
	}

	return d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(tracks models.TrackList) models.TrackList {
	if tracks == nil {
		return models.TrackList{}
	}
	return tracks
}
