package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/moodtunes/internal/formatter"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList prints recent detections of the signed-in user.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStores()
	if err != nil {
		return err
	}
	defer st.Close()

	gate, err := r.requireGate(ctx, st)
	if err != nil {
		return err
	}

	criteria := map[string]any{
		"limit":   cmd.Int("limit"),
		"label":   cmd.String("emotion"),
		"user_id": gate.CurrentID(),
	}

	detections, err := st.detections.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		metadata := make([]formatter.DetectionMetadata, 0, len(detections))
		for _, d := range detections {
			metadata = append(metadata, formatter.NewDetectionExport(d).Metadata())
		}
		return r.writeJSON(metadata, true)
	}

	if len(detections) == 0 {
		return r.writePlain("No detections yet\n")
	}

	r.writePlainHeader(fmt.Sprintf("Detections (%d)", len(detections)))
	for _, d := range detections {
		tracks := d.Tracks()
		r.writePlain("%s  %s  %-10s %d tracks (%d playable)\n",
			d.ID(), d.CreatedAt().Format("2006-01-02 15:04"), d.Label(), tracks.Len(), tracks.Playable())
	}
	return nil
}

// HistoryShow prints one detection and its tracks.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	detection, err := r.findDetection(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	export := formatter.NewDetectionExport(detection)
	if cmd.Bool("json") {
		return r.writeJSON(export, true)
	}

	r.printDetection(export)
	return nil
}

// HistoryExport writes a stored detection in the requested format.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if !slices.Contains(formatter.Formats, format) {
		return fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, format)
	}

	detection, err := r.findDetection(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	files, err := formatter.WriteExport(formatter.NewDetectionExport(detection), format, cmd.String("output"))
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	r.writePlain("✓ Exported %s\n", detection.ID())
	for _, f := range files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

// Play plays a preview from a stored detection.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	detection, err := r.findDetection(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	return r.play(ctx, detection.Tracks(), cmd.Int("index"))
}

// findDetection loads a detection owned by the current user. Other users' detections are reported as not found.
func (r *Runner) findDetection(ctx context.Context, id string) (*models.Detection, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: detection id", shared.ErrMissingArgument)
	}

	st, err := r.openStores()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	gate, err := r.requireGate(ctx, st)
	if err != nil {
		return nil, err
	}

	detection, err := st.detections.Get(id)
	if err != nil {
		return nil, err
	}
	if detection.UserID() != gate.CurrentID() {
		return nil, fmt.Errorf("%w: %s", shared.ErrDetectionNotFound, id)
	}
	return detection, nil
}
