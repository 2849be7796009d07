package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/moodtunes/internal/formatter"
	"github.com/desertthunder/moodtunes/internal/shared"
	"github.com/desertthunder/moodtunes/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Batch detects every image argument and writes one export per image plus a manifest.
func (r *Runner) Batch(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one image path", shared.ErrMissingArgument)
	}

	format := cmd.String("format")
	if !slices.Contains(formatter.Formats, format) {
		return fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, format)
	}

	st, err := r.openStores()
	if err != nil {
		return err
	}
	defer st.Close()

	gate, err := r.restoreGate(ctx, st)
	if err != nil {
		return err
	}
	if err := gate.Require(r.config.Identity.Required); err != nil {
		return err
	}

	detector := tasks.NewBatchDetector(r.backend, st.detections.Recorder(gate.CurrentID), r.logger)

	progress := make(chan tasks.ProgressUpdate, len(paths)*2)
	done := r.reportProgress(progress)
	result, err := detector.Run(ctx, progress, paths, tasks.BatchOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	m := result.Manifest
	r.writePlainHeader("Batch complete")
	r.writePlain("Images: %d/%d detected\n", m.Succeeded, m.Total)
	if m.Failed > 0 {
		r.writePlain("Failed: %d\n", m.Failed)
		for _, e := range m.Entries {
			if e.Error != "" {
				r.writePlain("  ✗ %s: %s\n", e.Source, e.Error)
			}
		}
	}
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	return nil
}
