package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/moodtunes/internal/capture"
	"github.com/desertthunder/moodtunes/internal/formatter"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/player"
	"github.com/desertthunder/moodtunes/internal/shared"
	"github.com/desertthunder/moodtunes/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Detect submits an image file or camera frame, prints the recommendations and optionally exports or plays them.
func (r *Runner) Detect(ctx context.Context, cmd *cli.Command) error {
	imagePath := cmd.String("image")
	useCamera := cmd.Bool("camera")
	format := cmd.String("export")

	if imagePath == "" && !useCamera {
		return fmt.Errorf("%w: either --image or --camera must be provided", shared.ErrMissingArgument)
	}
	if imagePath != "" && useCamera {
		return fmt.Errorf("%w: cannot specify both --image and --camera", shared.ErrInvalidArgument)
	}
	if format != "" && !slices.Contains(formatter.Formats, format) {
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

	session := capture.NewSession(r.newCamera(), capture.Options{
		Width:  r.config.Capture.Width,
		Height: r.config.Capture.Height,
		Logger: r.logger,
	})
	defer session.Close()

	var img *models.PendingImage
	if useCamera {
		if err := session.RequestCameraAccess(ctx); err != nil {
			return err
		}
		if img, err = session.CaptureFrame(ctx); err != nil {
			return err
		}
	} else {
		if img, err = session.SelectPath(imagePath); err != nil {
			return err
		}
	}

	r.logger.Info("submitting image", "name", img.Name, "type", img.MIMEType, "bytes", len(img.Data))

	recommender := tasks.NewRecommender(r.backend, tasks.RecommenderOpts{
		History: st.detections.Recorder(gate.CurrentID),
		Logger:  r.logger,
	})

	progress := make(chan tasks.ProgressUpdate, 8)
	done := r.reportProgress(progress)
	result, err := recommender.DetectAndRecommend(ctx, img, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	detection := result.Detection
	if detection == nil {
		detection = models.NewDetection(0, gate.CurrentID(), result.Label, result.Tracks)
	}
	export := formatter.NewDetectionExport(detection)

	if cmd.Bool("json") {
		if err := r.writeJSON(export, true); err != nil {
			return err
		}
	} else {
		r.printDetection(export)
	}

	if format != "" {
		files, err := formatter.WriteExport(export, format, cmd.String("output"))
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		for _, f := range files {
			r.logger.Info("exported", "file", f)
		}
	}

	if cmd.IsSet("play") {
		return r.play(ctx, result.Tracks, cmd.Int("play"))
	}
	return nil
}

// reportProgress logs updates until progress is closed.
func (r *Runner) reportProgress(progress <-chan tasks.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase, "step", fmt.Sprintf("%d/%d", update.Step, update.Total))
		}
	}()
	return done
}

func (r *Runner) printDetection(export *formatter.DetectionExport) {
	r.writePlainHeader(fmt.Sprintf("Emotion: %s", export.Emotion))
	if len(export.Tracks) == 0 {
		r.writePlain("No recommendations\n")
		return
	}

	for i, t := range export.Tracks {
		preview := ""
		if !t.HasPreview() {
			preview = " (no preview)"
		}
		r.writePlain("%2d. %s - %s%s\n", i, t.Name, t.Artist, preview)
	}
	if export.ID != "" {
		r.writePlainln("Saved as %s", export.ID)
	}
}

type waiter interface {
	Wait(ctx context.Context) error
}

// play starts the track at index and, for a local player process, waits until it finishes.
func (r *Runner) play(ctx context.Context, tracks models.TrackList, index int) error {
	out := r.newOutput()
	session := player.NewSession(out, r.logger)
	session.Replace(tracks)

	started := session.PlayAt(ctx, index)
	track, ok := session.Current()
	if !ok {
		return fmt.Errorf("%w: no tracks to play", shared.ErrInvalidArgument)
	}
	if !track.HasPreview() {
		return fmt.Errorf("%w: %q has no preview", shared.ErrInvalidArgument, track.Name)
	}
	if !started {
		return fmt.Errorf("failed to start playback of %q", track.Name)
	}

	cursor, _ := session.Cursor()
	r.writePlain("▶ %d. %s - %s\n", cursor, track.Name, track.Artist)

	if w, ok := out.(waiter); ok {
		defer session.Stop()
		return w.Wait(ctx)
	}
	return nil
}
