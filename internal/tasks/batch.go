package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodtunes/internal/capture"
	"github.com/desertthunder/moodtunes/internal/formatter"
	"github.com/desertthunder/moodtunes/internal/models"
	"github.com/desertthunder/moodtunes/internal/services"
	"github.com/desertthunder/moodtunes/internal/shared"
	"golang.org/x/time/rate"
)

// BatchOpts contains configuration for batch detection.
type BatchOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: moodtunes_batch_{epoch})
	NumWorkers int     // Concurrent workers (default: 2)
	RateLimit  float64 // Submissions per second (default: 2)
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Manifest        formatter.Manifest
	ManifestPath    string
	OutputDirectory string
}

type batchJob struct {
	source string
	name   string // export base name, unique within the run
	image  *models.PendingImage
}

// BatchDetector runs detect-and-recommend over many image files without touching interactive state.
type BatchDetector struct {
	backend services.DetectRecommender
	history HistoryRecorder
	logger  *log.Logger
}

// NewBatchDetector creates a [BatchDetector]. history may be nil.
func NewBatchDetector(backend services.DetectRecommender, history HistoryRecorder, logger *log.Logger) *BatchDetector {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BatchDetector{backend: backend, history: history, logger: logger}
}

// Run detects every image in paths concurrently with rate limiting and writes one export per image plus a manifest.
//
// Individual failures are recorded in the manifest and do not abort the run.
func (b *BatchDetector) Run(ctx context.Context, prog chan<- ProgressUpdate, paths []string, opts BatchOpts) (*BatchResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no images", shared.ErrMissingArgument)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("moodtunes_batch_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BatchResult{
		OutputDirectory: opts.OutputDir,
		Manifest: formatter.Manifest{
			Format:    opts.Format,
			CreatedAt: time.Now().UTC(),
			Total:     len(paths),
			Entries:   make([]formatter.ManifestEntry, 0, len(paths)),
		},
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan batchJob, len(paths))
	results := make(chan formatter.ManifestEntry, len(paths))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go b.worker(ctx, &wg, jobs, results, opts)
	}

	names := exportNames(paths)

	go func() {
		defer close(jobs)
		for i, path := range paths {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			img, err := readImage(path)
			if err != nil {
				results <- formatter.ManifestEntry{Source: path, Error: err.Error()}
				continue
			}

			sendProgress(prog, batchQueuedUpdate(i+1, len(paths), filepath.Base(path)))
			jobs <- batchJob{source: path, name: names[i], image: img}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for entry := range results {
		completed++
		result.Manifest.Entries = append(result.Manifest.Entries, entry)

		if entry.Error == "" {
			result.Manifest.Succeeded++
			sendProgress(prog, batchCompletedUpdate(completed, len(paths), filepath.Base(entry.Source), entry.Emotion, entry.Tracks))
		} else {
			result.Manifest.Failed++
			sendProgress(prog, batchFailedUpdate(completed, len(paths), filepath.Base(entry.Source), fmt.Errorf("%s", entry.Error)))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "batch_manifest.json")
	if err := formatter.WriteManifest(&result.Manifest, manifestPath); err != nil {
		return result, fmt.Errorf("batch completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (b *BatchDetector) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan batchJob, results chan<- formatter.ManifestEntry, opts BatchOpts) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			results <- formatter.ManifestEntry{Source: job.source, Error: ctx.Err().Error()}
			continue
		default:
		}

		results <- b.detectOne(ctx, job, opts)
	}
}

func (b *BatchDetector) detectOne(ctx context.Context, job batchJob, opts BatchOpts) formatter.ManifestEntry {
	entry := formatter.ManifestEntry{Source: job.source}

	label, err := b.backend.Detect(ctx, job.image)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.Emotion = label

	tracks, err := b.backend.Recommend(ctx, label)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.Tracks = tracks.Len()

	var detection *models.Detection
	if b.history != nil {
		if detection, err = b.history.RecordDetection(ctx, label, tracks); err != nil {
			b.logger.Warn("failed to record detection", "source", job.source, "error", err)
		}
	}
	if detection == nil {
		detection = models.NewDetection(0, "", label, tracks)
	}

	export := formatter.NewDetectionExport(detection)
	export.ID = job.name

	files, err := formatter.WriteExport(export, opts.Format, opts.OutputDir)
	if err != nil {
		entry.Error = fmt.Sprintf("export failed: %v", err)
		return entry
	}
	entry.Files = files
	return entry
}

func readImage(path string) (*models.PendingImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := capture.DetectImageType(path, data)
	if mimeType == "" {
		return nil, fmt.Errorf("%w: %s is not an image", shared.ErrInvalidInput, filepath.Base(path))
	}
	return models.NewPendingImage(data, mimeType, filepath.Base(path)), nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// exportNames maps each path to its file stem. Repeated stems, such as a/face.png and b/face.png,
// get a numeric suffix so one export never overwrites another.
func exportNames(paths []string) []string {
	names := make([]string, len(paths))
	used := make(map[string]bool, len(paths))
	for i, path := range paths {
		name := stem(path)
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", stem(path), n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}
