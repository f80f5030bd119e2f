// Package analysis implements the batch retry-and-reconciliation control
// loop: select unattributed images, download them to a scratch workspace,
// drive the primary classifier through bounded retries on the still-generic
// subset, fall back to the vision classifier for stragglers and persist
// attributions incrementally.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/tphakala/speciesnet-go/internal/conf"
	"github.com/tphakala/speciesnet-go/internal/datastore"
	"github.com/tphakala/speciesnet-go/internal/prediction"
	"github.com/tphakala/speciesnet-go/internal/speciesnet"
)

// Classifier runs the primary classifier over a workspace directory, writing
// a predictions document to outputPath.
type Classifier interface {
	Classify(ctx context.Context, imageDir, outputPath string) error
	ModelVersion() string
}

// ImageFetcher downloads one image to a local file.
type ImageFetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
}

// FallbackClassifier identifies species from an image URL once the primary
// classifier's retry budget is exhausted.
type FallbackClassifier interface {
	Enabled() bool
	Identify(ctx context.Context, imageURL string) ([]prediction.Prediction, error)
}

// Pacing groups the defensive delays between external calls. They protect
// the image source and the fallback service from bursts, they are not
// backpressure signals.
type Pacing struct {
	Download time.Duration // between image downloads
	Upsert   time.Duration // between attribution upserts
	Retry    time.Duration // before a classifier retry round
	Fallback time.Duration // between fallback calls
	Batch    time.Duration // between continuous-mode batches
}

// DefaultPacing returns the production pacing delays.
func DefaultPacing() Pacing {
	return Pacing{
		Download: 100 * time.Millisecond,
		Upsert:   100 * time.Millisecond,
		Retry:    500 * time.Millisecond,
		Fallback: 1 * time.Second,
		Batch:    2 * time.Second,
	}
}

// Runner executes batch attribution runs against a datastore.
type Runner struct {
	ds         datastore.Interface
	classifier Classifier
	fetcher    ImageFetcher
	fallback   FallbackClassifier
	settings   *conf.Settings

	// Pacing may be overridden before the first run, tests set zero delays.
	Pacing Pacing
}

// NewRunner constructs a Runner with production pacing. fallback may be nil
// when no fallback credential is configured.
func NewRunner(ds datastore.Interface, classifier Classifier, fetcher ImageFetcher, fallback FallbackClassifier, settings *conf.Settings) *Runner {
	return &Runner{
		ds:         ds,
		classifier: classifier,
		fetcher:    fetcher,
		fallback:   fallback,
		settings:   settings,
		Pacing:     DefaultPacing(),
	}
}

// RunBatch resolves species attributions for one bounded batch of candidate
// images. batchSize <= 0 uses the configured default. Single-image failures
// are isolated and logged; the only hard failure is a batch where no image
// could be downloaded.
func (r *Runner) RunBatch(ctx context.Context, batchSize int) Result {
	if batchSize <= 0 {
		batchSize = r.settings.Classifier.BatchSize
	}
	batchID := uuid.NewString()
	log := slog.With("batch_id", batchID)

	log.Info("Starting bird attribution batch", "batch_size", batchSize)

	candidates, err := SelectCandidates(r.ds, batchSize)
	if err != nil {
		log.Error("Failed to select candidate images", "error", err)
		return Result{
			Success: false,
			Error:   err.Error(),
			Message: "Failed to select candidate images",
		}
	}
	if len(candidates) == 0 {
		log.Info("No images to attribute")
		return Result{
			Success: true,
			Message: "No images to attribute",
		}
	}
	log.Info("Found images to classify", "count", len(candidates))

	workDir, err := os.MkdirTemp("", "speciesnet-batch-*")
	if err != nil {
		log.Error("Failed to create batch workspace", "error", err)
		return Result{
			Success: false,
			Error:   err.Error(),
			Message: "Failed to create batch workspace",
		}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn("Failed to remove batch workspace", "dir", workDir, "error", err)
		}
	}()

	imgDir := filepath.Join(workDir, "images")
	outDir := filepath.Join(workDir, "results")
	for _, dir := range []string{imgDir, outDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("Failed to create workspace directory", "dir", dir, "error", err)
			return Result{
				Success: false,
				Error:   err.Error(),
				Message: "Failed to create batch workspace",
			}
		}
	}
	outputPath := filepath.Join(outDir, speciesnet.PredictionsFileName)

	// DOWNLOAD: failures drop the image from the workset, never the batch
	pathToImageID := make(map[string]string, len(candidates))
	urlByID := make(map[string]string, len(candidates))
	for i, img := range candidates {
		urlByID[img.ID] = img.ImageURL
		dest := filepath.Join(imgDir, img.ID+".jpg")
		if err := r.fetcher.Fetch(ctx, img.ImageURL, dest); err != nil {
			log.Warn("Skipping image, download failed", "image_id", img.ID, "error", err)
		} else {
			pathToImageID[dest] = img.ID
		}
		if i < len(candidates)-1 {
			sleepCtx(ctx, r.Pacing.Download)
		}
	}

	if len(pathToImageID) == 0 {
		log.Info("Nothing downloaded; exiting batch")
		return Result{
			Success: false,
			Message: "Failed to download images",
		}
	}

	maxRetries := r.settings.Classifier.MaxRetries
	threshold := r.settings.Classifier.Threshold

	// workset is the per-round path→identifier snapshot; it shrinks to the
	// generic-left subset after each successful round
	workset := pathToImageID
	attributions := 0

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Info("Classifier run attempt", "attempt", attempt, "max_retries", maxRetries, "workset", len(workset))

		if err := r.classifier.Classify(ctx, imgDir, outputPath); err != nil {
			// consumed by the retry budget, workset unchanged
			log.Warn("Classifier attempt failed", "attempt", attempt, "error", err)
			continue
		}

		perImage, err := speciesnet.ParseFile(outputPath, workset, threshold)
		if err != nil {
			log.Warn("No usable predictions document", "attempt", attempt, "error", err)
			continue
		}

		// An image is generic-left when its filtered set still contains the
		// generic bird entry, checked before that entry is removed for upsert.
		genericLeft := make(map[string]struct{})
		for imageID, preds := range perImage {
			if prediction.ContainsGeneric(preds) {
				genericLeft[imageID] = struct{}{}
			}
		}

		// Partial results are persisted every round, not withheld until
		// final resolution.
		attributions += r.upsertRound(ctx, log, candidates, perImage)

		if len(genericLeft) == 0 {
			workset = nil
			break
		}

		next := make(map[string]string, len(genericLeft))
		for path, imageID := range workset {
			if _, generic := genericLeft[imageID]; generic {
				next[path] = imageID
			}
		}
		workset = next

		if attempt < maxRetries {
			log.Info("Images returned generic result, retrying", "count", len(genericLeft))
			sleepCtx(ctx, r.Pacing.Retry)
		}
	}

	if len(workset) > 0 {
		attributions += r.runFallback(ctx, log, workset, urlByID)
	}

	log.Info("Batch complete", "images_processed", len(candidates), "attributions_created", attributions)
	return Result{
		Success:             true,
		ImagesProcessed:     len(candidates),
		AttributionsCreated: attributions,
		Message:             fmt.Sprintf("Processed %d images, created %d attributions", len(candidates), attributions),
	}
}

// upsertRound removes generic entries and persists the remaining predictions
// for every candidate image, returning the number of rows written. Upsert
// failures are isolated per image.
func (r *Runner) upsertRound(ctx context.Context, log *slog.Logger, candidates []datastore.Image, perImage map[string][]prediction.Prediction) int {
	total := 0
	for i, img := range candidates {
		preds := prediction.RemoveGeneric(perImage[img.ID])
		if len(preds) > 0 {
			for _, p := range preds {
				log.Info("Prediction", "image_id", img.ID, "species", p.Name, "confidence", p.Confidence)
			}
		} else {
			log.Info("No species identified above threshold", "image_id", img.ID)
		}

		saved, err := r.ds.UpsertAttributions(img.ID, r.classifier.ModelVersion(), preds)
		if err != nil {
			log.Error("Failed to save attributions", "image_id", img.ID, "error", err)
		} else if saved > 0 {
			total += saved
			log.Info("Saved species attributions", "image_id", img.ID, "count", saved)
		}

		if i < len(candidates)-1 {
			sleepCtx(ctx, r.Pacing.Upsert)
		}
	}
	return total
}

// runFallback consults the vision-language classifier for every image that
// stayed generic through all retries, upserting accepted results
// immediately. A missing fallback credential no-ops per image.
func (r *Runner) runFallback(ctx context.Context, log *slog.Logger, workset map[string]string, urlByID map[string]string) int {
	imageIDs := make([]string, 0, len(workset))
	for _, imageID := range workset {
		imageIDs = append(imageIDs, imageID)
	}
	slices.Sort(imageIDs)

	log.Info("Images still generic after retries, using fallback classifier", "count", len(imageIDs))

	total := 0
	for i, imageID := range imageIDs {
		imageURL := urlByID[imageID]
		if imageURL == "" {
			log.Warn("No source URL for fallback", "image_id", imageID)
			continue
		}

		if r.fallback == nil || !r.fallback.Enabled() {
			log.Warn("Fallback classifier not configured, skipping image", "image_id", imageID)
		} else {
			log.Info("Fallback classification", "image_id", imageID)
			preds, err := r.fallback.Identify(ctx, imageURL)
			switch {
			case err != nil:
				log.Error("Fallback classification failed", "image_id", imageID, "error", err)
			case len(preds) == 0:
				log.Info("No fallback predictions", "image_id", imageID)
			default:
				saved, err := r.ds.UpsertAttributions(imageID, r.classifier.ModelVersion(), preds)
				if err != nil {
					log.Error("Failed to save fallback attributions", "image_id", imageID, "error", err)
				} else {
					total += saved
					log.Info("Saved fallback attributions", "image_id", imageID, "count", saved)
				}
			}
		}

		if i < len(imageIDs)-1 {
			sleepCtx(ctx, r.Pacing.Fallback)
		}
	}
	return total
}

// sleepCtx pauses for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
