package analysis

import (
	"context"
	"fmt"
	"log/slog"
)

// RunContinuous repeats RunBatch until the candidate selector reports no
// remaining work, summing processed and attribution counts.
//
// The loop carries a configurable max-batches safety valve: if the
// datastore's existence-check and selection queries ever disagree (for
// example through read-replica lag) the selector could report the same
// unattributed images forever. Hitting the cap logs a warning and stops
// cleanly instead of spinning.
func (r *Runner) RunContinuous(ctx context.Context, batchSize int) Result {
	if batchSize <= 0 {
		batchSize = r.settings.Classifier.BatchSize
	}
	maxBatches := r.settings.Analysis.MaxBatches

	slog.Info("Continuous mode: processing all unattributed images", "batch_size", batchSize)

	totalProcessed := 0
	totalAttributions := 0
	batches := 0

	for {
		candidates, err := SelectCandidates(r.ds, batchSize)
		if err != nil {
			slog.Error("Failed to check for remaining work", "error", err)
			return Result{
				Success:             false,
				ImagesProcessed:     totalProcessed,
				AttributionsCreated: totalAttributions,
				BatchesProcessed:    batches,
				Error:               err.Error(),
				Message:             "Failed to check for remaining work",
			}
		}
		if len(candidates) == 0 {
			slog.Info("All images have been attributed")
			break
		}

		slog.Info("Starting batch", "batch", batches+1, "unattributed", len(candidates))
		result := r.RunBatch(ctx, batchSize)
		if result.Success {
			totalProcessed += result.ImagesProcessed
			totalAttributions += result.AttributionsCreated
		}
		batches++

		slog.Info("Progress", "images_processed", totalProcessed, "batches", batches)

		if maxBatches > 0 && batches >= maxBatches {
			slog.Warn("Reached continuous-mode batch cap, stopping", "max_batches", maxBatches)
			break
		}
		if ctx.Err() != nil {
			slog.Warn("Continuous run interrupted", "error", ctx.Err())
			break
		}

		sleepCtx(ctx, r.Pacing.Batch)
	}

	slog.Info("Continuous run complete", "images_processed", totalProcessed, "batches", batches)
	return Result{
		Success:             true,
		ImagesProcessed:     totalProcessed,
		AttributionsCreated: totalAttributions,
		BatchesProcessed:    batches,
		Message: fmt.Sprintf("Processed %d images in %d batches, created %d attributions",
			totalProcessed, batches, totalAttributions),
	}
}
