// Package speciesnet invokes the SpeciesNet batch classifier as an external
// process and parses its predictions document.
package speciesnet

import (
	"context"
	"log/slog"
	"os"
	"os/exec"

	"github.com/tphakala/speciesnet-go/internal/conf"
	"github.com/tphakala/speciesnet-go/internal/errors"
)

// Executor abstracts command execution for the runner.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Runner drives the classifier in folder mode, geofenced to the configured
// region.
type Runner struct {
	settings conf.ClassifierSettings
	exec     Executor
}

// NewRunner constructs a Runner for the configured classifier binary.
func NewRunner(settings conf.ClassifierSettings) *Runner {
	return NewRunnerWithExecutor(settings, commandExecutor{})
}

// NewRunnerWithExecutor allows injecting a custom executor for testing.
func NewRunnerWithExecutor(settings conf.ClassifierSettings, exec Executor) *Runner {
	if exec == nil {
		exec = commandExecutor{}
	}
	return &Runner{settings: settings, exec: exec}
}

// ModelVersion returns the model version tag recorded on attributions
// produced by this classifier.
func (r *Runner) ModelVersion() string {
	return r.settings.ModelVersion
}

// Classify runs the classifier over every image in imageDir and writes the
// predictions document to outputPath. A stale document from a prior attempt
// within the batch is removed first, the classifier refuses to overwrite or
// resume. A non-zero exit or a missing output document is returned as an
// error, consumed by the caller's retry budget.
func (r *Runner) Classify(ctx context.Context, imageDir, outputPath string) error {
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return errors.Newf("removing stale predictions document: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", outputPath).
			Component("speciesnet").
			Build()
	}

	args := []string{
		"-m", r.settings.Module,
		"--folders", imageDir,
		"--predictions_json", outputPath,
		"--country", r.settings.Location.Country,
	}
	if r.settings.Location.Region != "" {
		args = append(args, "--admin1_region", r.settings.Location.Region)
	}

	slog.Info("Running SpeciesNet classifier",
		"image_dir", imageDir,
		"country", r.settings.Location.Country,
		"region", r.settings.Location.Region)

	output, err := r.exec.Run(ctx, r.settings.Binary, args)
	if err != nil {
		return errors.Newf("classifier invocation failed: %w", err).
			Category(errors.CategoryCommandExecution).
			Context("binary", r.settings.Binary).
			Context("module", r.settings.Module).
			Context("output", truncateOutput(output)).
			Component("speciesnet").
			Build()
	}

	if _, err := os.Stat(outputPath); err != nil {
		return errors.Newf("classifier exited zero but produced no predictions document").
			Category(errors.CategoryCommandExecution).
			Context("path", outputPath).
			Component("speciesnet").
			Build()
	}

	return nil
}

// truncateOutput limits captured process output attached to errors.
func truncateOutput(output []byte) string {
	const limit = 2048
	if len(output) > limit {
		return string(output[:limit]) + "..."
	}
	return string(output)
}
