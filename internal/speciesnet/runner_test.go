package speciesnet

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/speciesnet-go/internal/conf"
)

// fakeExecutor records the invocation and optionally writes the predictions
// document the way a successful classifier run would.
type fakeExecutor struct {
	binary      string
	args        []string
	output      []byte
	err         error
	writeDoc    bool
	invocations int
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	f.binary = binary
	f.args = args
	f.invocations++
	if f.writeDoc {
		for i, arg := range args {
			if arg == "--predictions_json" && i+1 < len(args) {
				if err := os.WriteFile(args[i+1], []byte(`{"predictions":[]}`), 0o644); err != nil {
					return nil, err
				}
			}
		}
	}
	return f.output, f.err
}

func testClassifierSettings() conf.ClassifierSettings {
	return conf.ClassifierSettings{
		Binary:       "python",
		Module:       "speciesnet.scripts.run_model",
		ModelVersion: "speciesnet-ensemble",
		Threshold:    0.30,
		Location: conf.LocationSettings{
			Country: "USA",
			Region:  "NY",
		},
	}
}

func TestClassifyBuildsArguments(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{writeDoc: true}
	runner := NewRunnerWithExecutor(testClassifierSettings(), exec)

	dir := t.TempDir()
	outputPath := filepath.Join(dir, PredictionsFileName)

	require.NoError(t, runner.Classify(context.Background(), dir, outputPath))

	assert.Equal(t, "python", exec.binary)
	assert.Equal(t, []string{
		"-m", "speciesnet.scripts.run_model",
		"--folders", dir,
		"--predictions_json", outputPath,
		"--country", "USA",
		"--admin1_region", "NY",
	}, exec.args)
}

func TestClassifyOmitsRegionWhenEmpty(t *testing.T) {
	t.Parallel()

	settings := testClassifierSettings()
	settings.Location.Region = ""

	exec := &fakeExecutor{writeDoc: true}
	runner := NewRunnerWithExecutor(settings, exec)

	dir := t.TempDir()
	require.NoError(t, runner.Classify(context.Background(), dir, filepath.Join(dir, PredictionsFileName)))

	assert.NotContains(t, exec.args, "--admin1_region")
}

func TestClassifyRemovesStaleDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outputPath := filepath.Join(dir, PredictionsFileName)
	require.NoError(t, os.WriteFile(outputPath, []byte("stale"), 0o644))

	// The executor does not write a new document, so a successful removal of
	// the stale one must surface as a missing-output error.
	exec := &fakeExecutor{}
	runner := NewRunnerWithExecutor(testClassifierSettings(), exec)

	err := runner.Classify(context.Background(), dir, outputPath)
	require.Error(t, err)
	assert.Equal(t, 1, exec.invocations)
	_, statErr := os.Stat(outputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestClassifyInvocationFailure(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{err: errors.New("exit status 1"), output: []byte("traceback")}
	runner := NewRunnerWithExecutor(testClassifierSettings(), exec)

	dir := t.TempDir()
	err := runner.Classify(context.Background(), dir, filepath.Join(dir, PredictionsFileName))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classifier invocation failed")
}

func TestClassifyMissingOutputDocument(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	runner := NewRunnerWithExecutor(testClassifierSettings(), exec)

	dir := t.TempDir()
	err := runner.Classify(context.Background(), dir, filepath.Join(dir, PredictionsFileName))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no predictions document")
}

func TestModelVersion(t *testing.T) {
	t.Parallel()

	runner := NewRunner(testClassifierSettings())
	assert.Equal(t, "speciesnet-ensemble", runner.ModelVersion())
}

func TestTruncateOutput(t *testing.T) {
	t.Parallel()

	short := []byte("short output")
	assert.Equal(t, "short output", truncateOutput(short))

	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	got := truncateOutput(long)
	assert.Len(t, got, 2048+len("..."))
}
