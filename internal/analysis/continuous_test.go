package analysis

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunContinuousDrainsAllBatches(t *testing.T) {
	store := newFakeStore(testImage("img-1"), testImage("img-2"), testImage("img-3"))
	classifier := &fakeClassifier{rounds: []classifierRound{
		{preds: map[string][]scored{
			"img-1": {{name: "blue_jay", score: 0.9}},
			"img-2": {{name: "northern_cardinal", score: 0.8}},
			"img-3": {{name: "mourning_dove", score: 0.7}},
		}},
	}}

	runner := newTestRunner(store, classifier, &fakeFetcher{}, nil)
	result := runner.RunContinuous(context.Background(), 2)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.ImagesProcessed)
	assert.Equal(t, 3, result.AttributionsCreated)
	assert.Equal(t, 2, result.BatchesProcessed)
	assert.Contains(t, result.Message, "2 batches")
}

func TestRunContinuousNoWork(t *testing.T) {
	runner := newTestRunner(newFakeStore(), &fakeClassifier{}, &fakeFetcher{}, nil)
	result := runner.RunContinuous(context.Background(), 10)

	assert.True(t, result.Success)
	assert.Zero(t, result.BatchesProcessed)
	assert.Zero(t, result.ImagesProcessed)
}

func TestRunContinuousSelectorError(t *testing.T) {
	store := newFakeStore(testImage("img-1"))
	store.recentErr = fmt.Errorf("connection refused")

	runner := newTestRunner(store, &fakeClassifier{}, &fakeFetcher{}, nil)
	result := runner.RunContinuous(context.Background(), 10)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "connection refused")
}

func TestRunContinuousBatchCap(t *testing.T) {
	// neverAttribute simulates a datastore whose existence check lags its
	// writes; without the cap the loop would spin forever.
	store := newFakeStore(testImage("img-1"))
	store.neverAttribute = true
	classifier := &fakeClassifier{rounds: []classifierRound{
		{preds: map[string][]scored{"img-1": {{name: "blue_jay", score: 0.9}}}},
	}}

	runner := newTestRunner(store, classifier, &fakeFetcher{}, nil)
	runner.settings.Analysis.MaxBatches = 3
	result := runner.RunContinuous(context.Background(), 10)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.BatchesProcessed)
}

func TestRunContinuousContextCancelled(t *testing.T) {
	store := newFakeStore(testImage("img-1"))
	store.neverAttribute = true
	classifier := &fakeClassifier{rounds: []classifierRound{
		{preds: map[string][]scored{"img-1": {{name: "blue_jay", score: 0.9}}}},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newTestRunner(store, classifier, &fakeFetcher{}, nil)
	result := runner.RunContinuous(ctx, 10)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.BatchesProcessed, "stops after the in-flight batch")
	require.NotZero(t, result.ImagesProcessed)
}
