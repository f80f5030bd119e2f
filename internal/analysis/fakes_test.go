package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tphakala/speciesnet-go/internal/datastore"
	"github.com/tphakala/speciesnet-go/internal/prediction"
	"github.com/tphakala/speciesnet-go/internal/speciesnet"
)

// fakeStore is an in-memory datastore.Interface. Upserted image IDs become
// attributed, so successive SelectCandidates calls see shrinking work unless
// neverAttribute simulates a lagging existence check.
type fakeStore struct {
	mu             sync.Mutex
	images         []datastore.Image
	attributed     map[string]struct{}
	upserts        []upsertCall
	recentErr      error
	attributedErr  error
	upsertErr      error
	neverAttribute bool
	recentCalls    []int
}

type upsertCall struct {
	imageID      string
	modelVersion string
	preds        []prediction.Prediction
}

func newFakeStore(images ...datastore.Image) *fakeStore {
	return &fakeStore{
		images:     images,
		attributed: make(map[string]struct{}),
	}
}

func (s *fakeStore) Open() error  { return nil }
func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) GetRecentImages(limit int) ([]datastore.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentCalls = append(s.recentCalls, limit)
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	if limit > len(s.images) {
		limit = len(s.images)
	}
	out := make([]datastore.Image, limit)
	copy(out, s.images[:limit])
	return out, nil
}

func (s *fakeStore) GetAttributedImageIDs(imageIDs []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attributedErr != nil {
		return nil, s.attributedErr
	}
	out := make(map[string]struct{})
	for _, id := range imageIDs {
		if _, ok := s.attributed[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertAttributions(imageID, modelVersion string, preds []prediction.Prediction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	if len(preds) == 0 {
		return 0, nil
	}
	s.upserts = append(s.upserts, upsertCall{imageID: imageID, modelVersion: modelVersion, preds: preds})
	if !s.neverAttribute {
		s.attributed[imageID] = struct{}{}
	}
	return len(preds), nil
}

func (s *fakeStore) upsertsFor(imageID string) []upsertCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []upsertCall
	for _, u := range s.upserts {
		if u.imageID == imageID {
			out = append(out, u)
		}
	}
	return out
}

// scored is one species guess the fake classifier reports for an image. The
// first entry of a slice becomes the primary prediction, the rest become
// alternates.
type scored struct {
	name  string
	score float64
}

// classifierRound scripts one Classify invocation, keyed by image ID.
type classifierRound struct {
	err   error
	preds map[string][]scored
}

// fakeClassifier consumes one scripted round per Classify call, writing a
// predictions document for every image file present in the workspace. When
// calls outrun the script the last round repeats.
type fakeClassifier struct {
	rounds []classifierRound
	calls  int
}

func (f *fakeClassifier) ModelVersion() string { return "speciesnet-ensemble" }

func (f *fakeClassifier) Classify(_ context.Context, imageDir, outputPath string) error {
	if len(f.rounds) == 0 {
		return fmt.Errorf("no scripted rounds")
	}
	idx := f.calls
	f.calls++
	if idx >= len(f.rounds) {
		idx = len(f.rounds) - 1
	}
	round := f.rounds[idx]
	if round.err != nil {
		return round.err
	}

	entries, err := os.ReadDir(imageDir)
	if err != nil {
		return err
	}

	var doc speciesnet.Document
	for _, ent := range entries {
		imageID := strings.TrimSuffix(ent.Name(), ".jpg")
		specs, ok := round.preds[imageID]
		if !ok {
			continue
		}
		entry := speciesnet.Entry{
			Filepath:        filepath.Join(imageDir, ent.Name()),
			Prediction:      specs[0].name,
			PredictionScore: &specs[0].score,
		}
		if len(specs) > 1 {
			cls := &speciesnet.Classifications{}
			for _, alt := range specs[1:] {
				cls.Classes = append(cls.Classes, alt.name)
				cls.Scores = append(cls.Scores, alt.score)
			}
			entry.Classifications = cls
		}
		doc.Predictions = append(doc.Predictions, entry)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// fakeFetcher writes a placeholder file unless the URL is scripted to fail.
type fakeFetcher struct {
	failFor map[string]bool
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url, destPath string) error {
	if f.failFor[url] {
		return fmt.Errorf("download failed: %s", url)
	}
	f.fetched = append(f.fetched, url)
	return os.WriteFile(destPath, []byte("img"), 0o644)
}

// fakeFallback returns scripted predictions per image URL.
type fakeFallback struct {
	enabled bool
	results map[string][]prediction.Prediction
	err     error
	calls   []string
}

func (f *fakeFallback) Enabled() bool { return f.enabled }

func (f *fakeFallback) Identify(_ context.Context, imageURL string) ([]prediction.Prediction, error) {
	f.calls = append(f.calls, imageURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[imageURL], nil
}
