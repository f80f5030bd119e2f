// predictions.go: parsing and filtering of the classifier's predictions document
package speciesnet

import (
	"encoding/json"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/tphakala/speciesnet-go/internal/errors"
	"github.com/tphakala/speciesnet-go/internal/prediction"
	"github.com/tphakala/speciesnet-go/internal/taxonomy"
)

// PredictionsFileName is the name of the structured predictions document the
// classifier writes into its output directory.
const PredictionsFileName = "predictions.json"

// failureClassifier is the failure marker meaning the secondary
// classification head produced no usable output, suppressing alternates.
const failureClassifier = "CLASSIFIER"

// maxAlternates limits how many entries of the secondary classification head
// are considered per image.
const maxAlternates = 5

// Classifications holds the secondary classification head output. Scores are
// kept untyped, the classifier has been observed to emit non-numeric values
// which must not fail the batch.
type Classifications struct {
	Classes []string `json:"classes"`
	Scores  []any    `json:"scores"`
}

// Entry is one per-file prediction in the classifier output document.
type Entry struct {
	Filepath        string           `json:"filepath"`
	Prediction      string           `json:"prediction"`
	PredictionScore *float64         `json:"prediction_score"`
	Failures        []string         `json:"failures"`
	Classifications *Classifications `json:"classifications"`
}

// Document is the root of the predictions document.
type Document struct {
	Predictions []Entry `json:"predictions"`
}

// FilterEntry applies normalization, the blocklist, the confidence threshold
// and dedup rules to one classifier entry, returning the image's species
// predictions sorted by confidence descending.
func FilterEntry(e *Entry, threshold float64) []prediction.Prediction {
	var candidates []prediction.Prediction

	primary := taxonomy.Normalize(e.Prediction)
	var primaryScore float64
	if e.PredictionScore != nil {
		primaryScore = *e.PredictionScore
	}
	if !taxonomy.IsBlocked(primary) && primaryScore >= threshold {
		candidates = append(candidates, prediction.Prediction{Name: primary, Confidence: primaryScore})
	}

	if e.Classifications != nil && !slices.Contains(e.Failures, failureClassifier) {
		for i, class := range e.Classifications.Classes {
			if i >= maxAlternates {
				break
			}
			alt := taxonomy.Normalize(class)
			if taxonomy.IsBlocked(alt) {
				continue
			}
			var score float64
			if i < len(e.Classifications.Scores) {
				score = coerceScore(e.Classifications.Scores[i])
			}
			if score >= threshold && alt != primary {
				candidates = append(candidates, prediction.Prediction{Name: alt, Confidence: score})
			}
		}
	}

	return prediction.Merge(candidates)
}

// coerceScore converts a raw alternate score to float64. Non-numeric scores
// coerce to 0.0 rather than failing the batch.
func coerceScore(v any) float64 {
	switch s := v.(type) {
	case float64:
		return s
	case json.Number:
		f, err := s.Float64()
		if err != nil {
			return 0.0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0.0
		}
		return f
	default:
		return 0.0
	}
}

// ParseFile reads a predictions document and returns the filtered species
// predictions keyed by image identifier. Entries whose file path is not in
// pathToImageID belong to images already resolved in a prior round and are
// skipped.
func ParseFile(path string, pathToImageID map[string]string, threshold float64) (map[string][]prediction.Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Newf("reading predictions document: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Component("speciesnet").
			Build()
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Newf("parsing predictions document: %w", err).
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Context("size", len(data)).
			Component("speciesnet").
			Build()
	}

	perImage := make(map[string][]prediction.Prediction)
	for i := range doc.Predictions {
		entry := &doc.Predictions[i]
		imageID, ok := pathToImageID[entry.Filepath]
		if !ok {
			slog.Debug("Skipping prediction for unrecognized path", "filepath", entry.Filepath)
			continue
		}
		if preds := FilterEntry(entry, threshold); len(preds) > 0 {
			perImage[imageID] = preds
		}
	}

	return perImage, nil
}
