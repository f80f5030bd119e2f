// Package prediction defines the species prediction value type shared by
// the primary classifier and the vision fallback, with the dedup and
// ordering rules applied before persistence.
package prediction

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tphakala/speciesnet-go/internal/taxonomy"
)

// Prediction is one canonical species guess for an image.
type Prediction struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Merge deduplicates predictions by case-insensitive name, keeping the entry
// with the highest confidence on collision, and returns the result sorted by
// confidence descending.
func Merge(preds []Prediction) []Prediction {
	if len(preds) == 0 {
		return nil
	}

	uniq := make(map[string]Prediction, len(preds))
	for _, p := range preds {
		key := strings.ToLower(p.Name)
		if existing, ok := uniq[key]; !ok || p.Confidence > existing.Confidence {
			uniq[key] = p
		}
	}

	merged := make([]Prediction, 0, len(uniq))
	for _, p := range uniq {
		merged = append(merged, p)
	}
	slices.SortStableFunc(merged, func(a, b Prediction) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return merged
}

// ContainsGeneric reports whether any prediction in the set is the generic
// bird category. A generic entry marks the image as unresolved and keeps it
// in the retry workset.
func ContainsGeneric(preds []Prediction) bool {
	for _, p := range preds {
		if taxonomy.IsGeneric(p.Name) {
			return true
		}
	}
	return false
}

// RemoveGeneric returns the set without generic bird entries. The generic
// category is never persisted as an attribution.
func RemoveGeneric(preds []Prediction) []Prediction {
	var kept []Prediction
	for _, p := range preds {
		if !taxonomy.IsGeneric(p.Name) {
			kept = append(kept, p)
		}
	}
	return kept
}
