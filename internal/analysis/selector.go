package analysis

import (
	"github.com/tphakala/speciesnet-go/internal/datastore"
)

// SelectCandidates returns up to limit recently acquired images that have no
// attribution yet and a usable source URL, most recent first.
//
// It over-fetches by 2x so that a high proportion of already-attributed
// recent images does not require a second round trip in the common case. If
// fewer than limit remain after filtering it returns fewer, it never
// re-queries within one call.
func SelectCandidates(ds datastore.Interface, limit int) ([]datastore.Image, error) {
	images, err := ds.GetRecentImages(limit * 2)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(images))
	for _, img := range images {
		if img.ID != "" {
			ids = append(ids, img.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	attributed, err := ds.GetAttributedImageIDs(ids)
	if err != nil {
		return nil, err
	}

	var candidates []datastore.Image
	for _, img := range images {
		if _, done := attributed[img.ID]; done {
			continue
		}
		if img.ImageURL == "" {
			continue
		}
		candidates = append(candidates, img)
		if len(candidates) == limit {
			break
		}
	}
	return candidates, nil
}
