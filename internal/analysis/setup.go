package analysis

import (
	"time"

	"github.com/tphakala/speciesnet-go/internal/conf"
	"github.com/tphakala/speciesnet-go/internal/datastore"
	"github.com/tphakala/speciesnet-go/internal/fallback"
	"github.com/tphakala/speciesnet-go/internal/fetcher"
	"github.com/tphakala/speciesnet-go/internal/speciesnet"
)

// NewDefaultRunner wires a Runner with the production classifier, fetcher
// and, when a credential is configured, the vision fallback.
func NewDefaultRunner(settings *conf.Settings, ds datastore.Interface) *Runner {
	classifier := speciesnet.NewRunner(settings.Classifier)
	imageFetcher := fetcher.New(time.Duration(settings.Fetch.Timeout) * time.Second)

	var fallbackClassifier FallbackClassifier
	if settings.Fallback.APIKey != "" {
		fallbackClassifier = fallback.NewClient(fallback.Config{
			APIKey:     settings.Fallback.APIKey,
			Model:      settings.Fallback.Model,
			Endpoint:   settings.Fallback.Endpoint,
			MaxResults: settings.Fallback.MaxResults,
			RegionName: settings.Classifier.Location.Name,
			Threshold:  settings.Classifier.Threshold,
		})
	}

	return NewRunner(ds, classifier, imageFetcher, fallbackClassifier, settings)
}
