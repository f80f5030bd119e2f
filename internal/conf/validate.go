// validate.go - Settings validation for SpeciesNet-Go
package conf

import (
	"errors"
	"fmt"
)

// ValidateSettings checks a loaded Settings instance for values the pipeline
// cannot operate with.
func ValidateSettings(settings *Settings) error {
	if settings == nil {
		return errors.New("settings is nil")
	}

	var errs []error

	if settings.Classifier.Threshold < 0.0 || settings.Classifier.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("classifier threshold must be between 0.0 and 1.0, got %f", settings.Classifier.Threshold))
	}
	if settings.Classifier.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("classifier batch size must be greater than zero, got %d", settings.Classifier.BatchSize))
	}
	if settings.Classifier.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("classifier max retries must be at least 1, got %d", settings.Classifier.MaxRetries))
	}
	if settings.Classifier.ModelVersion == "" {
		errs = append(errs, errors.New("classifier model version must not be empty"))
	}
	if !settings.Datastore.SQLite.Enabled && !settings.Datastore.MySQL.Enabled {
		errs = append(errs, errors.New("no datastore enabled, enable either sqlite or mysql"))
	}
	if settings.Fallback.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("fallback max results must be greater than zero, got %d", settings.Fallback.MaxResults))
	}
	if settings.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch timeout must be greater than zero, got %d", settings.Fetch.Timeout))
	}

	return errors.Join(errs...)
}
