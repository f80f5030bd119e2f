// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"

	"github.com/tphakala/speciesnet-go/internal/conf"
	"github.com/tphakala/speciesnet-go/internal/errors"
	"github.com/tphakala/speciesnet-go/internal/prediction"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Interface abstracts the underlying database implementation and defines the
// operations the attribution pipeline needs.
type Interface interface {
	Open() error
	Close() error
	GetRecentImages(limit int) ([]Image, error)
	GetAttributedImageIDs(imageIDs []string) (map[string]struct{}, error)
	UpsertAttributions(imageID, modelVersion string, preds []prediction.Prediction) (int, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new DataStore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Datastore.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Datastore.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// GetRecentImages retrieves up to limit images ordered by acquisition time
// descending.
func (ds *DataStore) GetRecentImages(limit int) ([]Image, error) {
	var images []Image
	if err := ds.DB.Order("taken_on DESC").Limit(limit).Find(&images).Error; err != nil {
		return nil, errors.Newf("getting recent images: %w", err).
			Category(errors.CategoryDatabase).
			Context("limit", limit).
			Component("datastore").
			Build()
	}
	return images, nil
}

// GetAttributedImageIDs returns the subset of imageIDs that already have at
// least one attribution row.
func (ds *DataStore) GetAttributedImageIDs(imageIDs []string) (map[string]struct{}, error) {
	attributed := make(map[string]struct{})
	if len(imageIDs) == 0 {
		return attributed, nil
	}

	var ids []string
	err := ds.DB.Model(&Attribution{}).
		Distinct("image_id").
		Where("image_id IN ?", imageIDs).
		Pluck("image_id", &ids).Error
	if err != nil {
		return nil, errors.Newf("getting attributed image ids: %w", err).
			Category(errors.CategoryDatabase).
			Context("candidate_count", len(imageIDs)).
			Component("datastore").
			Build()
	}

	for _, id := range ids {
		attributed[id] = struct{}{}
	}
	return attributed, nil
}

// UpsertAttributions writes one attribution row per prediction for the given
// image, keyed on (image id, species, model version). On conflict the stored
// confidence is overwritten with the latest value, a re-run with the same
// model version supersedes prior rows for that exact key. Returns the number
// of rows written; an empty prediction set is a no-op.
func (ds *DataStore) UpsertAttributions(imageID, modelVersion string, preds []prediction.Prediction) (int, error) {
	if len(preds) == 0 {
		return 0, nil
	}

	rows := make([]Attribution, 0, len(preds))
	for _, p := range preds {
		rows = append(rows, Attribution{
			ImageID:      imageID,
			Species:      p.Name,
			ModelVersion: modelVersion,
			Confidence:   p.Confidence,
		})
	}

	err := ds.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "image_id"},
			{Name: "species"},
			{Name: "model_version"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"confidence", "extra", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return 0, errors.Newf("upserting attributions: %w", err).
			Category(errors.CategoryDatabase).
			Context("image_id", imageID).
			Context("model_version", modelVersion).
			Context("rows", len(rows)).
			Component("datastore").
			Build()
	}

	return len(rows), nil
}

// Close closes the underlying database connection.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("getting underlying database handle: %w", err)
	}
	return sqlDB.Close()
}
