// model.go this code defines the data model for the application
package datastore

import "time"

// Image represents one camera-trap image acquired from a source camera.
// Images are created by an external ingest process and are read-only from
// this system's perspective.
type Image struct {
	ID       string    `gorm:"primaryKey"`
	ImageURL string    `gorm:"column:image_url"`
	TakenOn  time.Time `gorm:"index:idx_images_taken_on"`
}

// Attribution represents one persisted species judgment for an image, tied
// to the model version that produced it. At most one row may exist per
// (image, species, model version); re-processing upserts, never appends.
type Attribution struct {
	ID           uint   `gorm:"primaryKey"`
	ImageID      string `gorm:"uniqueIndex:idx_attributions_key;not null"`
	Species      string `gorm:"uniqueIndex:idx_attributions_key;not null"`
	ModelVersion string `gorm:"uniqueIndex:idx_attributions_key;not null"`
	Confidence   float64
	Extra        *string   `gorm:"type:text"` // free-form extension field
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}
