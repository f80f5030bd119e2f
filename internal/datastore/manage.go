package datastore

import (
	"log"
	"log/slog"
	"os"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowQueryThreshold defines the duration after which a query is
// considered slow and logged at warn level.
const DefaultSlowQueryThreshold = 1 * time.Second

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger(debug bool) gormlogger.Interface {
	logLevel := gormlogger.Warn
	if debug {
		logLevel = gormlogger.Info
	}
	return gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             DefaultSlowQueryThreshold,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// performAutoMigration runs GORM auto-migration for the attribution schema.
// The images table is owned by the external ingest process; migrating it here
// keeps standalone deployments working without requiring that process to
// have run first.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Image{}, &Attribution{}); err != nil {
		slog.Error("Failed to auto-migrate database schema",
			"db_type", dbType,
			"connection", connectionInfo,
			"error", err)
		return err
	}

	if debug {
		slog.Debug("Database schema migrated", "db_type", dbType, "connection", connectionInfo)
	}
	return nil
}
