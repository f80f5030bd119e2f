// config.go: This file contains the configuration for the SpeciesNet-Go
// attribution service. It defines the settings struct and functions to load
// the settings from defaults, an optional config file and environment
// variables.
package conf

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/spf13/viper"
)

// LogConfig contains settings for a log file.
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // path to log file
	Rotation RotationType // rotation type
	MaxSize  int64        // max size in bytes for RotationSize
}

// MainSettings contains main application settings.
type MainSettings struct {
	Name string    // name of this node, can be used to identify the source of attributions
	Log  LogConfig // main log settings
}

// SQLiteSettings contains settings for the SQLite datastore.
type SQLiteSettings struct {
	Enabled bool   // true to enable the SQLite datastore
	Path    string // path to the SQLite database file
}

// MySQLSettings contains settings for the MySQL datastore.
type MySQLSettings struct {
	Enabled  bool   // true to enable the MySQL datastore
	Username string // MySQL username
	Password string // MySQL password
	Database string // MySQL database name
	Host     string // MySQL host
	Port     string // MySQL port
}

// DatastoreSettings contains settings for the attribution datastore.
type DatastoreSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// LocationSettings restricts classifier candidate species to a geographic
// region to improve accuracy.
type LocationSettings struct {
	Country string // ISO country code passed to the classifier, e.g. "USA"
	Region  string // first-level administrative region, e.g. "NY"
	Name    string // human-readable region name used in fallback prompt framing
}

// ClassifierSettings contains settings for the SpeciesNet batch classifier.
type ClassifierSettings struct {
	Binary       string           // interpreter used to launch the classifier
	Module       string           // classifier module invoked in batch mode
	ModelVersion string           // model version tag recorded on attributions
	Threshold    float64          // minimum confidence for predictions
	BatchSize    int              // default number of candidate images per batch
	MaxRetries   int              // classifier attempts per batch, including the first
	Location     LocationSettings // geofencing scope
}

// FallbackSettings contains settings for the vision-language fallback
// classifier consulted when the primary classifier keeps returning the
// generic bird category.
type FallbackSettings struct {
	APIKey     string // API key; fallback is disabled when empty
	Model      string // vision model name
	Endpoint   string // chat completions endpoint
	MaxResults int    // maximum species guesses requested per image
}

// FetchSettings contains settings for image retrieval.
type FetchSettings struct {
	Timeout int // per-image download timeout in seconds
}

// AnalysisSettings contains settings for the batch control loop.
type AnalysisSettings struct {
	MaxBatches int // safety valve for continuous mode, 0 disables the cap
}

// HTTPSettings contains settings for the HTTP trigger surface.
type HTTPSettings struct {
	Port string // port to listen on
}

// Settings contains all runtime settings for the application.
type Settings struct {
	Debug bool // true to enable debug level logging

	Main       MainSettings
	Datastore  DatastoreSettings
	Classifier ClassifierSettings
	Fallback   FallbackSettings
	Fetch      FetchSettings
	Analysis   AnalysisSettings
	HTTP       HTTPSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance and stores it as the current instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values, the optional configuration
// file and environment variable bindings.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/speciesnet-go")
	viper.AddConfigPath("/etc/speciesnet-go")

	// Set default values for each configuration parameter,
	// function defined in defaults.go
	setDefaultConfig()

	// Bind environment variables, function defined in env.go
	if err := bindEnvVars(); err != nil {
		// Invalid environment values warn but do not prevent startup
		log.Printf("Warning: %v", err)
	}

	// Configuration file is optional, defaults and environment cover
	// a full headless deployment
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
