// env.go - Environment variable configuration and validation for SpeciesNet-Go
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Classifier configuration
		{"classifier.threshold", "SPECIESNET_THRESHOLD", validateEnvThreshold},
		{"classifier.batchsize", "SPECIESNET_BATCHSIZE", validateEnvPositiveInt},
		{"classifier.maxretries", "SPECIESNET_MAXRETRIES", validateEnvPositiveInt},
		{"classifier.binary", "SPECIESNET_BINARY", nil},
		{"classifier.modelversion", "SPECIESNET_MODELVERSION", nil},
		{"classifier.location.country", "SPECIESNET_COUNTRY", nil},
		{"classifier.location.region", "SPECIESNET_REGION", nil},

		// Datastore configuration
		{"datastore.sqlite.path", "SPECIESNET_DB_PATH", nil},
		{"datastore.mysql.host", "SPECIESNET_MYSQL_HOST", nil},
		{"datastore.mysql.username", "SPECIESNET_MYSQL_USERNAME", nil},
		{"datastore.mysql.password", "SPECIESNET_MYSQL_PASSWORD", nil},
		{"datastore.mysql.database", "SPECIESNET_MYSQL_DATABASE", nil},

		// Fallback classifier; absence of the key disables the fallback
		{"fallback.apikey", "OPENAI_API_KEY", nil},
		{"fallback.model", "SPECIESNET_FALLBACK_MODEL", nil},

		// HTTP trigger surface
		{"http.port", "SPECIESNET_PORT", validateEnvPort},

		{"debug", "SPECIESNET_DEBUG", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		// Validate the value if it's set and validation function is provided
		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be a boolean value (true/false)")
	}
	return nil
}

// validateEnvThreshold validates confidence threshold values
func validateEnvThreshold(value string) error {
	threshold, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("must be a decimal number")
	}
	if threshold < 0.0 || threshold > 1.0 {
		return fmt.Errorf("must be between 0.0 and 1.0")
	}
	return nil
}

// validateEnvPositiveInt validates positive integer values
func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

// validateEnvPort validates TCP port values
func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be between 1 and 65535")
	}
	return nil
}
