// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "SpeciesNet-Go")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "speciesnet.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)

	viper.SetDefault("datastore.sqlite.enabled", true)
	viper.SetDefault("datastore.sqlite.path", "attributions.db")
	viper.SetDefault("datastore.mysql.enabled", false)
	viper.SetDefault("datastore.mysql.username", "speciesnet")
	viper.SetDefault("datastore.mysql.password", "secret")
	viper.SetDefault("datastore.mysql.database", "speciesnet")
	viper.SetDefault("datastore.mysql.host", "localhost")
	viper.SetDefault("datastore.mysql.port", "3306")

	viper.SetDefault("classifier.binary", "python")
	viper.SetDefault("classifier.module", "speciesnet.scripts.run_model")
	viper.SetDefault("classifier.modelversion", "speciesnet-ensemble")
	viper.SetDefault("classifier.threshold", 0.30)
	viper.SetDefault("classifier.batchsize", 50)
	viper.SetDefault("classifier.maxretries", 5)
	viper.SetDefault("classifier.location.country", "USA")
	viper.SetDefault("classifier.location.region", "NY")
	viper.SetDefault("classifier.location.name", "Long Island, New York")

	viper.SetDefault("fallback.apikey", "")
	viper.SetDefault("fallback.model", "gpt-4o")
	viper.SetDefault("fallback.endpoint", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("fallback.maxresults", 3)

	viper.SetDefault("fetch.timeout", 20)

	viper.SetDefault("analysis.maxbatches", 1000)

	viper.SetDefault("http.port", "8080")
}
