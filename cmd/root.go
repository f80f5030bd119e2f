package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/speciesnet-go/cmd/analyze"
	"github.com/tphakala/speciesnet-go/cmd/server"
	"github.com/tphakala/speciesnet-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "speciesnet-go",
		Short: "Camera-trap bird species attribution service",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	rootCmd.AddCommand(
		analyze.Command(settings),
		server.Command(settings),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().Float64VarP(&settings.Classifier.Threshold, "threshold", "t", viper.GetFloat64("classifier.threshold"), "Confidence threshold for predictions, value between 0.0 and 1.0")
	rootCmd.PersistentFlags().StringVar(&settings.Classifier.Location.Country, "country", viper.GetString("classifier.location.country"), "Country code used to geofence classifier candidates")
	rootCmd.PersistentFlags().StringVar(&settings.Classifier.Location.Region, "region", viper.GetString("classifier.location.region"), "Administrative region used to geofence classifier candidates")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
