// Package server implements the HTTP server command.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tphakala/speciesnet-go/internal/analysis"
	"github.com/tphakala/speciesnet-go/internal/api"
	"github.com/tphakala/speciesnet-go/internal/conf"
	"github.com/tphakala/speciesnet-go/internal/datastore"
	"github.com/tphakala/speciesnet-go/internal/logging"
)

// Command creates the server command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	return cmd
}

func runServer(settings *conf.Settings) error {
	ds := datastore.New(settings)
	if ds == nil {
		return fmt.Errorf("no datastore enabled in configuration")
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() {
		_ = ds.Close()
	}()

	runner := analysis.NewDefaultRunner(settings, ds)
	controller := api.New(settings, runner)

	errCh := make(chan error, 1)
	go func() {
		errCh <- controller.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		logging.Info("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := controller.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	return nil
}
