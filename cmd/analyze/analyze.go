// Package analyze implements the CLI entry point for attribution runs.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tphakala/speciesnet-go/internal/analysis"
	"github.com/tphakala/speciesnet-go/internal/conf"
	"github.com/tphakala/speciesnet-go/internal/datastore"
)

// Command creates the analyze command.
func Command(settings *conf.Settings) *cobra.Command {
	var continuous bool
	var batchSize int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run bird species attribution on unattributed images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalysis(cmd.Context(), settings, continuous, batchSize)
		},
	}

	cmd.Flags().BoolVar(&continuous, "continuous", false, "Process all unattributed images in batches until none remain")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Override the configured batch size")

	return cmd
}

func runAnalysis(ctx context.Context, settings *conf.Settings, continuous bool, batchSize int) error {
	if ctx == nil {
		ctx = context.Background()
	}

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

	var result analysis.Result
	if continuous {
		result = runner.RunContinuous(ctx, batchSize)
	} else {
		result = runner.RunBatch(ctx, batchSize)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
