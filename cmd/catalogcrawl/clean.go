package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/catalogcrawl/internal/pipeline"
	"github.com/IshaanNene/catalogcrawl/internal/storage"
)

// cleanCmd creates the "clean" subcommand.
func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Normalize the raw CSV into the clean CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			ctx, cancel := signalContext(a.logger)
			defer cancel()

			_, err = a.clean(ctx)
			return err
		},
	}
}

// clean normalizes the raw table, writes the clean table and feeds the
// configured exports.
func (a *app) clean(ctx context.Context) (pipeline.Stats, error) {
	raws, err := storage.ReadRaw(a.cfg.Storage.RawPath)
	if err != nil {
		return pipeline.Stats{}, err
	}

	n := pipeline.NewNormalizer(a.logger,
		pipeline.WithStrictPrices(a.cfg.Clean.StrictPrices),
		pipeline.WithMetrics(a.metrics),
	)
	records, stats, err := n.Normalize(raws)
	if err != nil {
		return stats, fmt.Errorf("normalize: %w", err)
	}

	csvOut := storage.NewCSVStorage(a.cfg.Storage.CleanPath, a.logger)
	if err := csvOut.Store(ctx, records); err != nil {
		return stats, err
	}
	if err := csvOut.Close(); err != nil {
		return stats, fmt.Errorf("write clean table: %w", err)
	}
	a.metrics.Stored(csvOut.Name(), len(records))

	exports, err := storage.NewExports(ctx, a.cfg.Storage, a.runID, a.logger)
	if err != nil {
		return stats, err
	}
	if exports != nil {
		storeErr := exports.Store(ctx, records)
		closeErr := exports.Close()
		if storeErr != nil {
			return stats, storeErr
		}
		if closeErr != nil {
			return stats, closeErr
		}
		for _, b := range exports.Backends() {
			a.metrics.Stored(b.Name(), len(records))
		}
	}

	a.logger.Info("clean complete",
		"input", stats.Input,
		"missing_url", stats.MissingURL,
		"duplicates", stats.Duplicates,
		"output", stats.Output,
	)

	fmt.Printf("\n✅ Clean complete\n")
	fmt.Printf("   Rows:      %d in, %d out\n", stats.Input, stats.Output)
	fmt.Printf("   Dropped:   %d duplicate URL, %d missing URL\n", stats.Duplicates, stats.MissingURL)
	for _, line := range defaultedLines(stats) {
		fmt.Println(line)
	}
	fmt.Printf("   Output:    %s\n", a.cfg.Storage.CleanPath)
	return stats, nil
}

// defaultedLines formats the defaulted field counts, ordered by field name.
func defaultedLines(stats pipeline.Stats) []string {
	fields := make([]string, 0, len(stats.DefaultedFields))
	for field := range stats.DefaultedFields {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		lines = append(lines, fmt.Sprintf("   Defaulted: %-16s %d", field, stats.DefaultedFields[field]))
	}
	return lines
}
