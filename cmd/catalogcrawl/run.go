package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/catalogcrawl/internal/browser"
)

// runCmd creates the "run" subcommand: scrape, clean and report in order.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scrape, clean and report in one go",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			ctx, cancel := signalContext(a.logger)
			defer cancel()

			opener, err := browser.NewOpener(browserOptions(a.cfg.Scrape), a.logger)
			if err != nil {
				return err
			}
			if _, err := a.scrape(ctx, opener); err != nil {
				return err
			}
			if ctx.Err() != nil {
				a.logger.Warn("interrupted after scrape; raw table saved, skipping clean and report")
				return ctx.Err()
			}
			if _, err := a.clean(ctx); err != nil {
				return err
			}
			return a.report(os.Stdout)
		},
	}
}
