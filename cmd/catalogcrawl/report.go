package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/catalogcrawl/internal/report"
	"github.com/IshaanNene/catalogcrawl/internal/storage"
)

// reportCmd creates the "report" subcommand.
func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Analyze the clean CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return a.report(os.Stdout)
		},
	}
}

// report builds the analysis, prints it to w and writes the report CSV.
func (a *app) report(w io.Writer) error {
	records, err := storage.ReadClean(a.cfg.Storage.CleanPath)
	if err != nil {
		return err
	}

	r := report.Build(records, a.cfg.Report.TopN)
	r.Render(w)

	if err := r.WriteCSV(a.cfg.Report.OutputPath); err != nil {
		return err
	}
	a.logger.Info("report complete", "products", r.Total, "output", a.cfg.Report.OutputPath)
	fmt.Fprintf(w, "Analysis complete. Report saved to '%s'\n", a.cfg.Report.OutputPath)
	return nil
}
