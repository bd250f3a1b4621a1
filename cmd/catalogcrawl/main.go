package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/catalogcrawl/internal/config"
	"github.com/IshaanNene/catalogcrawl/internal/observability"
	"github.com/IshaanNene/catalogcrawl/internal/types"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "catalogcrawl",
		Short: "catalogcrawl: product listing scraper, cleaner and analyzer",
		Long: `catalogcrawl collects product tiles from a paginated e-commerce listing,
normalizes them into a clean table and reports on prices, discounts and ratings.

Stages:
  scrape   listing pages -> raw CSV
  clean    raw CSV -> clean CSV (+ optional JSON, JSONL, SQLite, MongoDB exports)
  report   clean CSV -> summary tables and report CSV
  run      all three, in order`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		printHint(err)
		os.Exit(1)
	}
}

// app is what every stage command needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	runID   string
}

// newApp loads and validates configuration and builds the logger.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	runID := uuid.NewString()
	logger := setupLogger(cfg.Logging).With("run_id", runID)
	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(logger),
		runID:   runID,
	}, nil
}

// flushMetrics writes the metrics textfile, if one is configured.
func (a *app) flushMetrics() {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn("failed to write metrics textfile", "path", a.cfg.Metrics.Textfile, "error", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("catalogcrawl %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			s := cfg.Scrape
			fmt.Printf("Scrape:\n")
			fmt.Printf("  URL:               %s\n", s.URL)
			fmt.Printf("  Category:          %s\n", s.Category)
			fmt.Printf("  Fetcher:           %s\n", s.Fetcher)
			fmt.Printf("  Max Pages:         %d\n", s.MaxPages)
			fmt.Printf("  Load Timeout:      %s\n", s.LoadTimeout)
			fmt.Printf("  Next Timeout:      %s\n", s.NextTimeout)
			fmt.Printf("  Headless:          %v\n", s.Headless)
			fmt.Printf("  Stealth:           %v\n", s.Stealth)
			fmt.Printf("  Screenshots:       %v\n", s.DebugScreenshots)
			fmt.Printf("  Tile Selector:     %s\n", s.Selectors.Tile)
			fmt.Printf("  Next Selector:     %s\n", s.Selectors.Next)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Raw CSV:           %s\n", cfg.Storage.RawPath)
			fmt.Printf("  Clean CSV:         %s\n", cfg.Storage.CleanPath)
			fmt.Printf("  Exports:           %s\n", strings.Join(cfg.Storage.Exports, ", "))
			fmt.Printf("\nClean:\n")
			fmt.Printf("  Strict Prices:     %v\n", cfg.Clean.StrictPrices)
			fmt.Printf("\nReport:\n")
			fmt.Printf("  Output Path:       %s\n", cfg.Report.OutputPath)
			fmt.Printf("  Top N:             %d\n", cfg.Report.TopN)
			fmt.Printf("\nLogging:\n")
			fmt.Printf("  Level:             %s\n", cfg.Logging.Level)
			fmt.Printf("  Format:            %s\n", cfg.Logging.Format)
			if err := config.Validate(cfg); err != nil {
				fmt.Printf("\n⚠ invalid: %v\n", err)
			}
			return nil
		},
	}
}

// setupLogger creates a structured logger.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// printHint explains the fatal errors a user can act on.
func printHint(err error) {
	var notFound *types.InputNotFoundError
	var schema *types.SchemaError
	switch {
	case errors.As(err, &notFound):
		fmt.Fprintf(os.Stderr, "\n💡 %s\n", notFound.Error())
	case errors.As(err, &schema):
		fmt.Fprintf(os.Stderr, "\n💡 %s is not a product table produced by catalogcrawl\n", schema.Path)
	}
}
