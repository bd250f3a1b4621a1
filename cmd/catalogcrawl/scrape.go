package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/catalogcrawl/internal/browser"
	"github.com/IshaanNene/catalogcrawl/internal/config"
	"github.com/IshaanNene/catalogcrawl/internal/engine"
	"github.com/IshaanNene/catalogcrawl/internal/extract"
	"github.com/IshaanNene/catalogcrawl/internal/storage"
)

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrape listing pages into the raw CSV",
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
			_, err = a.scrape(ctx, opener)
			return err
		},
	}
}

// browserOptions maps the scrape configuration onto session options.
func browserOptions(cfg config.ScrapeConfig) browser.Options {
	return browser.Options{
		Backend:         cfg.Fetcher,
		Headless:        cfg.Headless,
		Stealth:         cfg.Stealth,
		BinPath:         cfg.BrowserBin,
		UserAgents:      cfg.UserAgents,
		NavigateTimeout: cfg.NavigateTimeout,
		MaxBodySize:     cfg.MaxBodySize,
	}
}

// scrape runs the pagination driver and writes whatever it collected to the
// raw CSV, including after an interrupt.
func (a *app) scrape(ctx context.Context, opener browser.Opener) (*engine.Result, error) {
	sc := a.cfg.Scrape
	opts := engine.OptionsFromConfig(sc)

	if sc.RespectRobotsTxt {
		client := &http.Client{Timeout: 10 * time.Second}
		policy, err := engine.FetchRobots(ctx, client, sc.URL, a.logger.With("component", "robots"))
		if err != nil {
			return nil, fmt.Errorf("robots.txt: %w", err)
		}
		if !policy.Allowed(sc.URL) {
			return nil, fmt.Errorf("robots.txt disallows %s", sc.URL)
		}
		opts.PageDelay = max(opts.PageDelay, policy.CrawlDelay())
	}

	ex := extract.New(sc.Selectors, sc.Category, a.metrics, a.logger)
	driver := engine.NewDriver(opts, ex, a.metrics, a.logger)

	start := time.Now()
	res, err := engine.Scrape(ctx, opener, sc.URL, driver)
	if err != nil {
		return nil, fmt.Errorf("scrape: %w", err)
	}

	if err := storage.WriteRaw(a.cfg.Storage.RawPath, res.Records); err != nil {
		return res, fmt.Errorf("write raw table: %w", err)
	}

	elapsed := time.Since(start)
	a.logger.Info("scrape complete",
		"pages", res.Pages,
		"records", len(res.Records),
		"stop_reason", res.StopReason,
		"elapsed", elapsed,
	)

	fmt.Printf("\n✅ Scrape complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Pages:     %d (stopped: %s)\n", res.Pages, res.StopReason)
	fmt.Printf("   Products:  %d\n", len(res.Records))
	fmt.Printf("   Output:    %s\n", a.cfg.Storage.RawPath)
	return res, nil
}
