package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Load reads configuration from a YAML file over the defaults. An empty
// configPath searches ".", "./configs" and "~/.catalogcrawl" for
// catalogcrawl.yaml; a missing file is only an error when configPath is set.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("catalogcrawl")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".catalogcrawl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scrape.url", cfg.Scrape.URL)
	v.SetDefault("scrape.category", cfg.Scrape.Category)
	v.SetDefault("scrape.fetcher", cfg.Scrape.Fetcher)
	v.SetDefault("scrape.max_pages", cfg.Scrape.MaxPages)
	v.SetDefault("scrape.load_timeout", cfg.Scrape.LoadTimeout)
	v.SetDefault("scrape.next_timeout", cfg.Scrape.NextTimeout)
	v.SetDefault("scrape.navigate_timeout", cfg.Scrape.NavigateTimeout)
	v.SetDefault("scrape.scroll_settle", cfg.Scrape.ScrollSettle)
	v.SetDefault("scrape.page_delay", cfg.Scrape.PageDelay)
	v.SetDefault("scrape.respect_robots_txt", cfg.Scrape.RespectRobotsTxt)
	v.SetDefault("scrape.headless", cfg.Scrape.Headless)
	v.SetDefault("scrape.stealth", cfg.Scrape.Stealth)
	v.SetDefault("scrape.user_agents", cfg.Scrape.UserAgents)
	v.SetDefault("scrape.max_body_size", cfg.Scrape.MaxBodySize)
	v.SetDefault("scrape.debug_screenshots", cfg.Scrape.DebugScreenshots)
	v.SetDefault("scrape.screenshot_dir", cfg.Scrape.ScreenshotDir)

	v.SetDefault("scrape.selectors.listing", cfg.Scrape.Selectors.Listing)
	v.SetDefault("scrape.selectors.tile", cfg.Scrape.Selectors.Tile)
	v.SetDefault("scrape.selectors.brand", cfg.Scrape.Selectors.Brand)
	v.SetDefault("scrape.selectors.name", cfg.Scrape.Selectors.Name)
	v.SetDefault("scrape.selectors.link", cfg.Scrape.Selectors.Link)
	v.SetDefault("scrape.selectors.price_block", cfg.Scrape.Selectors.PriceBlock)
	v.SetDefault("scrape.selectors.sale_price", cfg.Scrape.Selectors.SalePrice)
	v.SetDefault("scrape.selectors.price_any", cfg.Scrape.Selectors.PriceAny)
	v.SetDefault("scrape.selectors.mrp", cfg.Scrape.Selectors.MRP)
	v.SetDefault("scrape.selectors.rating_block", cfg.Scrape.Selectors.RatingBlock)
	v.SetDefault("scrape.selectors.next", cfg.Scrape.Selectors.Next)

	v.SetDefault("storage.raw_path", cfg.Storage.RawPath)
	v.SetDefault("storage.clean_path", cfg.Storage.CleanPath)
	v.SetDefault("storage.output_dir", cfg.Storage.OutputDir)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.collection", cfg.Storage.Mongo.Collection)
	v.SetDefault("storage.mongo.timeout", cfg.Storage.Mongo.Timeout)

	v.SetDefault("clean.strict_prices", cfg.Clean.StrictPrices)

	v.SetDefault("report.output_path", cfg.Report.OutputPath)
	v.SetDefault("report.top_n", cfg.Report.TopN)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.textfile", cfg.Metrics.Textfile)
}
