package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for catalogcrawl.
type Config struct {
	Scrape  ScrapeConfig  `mapstructure:"scrape"  yaml:"scrape"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Clean   CleanConfig   `mapstructure:"clean"   yaml:"clean"`
	Report  ReportConfig  `mapstructure:"report"  yaml:"report"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ScrapeConfig controls the listing scraper.
type ScrapeConfig struct {
	URL              string          `mapstructure:"url"               yaml:"url"`
	Category         string          `mapstructure:"category"          yaml:"category"`
	Fetcher          string          `mapstructure:"fetcher"           yaml:"fetcher"` // browser, http
	MaxPages         int             `mapstructure:"max_pages"         yaml:"max_pages"`
	LoadTimeout      time.Duration   `mapstructure:"load_timeout"      yaml:"load_timeout"`
	NextTimeout      time.Duration   `mapstructure:"next_timeout"      yaml:"next_timeout"`
	NavigateTimeout  time.Duration   `mapstructure:"navigate_timeout"  yaml:"navigate_timeout"`
	ScrollSettle     time.Duration   `mapstructure:"scroll_settle"     yaml:"scroll_settle"`
	PageDelay        time.Duration   `mapstructure:"page_delay"        yaml:"page_delay"`
	RespectRobotsTxt bool            `mapstructure:"respect_robots_txt" yaml:"respect_robots_txt"`
	Headless         bool            `mapstructure:"headless"          yaml:"headless"`
	Stealth          bool            `mapstructure:"stealth"           yaml:"stealth"`
	BrowserBin       string          `mapstructure:"browser_bin"       yaml:"browser_bin"`
	UserAgents       []string        `mapstructure:"user_agents"       yaml:"user_agents"`
	MaxBodySize      int64           `mapstructure:"max_body_size"     yaml:"max_body_size"`
	DebugScreenshots bool            `mapstructure:"debug_screenshots" yaml:"debug_screenshots"`
	ScreenshotDir    string          `mapstructure:"screenshot_dir"    yaml:"screenshot_dir"`
	Selectors        SelectorsConfig `mapstructure:"selectors"         yaml:"selectors"`
}

// SelectorsConfig holds the page selectors. Values starting with "/", "./"
// or "(" are XPath, everything else is CSS.
type SelectorsConfig struct {
	Listing     string `mapstructure:"listing"      yaml:"listing"`
	Tile        string `mapstructure:"tile"         yaml:"tile"`
	Brand       string `mapstructure:"brand"        yaml:"brand"`
	Name        string `mapstructure:"name"         yaml:"name"`
	Link        string `mapstructure:"link"         yaml:"link"`
	PriceBlock  string `mapstructure:"price_block"  yaml:"price_block"`
	SalePrice   string `mapstructure:"sale_price"   yaml:"sale_price"`
	PriceAny    string `mapstructure:"price_any"    yaml:"price_any"`
	MRP         string `mapstructure:"mrp"          yaml:"mrp"`
	RatingBlock string `mapstructure:"rating_block" yaml:"rating_block"`
	Next        string `mapstructure:"next"         yaml:"next"`
}

// StorageConfig controls the CSV files and the optional exports.
type StorageConfig struct {
	RawPath    string      `mapstructure:"raw_path"    yaml:"raw_path"`
	CleanPath  string      `mapstructure:"clean_path"  yaml:"clean_path"`
	Exports    []string    `mapstructure:"exports"     yaml:"exports"` // json, jsonl, sqlite, mongo
	OutputDir  string      `mapstructure:"output_dir"  yaml:"output_dir"`
	SQLitePath string      `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Mongo      MongoConfig `mapstructure:"mongo"       yaml:"mongo"`
}

// MongoConfig controls the MongoDB export.
type MongoConfig struct {
	URI        string        `mapstructure:"uri"        yaml:"uri"`
	Database   string        `mapstructure:"database"   yaml:"database"`
	Collection string        `mapstructure:"collection" yaml:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"    yaml:"timeout"`
}

// CleanConfig controls the normalizer.
type CleanConfig struct {
	StrictPrices bool `mapstructure:"strict_prices" yaml:"strict_prices"`
}

// ReportConfig controls the analysis report.
type ReportConfig struct {
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
	TopN       int    `mapstructure:"top_n"       yaml:"top_n"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus textfile written at the end of a run.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// DefaultSelectors returns the selectors of the Myntra listing page.
func DefaultSelectors() SelectorsConfig {
	return SelectorsConfig{
		Listing:     "ul.results-base",
		Tile:        "li.product-base",
		Brand:       "h3.product-brand",
		Name:        "h4.product-product",
		Link:        "a",
		PriceBlock:  "div.product-price",
		SalePrice:   "span.product-discountedPrice",
		PriceAny:    "span",
		MRP:         "span.product-strike",
		RatingBlock: "div.product-ratingsContainer",
		Next:        "li.pagination-next",
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			URL:             "https://www.myntra.com/handbags-and-bags",
			Category:        "Handbags and Bags",
			Fetcher:         "browser",
			MaxPages:        5,
			LoadTimeout:     10 * time.Second,
			NextTimeout:     10 * time.Second,
			NavigateTimeout: 60 * time.Second,
			ScrollSettle:    1 * time.Second,
			Headless:        true,
			Stealth:         true,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			MaxBodySize:   10 * 1024 * 1024, // 10MB
			ScreenshotDir: ".",
			Selectors:     DefaultSelectors(),
		},
		Storage: StorageConfig{
			RawPath:    "myntra_bags_raw.csv",
			CleanPath:  "myntra_bags_cleaned.csv",
			OutputDir:  "./output",
			SQLitePath: "./output/catalog.db",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "catalogcrawl",
				Collection: "products",
				Timeout:    10 * time.Second,
			},
		},
		Report: ReportConfig{
			OutputPath: "myntra_analysis_report.csv",
			TopN:       5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
