package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Scrape.URL); err != nil {
		return fmt.Errorf("scrape.url: %w", err)
	}
	if cfg.Scrape.Fetcher != "http" && cfg.Scrape.Fetcher != "browser" {
		return fmt.Errorf("scrape.fetcher must be 'http' or 'browser', got %q", cfg.Scrape.Fetcher)
	}
	if cfg.Scrape.MaxPages < 1 {
		return fmt.Errorf("scrape.max_pages must be >= 1, got %d", cfg.Scrape.MaxPages)
	}
	if cfg.Scrape.LoadTimeout <= 0 {
		return fmt.Errorf("scrape.load_timeout must be > 0")
	}
	if cfg.Scrape.NextTimeout <= 0 {
		return fmt.Errorf("scrape.next_timeout must be > 0")
	}
	if cfg.Scrape.ScrollSettle < 0 {
		return fmt.Errorf("scrape.scroll_settle must be >= 0")
	}
	if cfg.Scrape.PageDelay < 0 {
		return fmt.Errorf("scrape.page_delay must be >= 0")
	}
	if cfg.Scrape.MaxBodySize <= 0 {
		return fmt.Errorf("scrape.max_body_size must be > 0")
	}

	sel := cfg.Scrape.Selectors
	required := map[string]string{
		"listing": sel.Listing,
		"tile":    sel.Tile,
		"brand":   sel.Brand,
		"name":    sel.Name,
		"link":    sel.Link,
		"next":    sel.Next,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("scrape.selectors.%s must not be empty", name)
		}
	}

	if cfg.Storage.RawPath == "" || cfg.Storage.CleanPath == "" {
		return fmt.Errorf("storage.raw_path and storage.clean_path must be set")
	}
	validExports := map[string]bool{
		"json": true, "jsonl": true, "sqlite": true, "mongo": true,
	}
	for _, e := range cfg.Storage.Exports {
		if !validExports[e] {
			return fmt.Errorf("storage.exports entry %q is not supported (valid: json, jsonl, sqlite, mongo)", e)
		}
	}

	if cfg.Report.OutputPath == "" {
		return fmt.Errorf("report.output_path must be set")
	}
	if cfg.Report.TopN < 1 {
		return fmt.Errorf("report.top_n must be >= 1, got %d", cfg.Report.TopN)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is valid for scraping.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
