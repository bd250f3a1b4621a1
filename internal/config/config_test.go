package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 5, cfg.Scrape.MaxPages)
	assert.Equal(t, "li.pagination-next", cfg.Scrape.Selectors.Next)
	assert.Equal(t, "myntra_bags_raw.csv", cfg.Storage.RawPath)
	assert.Equal(t, "myntra_bags_cleaned.csv", cfg.Storage.CleanPath)
	assert.Equal(t, "myntra_analysis_report.csv", cfg.Report.OutputPath)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.yaml")
	yaml := `
scrape:
  fetcher: http
  max_pages: 2
  load_timeout: 3s
  selectors:
    tile: "//li[@class='tile']"
storage:
  exports: [json, sqlite]
clean:
  strict_prices: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "http", cfg.Scrape.Fetcher)
	assert.Equal(t, 2, cfg.Scrape.MaxPages)
	assert.Equal(t, 3*time.Second, cfg.Scrape.LoadTimeout)
	assert.Equal(t, "//li[@class='tile']", cfg.Scrape.Selectors.Tile)
	assert.Equal(t, "h3.product-brand", cfg.Scrape.Selectors.Brand, "unset selectors keep defaults")
	assert.Equal(t, []string{"json", "sqlite"}, cfg.Storage.Exports)
	assert.True(t, cfg.Clean.StrictPrices)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad fetcher", func(c *Config) { c.Scrape.Fetcher = "curl" }},
		{"zero pages", func(c *Config) { c.Scrape.MaxPages = 0 }},
		{"zero load timeout", func(c *Config) { c.Scrape.LoadTimeout = 0 }},
		{"bad url", func(c *Config) { c.Scrape.URL = "ftp://example.com" }},
		{"empty tile selector", func(c *Config) { c.Scrape.Selectors.Tile = "" }},
		{"bad export", func(c *Config) { c.Storage.Exports = []string{"parquet"} }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad top n", func(c *Config) { c.Report.TopN = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
