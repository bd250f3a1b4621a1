package extract

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/catalogcrawl/internal/browser"
	"github.com/IshaanNene/catalogcrawl/internal/config"
	"github.com/IshaanNene/catalogcrawl/internal/observability"
	"github.com/IshaanNene/catalogcrawl/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const listingURL = "https://shop.test/handbags-and-bags"

const listingHTML = `<html><body><ul class="results-base">
<li class="product-base">
  <a href="/handbags/acme/tote/101/buy">
    <h3 class="product-brand">Acme</h3>
    <h4 class="product-product">Leather Tote Bag</h4>
    <div class="product-ratingsContainer"><span>4.2</span> | <span>1.2k</span></div>
    <div class="product-price">
      <span class="product-discountedPrice">Rs. 1,499</span>
      <span class="product-strike">Rs. 2,999</span>
    </div>
  </a>
</li>
<li class="product-base">
  <a href="https://www.shop.test/handbags/zeta/sling/102/buy">
    <h3 class="product-brand">Zeta</h3>
    <h4 class="product-product">Sling Bag</h4>
    <div class="product-ratingsContainer"><span>3.9</span></div>
    <div class="product-price"><span>Rs. 799</span></div>
  </a>
</li>
<li class="product-base">
  <a href="/handbags/broken/103/buy">
    <h4 class="product-product">No Brand Here</h4>
  </a>
</li>
<li class="product-base">
  <a href="/handbags/nova/104/buy">
    <h3 class="product-brand">Nova</h3>
    <h4 class="product-product">Backpack</h4>
  </a>
</li>
<li class="product-base">
  <h3 class="product-brand">Orphan</h3>
  <h4 class="product-product">No Link</h4>
</li>
</ul></body></html>`

func openListing(t *testing.T, html string) browser.Session {
	t.Helper()
	s := browser.NewStaticSession(browser.MapSource{listingURL: html}, testLogger)
	require.NoError(t, s.Navigate(context.Background(), listingURL))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestExtractTiles(t *testing.T) {
	s := openListing(t, listingHTML)
	m := observability.NewMetrics(testLogger)
	e := New(config.DefaultSelectors(), "Handbags and Bags", m, testLogger)

	got, err := e.Extract(context.Background(), s)
	require.NoError(t, err)

	want := []types.RawRecord{
		{
			Brand: "Acme", ProductName: "Leather Tote Bag", Category: "Handbags and Bags",
			MRP: "Rs. 2,999", SalePrice: "Rs. 1,499", Rating: "4.2", NumberOfReviews: "1.2k",
			URL: "https://shop.test/handbags/acme/tote/101/buy",
		},
		{
			Brand: "Zeta", ProductName: "Sling Bag", Category: "Handbags and Bags",
			MRP: "Rs. 799", SalePrice: "Rs. 799", Rating: "3.9", NumberOfReviews: "0",
			URL: "https://www.shop.test/handbags/zeta/sling/102/buy",
		},
		{
			Brand: "Nova", ProductName: "Backpack", Category: "Handbags and Bags",
			URL: "https://shop.test/handbags/nova/104/buy",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.TilesExtracted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TilesSkipped))
}

func TestExtractSkipReportsField(t *testing.T) {
	s := openListing(t, listingHTML)
	e := New(config.DefaultSelectors(), "Bags", nil, testLogger)

	tiles, err := s.FindElements(context.Background(), "li.product-base")
	require.NoError(t, err)

	_, err = e.tile(s, 2, tiles[2])
	var te *types.TileExtractionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ColBrand, te.Field)
	assert.Equal(t, 2, te.Index)

	_, err = e.tile(s, 4, tiles[4])
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ColURL, te.Field)
}

func TestExtractWarnsMissingPriceBlock(t *testing.T) {
	s := openListing(t, listingHTML)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	e := New(config.DefaultSelectors(), "Bags", nil, logger)

	_, err := e.Extract(context.Background(), s)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "tile has no price block")
	assert.Contains(t, out, "index=3")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("tile has no price block")))
}

func TestExtractNoTiles(t *testing.T) {
	s := openListing(t, `<html><body><ul class="results-base"></ul></body></html>`)
	e := New(config.DefaultSelectors(), "Bags", nil, testLogger)

	got, err := e.Extract(context.Background(), s)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractXPathSelectors(t *testing.T) {
	s := openListing(t, listingHTML)
	sel := config.DefaultSelectors()
	sel.Tile = "//li[contains(@class,'product-base')]"
	sel.Brand = ".//h3"
	e := New(sel, "Bags", nil, testLogger)

	got, err := e.Extract(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Acme", got[0].Brand)
}

func TestExtractCancelled(t *testing.T) {
	s := openListing(t, listingHTML)
	e := New(config.DefaultSelectors(), "Bags", nil, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Extract(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}
