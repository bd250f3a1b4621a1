// Package extract turns the product tiles of a rendered listing page into raw
// records.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/catalogcrawl/internal/browser"
	"github.com/IshaanNene/catalogcrawl/internal/config"
	"github.com/IshaanNene/catalogcrawl/internal/observability"
	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// errMissing marks a mandatory tile element that is not present.
var errMissing = errors.New("element not found")

// Extractor reads product tiles from the current page of a session.
type Extractor struct {
	sel      config.SelectorsConfig
	category string
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates an Extractor. category is written to every record.
func New(sel config.SelectorsConfig, category string, metrics *observability.Metrics, logger *slog.Logger) *Extractor {
	return &Extractor{
		sel:      sel,
		category: category,
		metrics:  metrics,
		logger:   logger.With("component", "extractor"),
	}
}

// Extract returns one record per well-formed tile, in page order. Tiles
// missing a brand, name or link are skipped and logged.
func (e *Extractor) Extract(ctx context.Context, s browser.Session) ([]types.RawRecord, error) {
	tiles, err := s.FindElements(ctx, e.sel.Tile)
	if err != nil {
		return nil, fmt.Errorf("find tiles: %w", err)
	}
	e.logger.Info("tiles found", "url", s.URL(), "count", len(tiles))

	records := make([]types.RawRecord, 0, len(tiles))
	for i, tile := range tiles {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		rec, err := e.tile(s, i, tile)
		if err != nil {
			e.logger.Warn("skipping tile", "index", i, "error", err)
			e.metrics.TileSkipped()
			continue
		}
		records = append(records, rec)
		e.metrics.TileExtracted()
	}
	return records, nil
}

func (e *Extractor) tile(s browser.Session, index int, tile browser.Element) (types.RawRecord, error) {
	rec := types.RawRecord{Category: e.category}

	var err error
	if rec.Brand, err = mandatoryText(tile, e.sel.Brand); err != nil {
		return rec, &types.TileExtractionError{Index: index, Field: types.ColBrand, Err: err}
	}
	if rec.ProductName, err = mandatoryText(tile, e.sel.Name); err != nil {
		return rec, &types.TileExtractionError{Index: index, Field: types.ColProductName, Err: err}
	}
	href, err := e.link(tile)
	if err != nil {
		return rec, &types.TileExtractionError{Index: index, Field: types.ColURL, Err: err}
	}
	rec.URL = browser.ResolveURL(s, href)

	rec.SalePrice, rec.MRP = e.prices(index, tile)
	rec.Rating, rec.NumberOfReviews = e.rating(tile)
	return rec, nil
}

func (e *Extractor) link(tile browser.Element) (string, error) {
	found, err := tile.Find(e.sel.Link)
	if err != nil {
		return "", err
	}
	a, ok := found.Get()
	if !ok {
		return "", errMissing
	}
	href, err := a.Attribute("href")
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(href.Or(""))
	if v == "" {
		return "", errors.New("link has no href")
	}
	return v, nil
}

// prices returns the sale and MRP texts. The sale price falls back to the
// first span of the price block and the MRP falls back to the sale price.
func (e *Extractor) prices(index int, tile browser.Element) (sale, mrp string) {
	block, ok := optionalElement(tile, e.sel.PriceBlock)
	if !ok {
		e.logger.Warn("tile has no price block, prices left empty", "index", index)
		return "", ""
	}

	sale, ok = optionalText(block, e.sel.SalePrice)
	if !ok {
		sale, _ = optionalText(block, e.sel.PriceAny)
	}
	mrp, ok = optionalText(block, e.sel.MRP)
	if !ok {
		mrp = sale
	}
	return sale, mrp
}

// rating splits the ratings container text on "|" into the rating and the
// review count. Without a separator the review count is "0".
func (e *Extractor) rating(tile browser.Element) (rating, reviews string) {
	text, ok := optionalText(tile, e.sel.RatingBlock)
	if !ok {
		return "", ""
	}
	left, right, found := strings.Cut(text, "|")
	if !found {
		return strings.TrimSpace(left), "0"
	}
	return strings.TrimSpace(left), strings.TrimSpace(right)
}

func mandatoryText(el browser.Element, selector string) (string, error) {
	found, err := el.Find(selector)
	if err != nil {
		return "", err
	}
	child, ok := found.Get()
	if !ok {
		return "", errMissing
	}
	return child.Text()
}

func optionalElement(el browser.Element, selector string) (browser.Element, bool) {
	if selector == "" {
		return nil, false
	}
	found, err := el.Find(selector)
	if err != nil {
		return nil, false
	}
	return found.Get()
}

func optionalText(el browser.Element, selector string) (string, bool) {
	child, ok := optionalElement(el, selector)
	if !ok {
		return "", false
	}
	text, err := child.Text()
	if err != nil {
		return "", false
	}
	return text, true
}
