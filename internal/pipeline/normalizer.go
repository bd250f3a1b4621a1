package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/catalogcrawl/internal/fields"
	"github.com/IshaanNene/catalogcrawl/internal/observability"
	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// Stats summarizes one normalization pass.
type Stats struct {
	Input           int
	MissingURL      int
	Duplicates      int
	Output          int
	DefaultedFields map[string]int
}

// Normalizer turns raw scraped records into clean, typed records.
type Normalizer struct {
	strictPrices bool
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// Option configures the Normalizer.
type Option func(*Normalizer)

// WithStrictPrices makes an unparsable MRP or SalePrice fail the whole batch
// instead of defaulting the field to 0.
func WithStrictPrices(strict bool) Option {
	return func(n *Normalizer) { n.strictPrices = strict }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(n *Normalizer) { n.metrics = m }
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger *slog.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{logger: logger.With("component", "normalizer")}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// newPipeline builds a fresh record pipeline; dedup state is per batch.
func (n *Normalizer) newPipeline() *Pipeline {
	p := New(n.logger)
	p.Use(&RequiredFieldsMiddleware{})
	p.Use(&TrimMiddleware{})
	p.Use(NewDedupMiddleware())
	return p
}

// Normalize deduplicates raws by URL (first occurrence wins) and converts
// each survivor into a CleanRecord. The input slice is not modified.
// Malformed numeric fields are replaced by 0 and logged; the batch only fails
// when strict prices are enabled.
func (n *Normalizer) Normalize(raws []types.RawRecord) ([]types.CleanRecord, Stats, error) {
	stats := Stats{Input: len(raws), DefaultedFields: make(map[string]int)}
	n.metrics.RecordIn(len(raws))

	pipe := n.newPipeline()
	pipe.OnDrop(func(stage string, _ *types.RawRecord) {
		switch stage {
		case "required_fields":
			stats.MissingURL++
		case "dedup":
			stats.Duplicates++
		}
		n.metrics.RecordDropped(stage)
	})

	out := make([]types.CleanRecord, 0, len(raws))
	for i := range raws {
		rec := raws[i]
		processed, err := pipe.Process(&rec)
		if err != nil {
			return nil, stats, err
		}
		if processed == nil {
			continue
		}

		clean, err := n.convert(i, processed, &stats)
		if err != nil {
			return nil, stats, err
		}
		out = append(out, clean)
	}

	stats.Output = len(out)
	n.metrics.RecordOut(len(out))
	n.logger.Info("normalization complete",
		"input", stats.Input,
		"duplicates", stats.Duplicates,
		"missing_url", stats.MissingURL,
		"output", stats.Output,
	)
	return out, stats, nil
}

// convert applies the field parsers to one deduplicated record.
func (n *Normalizer) convert(row int, rec *types.RawRecord, stats *Stats) (types.CleanRecord, error) {
	mrp, err := n.price(row, types.ColMRP, rec, rec.MRP, stats)
	if err != nil {
		return types.CleanRecord{}, err
	}
	sale, err := n.price(row, types.ColSalePrice, rec, rec.SalePrice, stats)
	if err != nil {
		return types.CleanRecord{}, err
	}

	reviews, err := fields.ParseReviewCount(rec.NumberOfReviews)
	if err != nil {
		n.defaulted(row, types.ColNumberOfReviews, rec, err, stats)
		reviews = 0
	} else if rec.NumberOfReviews == "" {
		n.absent(row, types.ColNumberOfReviews, rec, stats)
	}

	var rating float64
	if rec.Rating == "" {
		n.absent(row, types.ColRating, rec, stats)
	} else if rating, err = fields.ParseRatingValue(rec.Rating); err != nil {
		n.defaulted(row, types.ColRating, rec, err, stats)
		rating = 0
	}

	return types.CleanRecord{
		Brand:              fields.TitleCase(rec.Brand),
		ProductName:        rec.ProductName,
		Category:           rec.Category,
		MRP:                mrp,
		SalePrice:          sale,
		DiscountPercentage: fields.Discount(mrp, sale),
		Rating:             rating,
		NumberOfReviews:    reviews,
		URL:                rec.URL,
	}, nil
}

func (n *Normalizer) price(row int, column string, rec *types.RawRecord, text string, stats *Stats) (float64, error) {
	if strings.TrimSpace(text) == "" {
		n.absent(row, column, rec, stats)
		return 0, nil
	}
	v, err := fields.ParseCurrency(text)
	if err == nil {
		return v, nil
	}

	var pe *types.ParseError
	if errors.As(err, &pe) {
		pe.Field = column
	}
	if n.strictPrices {
		return 0, fmt.Errorf("row %d (%s): %w", row, rec.URL, err)
	}
	n.defaulted(row, column, rec, err, stats)
	return 0, nil
}

// defaulted records a malformed field replaced by its default.
func (n *Normalizer) defaulted(row int, column string, rec *types.RawRecord, err error, stats *Stats) {
	stats.DefaultedFields[column]++
	n.metrics.FieldDefaulted(column)
	n.logger.Warn("malformed field defaulted to 0",
		"row", row, "field", column, "url", rec.URL, "error", err)
}

// absent records a missing optional field replaced by its default.
func (n *Normalizer) absent(row int, column string, rec *types.RawRecord, stats *Stats) {
	stats.DefaultedFields[column]++
	n.metrics.FieldDefaulted(column)
	n.logger.Debug("absent field defaulted to 0", "row", row, "field", column, "url", rec.URL)
}
