package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/catalogcrawl/internal/observability"
	"github.com/IshaanNene/catalogcrawl/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func raw(brand, mrp, sale, rating, reviews, url string) types.RawRecord {
	return types.RawRecord{
		Brand:           brand,
		ProductName:     "Women Tote Bag",
		Category:        "Handbags and Bags",
		MRP:             mrp,
		SalePrice:       sale,
		Rating:          rating,
		NumberOfReviews: reviews,
		URL:             url,
	}
}

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	rec := raw("  Baggit ", " Rs. 999 ", "Rs. 499", " 4.1", "12 ", " https://example.com/p/1 ")
	result, err := p.Process(&rec)
	require.NoError(t, err)
	assert.Equal(t, "Baggit", result.Brand)
	assert.Equal(t, "Rs. 999", result.MRP)
	assert.Equal(t, "https://example.com/p/1", result.URL)
	assert.Equal(t, 1, p.Len())
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{}

	withURL := raw("A", "", "", "", "", "https://example.com/p/1")
	result, err := m.Process(&withURL)
	require.NoError(t, err)
	assert.NotNil(t, result, "record with URL should pass")

	noURL := raw("A", "", "", "", "", "   ")
	result, err = m.Process(&noURL)
	require.NoError(t, err)
	assert.Nil(t, result, "record without URL should be dropped")
}

func TestDedupMiddleware(t *testing.T) {
	m := NewDedupMiddleware()

	first := raw("First", "", "", "", "", "https://example.com/p/1")
	result, _ := m.Process(&first)
	require.NotNil(t, result, "first record should pass dedup")

	dup := raw("Second", "", "", "", "", "https://example.com/p/1")
	result, _ = m.Process(&dup)
	assert.Nil(t, result, "duplicate URL should be dropped")

	other := raw("Third", "", "", "", "", "https://example.com/p/2")
	result, _ = m.Process(&other)
	assert.NotNil(t, result, "different URL should pass dedup")
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "boom" }

func (failingMiddleware) Process(*types.RawRecord) (*types.RawRecord, error) {
	return nil, errors.New("boom")
}

func TestPipelineErrorCarriesStage(t *testing.T) {
	p := New(testLogger)
	p.Use(failingMiddleware{})

	rec := raw("A", "", "", "", "", "https://example.com/p/1")
	_, err := p.Process(&rec)

	var pe *types.PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "boom", pe.Stage)
}

func TestNormalizeFixture(t *testing.T) {
	input := []types.RawRecord{
		raw("  myntra brand  ", "Rs. 1,000", "Rs. 750", "", "", "https://example.com/p/1"),
		raw("zero mrp", "Rs. 0", "Rs. 0", "4.2", "2.5k", "https://example.com/p/2"),
		raw("duplicate", "Rs. 5", "Rs. 1", "1.0", "3", "https://example.com/p/1"),
	}

	n := NewNormalizer(testLogger)
	got, stats, err := n.Normalize(input)
	require.NoError(t, err)

	want := []types.CleanRecord{
		{
			Brand: "Myntra Brand", ProductName: "Women Tote Bag", Category: "Handbags and Bags",
			MRP: 1000, SalePrice: 750, DiscountPercentage: 25, Rating: 0, NumberOfReviews: 0,
			URL: "https://example.com/p/1",
		},
		{
			Brand: "Zero Mrp", ProductName: "Women Tote Bag", Category: "Handbags and Bags",
			MRP: 0, SalePrice: 0, DiscountPercentage: 0, Rating: 4.2, NumberOfReviews: 2500,
			URL: "https://example.com/p/2",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 3, stats.Input)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 2, stats.Output)
	assert.Equal(t, 1, stats.DefaultedFields[types.ColRating])
	assert.Equal(t, 1, stats.DefaultedFields[types.ColNumberOfReviews])
}

func TestNormalizeIsIdempotent(t *testing.T) {
	input := []types.RawRecord{
		raw("a", "Rs. 100", "Rs. 80", "3.9", "10", "https://example.com/p/1"),
		raw("b", "Rs. 200", "Rs. 150", "", "", "https://example.com/p/2"),
		raw("a again", "Rs. 100", "Rs. 80", "3.9", "10", "https://example.com/p/1"),
		raw("c", "Rs. 300", "Rs. 300", "4", "1.1k", "https://example.com/p/3"),
	}
	snapshot := append([]types.RawRecord(nil), input...)

	n := NewNormalizer(testLogger)
	first, _, err := n.Normalize(input)
	require.NoError(t, err)
	second, _, err := n.Normalize(input)
	require.NoError(t, err)

	assert.Len(t, first, 3)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second pass differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, snapshot, input, "input batch must not be mutated")

	seen := make(map[string]bool)
	for _, rec := range first {
		assert.False(t, seen[rec.URL], "duplicate URL %s in output", rec.URL)
		seen[rec.URL] = true
	}
}

func TestNormalizeDefaultsMalformedFields(t *testing.T) {
	input := []types.RawRecord{
		raw("x", "Rs. abc", "Rs. 499", "great", "lots", "https://example.com/p/9"),
	}

	m := observability.NewMetrics(testLogger)
	n := NewNormalizer(testLogger, WithMetrics(m))
	got, stats, err := n.Normalize(input)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, 0.0, got[0].MRP)
	assert.Equal(t, 499.0, got[0].SalePrice)
	assert.Equal(t, 0.0, got[0].DiscountPercentage, "zero MRP must not divide")
	assert.Equal(t, 0.0, got[0].Rating)
	assert.Equal(t, 0, got[0].NumberOfReviews)
	assert.Equal(t, 1, stats.DefaultedFields[types.ColMRP])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FieldsDefaulted.WithLabelValues(types.ColMRP)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsOut))
}

func TestNormalizeStrictPricesFailsBatch(t *testing.T) {
	input := []types.RawRecord{
		raw("x", "Rs. 100", "Rs. 80", "", "", "https://example.com/p/1"),
		raw("y", "Rs. ???", "Rs. 80", "", "", "https://example.com/p/2"),
	}

	n := NewNormalizer(testLogger, WithStrictPrices(true))
	_, _, err := n.Normalize(input)
	require.Error(t, err)

	var pe *types.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, types.ColMRP, pe.Field)
}

func TestNormalizeStrictPricesAllowsAbsentPrice(t *testing.T) {
	input := []types.RawRecord{
		raw("x", "", "", "", "", "https://example.com/p/1"),
	}

	got, stats, err := NewNormalizer(testLogger, WithStrictPrices(true)).Normalize(input)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].MRP)
	assert.Equal(t, 0.0, got[0].SalePrice)
	assert.Equal(t, 1, stats.DefaultedFields[types.ColMRP])
	assert.Equal(t, 1, stats.DefaultedFields[types.ColSalePrice])
}

func TestNormalizeDropsMissingURL(t *testing.T) {
	input := []types.RawRecord{
		raw("x", "Rs. 100", "Rs. 80", "", "", ""),
		raw("y", "Rs. 100", "Rs. 80", "", "", "https://example.com/p/2"),
	}

	got, stats, err := NewNormalizer(testLogger).Normalize(input)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, stats.MissingURL)
}

func BenchmarkNormalize(b *testing.B) {
	n := NewNormalizer(testLogger)
	input := make([]types.RawRecord, 0, 500)
	for i := 0; i < 500; i++ {
		input = append(input, raw("brand", "Rs. 1,999", "Rs. 999", "4.1", "1.2k", "https://example.com/p/"+strconv.Itoa(i%50)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = n.Normalize(input)
	}
}
