package pipeline

import (
	"strings"

	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// RequiredFieldsMiddleware drops records with an empty URL, since URL is the
// identity of a product.
type RequiredFieldsMiddleware struct{}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(rec *types.RawRecord) (*types.RawRecord, error) {
	if strings.TrimSpace(rec.URL) == "" {
		return nil, nil
	}
	return rec, nil
}

// DedupMiddleware drops records whose URL has already been seen, so the first
// occurrence in input order wins. It is stateful: use one per batch.
type DedupMiddleware struct {
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(rec *types.RawRecord) (*types.RawRecord, error) {
	key := strings.TrimSpace(rec.URL)
	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return rec, nil
}

// TrimMiddleware trims whitespace from every text field.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *types.RawRecord) (*types.RawRecord, error) {
	for _, f := range []*string{
		&rec.Brand, &rec.ProductName, &rec.Category, &rec.MRP,
		&rec.SalePrice, &rec.Rating, &rec.NumberOfReviews, &rec.URL,
	} {
		*f = strings.TrimSpace(*f)
	}
	return rec, nil
}
