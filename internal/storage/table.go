package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// ReadRaw loads a raw product table. Columns are matched by header name and
// may appear in any order; extra columns are ignored.
func ReadRaw(path string) ([]types.RawRecord, error) {
	rows, idx, err := readTable(path, types.RawColumns, "run the scrape stage first")
	if err != nil {
		return nil, err
	}

	records := make([]types.RawRecord, 0, len(rows))
	for _, row := range rows {
		get := func(col string) string { return row[idx[col]] }
		records = append(records, types.RawRecord{
			Brand:           get(types.ColBrand),
			ProductName:     get(types.ColProductName),
			Category:        get(types.ColCategory),
			MRP:             get(types.ColMRP),
			SalePrice:       get(types.ColSalePrice),
			Rating:          get(types.ColRating),
			NumberOfReviews: get(types.ColNumberOfReviews),
			URL:             get(types.ColURL),
		})
	}
	return records, nil
}

// WriteRaw writes records as a raw product table in RawColumns order.
func WriteRaw(path string, records []types.RawRecord) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.Row()
	}
	return writeTable(path, types.RawColumns, rows)
}

// ReadClean loads a clean product table.
func ReadClean(path string) ([]types.CleanRecord, error) {
	rows, idx, err := readTable(path, types.CleanColumns, "run the clean stage first")
	if err != nil {
		return nil, err
	}

	records := make([]types.CleanRecord, 0, len(rows))
	for n, row := range rows {
		get := func(col string) string { return strings.TrimSpace(row[idx[col]]) }
		rec := types.CleanRecord{
			Brand:       get(types.ColBrand),
			ProductName: get(types.ColProductName),
			Category:    get(types.ColCategory),
			URL:         get(types.ColURL),
		}

		floats := []struct {
			col string
			dst *float64
		}{
			{types.ColMRP, &rec.MRP},
			{types.ColSalePrice, &rec.SalePrice},
			{types.ColDiscountPercentage, &rec.DiscountPercentage},
			{types.ColRating, &rec.Rating},
		}
		for _, f := range floats {
			v, err := strconv.ParseFloat(get(f.col), 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", path, n+2, &types.ParseError{Field: f.col, Value: get(f.col), Err: err})
			}
			*f.dst = v
		}

		reviews, err := strconv.Atoi(get(types.ColNumberOfReviews))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, n+2, &types.ParseError{Field: types.ColNumberOfReviews, Value: get(types.ColNumberOfReviews), Err: err})
		}
		rec.NumberOfReviews = reviews

		records = append(records, rec)
	}
	return records, nil
}

// WriteClean writes records as a clean product table in CleanColumns order.
func WriteClean(path string, records []types.CleanRecord) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = cleanRow(r)
	}
	return writeTable(path, types.CleanColumns, rows)
}

func cleanRow(r types.CleanRecord) []string {
	return []string{
		r.Brand,
		r.ProductName,
		r.Category,
		formatFloat(r.MRP),
		formatFloat(r.SalePrice),
		formatFloat(r.DiscountPercentage),
		formatFloat(r.Rating),
		strconv.Itoa(r.NumberOfReviews),
		r.URL,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// readTable reads a CSV file and maps each required column to its index.
func readTable(path string, required []string, hint string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, &types.InputNotFoundError{Path: path, Hint: hint}
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &types.SchemaError{Path: path, Missing: required}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &types.SchemaError{Path: path, Missing: missing}
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		// Short rows read as empty trailing cells.
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	return rows, idx, nil
}

// writeTable writes a CSV file through a temporary file in the same
// directory, so a failed write never leaves a partial table behind.
func writeTable(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write CSV header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write CSV rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
