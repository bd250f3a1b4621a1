package storage

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/catalogcrawl/internal/config"
	"github.com/IshaanNene/catalogcrawl/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleRaw() []types.RawRecord {
	return []types.RawRecord{
		{Brand: "Acme", ProductName: "Tote, Large", Category: "Handbags and Bags", MRP: "Rs. 2,999", SalePrice: "Rs. 1,499", Rating: "4.2", NumberOfReviews: "1.2k", URL: "https://shop.test/p/1"},
		{Brand: "Zeta", ProductName: `Sling "Mini"`, Category: "Handbags and Bags", URL: "https://shop.test/p/2"},
	}
}

func sampleClean() []types.CleanRecord {
	return []types.CleanRecord{
		{Brand: "Acme", ProductName: "Tote", Category: "Bags", MRP: 2999, SalePrice: 1499, DiscountPercentage: 50.02, Rating: 4.2, NumberOfReviews: 1200, URL: "https://shop.test/p/1"},
		{Brand: "Zeta", ProductName: "Sling", Category: "Bags", MRP: 799, SalePrice: 799, URL: "https://shop.test/p/2"},
	}
}

func TestRawRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(t, WriteRaw(path, sampleRaw()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	first, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	assert.Equal(t, "Brand,ProductName,Category,MRP,SalePrice,Rating,NumberOfReviews,URL", string(first))

	got, err := ReadRaw(path)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleRaw(), got); diff != "" {
		t.Errorf("raw round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.csv")
	require.NoError(t, WriteClean(path, sampleClean()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	first, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	assert.Equal(t, "Brand,ProductName,Category,MRP,SalePrice,DiscountPercentage,Rating,NumberOfReviews,URL", string(first))

	got, err := ReadClean(path)
	require.NoError(t, err)
	if diff := cmp.Diff(sampleClean(), got); diff != "" {
		t.Errorf("clean round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadRawReorderedColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	csv := "URL,Brand,ProductName,Category,MRP,SalePrice,Rating,NumberOfReviews,Extra\n" +
		"https://shop.test/p/9,Nova,Clutch,Bags,Rs. 999,Rs. 499,,,x\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	got, err := ReadRaw(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Nova", got[0].Brand)
	assert.Equal(t, "https://shop.test/p/9", got[0].URL)
	assert.Empty(t, got[0].Rating)
}

func TestReadRawMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(t, os.WriteFile(path, []byte("Brand,ProductName,Category,MRP,SalePrice,Rating,NumberOfReviews\n"), 0o644))

	_, err := ReadRaw(path)
	var se *types.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{types.ColURL}, se.Missing)
}

func TestReadMissingFile(t *testing.T) {
	_, err := ReadRaw(filepath.Join(t.TempDir(), "absent.csv"))
	var nf *types.InputNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Error(), "scrape")

	_, err = ReadClean(filepath.Join(t.TempDir(), "absent.csv"))
	require.ErrorAs(t, err, &nf)
}

func TestReadCleanBadNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.csv")
	csv := "Brand,ProductName,Category,MRP,SalePrice,DiscountPercentage,Rating,NumberOfReviews,URL\n" +
		"Acme,Tote,Bags,abc,10,0,0,0,https://shop.test/p/1\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	_, err := ReadClean(path)
	var pe *types.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, types.ColMRP, pe.Field)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteRaw(filepath.Join(dir, "raw.csv"), sampleRaw()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "raw.csv", entries[0].Name())
}

func TestCSVStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.csv")
	s := NewCSVStorage(path, testLogger)
	require.NoError(t, s.Store(context.Background(), sampleClean()[:1]))
	require.NoError(t, s.Store(context.Background(), sampleClean()[1:]))
	require.NoError(t, s.Close())

	got, err := ReadClean(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestJSONStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "products.json")
	s, err := NewJSONStorage(path, testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Store(context.Background(), sampleClean()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []types.CleanRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, sampleClean(), got)
	assert.Contains(t, string(data), `"discount_percentage": 50.02`)
}

func TestJSONLStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.jsonl")
	s, err := NewJSONLStorage(path, testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Store(context.Background(), sampleClean()))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r types.CleanRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestSQLiteStorageUpsert(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	s, err := NewSQLiteStorage(ctx, path, "batch-1", testLogger)
	require.NoError(t, err)
	require.NoError(t, s.Store(ctx, sampleClean()))

	updated := sampleClean()[:1]
	updated[0].SalePrice = 999
	require.NoError(t, s.Store(ctx, updated))
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM products").Scan(&count))
	assert.Equal(t, 2, count)

	var sale float64
	var batch string
	require.NoError(t, db.QueryRow("SELECT sale_price, batch_id FROM products WHERE url = ?", "https://shop.test/p/1").Scan(&sale, &batch))
	assert.Equal(t, 999.0, sale)
	assert.Equal(t, "batch-1", batch)
}

func TestNewExports(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	none, err := NewExports(ctx, config.StorageConfig{}, "b", testLogger)
	require.NoError(t, err)
	assert.Nil(t, none)

	cfg := config.StorageConfig{
		Exports:    []string{"json", "jsonl", "sqlite"},
		OutputDir:  dir,
		SQLitePath: filepath.Join(dir, "catalog.db"),
	}
	s, err := NewExports(ctx, cfg, "b", testLogger)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Len(t, s.Backends(), 3)

	require.NoError(t, s.Store(ctx, sampleClean()))
	require.NoError(t, s.Close())
	assert.FileExists(t, filepath.Join(dir, "products.json"))
	assert.FileExists(t, filepath.Join(dir, "products.jsonl"))

	_, err = NewExports(ctx, config.StorageConfig{Exports: []string{"parquet"}}, "b", testLogger)
	var se *types.StorageError
	assert.ErrorAs(t, err, &se)
}
