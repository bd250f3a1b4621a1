package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"

	"github.com/IshaanNene/catalogcrawl/internal/config"
	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// --- MongoDB Storage ---

// mongoDoc is a clean record as stored in MongoDB.
type mongoDoc struct {
	types.CleanRecord `bson:",inline"`
	BatchID           string    `bson:"batch_id"`
	StoredAt          time.Time `bson:"stored_at"`
}

// MongoStorage upserts records into a MongoDB collection keyed by URL.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	batchID    string
	timeout    time.Duration
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoStorage connects to MongoDB and ensures the URL index exists.
func NewMongoStorage(ctx context.Context, cfg config.MongoConfig, batchID string, logger *slog.Logger) (*MongoStorage, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb index: %w", err)
	}

	return &MongoStorage{
		client:     client,
		collection: coll,
		batchID:    batchID,
		timeout:    timeout,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStorage) Name() string { return "mongodb" }

func (s *MongoStorage) Store(ctx context.Context, records []types.CleanRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	models := make([]mongo.WriteModel, len(records))
	for i, r := range records {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "url", Value: r.URL}}).
			SetReplacement(mongoDoc{CleanRecord: r, BatchID: s.batchID, StoredAt: now}).
			SetUpsert(true)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*s.timeout)
	defer cancel()

	if _, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("mongodb bulk write: %w", err)
	}

	s.count += len(records)
	s.logger.Debug("items stored in mongodb", "count", len(records), "total", s.count)
	return nil
}

func (s *MongoStorage) Close() error {
	s.logger.Info("mongodb storage closing", "total_items", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- SQLite Storage ---

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	url                 TEXT PRIMARY KEY,
	brand               TEXT NOT NULL,
	product_name        TEXT NOT NULL,
	category            TEXT NOT NULL,
	mrp                 REAL NOT NULL,
	sale_price          REAL NOT NULL,
	discount_percentage REAL NOT NULL,
	rating              REAL NOT NULL,
	number_of_reviews   INTEGER NOT NULL,
	batch_id            TEXT NOT NULL,
	stored_at           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS products_brand ON products (brand);
`

const sqliteUpsert = `
INSERT INTO products (
	url, brand, product_name, category, mrp, sale_price,
	discount_percentage, rating, number_of_reviews, batch_id, stored_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (url) DO UPDATE SET
	brand = excluded.brand,
	product_name = excluded.product_name,
	category = excluded.category,
	mrp = excluded.mrp,
	sale_price = excluded.sale_price,
	discount_percentage = excluded.discount_percentage,
	rating = excluded.rating,
	number_of_reviews = excluded.number_of_reviews,
	batch_id = excluded.batch_id,
	stored_at = excluded.stored_at
`

// SQLiteStorage upserts records into a local SQLite database keyed by URL.
type SQLiteStorage struct {
	db      *sql.DB
	path    string
	batchID string
	mu      sync.Mutex
	count   int
	logger  *slog.Logger
}

// NewSQLiteStorage opens (or creates) the database at path.
func NewSQLiteStorage(ctx context.Context, path, batchID string, logger *slog.Logger) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLiteStorage{
		db:      db,
		path:    path,
		batchID: batchID,
		logger:  logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteStorage) Name() string { return "sqlite" }

func (s *SQLiteStorage) Store(ctx context.Context, records []types.CleanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.URL, r.Brand, r.ProductName, r.Category, r.MRP, r.SalePrice,
			r.DiscountPercentage, r.Rating, r.NumberOfReviews, s.batchID, now,
		)
		if err != nil {
			return fmt.Errorf("sqlite upsert %s: %w", r.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}

	s.count += len(records)
	s.logger.Debug("items stored in sqlite", "count", len(records), "total", s.count)
	return nil
}

func (s *SQLiteStorage) Close() error {
	s.logger.Info("sqlite storage closing", "path", s.path, "total_items", s.count)
	return s.db.Close()
}

// --- Multi-Storage Fan-Out ---

// MultiStorage writes records to multiple backends.
type MultiStorage struct {
	backends []Storage
	logger   *slog.Logger
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends []Storage, logger *slog.Logger) *MultiStorage {
	return &MultiStorage{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStorage) Name() string { return "multi" }

// Backends returns the wrapped backends.
func (s *MultiStorage) Backends() []Storage { return s.backends }

func (s *MultiStorage) Store(ctx context.Context, records []types.CleanRecord) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(ctx, records); err != nil {
			s.logger.Error("backend store failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = &types.StorageError{Backend: backend.Name(), Err: err}
			}
		}
	}
	return firstErr
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = &types.StorageError{Backend: backend.Name(), Err: err}
			}
		}
	}
	return firstErr
}
