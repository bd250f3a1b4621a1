// Package storage reads and writes the raw and clean product tables and
// exports clean records to the configured backends.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/IshaanNene/catalogcrawl/internal/config"
	"github.com/IshaanNene/catalogcrawl/internal/types"
)

// Storage is the interface for all clean-record backends.
type Storage interface {
	// Store persists a batch of records.
	Store(ctx context.Context, records []types.CleanRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// NewExports creates the export backends listed in cfg.Exports. It returns
// nil when no export is configured.
func NewExports(ctx context.Context, cfg config.StorageConfig, batchID string, logger *slog.Logger) (*MultiStorage, error) {
	if len(cfg.Exports) == 0 {
		return nil, nil
	}

	var backends []Storage
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close()
		}
	}

	for _, name := range cfg.Exports {
		var (
			s   Storage
			err error
		)
		switch name {
		case "json":
			s, err = NewJSONStorage(filepath.Join(cfg.OutputDir, "products.json"), logger)
		case "jsonl":
			s, err = NewJSONLStorage(filepath.Join(cfg.OutputDir, "products.jsonl"), logger)
		case "sqlite":
			s, err = NewSQLiteStorage(ctx, cfg.SQLitePath, batchID, logger)
		case "mongo":
			s, err = NewMongoStorage(ctx, cfg.Mongo, batchID, logger)
		default:
			err = fmt.Errorf("unsupported export: %s", name)
		}
		if err != nil {
			closeAll()
			return nil, &types.StorageError{Backend: name, Err: err}
		}
		backends = append(backends, s)
	}

	return NewMultiStorage(backends, logger), nil
}
