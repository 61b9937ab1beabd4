// Package storage persists section extractions.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/internal/models"
)

// ErrNotFound is returned when no extraction exists for a document ID.
var ErrNotFound = errors.New("extraction not found")

// Storage defines extraction persistence. Extractions are keyed by document ID;
// saving a document again replaces its previous extraction.
type Storage interface {
	SaveExtraction(ctx context.Context, e *models.Extraction) error
	GetExtraction(ctx context.Context, documentID string) (*models.Extraction, error)
	ListExtractions(ctx context.Context, offset, limit int) ([]*models.Extraction, error)
	DeleteExtraction(ctx context.Context, documentID string) error

	// Stats
	CountExtractions(ctx context.Context) (int64, error)
	CountFailed(ctx context.Context) (int64, error)

	Close() error
}

// Open returns the Storage selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteStorage(cfg.DatabasePath)
	case "postgres":
		return NewPostgresStorage(ctx, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
