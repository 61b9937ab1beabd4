package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyperjump/kubun/internal/models"
)

// PostgresStorage implements Storage on a pgx connection pool. Sections are stored as JSONB.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to connString, verifies the connection, and creates the schema.
func NewPostgresStorage(ctx context.Context, connString string) (*PostgresStorage, error) {
	if connString == "" {
		return nil, fmt.Errorf("postgres storage requires a database url")
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS extractions (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL UNIQUE,
	source TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	sections JSONB,
	errors JSONB,
	failed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_extractions_created_at ON extractions(created_at);
`

const postgresUpsert = `
INSERT INTO extractions (id, document_id, source, title, sections, errors, failed, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (document_id) DO UPDATE SET
	id = EXCLUDED.id,
	source = EXCLUDED.source,
	title = EXCLUDED.title,
	sections = EXCLUDED.sections,
	errors = EXCLUDED.errors,
	failed = EXCLUDED.failed,
	created_at = EXCLUDED.created_at`

// SaveExtraction inserts e, replacing any extraction stored for the same document.
func (s *PostgresStorage) SaveExtraction(ctx context.Context, e *models.Extraction) error {
	sections, errs, err := prepare(e)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, postgresUpsert,
		e.ID, e.DocumentID, e.Source, e.Title, sections, errs, len(e.Errors) > 0, e.CreatedAt,
	)
	return err
}

const postgresSelect = `SELECT id, document_id, source, title, sections, errors, created_at FROM extractions`

func scanPostgres(row pgx.Row) (*models.Extraction, error) {
	var e models.Extraction
	var sections, errs []byte
	if err := row.Scan(&e.ID, &e.DocumentID, &e.Source, &e.Title, &sections, &errs, &e.CreatedAt); err != nil {
		return nil, err
	}
	if err := decode(&e, sections, errs); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetExtraction returns the extraction for documentID.
func (s *PostgresStorage) GetExtraction(ctx context.Context, documentID string) (*models.Extraction, error) {
	e, err := scanPostgres(s.pool.QueryRow(ctx, postgresSelect+` WHERE document_id = $1`, documentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListExtractions returns extractions newest first with offset and limit.
func (s *PostgresStorage) ListExtractions(ctx context.Context, offset, limit int) ([]*models.Extraction, error) {
	rows, err := s.pool.Query(ctx,
		postgresSelect+` ORDER BY created_at DESC, document_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Extraction
	for rows.Next() {
		e, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteExtraction removes the extraction for documentID.
func (s *PostgresStorage) DeleteExtraction(ctx context.Context, documentID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM extractions WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	return nil
}

// CountExtractions returns the total number of extractions.
func (s *PostgresStorage) CountExtractions(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM extractions`).Scan(&count)
	return count, err
}

// CountFailed returns the number of extractions that recorded at least one error.
func (s *PostgresStorage) CountFailed(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM extractions WHERE failed`).Scan(&count)
	return count, err
}

// Close closes the pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
