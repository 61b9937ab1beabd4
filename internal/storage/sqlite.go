package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kubun/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS extractions (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL UNIQUE,
		source TEXT,
		title TEXT,
		sections TEXT,
		errors TEXT,
		failed INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_extractions_created_at ON extractions(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const sqliteUpsert = `
INSERT INTO extractions (id, document_id, source, title, sections, errors, failed, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(document_id) DO UPDATE SET
	id = excluded.id,
	source = excluded.source,
	title = excluded.title,
	sections = excluded.sections,
	errors = excluded.errors,
	failed = excluded.failed,
	created_at = excluded.created_at`

// SaveExtraction inserts e, replacing any extraction stored for the same document.
func (s *SQLiteStorage) SaveExtraction(ctx context.Context, e *models.Extraction) error {
	sections, errs, err := prepare(e)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, sqliteUpsert,
		e.ID, e.DocumentID, e.Source, e.Title, string(sections), string(errs), len(e.Errors) > 0, e.CreatedAt,
	)
	return err
}

const sqliteSelect = `SELECT id, document_id, source, title, sections, errors, created_at FROM extractions`

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row scanner) (*models.Extraction, error) {
	var e models.Extraction
	var source, title, sections, errs sql.NullString
	if err := row.Scan(&e.ID, &e.DocumentID, &source, &title, &sections, &errs, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Source = source.String
	e.Title = title.String
	if err := decode(&e, []byte(sections.String), []byte(errs.String)); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetExtraction returns the extraction for documentID.
func (s *SQLiteStorage) GetExtraction(ctx context.Context, documentID string) (*models.Extraction, error) {
	e, err := scanSQLite(s.db.QueryRowContext(ctx, sqliteSelect+` WHERE document_id = ?`, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListExtractions returns extractions newest first with offset and limit.
func (s *SQLiteStorage) ListExtractions(ctx context.Context, offset, limit int) ([]*models.Extraction, error) {
	rows, err := s.db.QueryContext(ctx,
		sqliteSelect+` ORDER BY created_at DESC, document_id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Extraction
	for rows.Next() {
		e, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteExtraction removes the extraction for documentID.
func (s *SQLiteStorage) DeleteExtraction(ctx context.Context, documentID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM extractions WHERE document_id = ?`, documentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, documentID)
	}
	return nil
}

// CountExtractions returns the total number of extractions.
func (s *SQLiteStorage) CountExtractions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extractions`).Scan(&count)
	return count, err
}

// CountFailed returns the number of extractions that recorded at least one error.
func (s *SQLiteStorage) CountFailed(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extractions WHERE failed = 1`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
