// Package archive stores extraction outputs (JSON, TXT, the source file, and an error
// log) on local disk or in S3.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/hyperjump/kubun/internal/config"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("archive object not found")

// Archive is a flat key/value blob store. Keys use forward slashes.
type Archive interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Append adds data to the end of key, creating it if needed.
	Append(ctx context.Context, key string, data []byte) error
}

// Open returns the Archive selected by cfg.Driver, or nil for "none".
func Open(ctx context.Context, cfg *config.ArchiveConfig) (Archive, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.Directory)
	case "s3":
		return NewS3(ctx, cfg)
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
}

// SafeName turns a document ID or file name into a single key segment.
func SafeName(name string) string {
	name = strings.TrimSpace(name)
	r := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "#", "_")
	name = r.Replace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}

// ContentType returns the MIME type stored with key.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		return "application/json"
	case ".jsonl":
		return "application/x-ndjson"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".xml", ".tei":
		return "application/xml"
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}
