// Package docid derives stable document IDs for files and uploaded content.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const (
	filePrefix    = "file-"
	contentPrefix = "doc-"
	hashLen       = 24
)

// FromPath returns a stable document ID for the given absolute path, so that
// re-extracting a file replaces its previous extraction.
func FromPath(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	return filePrefix + shortHash([]byte(normalized))
}

// FromContent returns a document ID derived from the uploaded bytes.
func FromContent(data []byte) string {
	return contentPrefix + shortHash(data)
}

// Valid reports whether id can be used as a document ID. The '#' separator is
// reserved for paragraph IDs in the vector index.
func Valid(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && !strings.ContainsAny(id, "#/\\")
}

func shortHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashLen]
}
