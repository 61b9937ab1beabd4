// Package keyword provides full-text (BM25) indexing and search over extracted sections.
package keyword

import (
	"context"

	"github.com/hyperjump/kubun/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// Section restricts matching to one section field; empty searches every section.
	Section string
	// TitleBoost multiplies the score contribution from title matches (e.g. 2.0).
	TitleBoost float64
	// HeadingBoost multiplies the score contribution from section and subsection headings.
	HeadingBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance (1 or 2). Default 1.
	Fuzziness int
}

// Index defines keyword search operations over extractions.
type Index interface {
	Index(ctx context.Context, e *models.Extraction) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, documentID string) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword hit. Section is the field that contributed the most.
type Result struct {
	DocumentID string
	Score      float64
	Section    string
}
