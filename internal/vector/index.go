package vector

import "context"

// VectorIndex stores paragraph embeddings for semantic search over extracted sections.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Remove(ctx context.Context, ids []string) error
	// RemovePrefix drops every vector whose ID starts with prefix (all paragraphs of one document).
	RemovePrefix(ctx context.Context, prefix string) (int, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// VectorResult is a single vector search hit. ID is a paragraph ID (see ParagraphID).
type VectorResult struct {
	ID    string
	Score float64
}
