// Package embedding provides the text embedding scorer used for heading similarity:
// a local ONNX sentence model, a hosted Gemini model, or a hashing fallback.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must be safe for
// concurrent use and return L2-normalised vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// embedEach is the EmbedBatch fallback for embedders without a native batch call.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
