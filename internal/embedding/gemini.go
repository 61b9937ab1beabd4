package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/hyperjump/kubun/pkg/utils"
)

// GeminiEmbedder calls the Gemini embedding API. Vectors are normalised locally so
// cosine similarity is an inner product like the other embedders.
type GeminiEmbedder struct {
	client     *genai.Client
	model      *genai.EmbeddingModel
	dimensions int
}

// NewGeminiEmbedder creates a client for modelName (e.g. "text-embedding-004").
func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, dimensions int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embedder: API key is not set")
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: create client: %w", err)
	}
	model := client.EmbeddingModel(modelName)
	model.TaskType = genai.TaskTypeSemanticSimilarity
	return &GeminiEmbedder{client: client, model: model, dimensions: dimensions}, nil
}

// Embed returns the embedding for one text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res == nil || res.Embedding == nil {
		return nil, fmt.Errorf("gemini embed: empty response")
	}
	return e.finish(res.Embedding.Values), nil
}

// EmbedBatch embeds all texts in one BatchEmbedContents call.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	batch := e.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	res, err := e.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini batch embed: got %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}
	out := make([][]float32, len(texts))
	for i, emb := range res.Embeddings {
		out[i] = e.finish(emb.Values)
	}
	return out, nil
}

func (e *GeminiEmbedder) finish(values []float32) []float32 {
	v := append([]float32(nil), values...)
	utils.NormalizeL2(v)
	return v
}

// Dimensions returns the configured embedding dimension.
func (e *GeminiEmbedder) Dimensions() int {
	return e.dimensions
}

// Close closes the API client.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
