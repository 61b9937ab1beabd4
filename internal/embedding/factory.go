package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/pkg/utils"
)

// NewFromConfig builds the configured embedder wrapped in a CachedEmbedder.
// An ONNX model that cannot be loaded falls back to the hashing embedder with a warning;
// a Gemini provider without an API key is an error.
func NewFromConfig(ctx context.Context, cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	logger = utils.OrNop(logger)

	var inner Embedder
	switch cfg.Provider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini embedding provider requires an API key (embedding.gemini_api_key or GEMINI_API_KEY)")
		}
		g, err := NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Dimensions)
		if err != nil {
			return nil, err
		}
		inner = g
	case "hash":
		inner = NewHashEmbedder(cfg.Dimensions)
	case "onnx", "":
		o, err := NewONNXEmbedder(ONNXOptions{
			ModelPath:   cfg.ModelPath,
			VocabPath:   cfg.VocabPath,
			Dimensions:  cfg.Dimensions,
			MaxTokens:   cfg.MaxTokens,
			OutputName:  cfg.OutputName,
			MeanPooling: cfg.Pooling != "none",
		})
		if err != nil {
			logger.Warn("onnx embedder unavailable, using hash embedder; heading scores are lexical and anchor matches are looser",
				zap.String("model", cfg.ModelPath), zap.Error(err))
			inner = NewHashEmbedder(cfg.Dimensions)
		} else {
			inner = o
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	logger.Info("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", inner.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize))
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
