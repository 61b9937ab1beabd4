package embedding

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kubun/internal/config"
)

func TestNewFromConfig_hash(t *testing.T) {
	e, err := NewFromConfig(context.Background(), &config.EmbeddingConfig{Provider: "hash", Dimensions: 64, CacheSize: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("got %T, want *CachedEmbedder", e)
	}
	if e.Dimensions() != 64 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
}

func TestNewFromConfig_onnxMissingModelFallsBack(t *testing.T) {
	cfg := &config.EmbeddingConfig{
		Provider:   "onnx",
		ModelPath:  filepath.Join(t.TempDir(), "missing.onnx"),
		Dimensions: 48,
		CacheSize:  8,
	}
	e, err := NewFromConfig(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if e.Dimensions() != 48 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
	if _, err := e.Embed(context.Background(), "methods"); err != nil {
		t.Errorf("fallback embed: %v", err)
	}
}

func TestNewFromConfig_errors(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	tests := []struct {
		name string
		cfg  config.EmbeddingConfig
	}{
		{"gemini without key", config.EmbeddingConfig{Provider: "gemini"}},
		{"unknown provider", config.EmbeddingConfig{Provider: "glove"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFromConfig(context.Background(), &tt.cfg, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}
