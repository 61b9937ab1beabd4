//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ ONNXOptions) (*ONNXEmbedder, error) {
	return nil, errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Embed is not available without CGO.
func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("ONNX embedder not available")
}

// EmbedBatch is not available without CGO.
func (e *ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("ONNX embedder not available")
}

// Dimensions returns 0 without CGO.
func (e *ONNXEmbedder) Dimensions() int { return 0 }

// Close is a no-op without CGO.
func (e *ONNXEmbedder) Close() error { return nil }
