//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/kubun/pkg/utils"
)

// ONNXEmbedder runs a sentence-transformer model (all-MiniLM-L6-v2 by default) with
// ONNX Runtime. It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session     *ort.AdvancedSession
	dimensions  int
	maxTokens   int
	meanPooling bool
	tokenizer   Tokenizer
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder creates an ONNX embedder. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	opts.applyDefaults()
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	var tokenizer Tokenizer = &SimpleTokenizer{}
	if opts.VocabPath != "" {
		wp, err := LoadWordPieceTokenizer(opts.VocabPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer: %w", err)
		}
		tokenizer = wp
	}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", opts.MaxTokens)
	seq := int64(opts.MaxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, seq), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, seq), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, seq), tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputShape := ort.NewShape(1, int64(opts.Dimensions))
	if opts.MeanPooling {
		outputShape = ort.NewShape(1, seq, int64(opts.Dimensions))
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXEmbedder{
		session:             session,
		dimensions:          opts.Dimensions,
		maxTokens:           opts.MaxTokens,
		meanPooling:         opts.MeanPooling,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Embed runs the model on text. Calls are serialised because the session reuses its tensors.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("ONNX embedder is closed")
	}

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := e.outputTensor.GetData()
	embedding := make([]float32, e.dimensions)
	if e.meanPooling {
		meanPool(embedding, out, attentionMask)
	} else {
		copy(embedding, out[:e.dimensions])
	}
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
