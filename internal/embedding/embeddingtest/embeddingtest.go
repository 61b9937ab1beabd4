// Package embeddingtest provides deterministic embedders for tests.
package embeddingtest

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hyperjump/kubun/internal/embedding"
)

// ErrEmbed is returned by Failing.
var ErrEmbed = errors.New("embeddingtest: embedding failed")

// BagOfWords gives every distinct lower-cased word its own dimension, so cosine
// similarity between two texts is exactly their bag-of-words cosine. Words beyond
// the dimension count share the last slot.
type BagOfWords struct {
	dims  int
	mu    sync.Mutex
	vocab map[string]int
}

// NewBagOfWords returns a BagOfWords embedder with room for dims distinct words.
func NewBagOfWords(dims int) *BagOfWords {
	if dims <= 0 {
		dims = 2048
	}
	return &BagOfWords{dims: dims, vocab: make(map[string]int)}
}

func (b *BagOfWords) index(word string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.vocab[word]; ok {
		return i
	}
	i := len(b.vocab)
	if i >= b.dims {
		i = b.dims - 1
	}
	b.vocab[word] = i
	return i
}

// Embed returns the normalised word-count vector of text.
func (b *BagOfWords) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := make([]float32, b.dims)
	for _, w := range embedding.Words(text) {
		v[b.index(w)]++
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum > 0 {
		n := float32(math.Sqrt(sum))
		for i := range v {
			v[i] /= n
		}
	}
	return v, nil
}

// EmbedBatch embeds each text in order.
func (b *BagOfWords) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := b.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the vector size.
func (b *BagOfWords) Dimensions() int { return b.dims }

// Close is a no-op.
func (b *BagOfWords) Close() error { return nil }

// Failing returns ErrEmbed from every call.
type Failing struct{ Dims int }

func (f Failing) Embed(context.Context, string) ([]float32, error) { return nil, ErrEmbed }

func (f Failing) EmbedBatch(context.Context, []string) ([][]float32, error) { return nil, ErrEmbed }

func (f Failing) Dimensions() int { return f.Dims }

func (f Failing) Close() error { return nil }

// Counting wraps an embedder and counts the texts sent to it.
type Counting struct {
	embedding.Embedder
	texts atomic.Int64
}

// NewCounting wraps inner.
func NewCounting(inner embedding.Embedder) *Counting {
	return &Counting{Embedder: inner}
}

// Embed counts one text.
func (c *Counting) Embed(ctx context.Context, text string) ([]float32, error) {
	c.texts.Add(1)
	return c.Embedder.Embed(ctx, text)
}

// EmbedBatch counts every text in the batch.
func (c *Counting) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.texts.Add(int64(len(texts)))
	return c.Embedder.EmbedBatch(ctx, texts)
}

// Texts returns how many texts were embedded so far.
func (c *Counting) Texts() int64 { return c.texts.Load() }
