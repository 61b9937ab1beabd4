package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

type countingEmbedder struct {
	*HashEmbedder
	calls int
	texts int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	c.texts++
	return c.HashEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts += len(texts)
	return embedEach(ctx, c.HashEmbedder, texts)
}

func TestCachedEmbedder_Embed(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(64)}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	a, err := c.Embed(ctx, "methods")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Embed(ctx, "methods")
	if err != nil {
		t.Fatal(err)
	}
	if inner.texts != 1 {
		t.Errorf("inner embedded %d texts, want 1", inner.texts)
	}
	if len(a) != 64 || len(b) != 64 || a[0] != b[0] {
		t.Errorf("cached vector differs")
	}
	if c.Dimensions() != 64 {
		t.Errorf("Dimensions() = %d", c.Dimensions())
	}
}

func TestCachedEmbedder_EmbedBatchOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(32)}
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	if _, err := c.Embed(ctx, "results"); err != nil {
		t.Fatal(err)
	}
	out, err := c.EmbedBatch(ctx, []string{"results", "discussion", "results"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d vectors", len(out))
	}
	if inner.texts != 2 {
		t.Errorf("inner embedded %d texts, want 2", inner.texts)
	}
	for i, v := range out {
		if len(v) != 32 {
			t.Errorf("vector %d has %d dims", i, len(v))
		}
	}
}
