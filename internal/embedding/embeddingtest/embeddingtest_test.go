package embeddingtest

import (
	"context"
	"errors"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestBagOfWords_Cosine(t *testing.T) {
	e := NewBagOfWords(64)
	ctx := context.Background()
	tests := []struct {
		a, b string
		want float64
	}{
		{"Materials and Methods", "materials and methods", 1},
		{"Protein Expression Protocol", "protocol", 1 / math.Sqrt(3)},
		{"results", "discussion", 0},
	}
	for _, tt := range tests {
		va, _ := e.Embed(ctx, tt.a)
		vb, _ := e.Embed(ctx, tt.b)
		if got := cosine(va, vb); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("cosine(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFailing(t *testing.T) {
	if _, err := (Failing{}).Embed(context.Background(), "x"); !errors.Is(err, ErrEmbed) {
		t.Errorf("err = %v", err)
	}
}

func TestCounting(t *testing.T) {
	c := NewCounting(NewBagOfWords(8))
	ctx := context.Background()
	_, _ = c.Embed(ctx, "a")
	_, _ = c.EmbedBatch(ctx, []string{"b", "c"})
	if c.Texts() != 3 {
		t.Errorf("Texts() = %d, want 3", c.Texts())
	}
}
