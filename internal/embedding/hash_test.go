package embedding

import (
	"context"
	"math"
	"testing"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(128)
	ctx := context.Background()
	a, err := e.Embed(ctx, "Materials and Methods")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "Materials and Methods")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestHashEmbedder_UnitLength(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != 384 {
		t.Fatalf("default dimensions = %d", e.Dimensions())
	}
	v, err := e.Embed(context.Background(), "experimental procedures")
	if err != nil {
		t.Fatal(err)
	}
	if n := math.Sqrt(dot(v, v)); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", n)
	}
}

func TestHashEmbedder_CaseInsensitive(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "METHODS")
	b, _ := e.Embed(ctx, "methods")
	if s := dot(a, b); math.Abs(s-1) > 1e-5 {
		t.Errorf("similarity = %v, want 1", s)
	}
}

func TestHashEmbedder_SharedWordsScoreHigher(t *testing.T) {
	e := NewHashEmbedder(512)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "methods")
	near, _ := e.Embed(ctx, "materials and methods")
	far, _ := e.Embed(ctx, "acknowledgements")
	if dot(q, near) <= dot(q, far) {
		t.Errorf("shared-word similarity %v not above unrelated %v", dot(q, near), dot(q, far))
	}
}

func TestHashEmbedder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(16).Embed(ctx, "x"); err == nil {
		t.Error("expected context error")
	}
}

func TestWords(t *testing.T) {
	got := Words("Results/Discussion: 2nd-pass")
	want := []string{"results", "discussion", "2nd", "pass"}
	if len(got) != len(want) {
		t.Fatalf("Words = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Words[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMeanPool(t *testing.T) {
	// two real tokens and one padding row
	hidden := []float32{
		1, 3,
		3, 5,
		100, 100,
	}
	dst := make([]float32, 2)
	meanPool(dst, hidden, []int64{1, 1, 0})
	if dst[0] != 2 || dst[1] != 4 {
		t.Errorf("meanPool = %v, want [2 4]", dst)
	}

	empty := make([]float32, 2)
	meanPool(empty, hidden, []int64{0, 0, 0})
	if empty[0] != 0 || empty[1] != 0 {
		t.Errorf("all-masked meanPool = %v, want zeros", empty)
	}
}

func TestONNXOptions_applyDefaults(t *testing.T) {
	o := ONNXOptions{MeanPooling: true}
	o.applyDefaults()
	if o.Dimensions != 384 || o.MaxTokens != 128 || o.OutputName != "last_hidden_state" {
		t.Errorf("pooled defaults: %+v", o)
	}
	p := ONNXOptions{}
	p.applyDefaults()
	if p.OutputName != "output" {
		t.Errorf("unpooled output name = %q", p.OutputName)
	}
}

func TestHashEmbedder_TrigramsLiftPartialOverlap(t *testing.T) {
	e := NewHashEmbedder(384)
	ctx := context.Background()
	a, err := e.Embed(ctx, "protein expression protocol")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "protocol")
	if err != nil {
		t.Fatal(err)
	}
	// one shared word out of three gives a word-only cosine of 1/sqrt(3)
	if got, words := dot(a, b), 1/math.Sqrt(3); got <= words {
		t.Errorf("cosine = %.3f, want above word-only %.3f", got, words)
	}
}
