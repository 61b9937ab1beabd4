package heading

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/hyperjump/kubun/internal/embedding/embeddingtest"
)

func TestNewPhraseSet(t *testing.T) {
	s, err := NewPhraseSet("anchors", " Materials  and Methods", "methods", "METHODS", "")
	if err != nil {
		t.Fatal(err)
	}
	got := s.Phrases()
	if len(got) != 2 || got[0] != "materials and methods" || got[1] != "methods" {
		t.Errorf("Phrases() = %v", got)
	}
	if s.Name() != "anchors" || s.Len() != 2 {
		t.Errorf("Name/Len = %s/%d", s.Name(), s.Len())
	}

	if _, err := NewPhraseSet("empty", "", "  "); !errors.Is(err, ErrEmptyPhraseSet) {
		t.Errorf("empty set error = %v", err)
	}
}

func TestMustPhraseSet_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustPhraseSet("none")
}

func TestPhraseSet_ContainedIn(t *testing.T) {
	s := MustPhraseSet("stop", "references", "conclusion")
	if !s.ContainedIn("5. Conclusions") {
		t.Error("expected literal containment")
	}
	if s.ContainedIn("Methods") {
		t.Error("unexpected containment")
	}
}

func TestMatcher_Matches(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher(embeddingtest.NewBagOfWords(256))
	anchors := MustPhraseSet("anchors", "materials and methods", "methods", "protocol")
	keywords := MustPhraseSet("keywords", "protein", "purification", "assay")

	tests := []struct {
		name      string
		text      string
		set       *PhraseSet
		threshold float64
		mode      Mode
		want      bool
	}{
		{"exact anchor", "Materials and Methods", anchors, 0.65, WholeHeading, true},
		{"word order", "Methods and Materials", anchors, 0.65, WholeHeading, true},
		{"diluted heading", "Protein Expression Protocol", anchors, 0.65, WholeHeading, false},
		{"token keyword", "Protein Expression Protocol", keywords, 0.5, TokenLevel, true},
		{"token no keyword", "Overview", keywords, 0.5, TokenLevel, false},
		{"empty text", "", anchors, 0.1, WholeHeading, false},
		{"only digits tokens", "2020", keywords, 0.1, TokenLevel, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Matches(ctx, tt.text, tt.set, tt.threshold, tt.mode)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Matches(%q, %s, %v, %s) = %v, want %v", tt.text, tt.set.Name(), tt.threshold, tt.mode, got, tt.want)
			}
		})
	}
}

func TestMatcher_Similarity(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher(embeddingtest.NewBagOfWords(64))
	s := MustPhraseSet("anchors", "protocol")
	sim, err := m.Similarity(ctx, "Protein Expression Protocol", s)
	if err != nil {
		t.Fatal(err)
	}
	if want := 1 / math.Sqrt(3); math.Abs(sim-want) > 1e-6 {
		t.Errorf("Similarity = %v, want %v", sim, want)
	}
}

func TestMatcher_EmptyTextSkipsEmbedder(t *testing.T) {
	m := NewMatcher(embeddingtest.Failing{})
	s := MustPhraseSet("s", "methods")
	ok, err := m.Matches(context.Background(), "", s, 0.5, WholeHeading)
	if err != nil || ok {
		t.Errorf("Matches(\"\") = %v, %v", ok, err)
	}
	ok, err = m.ContainsOrMatches(context.Background(), "", s, 0.5)
	if err != nil || ok {
		t.Errorf("ContainsOrMatches(\"\") = %v, %v", ok, err)
	}
}

func TestMatcher_ContainsShortCircuits(t *testing.T) {
	m := NewMatcher(embeddingtest.Failing{})
	s := MustPhraseSet("stop", "references")
	ok, err := m.ContainsOrMatches(context.Background(), "References and Notes", s, 0.65)
	if err != nil {
		t.Fatalf("literal match should not call the embedder: %v", err)
	}
	if !ok {
		t.Error("expected match")
	}
}

func TestMatcher_ContainsOrMatchesBySimilarity(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher(embeddingtest.NewBagOfWords(64))
	s := MustPhraseSet("stop", "data availability statement")
	text := "Availability of data"
	if s.ContainedIn(text) {
		t.Fatalf("%q should not contain a stop phrase literally", text)
	}
	// two of three words shared: cosine 2/3
	ok, err := m.ContainsOrMatches(ctx, text, s, 0.65)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected similarity match at 0.65")
	}
	ok, err = m.ContainsOrMatches(ctx, text, s, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unexpected match at 0.7")
	}
}

func TestMatcher_EmbedderErrorPropagates(t *testing.T) {
	m := NewMatcher(embeddingtest.Failing{})
	s := MustPhraseSet("s", "methods")
	if _, err := m.Matches(context.Background(), "Methods", s, 0.5, WholeHeading); !errors.Is(err, embeddingtest.ErrEmbed) {
		t.Errorf("err = %v, want ErrEmbed", err)
	}
}

func TestMatcher_PhraseSetEmbeddedOnce(t *testing.T) {
	ctx := context.Background()
	counter := embeddingtest.NewCounting(embeddingtest.NewBagOfWords(64))
	m := NewMatcher(counter)
	s := MustPhraseSet("anchors", "methods", "materials and methods", "protocol")
	if err := m.Warm(ctx, s, nil); err != nil {
		t.Fatal(err)
	}
	if counter.Texts() != 3 {
		t.Fatalf("warm embedded %d texts, want 3", counter.Texts())
	}
	for i := 0; i < 5; i++ {
		if _, err := m.Matches(ctx, "Methods", s, 0.65, WholeHeading); err != nil {
			t.Fatal(err)
		}
	}
	// one heading embedding per call, no phrase re-embedding
	if counter.Texts() != 8 {
		t.Errorf("embedded %d texts, want 8", counter.Texts())
	}
}

func TestMatcher_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher(embeddingtest.NewBagOfWords(128))
	s := MustPhraseSet("anchors", "materials and methods", "methods")
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.Matches(ctx, "Methods", s, 0.65, WholeHeading)
			if err != nil {
				errs <- err
				return
			}
			if !ok {
				errs <- errors.New("expected match")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestMode_String(t *testing.T) {
	if WholeHeading.String() != "whole" || TokenLevel.String() != "token" {
		t.Error("unexpected mode names")
	}
}
