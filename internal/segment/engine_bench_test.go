package segment

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/kubun/internal/embedding"
	"github.com/hyperjump/kubun/internal/heading"
	"github.com/hyperjump/kubun/internal/models"
)

func benchBlocks() []models.Block {
	blocks := []models.Block{{Heading: "Introduction", Paragraphs: []string{"Background."}}}
	blocks = append(blocks, models.Block{Heading: "Materials and Methods", Paragraphs: []string{"Overview."}})
	for i := 0; i < 20; i++ {
		blocks = append(blocks, models.Block{
			Heading:    fmt.Sprintf("2.%d Protocol step %d", i+1, i+1),
			Paragraphs: []string{"Samples were incubated.", "Buffers were exchanged."},
		})
	}
	return append(blocks,
		models.Block{Heading: "Results", Paragraphs: []string{"It worked."}},
		models.Block{Heading: "Discussion", Paragraphs: []string{"It matters."}},
		models.Block{Heading: "Conclusion", Paragraphs: []string{"Done."}})
}

func BenchmarkSegment_Methods(b *testing.B) {
	m := heading.NewMatcher(embedding.NewCachedEmbedder(embedding.NewHashEmbedder(384), 10000))
	e := NewEngine(m)
	ctx := context.Background()
	blocks := benchBlocks()
	if err := m.Warm(ctx, Methods.PhraseSets()...); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Segment(ctx, blocks, Methods, OutputGrouped); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSegment_ResultsDiscussion(b *testing.B) {
	m := heading.NewMatcher(embedding.NewCachedEmbedder(embedding.NewHashEmbedder(384), 10000))
	e := NewEngine(m)
	ctx := context.Background()
	blocks := benchBlocks()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Segment(ctx, blocks, ResultsDiscussion, OutputGrouped); err != nil {
			b.Fatal(err)
		}
	}
}
