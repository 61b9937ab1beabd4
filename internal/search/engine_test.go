package search

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kubun/internal/assembler"
	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/internal/embedding/embeddingtest"
	"github.com/hyperjump/kubun/internal/heading"
	"github.com/hyperjump/kubun/internal/indexer"
	"github.com/hyperjump/kubun/internal/keyword"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/internal/storage"
	"github.com/hyperjump/kubun/internal/vector"
)

const dims = 2048

func newTestEngine(t *testing.T) (*Engine, *indexer.Indexer) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	emb := embeddingtest.NewBagOfWords(dims)
	vecIndex, err := vector.NewMemoryIndex(dims)
	if err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewMemoryIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })

	cfg := &config.SearchConfig{TopKCandidates: 20, KeywordWeight: 0.5, SemanticWeight: 0.5}
	engine := NewEngine(store, emb, vecIndex, kwIndex, cfg, nil)
	idx := indexer.NewIndexer(assembler.New(heading.NewMatcher(emb)), store, emb, vecIndex, kwIndex)

	docs := []*models.Document{
		{
			ID:    "crystal",
			Title: "Crystal structure of an enzyme",
			Blocks: []models.Block{
				{Heading: "Methods", Paragraphs: []string{"Crystals were grown by vapor diffusion."}},
				{Heading: "Results", Paragraphs: []string{"The enzyme forms a dimer."}},
			},
		},
		{
			ID:    "mice",
			Title: "Behaviour of mice in mazes",
			Blocks: []models.Block{
				{Heading: "Methods", Paragraphs: []string{"Mice were trained in a water maze."}},
				{Heading: "Results", Paragraphs: []string{"Trained mice found the platform faster."}},
			},
		},
	}
	for _, d := range docs {
		if _, err := idx.Extract(context.Background(), d); err != nil {
			t.Fatal(err)
		}
	}
	return engine, idx
}

func TestEngine_Search(t *testing.T) {
	engine, _ := newTestEngine(t)
	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "vapor diffusion"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got total=%d results=%d", resp.Total, len(resp.Results))
	}
	r := resp.Results[0]
	if r.DocumentID != "crystal" || r.Title != "Crystal structure of an enzyme" {
		t.Errorf("result = %+v", r)
	}
	if r.Section != models.SectionMethods || r.Snippet != "Crystals were grown by vapor diffusion." {
		t.Errorf("section = %q snippet = %q", r.Section, r.Snippet)
	}
	if r.Rank != 1 || r.KeywordScore != 1 || r.SemanticScore <= 0 {
		t.Errorf("scores = %+v", r)
	}
}

func TestEngine_SearchSectionFilter(t *testing.T) {
	engine, _ := newTestEngine(t)
	resp, err := engine.Search(context.Background(), &models.SearchQuery{
		Query: "mice", Section: models.SectionResultsDiscussion,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Section != models.SectionResultsDiscussion || r.Snippet != "Trained mice found the platform faster." {
		t.Errorf("section = %q snippet = %q", r.Section, r.Snippet)
	}
}

func TestEngine_SearchKeywordOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "dimer", KeywordEnabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].SemanticScore != 0 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].Section != models.SectionResultsDiscussion {
		t.Errorf("section = %q", resp.Results[0].Section)
	}
}

func TestEngine_SearchPagingAndMinScore(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	// Each term matches one methods section.
	all, err := engine.Search(ctx, &models.SearchQuery{Query: "grown trained"})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 2 {
		t.Fatalf("total = %d, want 2", all.Total)
	}
	page, err := engine.Search(ctx, &models.SearchQuery{Query: "grown trained", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Results) != 1 || page.Results[0].Rank != 2 || page.Results[0].DocumentID != all.Results[1].DocumentID {
		t.Errorf("page = %+v", page.Results)
	}
	none, err := engine.Search(ctx, &models.SearchQuery{Query: "grown trained", MinScore: 2})
	if err != nil {
		t.Fatal(err)
	}
	if none.Total != 0 || len(none.Results) != 0 {
		t.Errorf("min score should filter everything: %+v", none)
	}
}

func TestEngine_SearchAfterDelete(t *testing.T) {
	engine, idx := newTestEngine(t)
	ctx := context.Background()
	if err := idx.Delete(ctx, "crystal"); err != nil {
		t.Fatal(err)
	}
	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "vapor diffusion"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("deleted document still found: %+v", resp.Results)
	}
}

func TestEngine_SearchInvalid(t *testing.T) {
	engine, _ := newTestEngine(t)
	if _, err := engine.Search(context.Background(), &models.SearchQuery{}); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := engine.Search(context.Background(), &models.SearchQuery{Query: "x", Section: "intro"}); err == nil {
		t.Error("expected error for unknown section")
	}
}

func TestProcessQuery(t *testing.T) {
	cfg := &config.SearchConfig{DefaultLimit: 5, MaxLimit: 20}
	q := &models.SearchQuery{Query: "x"}
	if err := ProcessQuery(q, cfg); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 5 || !q.KeywordEnabled || !q.SemanticEnabled {
		t.Errorf("defaults not applied: %+v", q)
	}
	q = &models.SearchQuery{Query: "x", Limit: 50}
	if err := ProcessQuery(q, cfg); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 20 {
		t.Errorf("limit = %d, want 20", q.Limit)
	}
}
