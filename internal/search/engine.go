// Package search runs hybrid keyword and semantic search over extracted sections.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/internal/embedding"
	"github.com/hyperjump/kubun/internal/keyword"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/internal/storage"
	"github.com/hyperjump/kubun/internal/vector"
)

const snippetLen = 240

// Engine runs hybrid (keyword + semantic) search.
type Engine struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.Index
	config       *config.SearchConfig
	logger       *zap.Logger
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	keywordIndex keyword.Index,
	cfg *config.SearchConfig,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.SearchConfig{}
	}
	return &Engine{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
		logger:       logger,
	}
}

func (e *Engine) weights(q *models.SearchQuery) (kw, sem float64) {
	kw, sem = e.config.KeywordWeight, e.config.SemanticWeight
	if kw == 0 && sem == 0 {
		kw, sem = 0.5, 0.5
	}
	if !q.KeywordEnabled {
		kw = 0
	}
	if !q.SemanticEnabled {
		sem = 0
	}
	return kw, sem
}

// Search runs hybrid search and returns document-level results with the best
// matching section and a snippet from it.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}
	kwWeight, semWeight := e.weights(query)
	topK := e.config.TopKCandidates
	if topK < query.Offset+query.Limit {
		topK = query.Offset + query.Limit
	}

	var (
		keywordResults  []*keyword.Result
		semanticResults []*vector.VectorResult
		errChan         = make(chan error, 2)
		wg              sync.WaitGroup
	)

	if kwWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.keywordIndex.Search(ctx, query.Query, topK, &keyword.SearchOptions{
				Section:    query.Section,
				TitleBoost: 2,
			})
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if semWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryEmbedding, err := e.embedder.Embed(ctx, query.Query)
			if err != nil {
				errChan <- fmt.Errorf("embedding failed: %w", err)
				return
			}
			// Paragraph hits collapse to documents, so over-fetch.
			results, err := e.vectorIndex.Search(ctx, queryEmbedding, topK*4)
			if err != nil {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			semanticResults = results
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	keywordScores := NormalizeKeywordScores(keywordResults)
	keywordSection := make(map[string]string, len(keywordResults))
	for _, r := range keywordResults {
		keywordSection[r.DocumentID] = r.Section
	}
	paragraphHits := AggregateParagraphs(semanticResults, query.Section)
	semanticScores := make(map[string]float64, len(paragraphHits))
	for id, hit := range paragraphHits {
		semanticScores[id] = hit.Score
	}
	fused := Fuse(keywordScores, semanticScores, kwWeight, semWeight)

	if query.MinScore > 0 {
		filtered := fused[:0]
		for _, r := range fused {
			if r.Score >= query.MinScore {
				filtered = append(filtered, r)
			}
		}
		fused = filtered
	}

	start := min(query.Offset, len(fused))
	end := min(query.Offset+query.Limit, len(fused))
	paged := fused[start:end]

	response := &models.SearchResponse{
		Results: make([]*models.SearchResult, 0, len(paged)),
		Total:   len(fused),
		Query:   query.Query,
	}
	for i, r := range paged {
		ex, err := e.storage.GetExtraction(ctx, r.DocumentID)
		if err != nil {
			e.logger.Warn("search hit without stored extraction", zap.String("doc_id", r.DocumentID), zap.Error(err))
			continue
		}
		result := &models.SearchResult{
			DocumentID:    r.DocumentID,
			Title:         ex.Title,
			Score:         r.Score,
			KeywordScore:  r.KeywordScore,
			SemanticScore: r.SemanticScore,
			Rank:          start + i + 1,
		}
		if ex.Sections != nil {
			result.Section, result.Snippet = snippetFor(ex.Sections, query.Query, paragraphHits[r.DocumentID], keywordSection[r.DocumentID])
		}
		response.Results = append(response.Results, result)
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// snippetFor prefers the best semantic paragraph and falls back to the keyword section.
func snippetFor(ds *models.DocumentSections, query string, hit ParagraphHit, kwSection string) (string, string) {
	if hit.Section != "" {
		paras := ds.Paragraphs(hit.Section)
		if hit.Index >= 0 && hit.Index < len(paras) {
			return hit.Section, Snippet(paras[hit.Index:hit.Index+1], query, snippetLen)
		}
	}
	if kwSection != "" {
		return kwSection, Snippet(ds.Paragraphs(kwSection), query, snippetLen)
	}
	return "", ""
}
