package search

import (
	"sort"

	"github.com/hyperjump/kubun/internal/keyword"
	"github.com/hyperjump/kubun/internal/vector"
)

// FusedResult holds a document ID and fused keyword/semantic scores.
type FusedResult struct {
	DocumentID    string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// ParagraphHit is the best semantic match inside one document.
type ParagraphHit struct {
	Section string
	Index   int
	Score   float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max, keyed by document ID.
func NormalizeKeywordScores(results []*keyword.Result) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	maxScore := 0.0
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.DocumentID] = r.Score / maxScore
		} else {
			normalized[r.DocumentID] = 0
		}
	}
	return normalized
}

// AggregateParagraphs maps paragraph-level vector hits to the best hit per document.
// Hits with unparseable IDs, non-positive scores, or outside section (when non-empty)
// are skipped.
func AggregateParagraphs(results []*vector.VectorResult, section string) map[string]ParagraphHit {
	byDoc := make(map[string]ParagraphHit)
	for _, r := range results {
		if r.Score <= 0 {
			continue
		}
		docID, sec, n, err := vector.ParseParagraphID(r.ID)
		if err != nil {
			continue
		}
		if section != "" && sec != section {
			continue
		}
		if best, ok := byDoc[docID]; !ok || r.Score > best.Score {
			byDoc[docID] = ParagraphHit{Section: sec, Index: n, Score: r.Score}
		}
	}
	return byDoc
}

// Fuse merges keyword and semantic score maps with weights and returns results sorted
// by score, ties broken by document ID.
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*FusedResult {
	scoreMap := make(map[string]*FusedResult)
	for id, score := range keywordScores {
		scoreMap[id] = &FusedResult{DocumentID: id, KeywordScore: score}
	}
	for id, score := range semanticScores {
		if result, exists := scoreMap[id]; exists {
			result.SemanticScore = score
		} else {
			scoreMap[id] = &FusedResult{DocumentID: id, SemanticScore: score}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = (keywordWeight * result.KeywordScore) + (semanticWeight * result.SemanticScore)
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocumentID < results[j].DocumentID
	})
	return results
}
