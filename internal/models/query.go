package models

import "fmt"

// Section names used for search filters and index fields.
const (
	SectionTitle             = "title"
	SectionAbstract          = "abstract"
	SectionMethods           = "methods"
	SectionResultsDiscussion = "results_discussion"
)

// SearchQuery is a search over extracted sections.
type SearchQuery struct {
	Query           string  `json:"query"`
	Section         string  `json:"section,omitempty"` // restrict to one section; empty searches all
	Limit           int     `json:"limit,omitempty"`
	Offset          int     `json:"offset,omitempty"`
	KeywordEnabled  bool    `json:"keyword_enabled,omitempty"`
	SemanticEnabled bool    `json:"semantic_enabled,omitempty"`
	MinScore        float64 `json:"min_score,omitempty"`
}

// Validate ensures the query has valid fields and sets defaults.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	switch q.Section {
	case "", SectionTitle, SectionAbstract, SectionMethods, SectionResultsDiscussion:
	default:
		return fmt.Errorf("unknown section %q", q.Section)
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if !q.KeywordEnabled && !q.SemanticEnabled {
		q.KeywordEnabled = true
		q.SemanticEnabled = true
	}
	return nil
}

// SearchResult is one document hit with its best matching section snippet.
type SearchResult struct {
	DocumentID    string  `json:"document_id"`
	Title         string  `json:"title"`
	Section       string  `json:"section,omitempty"`
	Snippet       string  `json:"snippet,omitempty"`
	Score         float64 `json:"score"`
	KeywordScore  float64 `json:"keyword_score"`
	SemanticScore float64 `json:"semantic_score"`
	Rank          int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}
