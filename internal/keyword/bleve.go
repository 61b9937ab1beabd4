package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/kubun/internal/models"
)

const (
	fieldHeadings = "headings"
	fieldSource   = "source"
)

// sectionDoc is the indexed form of one extraction: one text field per section.
type sectionDoc struct {
	Title             string `json:"title"`
	Abstract          string `json:"abstract"`
	Methods           string `json:"methods"`
	ResultsDiscussion string `json:"results_discussion"`
	Headings          string `json:"headings"`
	Source            string `json:"source"`
}

func newSectionDoc(e *models.Extraction) sectionDoc {
	d := sectionDoc{Title: e.Title, Source: e.Source}
	if ds := e.Sections; ds != nil {
		if d.Title == "" {
			d.Title = ds.Title.Content
		}
		d.Abstract = strings.Join(ds.Paragraphs(models.SectionAbstract), "\n")
		d.Methods = strings.Join(ds.Paragraphs(models.SectionMethods), "\n")
		d.ResultsDiscussion = strings.Join(ds.Paragraphs(models.SectionResultsDiscussion), "\n")
		d.Headings = strings.Join(ds.Headings(), "\n")
	}
	return d
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is reused;
// remove the directory after changing the mapping to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryIndex creates an in-memory index (tests, one-shot CLI runs).
func NewMemoryIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase, no stemming) so gene and reagent names match exactly.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	for _, f := range append(append([]string{}, models.Sections...), fieldHeadings) {
		docMapping.AddFieldMappingsAt(f, text)
	}
	docMapping.AddFieldMappingsAt(fieldSource, bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("extraction", docMapping)
	im.DefaultType = "extraction"
	im.DefaultMapping = docMapping
	return im
}

// Index indexes e under its document ID, replacing any previous version.
func (b *BleveIndex) Index(_ context.Context, e *models.Extraction) error {
	return b.index.Index(e.DocumentID, newSectionDoc(e))
}

// Search runs one query per section field and merges them additively, so documents
// matching in several sections rank higher. Each hit reports its strongest section.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	titleBoost, headingBoost := 1.0, 1.0
	if opts.TitleBoost > 0 {
		titleBoost = opts.TitleBoost
	}
	if opts.HeadingBoost > 0 {
		headingBoost = opts.HeadingBoost
	}
	fields := models.Sections
	if opts.Section != "" {
		fields = []string{opts.Section}
	}
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}

	type acc struct {
		score float64
		best  float64
		field string
	}
	merged := make(map[string]*acc)
	add := func(id, section string, score float64) {
		a, ok := merged[id]
		if !ok {
			a = &acc{}
			merged[id] = a
		}
		a.score += score
		if score > a.best {
			a.best = score
			a.field = section
		}
	}
	for _, field := range fields {
		boost := 1.0
		if field == models.SectionTitle {
			boost = titleBoost
		}
		hits, err := b.searchField(ctx, query, field, reqSize, opts)
		if err != nil {
			return nil, err
		}
		for id, score := range hits {
			add(id, field, score*boost)
		}
	}
	if opts.Section == "" && headingBoost > 0 {
		hits, err := b.searchField(ctx, query, fieldHeadings, reqSize, opts)
		if err != nil {
			return nil, err
		}
		for id, score := range hits {
			if a, ok := merged[id]; ok {
				a.score += score * headingBoost
			} else {
				add(id, models.SectionMethods, score*headingBoost)
			}
		}
	}

	out := make([]*Result, 0, len(merged))
	for id, a := range merged {
		out = append(out, &Result{DocumentID: id, Score: a.score, Section: a.field})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *BleveIndex) searchField(ctx context.Context, query, field string, size int, opts *SearchOptions) (map[string]float64, error) {
	var q blevequery.Query
	if opts.FuzzyEnabled {
		q = buildFuzzyQuery(query, field, opts.Fuzziness)
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		q = mq
	}
	req := bleve.NewSearchRequest(q)
	req.Size = size
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve %s search failed: %w", field, err)
	}
	out := make(map[string]float64, len(res.Hits))
	for _, hit := range res.Hits {
		out[hit.ID] = hit.Score
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery ORs one FuzzyQuery per query term on field.
func buildFuzzyQuery(query, field string, fuzziness int) blevequery.Query {
	if fuzziness <= 0 {
		fuzziness = 1
	}
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(_ context.Context, documentID string) error {
	return b.index.Delete(documentID)
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
