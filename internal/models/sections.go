package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// UntitledLabel keys paragraphs captured before any heading was seen.
const UntitledLabel = "untitled"

// Content is captured section content: either Flat or Grouped.
type Content interface {
	// Flatten returns every paragraph in capture order.
	Flatten() []string
	isContent()
}

// Flat is an ordered list of paragraphs.
type Flat []string

// Flatten returns the paragraphs unchanged.
func (f Flat) Flatten() []string { return []string(f) }

func (Flat) isContent() {}

// MarshalJSON encodes a nil Flat as an empty array.
func (f Flat) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(f))
}

// Subsection is one labeled run of paragraphs inside a captured section.
type Subsection struct {
	Label      string   `json:"label"`
	Untitled   bool     `json:"untitled,omitempty"`
	Paragraphs []string `json:"paragraphs"`
}

// Grouped is an ordered mapping from subsection label to paragraphs. Labels are unique.
type Grouped []Subsection

// Flatten concatenates the subsections' paragraphs in order.
func (g Grouped) Flatten() []string {
	out := make([]string, 0)
	for _, s := range g {
		out = append(out, s.Paragraphs...)
	}
	return out
}

func (Grouped) isContent() {}

// Labels returns subsection labels in order.
func (g Grouped) Labels() []string {
	out := make([]string, len(g))
	for i, s := range g {
		out[i] = s.Label
	}
	return out
}

// Get returns the paragraphs stored under label.
func (g Grouped) Get(label string) ([]string, bool) {
	for _, s := range g {
		if s.Label == label {
			return s.Paragraphs, true
		}
	}
	return nil, false
}

// MarshalJSON encodes the subsections as a JSON object whose key order follows capture order.
func (g Grouped) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Label)
		if err != nil {
			return nil, err
		}
		paras := s.Paragraphs
		if paras == nil {
			paras = []string{}
		}
		val, err := json.Marshal(paras)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into subsections, keeping key order.
func (g *Grouped) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("grouped content: expected object, got %v", tok)
	}
	out := Grouped{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("grouped content: expected string key, got %v", keyTok)
		}
		var paras []string
		if err := dec.Decode(&paras); err != nil {
			return fmt.Errorf("grouped content %q: %w", key, err)
		}
		out = append(out, Subsection{Label: key, Untitled: key == UntitledLabel, Paragraphs: paras})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*g = out
	return nil
}

// DecodeContent decodes either a JSON array (Flat) or object (Grouped).
func DecodeContent(data []byte) (Content, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Flat{}, nil
	}
	switch trimmed[0] {
	case '[':
		var f Flat
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, err
		}
		return f, nil
	case '{':
		var g Grouped
		if err := json.Unmarshal(trimmed, &g); err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("content must be an array or object")
}

// SegmentationResult is the outcome of one segmentation run.
// Score is 1.0 for an anchor start, the fallback threshold for a fallback start,
// and 0.0 with StartIndex -1 when nothing was found.
type SegmentationResult struct {
	Heading    *string `json:"heading"`
	Score      float64 `json:"similarity_score"`
	StartIndex int     `json:"start_index"`
	Content    Content `json:"content"`
}

// Found reports whether a section start was located.
func (r SegmentationResult) Found() bool {
	return r.StartIndex >= 0
}

// HeadingOr returns the matched heading or def when unset.
func (r SegmentationResult) HeadingOr(def string) string {
	if r.Heading == nil {
		return def
	}
	return *r.Heading
}

// TitleSection holds the document title.
type TitleSection struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// AbstractSection holds abstract paragraphs and the heading they came from.
type AbstractSection struct {
	Heading string   `json:"heading"`
	Content []string `json:"content"`
}

// MethodsSection holds the methods extraction.
type MethodsSection struct {
	Heading         *string `json:"heading"`
	SimilarityScore float64 `json:"similarity_score"`
	Content         Content `json:"content"`
}

// UnmarshalJSON restores the Flat or Grouped content variant.
func (m *MethodsSection) UnmarshalJSON(data []byte) error {
	var raw struct {
		Heading         *string         `json:"heading"`
		SimilarityScore float64         `json:"similarity_score"`
		Content         json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	content, err := DecodeContent(raw.Content)
	if err != nil {
		return fmt.Errorf("methods content: %w", err)
	}
	m.Heading = raw.Heading
	m.SimilarityScore = raw.SimilarityScore
	m.Content = content
	return nil
}

// SubsectionRecord is one results/discussion subsection in output form.
type SubsectionRecord struct {
	Subheading *string  `json:"subheading"`
	Content    []string `json:"content"`
}

// ResultsDiscussionSection holds the merged results and discussion extraction.
type ResultsDiscussionSection struct {
	Heading         string             `json:"heading"`
	MatchedHeading  *string            `json:"matched_heading"`
	SimilarityScore float64            `json:"similarity_score"`
	Subsections     []SubsectionRecord `json:"subsections"`
}

// DocumentSections is the assembled, labeled view of one document.
type DocumentSections struct {
	Title             TitleSection             `json:"title"`
	Abstract          AbstractSection          `json:"abstract"`
	Methods           MethodsSection           `json:"methods"`
	ResultsDiscussion ResultsDiscussionSection `json:"results_discussion"`
}

// Extraction is a persisted DocumentSections result for one source document.
type Extraction struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Source     string            `json:"source,omitempty"`
	Title      string            `json:"title"`
	Sections   *DocumentSections `json:"sections"`
	Errors     []string          `json:"errors,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Sections lists the section names in output order.
var Sections = []string{SectionTitle, SectionAbstract, SectionMethods, SectionResultsDiscussion}

// Paragraphs returns the paragraphs of the named section in output order.
func (d *DocumentSections) Paragraphs(section string) []string {
	switch section {
	case SectionTitle:
		if d.Title.Content == "" {
			return nil
		}
		return []string{d.Title.Content}
	case SectionAbstract:
		return d.Abstract.Content
	case SectionMethods:
		if d.Methods.Content == nil {
			return nil
		}
		return d.Methods.Content.Flatten()
	case SectionResultsDiscussion:
		var out []string
		for _, s := range d.ResultsDiscussion.Subsections {
			out = append(out, s.Content...)
		}
		return out
	}
	return nil
}

// Headings returns the matched section headings and subsection labels, skipping the
// untitled bucket.
func (d *DocumentSections) Headings() []string {
	var out []string
	if d.Methods.Heading != nil {
		out = append(out, *d.Methods.Heading)
	}
	if g, ok := d.Methods.Content.(Grouped); ok {
		for _, s := range g {
			if !s.Untitled {
				out = append(out, s.Label)
			}
		}
	}
	if d.ResultsDiscussion.MatchedHeading != nil {
		out = append(out, *d.ResultsDiscussion.MatchedHeading)
	}
	for _, s := range d.ResultsDiscussion.Subsections {
		if s.Subheading != nil {
			out = append(out, *s.Subheading)
		}
	}
	return out
}
