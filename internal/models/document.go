// Package models defines the document, section, and search structures shared across kubun.
package models

import (
	"fmt"
	"strings"
)

// Block is one structural unit of a document body: an optional heading, free-form
// type hints (e.g. TEI div attributes), and paragraphs in document order.
type Block struct {
	Heading    string   `json:"heading,omitempty"`
	TypeHints  []string `json:"type_hints,omitempty"`
	Paragraphs []string `json:"paragraphs"`
}

// HasHeading reports whether the block carries a non-blank heading.
func (b Block) HasHeading() bool {
	return strings.TrimSpace(b.Heading) != ""
}

// Document is a parsed scholarly document ready for segmentation.
type Document struct {
	ID       string   `json:"id,omitempty"`
	Source   string   `json:"source,omitempty"`
	Title    string   `json:"title"`
	Abstract []string `json:"abstract,omitempty"`
	Blocks   []Block  `json:"blocks"`
}

// Validate checks that a decoded document carries something to segment.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("document is nil")
	}
	if strings.TrimSpace(d.Title) == "" && len(d.Abstract) == 0 && len(d.Blocks) == 0 {
		return fmt.Errorf("document has no title, abstract, or body blocks")
	}
	return nil
}

// HeadingCount returns the number of blocks that carry a heading.
func (d *Document) HeadingCount() int {
	n := 0
	for _, b := range d.Blocks {
		if b.HasHeading() {
			n++
		}
	}
	return n
}
