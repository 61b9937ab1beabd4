// Package tei reads GROBID TEI XML into a models.Document.
package tei

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/pkg/utils"
)

// Namespace is the TEI XML namespace.
const Namespace = "http://www.tei-c.org/ns/1.0"

// ErrNotTEI is returned when the input is not a TEI document.
var ErrNotTEI = errors.New("not a TEI document")

// IsTEI reports whether data looks like a TEI document without fully parsing it.
func IsTEI(data []byte) bool {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	return bytes.Contains(head, []byte("<TEI")) || bytes.Contains(head, []byte(Namespace))
}

type captureKind int

const (
	captureTitle captureKind = iota
	captureAbstract
	captureHead
	capturePara
)

type textCapture struct {
	kind  captureKind
	depth int
	block int
	buf   strings.Builder
}

type parser struct {
	stack    []string
	doc      models.Document
	divs     []int
	cur      *textCapture
	hasTitle bool
	sawRoot  bool
}

// Parse reads TEI from r. The title comes from teiHeader/fileDesc/titleStmt/title,
// the abstract from every p under abstract, and one Block per body div in document
// order: its head text, its attribute values as type hints, and its direct p children.
func Parse(r io.Reader) (*models.Document, error) {
	dec := xml.NewDecoder(r)
	p := &parser{}
	p.doc.Blocks = []models.Block{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !p.sawRoot {
				return nil, fmt.Errorf("%w: %v", ErrNotTEI, err)
			}
			return nil, fmt.Errorf("parse TEI: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.start(t); err != nil {
				return nil, err
			}
		case xml.CharData:
			if p.cur != nil {
				p.cur.buf.Write(t)
			}
		case xml.EndElement:
			p.end(t)
		}
	}
	if !p.sawRoot {
		return nil, ErrNotTEI
	}
	return &p.doc, nil
}

func (p *parser) start(t xml.StartElement) error {
	name := t.Name.Local
	p.stack = append(p.stack, name)
	depth := len(p.stack)
	if depth == 1 {
		if name != "TEI" {
			return fmt.Errorf("%w: root element <%s>", ErrNotTEI, name)
		}
		p.sawRoot = true
	}
	if p.cur != nil {
		if name == "lb" {
			p.cur.buf.WriteByte(' ')
		}
		return nil
	}

	parent := ""
	if depth > 1 {
		parent = p.stack[depth-2]
	}
	inBody := p.within("body")
	switch {
	case name == "title" && parent == "titleStmt" && p.within("fileDesc") && !p.hasTitle:
		p.cur = &textCapture{kind: captureTitle, depth: depth}
	case name == "p" && p.within("abstract"):
		p.cur = &textCapture{kind: captureAbstract, depth: depth}
	case name == "div" && inBody:
		hints := make([]string, 0, len(t.Attr))
		for _, a := range t.Attr {
			if v := strings.TrimSpace(a.Value); v != "" {
				hints = append(hints, v)
			}
		}
		p.doc.Blocks = append(p.doc.Blocks, models.Block{TypeHints: hints, Paragraphs: []string{}})
		p.divs = append(p.divs, len(p.doc.Blocks)-1)
	case name == "head" && parent == "div" && inBody && len(p.divs) > 0:
		p.cur = &textCapture{kind: captureHead, depth: depth, block: p.divs[len(p.divs)-1]}
	case name == "p" && parent == "div" && inBody && len(p.divs) > 0:
		p.cur = &textCapture{kind: capturePara, depth: depth, block: p.divs[len(p.divs)-1]}
	}
	return nil
}

func (p *parser) end(t xml.EndElement) {
	depth := len(p.stack)
	if depth == 0 {
		return
	}
	switch {
	case p.cur != nil && depth == p.cur.depth:
		p.finish()
	case p.cur != nil:
		// inline markup inside captured text
	case t.Name.Local == "div" && p.within("body") && len(p.divs) > 0:
		p.divs = p.divs[:len(p.divs)-1]
	}
	p.stack = p.stack[:depth-1]
}

func (p *parser) finish() {
	c := p.cur
	p.cur = nil
	text := utils.CleanText(c.buf.String())
	switch c.kind {
	case captureTitle:
		p.doc.Title = text
		p.hasTitle = true
	case captureAbstract:
		if text != "" {
			p.doc.Abstract = append(p.doc.Abstract, text)
		}
	case captureHead:
		b := &p.doc.Blocks[c.block]
		if b.Heading == "" {
			b.Heading = text
		}
	case capturePara:
		if text != "" {
			b := &p.doc.Blocks[c.block]
			b.Paragraphs = append(b.Paragraphs, text)
		}
	}
}

func (p *parser) within(name string) bool {
	for _, s := range p.stack {
		if s == name {
			return true
		}
	}
	return false
}
