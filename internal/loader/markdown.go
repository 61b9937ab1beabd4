package loader

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hyperjump/kubun/internal/models"
)

// parseMarkdown maps every ATX or setext heading to a new block. A level-1 heading
// before any other content is the title. List items and block quotes become paragraphs.
func parseMarkdown(src []byte) *models.Document {
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	doc := &models.Document{}
	var cur *models.Block
	flush := func() {
		if cur != nil {
			doc.Blocks = append(doc.Blocks, *cur)
		}
		cur = nil
	}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			title := inlineText(h, src)
			if h.Level == 1 && doc.Title == "" && cur == nil && len(doc.Blocks) == 0 {
				doc.Title = title
				continue
			}
			flush()
			cur = &models.Block{Heading: title}
			continue
		}
		paras := blockParagraphs(n, src)
		if len(paras) == 0 {
			continue
		}
		if cur == nil {
			cur = &models.Block{}
		}
		cur.Paragraphs = append(cur.Paragraphs, paras...)
	}
	flush()
	return doc
}

func blockParagraphs(n ast.Node, src []byte) []string {
	switch n.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if t := inlineText(n, src); t != "" {
			return []string{t}
		}
		return nil
	case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
		var buf bytes.Buffer
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		if t := strings.TrimSpace(buf.String()); t != "" {
			return []string{t}
		}
		return nil
	case ast.KindThematicBreak:
		return nil
	}
	var out []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, blockParagraphs(c, src)...)
	}
	return out
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(t.Value)
			case *ast.CodeSpan:
				walk(t)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}
