package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/pkg/utils"
)

// parseDOCX starts a block at every paragraph styled HeadingN. A Title-styled
// paragraph sets the document title.
func parseDOCX(data []byte) (*models.Document, error) {
	d, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}
	doc := &models.Document{}
	var cur *models.Block
	flush := func() {
		if cur != nil {
			doc.Blocks = append(doc.Blocks, *cur)
		}
		cur = nil
	}
	for _, item := range d.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := utils.CleanText(docxParagraphText(para))
		if text == "" {
			continue
		}
		style := docxStyle(para)
		switch {
		case strings.EqualFold(style, "Title"):
			if doc.Title == "" {
				doc.Title = text
			}
		case docxHeadingLevel(style) > 0:
			flush()
			cur = &models.Block{Heading: text}
		default:
			if cur == nil {
				cur = &models.Block{}
			}
			cur.Paragraphs = append(cur.Paragraphs, text)
		}
	}
	flush()
	return doc, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

// docxHeadingLevel accepts both style IDs ("Heading2") and names ("heading 2").
func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if !strings.HasPrefix(s, "heading") || len(s) != len("heading")+1 {
		return 0
	}
	c := s[len(s)-1]
	if c < '1' || c > '9' {
		return 0
	}
	return int(c - '0')
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
