package loader

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/pkg/utils"
)

// parseHTML starts a block at every h1-h6 inside body. The document title is the
// <title> element, else a leading h1. Paragraph-like elements become paragraphs and
// those inside class="abstract" fill the abstract. Class and id values of enclosing
// section, article, and div elements become the heading block's type hints.
func parseHTML(data []byte) (*models.Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := &models.Document{Title: utils.CleanText(findTitle(root))}
	var cur *models.Block
	flush := func() {
		if cur != nil {
			doc.Blocks = append(doc.Blocks, *cur)
		}
		cur = nil
	}
	var walk func(n *html.Node, hints []string)
	walk = func(n *html.Node, hints []string) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				title := utils.CleanText(textContent(n))
				if title == "" || inAbstract(hints) {
					return
				}
				if level == 1 && doc.Title == "" && cur == nil && len(doc.Blocks) == 0 {
					doc.Title = title
					return
				}
				flush()
				cur = &models.Block{Heading: title, TypeHints: append(hints[:len(hints):len(hints)], classHints(n)...)}
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "noscript":
				return
			case "p", "li", "td", "blockquote", "figcaption", "pre":
				t := utils.CleanText(textContent(n))
				if t == "" {
					return
				}
				if hasClass(n, "abstract") || inAbstract(hints) {
					doc.Abstract = append(doc.Abstract, t)
					return
				}
				if cur == nil {
					cur = &models.Block{}
				}
				cur.Paragraphs = append(cur.Paragraphs, t)
				return
			case "section", "article", "div":
				if h := classHints(n); len(h) > 0 {
					hints = append(hints[:len(hints):len(hints)], h...)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, hints)
		}
	}
	if body := findBody(root); body != nil {
		walk(body, nil)
	} else {
		walk(root, nil)
	}
	flush()
	return doc, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if strings.EqualFold(c, class) {
			return true
		}
	}
	return false
}

func inAbstract(hints []string) bool {
	for _, h := range hints {
		if strings.EqualFold(h, "abstract") {
			return true
		}
	}
	return false
}

func classHints(n *html.Node) []string {
	var hints []string
	for _, key := range []string{"class", "id"} {
		hints = append(hints, strings.Fields(attr(n, key))...)
	}
	return hints
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
