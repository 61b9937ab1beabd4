package loader

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lu4p/cat"

	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/pkg/utils"
)

const maxHeadingRunes = 80

var (
	numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*[.):]?\s+\S`)
	romanHeading    = regexp.MustCompile(`^[IVXLCDM]+\.\s+\S`)
	letterHeading   = regexp.MustCompile(`^[A-Z]\.\s+\S`)
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+`)
)

// looksLikeHeading reports whether a single line of plain text reads like a section
// heading: short, no closing punctuation, and either outline-numbered, prefixed with
// markdown hashes, a well-known section name, or written in capitals.
func looksLikeHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > maxHeadingRunes {
		return false
	}
	if markdownHeading.MatchString(line) {
		return true
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") || strings.HasSuffix(line, ";") {
		return false
	}
	if numberedHeading.MatchString(line) || romanHeading.MatchString(line) || letterHeading.MatchString(line) {
		return true
	}
	return isKnownSection(line) || isUpperLine(line)
}

func looksLikeTitle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > 2*maxHeadingRunes || strings.HasSuffix(line, ".") {
		return false
	}
	return !isKnownSection(line) && !numberedHeading.MatchString(line)
}

func isUpperLine(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

func headingText(line string) string {
	return strings.TrimSpace(markdownHeading.ReplaceAllString(strings.TrimSpace(line), ""))
}

// parseText splits text into paragraphs on blank lines and starts a new block at each
// paragraph whose first line reads like a heading; the remaining lines stay as that
// block's first paragraph. A lone title-like line before anything else is the title.
func parseText(text string) *models.Document {
	doc := &models.Document{}
	var cur *models.Block
	flush := func() {
		if cur != nil {
			doc.Blocks = append(doc.Blocks, *cur)
		}
		cur = nil
	}
	for _, para := range splitParagraphs(text) {
		lines := strings.Split(para, "\n")
		if doc.Title == "" && cur == nil && len(doc.Blocks) == 0 && len(lines) == 1 && looksLikeTitle(headingText(lines[0])) {
			doc.Title = headingText(lines[0])
			continue
		}
		if looksLikeHeading(lines[0]) {
			flush()
			cur = &models.Block{Heading: headingText(lines[0])}
			lines = lines[1:]
		}
		body := utils.CleanText(strings.Join(lines, " "))
		if body == "" {
			continue
		}
		if cur == nil {
			cur = &models.Block{}
		}
		cur.Paragraphs = append(cur.Paragraphs, body)
	}
	flush()
	return doc
}

var knownSections = map[string]bool{
	"abstract": true, "introduction": true, "background": true, "methods": true,
	"materials and methods": true, "results": true, "discussion": true,
	"results and discussion": true, "conclusion": true, "conclusions": true,
	"references": true, "acknowledgements": true, "acknowledgments": true,
}

func isKnownSection(h string) bool {
	return knownSections[strings.ToLower(utils.CollapseWhitespace(strings.TrimRight(h, ":")))]
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var out []string
	var cur []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				out = append(out, strings.Join(cur, "\n"))
				cur = nil
			}
			continue
		}
		cur = append(cur, strings.TrimSpace(line))
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, "\n"))
	}
	return out
}

func validUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

// parseWithCat reads ODT and RTF documents as plain text.
func parseWithCat(data []byte) (*models.Document, error) {
	text, err := cat.FromBytes(data)
	if err != nil {
		return nil, err
	}
	return parseText(text), nil
}
