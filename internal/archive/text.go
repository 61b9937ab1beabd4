package archive

import (
	"strings"

	"github.com/hyperjump/kubun/internal/models"
)

const defaultMethodsHeading = "Methods"

// RenderText lays sections out as plain text: a "### HEADING" line per section and a
// "#### label" line per subsection, paragraphs separated by blank lines.
func RenderText(ds *models.DocumentSections) string {
	var b strings.Builder
	section := func(heading string) {
		b.WriteString("### ")
		b.WriteString(strings.ToUpper(heading))
		b.WriteString("\n\n")
	}
	paras := func(ps []string) {
		for _, p := range ps {
			b.WriteString(p)
			b.WriteString("\n\n")
		}
	}
	sub := func(label string) {
		b.WriteString("#### ")
		b.WriteString(label)
		b.WriteString("\n")
	}

	section(ds.Title.Heading)
	b.WriteString(ds.Title.Content)
	b.WriteString("\n\n")

	section(ds.Abstract.Heading)
	paras(ds.Abstract.Content)

	m := ds.Methods
	heading := defaultMethodsHeading
	if m.Heading != nil {
		heading = *m.Heading
	}
	section(heading)
	switch c := m.Content.(type) {
	case models.Grouped:
		for _, s := range c {
			sub(s.Label)
			paras(s.Paragraphs)
		}
	case models.Flat:
		paras(c)
	}

	rd := ds.ResultsDiscussion
	section(rd.Heading)
	for _, s := range rd.Subsections {
		if s.Subheading != nil {
			sub(*s.Subheading)
		}
		paras(s.Content)
	}
	return b.String()
}
