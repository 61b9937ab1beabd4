// Package cli renders extractions, search results and status for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kubun/internal/archive"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is styled, human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputTXT is the plain section layout also written to the archive.
	OutputTXT OutputFormat = "txt"
	// OutputCompact is one line per document.
	OutputCompact OutputFormat = "compact"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputJSON, OutputTXT, OutputCompact:
		return f, nil
	case "":
		return OutputText, nil
	}
	return "", fmt.Errorf("unknown format %q: want text, json, txt, or compact", s)
}

const snippetWidth = 200

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteExtraction writes one extraction in the given format.
func WriteExtraction(w io.Writer, e *models.Extraction, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, e)
	case OutputTXT:
		if e.Sections == nil {
			return nil
		}
		_, err := io.WriteString(w, archive.RenderText(e.Sections))
		return err
	case OutputCompact:
		_, err := fmt.Fprintln(w, compactLine(e))
		return err
	default:
		writeExtractionText(w, e)
		return nil
	}
}

// WriteExtractions writes a list of extractions. Text and compact formats print one
// line per document; json writes an array.
func WriteExtractions(w io.Writer, list []*models.Extraction, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if list == nil {
			list = []*models.Extraction{}
		}
		return writeJSON(w, list)
	case OutputTXT:
		for _, e := range list {
			if err := WriteExtraction(w, e, OutputTXT); err != nil {
				return err
			}
		}
		return nil
	default:
		if len(list) == 0 {
			fmt.Fprintln(w, dimStyle.Render("No extractions."))
			return nil
		}
		for _, e := range list {
			fmt.Fprintln(w, compactLine(e))
		}
		return nil
	}
}

func compactLine(e *models.Extraction) string {
	status := successStyle.Render("ok")
	if len(e.Errors) > 0 {
		status = errorStyle.Render("failed")
	}
	methods, results := 0, 0
	if e.Sections != nil {
		methods = len(e.Sections.Paragraphs(models.SectionMethods))
		results = len(e.Sections.Paragraphs(models.SectionResultsDiscussion))
	}
	return fmt.Sprintf("%s  %s  %s  methods=%d results=%d",
		dimStyle.Render(e.DocumentID), status, utils.Truncate(e.Title, 60), methods, results)
}

func writeExtractionText(w io.Writer, e *models.Extraction) {
	header := fmt.Sprintf("%s\n%s %s", titleStyle.Render(e.Title), dimStyle.Render("ID:"), e.DocumentID)
	if e.Source != "" {
		header += fmt.Sprintf("\n%s %s", dimStyle.Render("Source:"), e.Source)
	}
	fmt.Fprintln(w, boxStyle.Render(header))
	for _, msg := range e.Errors {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("error:"), msg)
	}
	ds := e.Sections
	if ds == nil {
		return
	}

	fmt.Fprintf(w, "\n%s %s\n", sectionStyle.Render("Abstract"), dimStyle.Render("("+ds.Abstract.Heading+")"))
	writeParagraphs(w, ds.Abstract.Content)

	fmt.Fprintf(w, "\n%s %s\n", sectionStyle.Render("Methods"), matchInfo(ds.Methods.Heading, ds.Methods.SimilarityScore))
	switch c := ds.Methods.Content.(type) {
	case models.Grouped:
		for _, s := range c {
			fmt.Fprintf(w, "  %s\n", titleStyle.Render(s.Label))
			writeParagraphs(w, s.Paragraphs)
		}
	case models.Flat:
		writeParagraphs(w, c)
	}

	rd := ds.ResultsDiscussion
	fmt.Fprintf(w, "\n%s %s\n", sectionStyle.Render("Results and Discussion"), matchInfo(rd.MatchedHeading, rd.SimilarityScore))
	for _, s := range rd.Subsections {
		if s.Subheading != nil {
			fmt.Fprintf(w, "  %s\n", titleStyle.Render(*s.Subheading))
		}
		writeParagraphs(w, s.Content)
	}
}

func matchInfo(h *string, score float64) string {
	if h == nil {
		return dimStyle.Render("(not found)")
	}
	return dimStyle.Render(fmt.Sprintf("(%q, score %.2f)", *h, score))
}

func writeParagraphs(w io.Writer, paras []string) {
	if len(paras) == 0 {
		fmt.Fprintf(w, "    %s\n", dimStyle.Render("(empty)"))
		return
	}
	for _, p := range paras {
		fmt.Fprintf(w, "    %s\n", utils.Truncate(p, snippetWidth))
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, r := range response.Results {
		if format == OutputCompact {
			fmt.Fprintf(w, "%d. %s  %.4f  %s\n", r.Rank, r.DocumentID, r.Score, r.Title)
			continue
		}
		fmt.Fprintln(w, dimStyle.Render(strings.Repeat("─", 57)))
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
			r.Rank, r.Score, r.KeywordScore, r.SemanticScore)
		fmt.Fprintf(w, "%s %s\n", titleStyle.Render(r.Title), dimStyle.Render("["+r.DocumentID+"]"))
		if r.Section != "" {
			fmt.Fprintf(w, "%s %s\n", sectionStyle.Render("Section:"), r.Section)
		}
		if r.Snippet != "" {
			fmt.Fprintf(w, "\n%s\n", r.Snippet)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteStatus writes the status summary.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	grobid := successStyle.Render(st.Grobid)
	if st.Grobid == "down" {
		grobid = errorStyle.Render(st.Grobid)
	}
	lines := []string{
		titleStyle.Render("kubun status"),
		fmt.Sprintf("%s %d (%d failed)", dimStyle.Render("Extractions:"), st.Extractions, st.Failed),
		fmt.Sprintf("%s %d", dimStyle.Render("Keyword documents:"), st.KeywordDocuments),
		fmt.Sprintf("%s %d", dimStyle.Render("Vector paragraphs:"), st.VectorParagraphs),
		fmt.Sprintf("%s %s", dimStyle.Render("Disk usage:"), FormatBytes(st.DiskUsageBytes)),
		fmt.Sprintf("%s %s", dimStyle.Render("GROBID:"), grobid),
		fmt.Sprintf("%s %s / %s", dimStyle.Render("Storage / archive:"), st.StorageDriver, st.ArchiveDriver),
		fmt.Sprintf("%s %s (%d dims)", dimStyle.Render("Embedding:"), st.EmbeddingModel, st.Dimensions),
	}
	if len(st.WatchDirectories) > 0 {
		lines = append(lines, fmt.Sprintf("%s %s", dimStyle.Render("Watching:"), strings.Join(st.WatchDirectories, ", ")))
	}
	fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
