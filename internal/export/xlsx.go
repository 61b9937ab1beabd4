// Package export writes stored extractions to spreadsheet workbooks.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/kubun/internal/models"
)

// Sheet names in the exported workbook.
const (
	SheetDocuments  = "Documents"
	SheetParagraphs = "Paragraphs"
)

var documentHeader = []any{
	"document_id", "title", "source", "abstract_heading", "methods_heading",
	"methods_score", "results_heading", "results_score", "methods_paragraphs",
	"results_paragraphs", "errors", "created_at",
}

var paragraphHeader = []any{"document_id", "section", "subsection", "index", "text"}

// WriteXLSX writes one row per extraction to the Documents sheet and one row per
// paragraph to the Paragraphs sheet.
func WriteXLSX(w io.Writer, extractions []*models.Extraction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetDocuments); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetParagraphs); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := setRow(f, SheetDocuments, 1, documentHeader); err != nil {
		return err
	}
	if err := setRow(f, SheetParagraphs, 1, paragraphHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	_ = f.SetRowStyle(SheetDocuments, 1, 1, bold)
	_ = f.SetRowStyle(SheetParagraphs, 1, 1, bold)

	docRow, paraRow := 2, 2
	for _, e := range extractions {
		if err := setRow(f, SheetDocuments, docRow, documentRow(e)); err != nil {
			return err
		}
		docRow++
		for _, p := range paragraphRows(e) {
			if err := setRow(f, SheetParagraphs, paraRow, p); err != nil {
				return err
			}
			paraRow++
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func documentRow(e *models.Extraction) []any {
	row := []any{e.DocumentID, e.Title, e.Source, "", "", 0.0, "", 0.0, 0, 0,
		strings.Join(e.Errors, "; "), e.CreatedAt.UTC().Format(time.RFC3339)}
	ds := e.Sections
	if ds == nil {
		return row
	}
	row[3] = ds.Abstract.Heading
	row[4] = deref(ds.Methods.Heading)
	row[5] = ds.Methods.SimilarityScore
	row[6] = deref(ds.ResultsDiscussion.MatchedHeading)
	row[7] = ds.ResultsDiscussion.SimilarityScore
	row[8] = len(ds.Paragraphs(models.SectionMethods))
	row[9] = len(ds.Paragraphs(models.SectionResultsDiscussion))
	return row
}

func paragraphRows(e *models.Extraction) [][]any {
	ds := e.Sections
	if ds == nil {
		return nil
	}
	var rows [][]any
	add := func(section, subsection string, paras []string) {
		for _, p := range paras {
			rows = append(rows, []any{e.DocumentID, section, subsection, len(rows), p})
		}
	}
	add(models.SectionAbstract, "", ds.Abstract.Content)
	switch c := ds.Methods.Content.(type) {
	case models.Grouped:
		for _, s := range c {
			add(models.SectionMethods, s.Label, s.Paragraphs)
		}
	case models.Flat:
		add(models.SectionMethods, "", c)
	}
	for _, s := range ds.ResultsDiscussion.Subsections {
		add(models.SectionResultsDiscussion, deref(s.Subheading), s.Content)
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
