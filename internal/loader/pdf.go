package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/kubun/internal/models"
)

// parsePDF extracts page text locally and recovers blocks with the plain-text
// heading heuristics. Used when no PDF converter is configured or it fails.
func parsePDF(content []byte) (*models.Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var buf strings.Builder
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}
	return parseText(buf.String()), nil
}
