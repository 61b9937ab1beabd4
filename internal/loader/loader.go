// Package loader turns document files into models.Document values for segmentation.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/heading"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/internal/tei"
	"github.com/hyperjump/kubun/pkg/utils"
)

// ErrUnsupportedFormat is returned for file types the loader cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format identifies an input document format.
type Format string

const (
	FormatTEI      Format = "tei"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
	FormatODT      Format = "odt"
	FormatRTF      Format = "rtf"
	FormatText     Format = "text"
)

var extensions = map[string]Format{
	".xml":      FormatTEI,
	".tei":      FormatTEI,
	".json":     FormatJSON,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".docx":     FormatDOCX,
	".pdf":      FormatPDF,
	".odt":      FormatODT,
	".rtf":      FormatRTF,
	".txt":      FormatText,
	".text":     FormatText,
}

// FormatFor returns the format for filename's extension.
func FormatFor(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// SupportedExtensions lists the extensions the loader reads, sorted.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// PDFConverter converts a PDF into TEI XML (e.g. a GROBID client).
type PDFConverter interface {
	ConvertPDF(ctx context.Context, filename string, r io.Reader) ([]byte, error)
}

// Loader reads documents in any supported format.
type Loader struct {
	pdf    PDFConverter
	logger *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger for the loader.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// WithPDFConverter routes PDFs through c. Without one, or when c fails, PDFs are read
// locally with outline-heading heuristics.
func WithPDFConverter(c PDFConverter) Option {
	return func(ld *Loader) {
		ld.pdf = c
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads and parses the file at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*models.Document, error) {
	if _, err := FormatFor(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return l.LoadBytes(ctx, filepath.Base(path), data)
}

// LoadBytes parses data according to filename's extension.
func (l *Loader) LoadBytes(ctx context.Context, filename string, data []byte) (*models.Document, error) {
	format, err := FormatFor(filename)
	if err != nil {
		return nil, err
	}
	doc, err := l.parse(ctx, format, filename, data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	finalize(doc, filename, format)
	l.logger.Debug("document loaded",
		zap.String("file", filename),
		zap.String("format", string(format)),
		zap.Int("blocks", len(doc.Blocks)),
		zap.Int("headings", doc.HeadingCount()))
	return doc, nil
}

func (l *Loader) parse(ctx context.Context, format Format, filename string, data []byte) (*models.Document, error) {
	switch format {
	case FormatTEI:
		return tei.Parse(bytes.NewReader(data))
	case FormatJSON:
		return parseJSON(data)
	case FormatMarkdown:
		return parseMarkdown(data), nil
	case FormatHTML:
		return parseHTML(data)
	case FormatDOCX:
		return parseDOCX(data)
	case FormatPDF:
		return l.parsePDF(ctx, filename, data)
	case FormatODT, FormatRTF:
		return parseWithCat(data)
	case FormatText:
		return parseText(validUTF8(data)), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

func (l *Loader) parsePDF(ctx context.Context, filename string, data []byte) (*models.Document, error) {
	if l.pdf != nil {
		teiXML, err := l.pdf.ConvertPDF(ctx, filename, bytes.NewReader(data))
		if err == nil {
			return tei.Parse(bytes.NewReader(teiXML))
		}
		if ctx.Err() != nil {
			return nil, err
		}
		l.logger.Warn("pdf conversion failed, reading pdf locally", zap.String("file", filename), zap.Error(err))
	}
	return parsePDF(data)
}

func parseJSON(data []byte) (*models.Document, error) {
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document json: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// finalize fills in Source. For formats without real metadata it also derives a
// Title from filename and lifts an explicit "Abstract" block into Document.Abstract.
// JSON documents keep their title and block order as given.
func finalize(doc *models.Document, filename string, format Format) {
	if doc.Source == "" {
		doc.Source = filename
	}
	if doc.Blocks == nil {
		doc.Blocks = []models.Block{}
	}
	if format == FormatJSON {
		return
	}
	doc.Title = utils.CleanText(doc.Title)
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	if len(doc.Abstract) > 0 {
		return
	}
	for i, b := range doc.Blocks {
		if strings.EqualFold(heading.Normalize(b.Heading), "abstract") {
			doc.Abstract = utils.CleanParagraphs(b.Paragraphs)
			doc.Blocks = append(doc.Blocks[:i:i], doc.Blocks[i+1:]...)
			return
		}
	}
}
