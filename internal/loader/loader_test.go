package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/kubun/internal/models"
)

func headings(doc *models.Document) []string {
	out := make([]string, len(doc.Blocks))
	for i, b := range doc.Blocks {
		out[i] = b.Heading
	}
	return out
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"paper.pdf", FormatPDF},
		{"paper.PDF", FormatPDF},
		{"paper.tei.xml", FormatTEI},
		{"notes.md", FormatMarkdown},
		{"page.htm", FormatHTML},
		{"doc.docx", FormatDOCX},
		{"doc.odt", FormatODT},
		{"doc.rtf", FormatRTF},
		{"doc.json", FormatJSON},
		{"doc.txt", FormatText},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.name)
		if err != nil {
			t.Errorf("FormatFor(%q): %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
	if _, err := FormatFor("sheet.xlsx"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("xlsx err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := FormatFor("README"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("no extension err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	if len(exts) != len(extensions) {
		t.Fatalf("got %d extensions", len(exts))
	}
	for i := 1; i < len(exts); i++ {
		if exts[i-1] > exts[i] {
			t.Fatalf("not sorted: %v", exts)
		}
	}
}

const sampleText = `Deep Learning for Protein Folding

Abstract
We study folding.

1. Introduction
Proteins fold.

2. Materials and Methods
We expressed proteins.
Samples were purified.

RESULTS
Folding was fast.
`

func TestLoadBytes_text(t *testing.T) {
	doc, err := New().LoadBytes(context.Background(), "paper.txt", []byte(sampleText))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if doc.Title != "Deep Learning for Protein Folding" {
		t.Errorf("title = %q", doc.Title)
	}
	if !reflect.DeepEqual(doc.Abstract, []string{"We study folding."}) {
		t.Errorf("abstract = %q", doc.Abstract)
	}
	want := []string{"1. Introduction", "2. Materials and Methods", "RESULTS"}
	if got := headings(doc); !reflect.DeepEqual(got, want) {
		t.Fatalf("headings = %q, want %q", got, want)
	}
	if got := doc.Blocks[1].Paragraphs; !reflect.DeepEqual(got, []string{"We expressed proteins. Samples were purified."}) {
		t.Errorf("methods paragraphs = %q", got)
	}
	if doc.Source != "paper.txt" {
		t.Errorf("source = %q", doc.Source)
	}
}

func TestLoadBytes_textTitleFromFilename(t *testing.T) {
	doc, err := New().LoadBytes(context.Background(), "notes.txt", []byte("Just a sentence.\n\nAnother one."))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "notes" {
		t.Errorf("title = %q, want notes", doc.Title)
	}
	if len(doc.Blocks) != 1 || len(doc.Blocks[0].Paragraphs) != 2 || doc.Blocks[0].HasHeading() {
		t.Errorf("blocks = %+v", doc.Blocks)
	}
}

func TestLoadBytes_textInvalidUTF8(t *testing.T) {
	doc, err := New().LoadBytes(context.Background(), "bad.txt", []byte("Some body text\x80 here."))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Blocks) != 1 || doc.Blocks[0].Paragraphs[0] != "Some body text� here." {
		t.Errorf("blocks = %+v", doc.Blocks)
	}
}

const sampleMarkdown = `# Protein Folding

## Abstract

Short abstract.

## 2. Methods

We measured *things* carefully.

- item one
- item two

## Results
Results text.
`

func TestLoadBytes_markdown(t *testing.T) {
	doc, err := New().LoadBytes(context.Background(), "paper.md", []byte(sampleMarkdown))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Protein Folding" {
		t.Errorf("title = %q", doc.Title)
	}
	if !reflect.DeepEqual(doc.Abstract, []string{"Short abstract."}) {
		t.Errorf("abstract = %q", doc.Abstract)
	}
	if got := headings(doc); !reflect.DeepEqual(got, []string{"2. Methods", "Results"}) {
		t.Fatalf("headings = %q", got)
	}
	want := []string{"We measured things carefully.", "item one", "item two"}
	if got := doc.Blocks[0].Paragraphs; !reflect.DeepEqual(got, want) {
		t.Errorf("methods = %q, want %q", got, want)
	}
}

const sampleHTML = `<html><head><title>A Study</title></head><body>
<div class="abstract"><h2>Abstract</h2><p>Abstract text.</p></div>
<section class="methods"><h2>Methods</h2><p>We did <b>this</b>.</p></section>
<script>ignored()</script>
<h2>Results</h2><p>Found.</p>
</body></html>`

func TestLoadBytes_html(t *testing.T) {
	doc, err := New().LoadBytes(context.Background(), "page.html", []byte(sampleHTML))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "A Study" {
		t.Errorf("title = %q", doc.Title)
	}
	if !reflect.DeepEqual(doc.Abstract, []string{"Abstract text."}) {
		t.Errorf("abstract = %q", doc.Abstract)
	}
	if got := headings(doc); !reflect.DeepEqual(got, []string{"Methods", "Results"}) {
		t.Fatalf("headings = %q", got)
	}
	if !reflect.DeepEqual(doc.Blocks[0].TypeHints, []string{"methods"}) {
		t.Errorf("hints = %q", doc.Blocks[0].TypeHints)
	}
	if !reflect.DeepEqual(doc.Blocks[0].Paragraphs, []string{"We did this."}) {
		t.Errorf("paragraphs = %q", doc.Blocks[0].Paragraphs)
	}
	if len(doc.Blocks[1].TypeHints) != 0 {
		t.Errorf("results hints = %q", doc.Blocks[1].TypeHints)
	}
}

func TestLoadBytes_json(t *testing.T) {
	data := `{"title":"T","blocks":[{"heading":"Methods","paragraphs":["p"]}]}`
	doc, err := New().LoadBytes(context.Background(), "doc.json", []byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "T" || len(doc.Blocks) != 1 || doc.Blocks[0].Heading != "Methods" {
		t.Errorf("doc = %+v", doc)
	}
	if _, err := New().LoadBytes(context.Background(), "doc.json", []byte(`{}`)); err == nil {
		t.Error("expected error for empty document")
	}
	if _, err := New().LoadBytes(context.Background(), "doc.json", []byte(`{`)); err == nil {
		t.Error("expected error for malformed json")
	}
}

func TestLoadBytes_jsonKeepsStructure(t *testing.T) {
	data := `{"title":"","blocks":[{"heading":"Abstract","paragraphs":["a"]},{"heading":"Methods","paragraphs":["m"]}]}`
	doc, err := New().LoadBytes(context.Background(), "document.json", []byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "" {
		t.Errorf("title = %q, want empty", doc.Title)
	}
	if len(doc.Abstract) != 0 {
		t.Errorf("abstract = %q, want none", doc.Abstract)
	}
	want := []string{"Abstract", "Methods"}
	if got := headings(doc); !reflect.DeepEqual(got, want) {
		t.Errorf("headings = %q, want %q", got, want)
	}
}

const converterTEI = `<TEI xmlns="http://www.tei-c.org/ns/1.0"><teiHeader><fileDesc><titleStmt><title>Converted</title></titleStmt></fileDesc></teiHeader>
<text><body><div><head>Methods</head><p>Converted methods.</p></div></body></text></TEI>`

type fakeConverter struct {
	calls int
	out   []byte
	err   error
}

func (f *fakeConverter) ConvertPDF(_ context.Context, _ string, r io.Reader) ([]byte, error) {
	f.calls++
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return f.out, f.err
}

func TestLoadBytes_pdfViaConverter(t *testing.T) {
	conv := &fakeConverter{out: []byte(converterTEI)}
	doc, err := New(WithPDFConverter(conv)).LoadBytes(context.Background(), "paper.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatal(err)
	}
	if conv.calls != 1 {
		t.Errorf("converter calls = %d", conv.calls)
	}
	if doc.Title != "Converted" || len(doc.Blocks) != 1 || doc.Blocks[0].Heading != "Methods" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestLoadBytes_pdfConverterFailureFallsBack(t *testing.T) {
	conv := &fakeConverter{err: errors.New("service unavailable")}
	_, err := New(WithPDFConverter(conv)).LoadBytes(context.Background(), "paper.pdf", []byte("not a pdf"))
	if err == nil {
		t.Fatal("expected local pdf parse error")
	}
	if !strings.Contains(err.Error(), "open PDF") {
		t.Errorf("err = %v, want local parse error", err)
	}
	if conv.calls != 1 {
		t.Errorf("converter calls = %d", conv.calls)
	}
}

func TestLoadBytes_pdfConverterCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	conv := &fakeConverter{err: context.Canceled}
	_, err := New(WithPDFConverter(conv)).LoadBytes(ctx, "paper.pdf", []byte("not a pdf"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLoadBytes_unsupported(t *testing.T) {
	_, err := New().LoadBytes(context.Background(), "sheet.xlsx", []byte("x"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v", err)
	}
}

func TestLoadBytes_docxNotZip(t *testing.T) {
	if _, err := New().LoadBytes(context.Background(), "doc.docx", []byte("not a zip")); err == nil {
		t.Error("expected error for invalid docx")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.md")
	if err := os.WriteFile(path, []byte(sampleMarkdown), 0600); err != nil {
		t.Fatal(err)
	}
	doc, err := New().LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if doc.Source != "paper.md" || doc.Title != "Protein Folding" {
		t.Errorf("doc = %+v", doc)
	}
	if _, err := New().LoadFile(context.Background(), filepath.Join(dir, "missing.md")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLooksLikeHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"2.1 Cell culture", true},
		{"3) Results", true},
		{"IV. Discussion", true},
		{"B. Statistical analysis", true},
		{"### Methods", true},
		{"MATERIALS AND METHODS", true},
		{"Introduction", true},
		{"Conclusions:", true},
		{"We measured the samples.", false},
		{"2019 was a good year.", false},
		{"A regular sentence without a period", false},
		{"", false},
		{strings.Repeat("LONG ", 30), false},
	}
	for _, tt := range tests {
		if got := looksLikeHeading(tt.line); got != tt.want {
			t.Errorf("looksLikeHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestDocxHeadingLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"Heading1", 1},
		{"heading 2", 2},
		{"Heading 3", 3},
		{"Heading", 0},
		{"Heading10", 0},
		{"Normal", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := docxHeadingLevel(tt.style); got != tt.want {
			t.Errorf("docxHeadingLevel(%q) = %d, want %d", tt.style, got, tt.want)
		}
	}
}
