package tei

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const sampleTEI = `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <teiHeader>
    <fileDesc>
      <titleStmt>
        <title level="a" type="main">Binding of  Protein X</title>
      </titleStmt>
      <sourceDesc><biblStruct><analytic><title>Ignored title</title></analytic></biblStruct></sourceDesc>
    </fileDesc>
    <profileDesc>
      <abstract>
        <div><p>We study <hi rend="italic">protein</hi> X.</p><p>  </p></div>
      </abstract>
    </profileDesc>
  </teiHeader>
  <text>
    <body>
      <div><head n="1">Introduction</head><p>Protein X is <ref type="bibr">[1]</ref> important.</p></div>
      <div type="methods" subtype="materials">
        <head n="2">Materials and Methods</head>
        <p>We purified
           protein X.</p>
        <div><head>Cell culture</head><p>HeLa cells.</p></div>
        <p>Trailing methods text.</p>
      </div>
      <div><p>Headless paragraph.</p></div>
    </body>
    <back><div type="references"><head>References</head><p>Not in body.</p></div></back>
  </text>
</TEI>`

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleTEI))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Binding of Protein X" {
		t.Errorf("title = %q", doc.Title)
	}
	if !reflect.DeepEqual(doc.Abstract, []string{"We study protein X."}) {
		t.Errorf("abstract = %q", doc.Abstract)
	}
	if len(doc.Blocks) != 4 {
		t.Fatalf("got %d blocks, want 4: %+v", len(doc.Blocks), doc.Blocks)
	}

	intro := doc.Blocks[0]
	if intro.Heading != "Introduction" || !reflect.DeepEqual(intro.Paragraphs, []string{"Protein X is [1] important."}) {
		t.Errorf("intro = %+v", intro)
	}

	methods := doc.Blocks[1]
	if methods.Heading != "Materials and Methods" {
		t.Errorf("methods heading = %q", methods.Heading)
	}
	if !reflect.DeepEqual(methods.TypeHints, []string{"methods", "materials"}) {
		t.Errorf("type hints = %v", methods.TypeHints)
	}
	wantParas := []string{"We purified protein X.", "Trailing methods text."}
	if !reflect.DeepEqual(methods.Paragraphs, wantParas) {
		t.Errorf("methods paragraphs = %q", methods.Paragraphs)
	}

	nested := doc.Blocks[2]
	if nested.Heading != "Cell culture" || !reflect.DeepEqual(nested.Paragraphs, []string{"HeLa cells."}) {
		t.Errorf("nested = %+v", nested)
	}

	headless := doc.Blocks[3]
	if headless.HasHeading() || !reflect.DeepEqual(headless.Paragraphs, []string{"Headless paragraph."}) {
		t.Errorf("headless = %+v", headless)
	}
}

func TestParse_NotTEI(t *testing.T) {
	inputs := []string{
		"",
		"plain text, not xml",
		`<html><body><p>hi</p></body></html>`,
	}
	for _, in := range inputs {
		if _, err := Parse(strings.NewReader(in)); !errors.Is(err, ErrNotTEI) {
			t.Errorf("Parse(%q) err = %v, want ErrNotTEI", in, err)
		}
	}
}

func TestParse_Truncated(t *testing.T) {
	_, err := Parse(strings.NewReader(`<TEI><text><body><div><head>Methods`))
	if err == nil {
		t.Fatal("expected error for truncated TEI")
	}
	if errors.Is(err, ErrNotTEI) {
		t.Errorf("truncated TEI should be a parse error, got %v", err)
	}
}

func TestIsTEI(t *testing.T) {
	if !IsTEI([]byte(sampleTEI)) {
		t.Error("sample should be TEI")
	}
	if IsTEI([]byte(`<html></html>`)) {
		t.Error("html is not TEI")
	}
}
