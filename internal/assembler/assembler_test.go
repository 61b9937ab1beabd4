package assembler

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/kubun/internal/embedding/embeddingtest"
	"github.com/hyperjump/kubun/internal/heading"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/internal/segment"
)

func newTestAssembler(opts ...Option) *Assembler {
	return New(heading.NewMatcher(embeddingtest.NewBagOfWords(2048)), opts...)
}

func sampleDocument() *models.Document {
	return &models.Document{
		ID:       "doc-1",
		Title:    "  Binding of  Protein X ",
		Abstract: []string{"We study protein X.", "  "},
		Blocks: []models.Block{
			{Heading: "1. Introduction", Paragraphs: []string{"Protein X is important."}},
			{Heading: "2. Materials and Methods", Paragraphs: []string{"We purified protein X."}},
			{Heading: "2.1 Cell culture", Paragraphs: []string{"HeLa cells were grown."}},
			{Heading: "3. Results and Discussion", Paragraphs: []string{"Protein X bound the substrate."}},
			{Heading: "Binding assay", Paragraphs: []string{"Kd was 5 nM."}},
			{Heading: "Limitations", Paragraphs: []string{"One cell line."}},
			{Heading: "4. Conclusion", Paragraphs: []string{"Protein X binds."}},
			{Heading: "References", Paragraphs: []string{"[1] Ref."}},
		},
	}
}

func TestAssemble(t *testing.T) {
	a := newTestAssembler()
	if err := a.Warm(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, err := a.Assemble(context.Background(), sampleDocument())
	if err != nil {
		t.Fatal(err)
	}

	if got.Title.Heading != "title" || got.Title.Content != "Binding of Protein X" {
		t.Errorf("title = %+v", got.Title)
	}
	if got.Abstract.Heading != "abstract" || !reflect.DeepEqual(got.Abstract.Content, []string{"We study protein X."}) {
		t.Errorf("abstract = %+v", got.Abstract)
	}

	if got.Methods.Heading == nil || *got.Methods.Heading != "2. Materials and Methods" {
		t.Errorf("methods heading = %v", got.Methods.Heading)
	}
	if got.Methods.SimilarityScore != 1.0 {
		t.Errorf("methods score = %v", got.Methods.SimilarityScore)
	}
	g, ok := got.Methods.Content.(models.Grouped)
	if !ok {
		t.Fatalf("methods content is %T", got.Methods.Content)
	}
	if !reflect.DeepEqual(g.Labels(), []string{"Materials and Methods", "Cell culture"}) {
		t.Errorf("methods labels = %v", g.Labels())
	}

	rd := got.ResultsDiscussion
	if rd.Heading != ResultsDiscussionHeading {
		t.Errorf("rd heading = %q", rd.Heading)
	}
	if rd.MatchedHeading == nil || *rd.MatchedHeading != "3. Results and Discussion" {
		t.Errorf("rd matched heading = %v", rd.MatchedHeading)
	}
	var subs []string
	for _, s := range rd.Subsections {
		if s.Subheading == nil {
			t.Fatal("unexpected untitled subsection")
		}
		subs = append(subs, *s.Subheading)
	}
	if !reflect.DeepEqual(subs, []string{"Results and Discussion", "Binding assay", "Limitations"}) {
		t.Errorf("rd subsections = %v", subs)
	}
}

func TestAbstract_AlternateHeading(t *testing.T) {
	doc := &models.Document{
		Blocks: []models.Block{
			{Heading: "Keywords", Paragraphs: []string{"k"}},
			{Heading: "1. Introduction", Paragraphs: []string{"Intro paragraph."}},
			{Heading: "Background", Paragraphs: []string{"Later."}},
		},
	}
	abs, err := newTestAssembler().Abstract(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if abs.Heading != "1. Introduction" || !reflect.DeepEqual(abs.Content, []string{"Intro paragraph."}) {
		t.Errorf("abstract = %+v", abs)
	}
}

func TestAbstract_None(t *testing.T) {
	doc := &models.Document{Blocks: []models.Block{{Heading: "Methods", Paragraphs: []string{"m"}}}}
	abs, err := newTestAssembler().Abstract(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if abs.Heading != "abstract" || len(abs.Content) != 0 {
		t.Errorf("abstract = %+v", abs)
	}
}

func TestResultsDiscussion_UntitledHasNullSubheading(t *testing.T) {
	rd := segment.MustSectionMatchConfig(segment.ConfigSpec{
		Name:              "rd",
		Anchors:           []string{"results"},
		Stopwords:         []string{"conclusion"},
		TypeHintMarkers:   []string{"results"},
		AnchorThreshold:   0.8,
		FallbackThreshold: 0.5,
		StopwordThreshold: 0.65,
	})
	configs := segment.DefaultConfigs()
	configs.ResultsDiscussion = rd
	doc := &models.Document{Blocks: []models.Block{
		{TypeHints: []string{"results"}, Paragraphs: []string{"free text"}},
		{Heading: "Binding", Paragraphs: []string{"bound"}},
	}}
	got, err := newTestAssembler(WithConfigs(configs)).ResultsDiscussion(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Subsections) != 2 {
		t.Fatalf("subsections = %+v", got.Subsections)
	}
	if got.Subsections[0].Subheading != nil {
		t.Errorf("untitled subheading = %q, want null", *got.Subsections[0].Subheading)
	}
	if got.Subsections[1].Subheading == nil || *got.Subsections[1].Subheading != "Binding" {
		t.Errorf("second subheading = %v", got.Subsections[1].Subheading)
	}
	if got.SimilarityScore != 0.5 || got.MatchedHeading == nil || *got.MatchedHeading != "Binding" {
		t.Errorf("score %v matched %v", got.SimilarityScore, got.MatchedHeading)
	}
}

func TestAssemble_FlatMethods(t *testing.T) {
	got, err := newTestAssembler(WithFlatMethods(true)).Assemble(context.Background(), sampleDocument())
	if err != nil {
		t.Fatal(err)
	}
	flat, ok := got.Methods.Content.(models.Flat)
	if !ok {
		t.Fatalf("methods content is %T, want models.Flat", got.Methods.Content)
	}
	if !reflect.DeepEqual([]string(flat), []string{"We purified protein X.", "HeLa cells were grown."}) {
		t.Errorf("flat methods = %v", flat)
	}
}

func TestAssemble_EmptyDocument(t *testing.T) {
	got, err := newTestAssembler().Assemble(context.Background(), &models.Document{Title: "Only a title"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Methods.Heading != nil || got.Methods.SimilarityScore != 0 {
		t.Errorf("methods = %+v", got.Methods)
	}
	b, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"heading":"title"`, `"content":"Only a title"`, `"methods":{"heading":null,"similarity_score":0,"content":{}}`, `"subsections":[]`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("json %s missing %s", b, want)
		}
	}
}

func TestAssemble_FailuresAreIndependent(t *testing.T) {
	a := New(heading.NewMatcher(embeddingtest.Failing{}))
	doc := sampleDocument()
	got, err := a.Assemble(context.Background(), doc)
	if !errors.Is(err, embeddingtest.ErrEmbed) {
		t.Fatalf("err = %v, want ErrEmbed", err)
	}
	// the explicit abstract needs no embedder
	if got.Title.Content == "" || len(got.Abstract.Content) != 1 {
		t.Errorf("title/abstract should survive: %+v %+v", got.Title, got.Abstract)
	}
	if got.Methods.Content == nil || len(got.Methods.Content.Flatten()) != 0 {
		t.Errorf("failed methods should be empty, got %+v", got.Methods)
	}
	if got.ResultsDiscussion.Heading != ResultsDiscussionHeading || len(got.ResultsDiscussion.Subsections) != 0 {
		t.Errorf("failed results/discussion should be empty, got %+v", got.ResultsDiscussion)
	}
	if !strings.Contains(err.Error(), "methods") || !strings.Contains(err.Error(), "results_discussion") {
		t.Errorf("combined error should name both sections: %v", err)
	}
}

// failOnPhrase fails any batch that includes phrase and embeds everything else with inner.
type failOnPhrase struct {
	*embeddingtest.BagOfWords
	phrase string
}

func (f failOnPhrase) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if t == f.phrase {
			return nil, embeddingtest.ErrEmbed
		}
	}
	return f.BagOfWords.EmbedBatch(ctx, texts)
}

func TestAbstractAndResults_AbstractFailureDoesNotBlockResults(t *testing.T) {
	a := New(heading.NewMatcher(failOnPhrase{BagOfWords: embeddingtest.NewBagOfWords(2048), phrase: "overview"}))
	doc := sampleDocument()
	// force the alternate-heading lookup, which embeds the failing phrase set
	doc.Abstract = nil
	got, err := a.AbstractAndResults(context.Background(), doc)
	if !errors.Is(err, embeddingtest.ErrEmbed) || !strings.Contains(err.Error(), "abstract") {
		t.Fatalf("err = %v, want abstract ErrEmbed", err)
	}
	if len(got.Abstract.Content) != 0 {
		t.Errorf("abstract = %+v, want empty", got.Abstract)
	}
	if got.ResultsDiscussion.MatchedHeading == nil || len(got.ResultsDiscussion.Subsections) == 0 {
		t.Errorf("results/discussion should still be extracted: %+v", got.ResultsDiscussion)
	}
	if len(got.Methods.Content.Flatten()) != 0 {
		t.Errorf("methods should be left empty: %+v", got.Methods)
	}
}
