// Package assembler runs the four section extractions over one document and merges
// them into DocumentSections.
package assembler

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/heading"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/internal/segment"
	"github.com/hyperjump/kubun/pkg/utils"
)

// ResultsDiscussionHeading labels the merged results/discussion section in output.
const ResultsDiscussionHeading = "results_and_discussion"

// Assembler builds DocumentSections. Sections are extracted independently:
// a failure in one leaves that section empty and does not stop the others.
type Assembler struct {
	matcher     *heading.Matcher
	engine      *segment.Engine
	configs     *segment.Configs
	flatMethods bool
	logger      *zap.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger for the assembler.
func WithLogger(l *zap.Logger) Option {
	return func(a *Assembler) {
		a.logger = l
	}
}

// WithConfigs replaces the built-in section configurations.
func WithConfigs(c *segment.Configs) Option {
	return func(a *Assembler) {
		a.configs = c
	}
}

// WithFlatMethods returns methods content as a flat paragraph list.
func WithFlatMethods(flat bool) Option {
	return func(a *Assembler) {
		a.flatMethods = flat
	}
}

// New creates an Assembler that matches headings with m.
func New(m *heading.Matcher, opts ...Option) *Assembler {
	a := &Assembler{
		matcher: m,
		configs: segment.DefaultConfigs(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.engine = segment.NewEngine(m, segment.WithLogger(a.logger))
	return a
}

// Warm pre-embeds every configured phrase set.
func (a *Assembler) Warm(ctx context.Context) error {
	return a.matcher.Warm(ctx, a.configs.PhraseSets()...)
}

// Assemble extracts all four sections. The returned sections are always non-nil;
// the error combines the failures of individual sections.
func (a *Assembler) Assemble(ctx context.Context, doc *models.Document) (*models.DocumentSections, error) {
	return a.assemble(ctx, doc, true)
}

// AbstractAndResults is Assemble without the methods section. Methods is left empty.
func (a *Assembler) AbstractAndResults(ctx context.Context, doc *models.Document) (*models.DocumentSections, error) {
	return a.assemble(ctx, doc, false)
}

func (a *Assembler) assemble(ctx context.Context, doc *models.Document, withMethods bool) (*models.DocumentSections, error) {
	out := &models.DocumentSections{
		Title:             a.Title(doc),
		Abstract:          models.AbstractSection{Heading: "abstract", Content: []string{}},
		Methods:           emptyMethods(a.methodsPolicy()),
		ResultsDiscussion: emptyResultsDiscussion(),
	}
	var errs error

	if abs, err := a.Abstract(ctx, doc); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("abstract: %w", err))
		a.logger.Warn("abstract extraction failed", zap.String("doc_id", doc.ID), zap.Error(err))
	} else {
		out.Abstract = abs
	}

	if withMethods {
		if m, err := a.Methods(ctx, doc); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("methods: %w", err))
			a.logger.Warn("methods extraction failed", zap.String("doc_id", doc.ID), zap.Error(err))
		} else {
			out.Methods = m
		}
	}

	if rd, err := a.ResultsDiscussion(ctx, doc); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("results_discussion: %w", err))
		a.logger.Warn("results/discussion extraction failed", zap.String("doc_id", doc.ID), zap.Error(err))
	} else {
		out.ResultsDiscussion = rd
	}

	return out, errs
}

// Title reads the title from document metadata.
func (a *Assembler) Title(doc *models.Document) models.TitleSection {
	return models.TitleSection{Heading: "title", Content: utils.CleanText(doc.Title)}
}

// Abstract uses explicit abstract paragraphs when present, otherwise the first body
// block whose heading matches an alternate abstract phrase.
func (a *Assembler) Abstract(ctx context.Context, doc *models.Document) (models.AbstractSection, error) {
	if paras := utils.CleanParagraphs(doc.Abstract); len(paras) > 0 {
		return models.AbstractSection{Heading: "abstract", Content: paras}, nil
	}
	for _, b := range doc.Blocks {
		norm := heading.Normalize(b.Heading)
		if norm == "" {
			continue
		}
		ok, err := a.matcher.Matches(ctx, norm, a.configs.AbstractAlternates, a.configs.AbstractThreshold, heading.WholeHeading)
		if err != nil {
			return models.AbstractSection{}, err
		}
		if ok {
			return models.AbstractSection{
				Heading: utils.CollapseWhitespace(b.Heading),
				Content: utils.CleanParagraphs(b.Paragraphs),
			}, nil
		}
	}
	return models.AbstractSection{Heading: "abstract", Content: []string{}}, nil
}

// Methods runs the Methods configuration.
func (a *Assembler) Methods(ctx context.Context, doc *models.Document) (models.MethodsSection, error) {
	res, err := a.engine.Segment(ctx, doc.Blocks, a.configs.Methods, a.methodsPolicy())
	if err != nil {
		return models.MethodsSection{}, err
	}
	return models.MethodsSection{
		Heading:         res.Heading,
		SimilarityScore: res.Score,
		Content:         res.Content,
	}, nil
}

// ResultsDiscussion runs the merged Results/Discussion configuration. The untitled
// bucket becomes a subsection with a null subheading.
func (a *Assembler) ResultsDiscussion(ctx context.Context, doc *models.Document) (models.ResultsDiscussionSection, error) {
	res, err := a.engine.Segment(ctx, doc.Blocks, a.configs.ResultsDiscussion, segment.OutputGrouped)
	if err != nil {
		return models.ResultsDiscussionSection{}, err
	}
	out := emptyResultsDiscussion()
	out.MatchedHeading = res.Heading
	out.SimilarityScore = res.Score
	groups, _ := res.Content.(models.Grouped)
	for _, g := range groups {
		rec := models.SubsectionRecord{Content: g.Paragraphs}
		if !g.Untitled {
			label := g.Label
			rec.Subheading = &label
		}
		out.Subsections = append(out.Subsections, rec)
	}
	return out, nil
}

func (a *Assembler) methodsPolicy() segment.OutputPolicy {
	if a.flatMethods {
		return segment.OutputFlat
	}
	return segment.OutputGrouped
}

func emptyMethods(policy segment.OutputPolicy) models.MethodsSection {
	if policy == segment.OutputFlat {
		return models.MethodsSection{Content: models.Flat{}}
	}
	return models.MethodsSection{Content: models.Grouped{}}
}

func emptyResultsDiscussion() models.ResultsDiscussionSection {
	return models.ResultsDiscussionSection{
		Heading:     ResultsDiscussionHeading,
		Subsections: []models.SubsectionRecord{},
	}
}
