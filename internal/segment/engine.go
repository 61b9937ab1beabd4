// Package segment locates one section in a document's body blocks and captures its
// paragraphs, grouped by subheading, until a stop heading.
package segment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/heading"
	"github.com/hyperjump/kubun/internal/models"
	"github.com/hyperjump/kubun/pkg/utils"
)

// State is the capture state of one segmentation run.
type State int

const (
	// Searching looks for the block that starts the section.
	Searching State = iota
	// Capturing collects paragraphs from the start block onwards.
	Capturing
	// Stopped is terminal: a stop heading was reached.
	Stopped
)

func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case Capturing:
		return "capturing"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// OutputPolicy selects the content variant of a SegmentationResult.
type OutputPolicy int

const (
	// OutputGrouped keeps paragraphs under their subheadings.
	OutputGrouped OutputPolicy = iota
	// OutputFlat returns all captured paragraphs as one list.
	OutputFlat
)

// Engine runs the segmentation state machine. It is safe for concurrent use
// as long as the Matcher's embedder is.
type Engine struct {
	matcher *heading.Matcher
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates an engine that matches headings with m.
func NewEngine(m *heading.Matcher, opts ...Option) *Engine {
	e := &Engine{matcher: m, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// start is where capture begins.
type start struct {
	index   int
	score   float64
	heading *string
	anchor  bool
}

// Segment extracts the section described by cfg from blocks.
// No blocks, or no start block, gives the empty result; only matcher failures are errors.
func (e *Engine) Segment(ctx context.Context, blocks []models.Block, cfg *SectionMatchConfig, policy OutputPolicy) (models.SegmentationResult, error) {
	if len(blocks) == 0 {
		return emptyResult(policy), nil
	}
	st, err := e.locateStart(ctx, blocks, cfg)
	if err != nil {
		return emptyResult(policy), err
	}
	if st.index < 0 {
		e.logger.Debug("section not found", zap.String("section", cfg.Name()), zap.Int("blocks", len(blocks)))
		return emptyResult(policy), nil
	}
	e.logger.Debug("section start",
		zap.String("section", cfg.Name()),
		zap.Int("index", st.index),
		zap.Bool("anchor", st.anchor),
		zap.Float64("score", st.score))

	c := &capture{cfg: cfg, state: Searching, groups: models.Grouped{}}
	c.begin(st)
	for i := st.index; i < len(blocks) && c.state == Capturing; i++ {
		if err := e.step(ctx, c, blocks[i]); err != nil {
			return emptyResult(policy), err
		}
		if c.state == Stopped {
			e.logger.Debug("section stop",
				zap.String("section", cfg.Name()),
				zap.Int("index", i),
				zap.String("heading", blocks[i].Heading))
		}
	}
	c.flush()

	res := models.SegmentationResult{
		Heading:    c.heading,
		Score:      st.score,
		StartIndex: st.index,
	}
	if policy == OutputFlat {
		res.Content = models.Flat(c.groups.Flatten())
	} else {
		res.Content = c.groups
	}
	return res, nil
}

// locateStart runs the anchor pass over the whole document and, only when it finds
// nothing, the fallback pass. Blocks whose heading is a stop heading never start a section.
func (e *Engine) locateStart(ctx context.Context, blocks []models.Block, cfg *SectionMatchConfig) (start, error) {
	for i, b := range blocks {
		norm := heading.Normalize(b.Heading)
		if norm == "" {
			continue
		}
		ok, err := e.matcher.Matches(ctx, norm, cfg.Anchors(), cfg.AnchorThreshold(), heading.WholeHeading)
		if err != nil {
			return start{index: -1}, err
		}
		if !ok {
			continue
		}
		stop, err := e.isStop(ctx, norm, cfg)
		if err != nil {
			return start{index: -1}, err
		}
		if stop {
			continue
		}
		return start{index: i, score: 1.0, heading: displayHeading(b), anchor: true}, nil
	}

	if !cfg.HasFallback() {
		return start{index: -1}, nil
	}
	for i, b := range blocks {
		norm := heading.Normalize(b.Heading)
		hit := cfg.TypeHintMatches(b.TypeHints)
		if !hit && norm != "" && cfg.Fallback() != nil {
			ok, err := e.matcher.Matches(ctx, norm, cfg.Fallback(), cfg.FallbackThreshold(), heading.TokenLevel)
			if err != nil {
				return start{index: -1}, err
			}
			hit = ok
		}
		if !hit {
			continue
		}
		if norm != "" {
			stop, err := e.isStop(ctx, norm, cfg)
			if err != nil {
				return start{index: -1}, err
			}
			if stop {
				continue
			}
		}
		return start{index: i, score: cfg.FallbackThreshold(), heading: displayHeading(b)}, nil
	}
	return start{index: -1}, nil
}

func (e *Engine) isStop(ctx context.Context, norm string, cfg *SectionMatchConfig) (bool, error) {
	return e.matcher.ContainsOrMatches(ctx, norm, cfg.Stopwords(), cfg.StopwordThreshold())
}

// step feeds one block to a capturing run.
func (e *Engine) step(ctx context.Context, c *capture, b models.Block) error {
	norm := heading.Normalize(b.Heading)
	if norm != "" {
		stop, err := e.isStop(ctx, norm, c.cfg)
		if err != nil {
			return err
		}
		if stop {
			c.state = Stopped
			return nil
		}
	}
	if b.HasHeading() {
		label := norm
		if label == "" {
			label = utils.CollapseWhitespace(b.Heading)
		}
		c.open(label)
		if c.heading == nil {
			c.heading = displayHeading(b)
		}
	}
	c.add(utils.CleanParagraphs(b.Paragraphs))
	return nil
}

// capture is the mutable state of one run.
type capture struct {
	cfg     *SectionMatchConfig
	state   State
	heading *string
	groups  models.Grouped
	current *models.Subsection
	labels  map[string]int
}

func (c *capture) begin(st start) {
	c.state = Capturing
	c.heading = st.heading
}

func (c *capture) open(label string) {
	c.flush()
	c.current = &models.Subsection{Label: label, Paragraphs: []string{}}
}

func (c *capture) add(paras []string) {
	if len(paras) == 0 {
		return
	}
	if c.current == nil {
		c.current = &models.Subsection{Label: models.UntitledLabel, Untitled: true, Paragraphs: []string{}}
	}
	c.current.Paragraphs = append(c.current.Paragraphs, paras...)
}

// flush appends the open subsection when it holds paragraphs.
func (c *capture) flush() {
	if c.current != nil && len(c.current.Paragraphs) > 0 {
		c.current.Label = c.unique(c.current.Label)
		c.groups = append(c.groups, *c.current)
	}
	c.current = nil
}

// unique suffixes repeated labels with " (n)" so grouped output keys stay distinct.
func (c *capture) unique(label string) string {
	if c.labels == nil {
		c.labels = make(map[string]int)
	}
	c.labels[label]++
	n := c.labels[label]
	if n == 1 {
		return label
	}
	for {
		candidate := fmt.Sprintf("%s (%d)", label, n)
		if c.labels[candidate] == 0 {
			c.labels[candidate] = 1
			return candidate
		}
		n++
	}
}

func displayHeading(b models.Block) *string {
	if !b.HasHeading() {
		return nil
	}
	h := utils.CollapseWhitespace(b.Heading)
	return &h
}

func emptyResult(policy OutputPolicy) models.SegmentationResult {
	res := models.SegmentationResult{StartIndex: -1}
	if policy == OutputFlat {
		res.Content = models.Flat{}
	} else {
		res.Content = models.Grouped{}
	}
	return res
}
