package segment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/kubun/internal/config"
	"github.com/hyperjump/kubun/internal/heading"
)

// ConfigSpec is the unvalidated input to NewSectionMatchConfig.
type ConfigSpec struct {
	Name              string
	Anchors           []string
	Stopwords         []string
	FallbackKeywords  []string
	TypeHintMarkers   []string
	AnchorThreshold   float64
	FallbackThreshold float64
	StopwordThreshold float64
}

// SectionMatchConfig is the immutable phrase sets and thresholds for one section type.
// Build it once and share it between engine runs.
type SectionMatchConfig struct {
	name              string
	anchors           *heading.PhraseSet
	stopwords         *heading.PhraseSet
	fallback          *heading.PhraseSet
	typeHintMarkers   []string
	anchorThreshold   float64
	fallbackThreshold float64
	stopwordThreshold float64
}

// NewSectionMatchConfig validates spec and builds its phrase sets.
func NewSectionMatchConfig(spec ConfigSpec) (*SectionMatchConfig, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.New("section config: name is required")
	}
	anchors, err := heading.NewPhraseSet(spec.Name+"/anchors", spec.Anchors...)
	if err != nil {
		return nil, fmt.Errorf("section config %s: anchors: %w", spec.Name, err)
	}
	stopwords, err := heading.NewPhraseSet(spec.Name+"/stopwords", spec.Stopwords...)
	if err != nil {
		return nil, fmt.Errorf("section config %s: stopwords: %w", spec.Name, err)
	}
	if err := checkThreshold(spec.Name, "anchor", spec.AnchorThreshold); err != nil {
		return nil, err
	}
	if err := checkThreshold(spec.Name, "stopword", spec.StopwordThreshold); err != nil {
		return nil, err
	}

	c := &SectionMatchConfig{
		name:              spec.Name,
		anchors:           anchors,
		stopwords:         stopwords,
		anchorThreshold:   spec.AnchorThreshold,
		stopwordThreshold: spec.StopwordThreshold,
	}
	for _, m := range spec.TypeHintMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			c.typeHintMarkers = append(c.typeHintMarkers, m)
		}
	}
	if len(spec.FallbackKeywords) > 0 {
		c.fallback, err = heading.NewPhraseSet(spec.Name+"/fallback", spec.FallbackKeywords...)
		if err != nil {
			return nil, fmt.Errorf("section config %s: fallback keywords: %w", spec.Name, err)
		}
	}
	if c.fallback != nil || len(c.typeHintMarkers) > 0 {
		if err := checkThreshold(spec.Name, "fallback", spec.FallbackThreshold); err != nil {
			return nil, err
		}
		c.fallbackThreshold = spec.FallbackThreshold
	}
	return c, nil
}

// MustSectionMatchConfig is NewSectionMatchConfig for built-ins; it panics on error.
func MustSectionMatchConfig(spec ConfigSpec) *SectionMatchConfig {
	c, err := NewSectionMatchConfig(spec)
	if err != nil {
		panic(err)
	}
	return c
}

func checkThreshold(name, which string, v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("section config %s: %s threshold %v not in (0,1]", name, which, v)
	}
	return nil
}

// Name returns the section type name.
func (c *SectionMatchConfig) Name() string { return c.name }

// Anchors returns the anchor phrase set.
func (c *SectionMatchConfig) Anchors() *heading.PhraseSet { return c.anchors }

// Stopwords returns the stopword phrase set.
func (c *SectionMatchConfig) Stopwords() *heading.PhraseSet { return c.stopwords }

// Fallback returns the fallback keyword set, or nil.
func (c *SectionMatchConfig) Fallback() *heading.PhraseSet { return c.fallback }

// AnchorThreshold returns the whole-heading anchor threshold.
func (c *SectionMatchConfig) AnchorThreshold() float64 { return c.anchorThreshold }

// FallbackThreshold returns the fallback threshold, 0 when there is no fallback.
func (c *SectionMatchConfig) FallbackThreshold() float64 { return c.fallbackThreshold }

// StopwordThreshold returns the stopword similarity threshold.
func (c *SectionMatchConfig) StopwordThreshold() float64 { return c.stopwordThreshold }

// HasFallback reports whether a fallback pass is configured.
func (c *SectionMatchConfig) HasFallback() bool {
	return c.fallback != nil || len(c.typeHintMarkers) > 0
}

// TypeHintMatches reports whether any hint contains a configured marker, ignoring case.
func (c *SectionMatchConfig) TypeHintMatches(hints []string) bool {
	for _, h := range hints {
		h = strings.ToLower(h)
		for _, m := range c.typeHintMarkers {
			if strings.Contains(h, m) {
				return true
			}
		}
	}
	return false
}

// PhraseSets returns the sets the matcher should pre-embed.
func (c *SectionMatchConfig) PhraseSets() []*heading.PhraseSet {
	sets := []*heading.PhraseSet{c.anchors, c.stopwords}
	if c.fallback != nil {
		sets = append(sets, c.fallback)
	}
	return sets
}

// Configs is the full set of section configurations used by the assembler.
type Configs struct {
	Methods            *SectionMatchConfig
	ResultsDiscussion  *SectionMatchConfig
	AbstractAlternates *heading.PhraseSet
	AbstractThreshold  float64
}

// DefaultConfigs returns the built-in configurations.
func DefaultConfigs() *Configs {
	return &Configs{
		Methods:            Methods,
		ResultsDiscussion:  ResultsDiscussion,
		AbstractAlternates: AbstractAlternates,
		AbstractThreshold:  DefaultThreshold,
	}
}

// FromSettings applies the YAML sections overrides to the built-ins.
// Sections without overrides share the built-in values.
func FromSettings(s config.SectionsConfig) (*Configs, error) {
	c := DefaultConfigs()
	var err error
	if !isZeroOverride(s.Methods) {
		if c.Methods, err = NewSectionMatchConfig(applyOverride(MethodsSpec(), s.Methods)); err != nil {
			return nil, err
		}
	}
	if !isZeroOverride(s.ResultsDiscussion) {
		if c.ResultsDiscussion, err = NewSectionMatchConfig(applyOverride(ResultsDiscussionSpec(), s.ResultsDiscussion)); err != nil {
			return nil, err
		}
	}
	if len(s.AbstractAlternates) > 0 {
		if c.AbstractAlternates, err = heading.NewPhraseSet("abstract/alternates", s.AbstractAlternates...); err != nil {
			return nil, fmt.Errorf("abstract alternates: %w", err)
		}
	}
	if s.AbstractThreshold != 0 {
		if err := checkThreshold("abstract", "alternate", s.AbstractThreshold); err != nil {
			return nil, err
		}
		c.AbstractThreshold = s.AbstractThreshold
	}
	return c, nil
}

// PhraseSets returns every phrase set in c for Matcher.Warm.
func (c *Configs) PhraseSets() []*heading.PhraseSet {
	sets := append(c.Methods.PhraseSets(), c.ResultsDiscussion.PhraseSets()...)
	return append(sets, c.AbstractAlternates)
}

func applyOverride(base ConfigSpec, o config.SectionOverride) ConfigSpec {
	if len(o.Anchors) > 0 {
		base.Anchors = o.Anchors
	}
	if len(o.Stopwords) > 0 {
		base.Stopwords = o.Stopwords
	}
	if len(o.FallbackKeywords) > 0 {
		base.FallbackKeywords = o.FallbackKeywords
	}
	if len(o.TypeHintMarkers) > 0 {
		base.TypeHintMarkers = o.TypeHintMarkers
	}
	if o.AnchorThreshold != 0 {
		base.AnchorThreshold = o.AnchorThreshold
	}
	if o.FallbackThreshold != 0 {
		base.FallbackThreshold = o.FallbackThreshold
	}
	if o.StopwordThreshold != 0 {
		base.StopwordThreshold = o.StopwordThreshold
	}
	return base
}

func isZeroOverride(o config.SectionOverride) bool {
	return len(o.Anchors) == 0 && len(o.Stopwords) == 0 && len(o.FallbackKeywords) == 0 &&
		len(o.TypeHintMarkers) == 0 && o.AnchorThreshold == 0 && o.FallbackThreshold == 0 &&
		o.StopwordThreshold == 0
}
