package assembler

import (
	"context"

	"github.com/hyperjump/kubun/internal/heading"
)

// PhraseScore is one heading's whole-heading similarity against one phrase set.
type PhraseScore struct {
	Set       string  `json:"set"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Match     bool    `json:"match"`
}

// HeadingReport explains how a heading scores against the configured phrase sets.
type HeadingReport struct {
	Heading    string        `json:"heading"`
	Normalized string        `json:"normalized"`
	Scores     []PhraseScore `json:"scores"`
}

// Explain scores raw against every configured phrase set.
func (a *Assembler) Explain(ctx context.Context, raw string) (*HeadingReport, error) {
	report := &HeadingReport{Heading: raw, Normalized: heading.Normalize(raw)}
	type entry struct {
		set       *heading.PhraseSet
		threshold float64
	}
	m, rd := a.configs.Methods, a.configs.ResultsDiscussion
	entries := []entry{
		{m.Anchors(), m.AnchorThreshold()},
		{m.Stopwords(), m.StopwordThreshold()},
		{m.Fallback(), m.FallbackThreshold()},
		{rd.Anchors(), rd.AnchorThreshold()},
		{rd.Stopwords(), rd.StopwordThreshold()},
		{a.configs.AbstractAlternates, a.configs.AbstractThreshold},
	}
	for _, e := range entries {
		if e.set == nil {
			continue
		}
		score, err := a.matcher.Similarity(ctx, report.Normalized, e.set)
		if err != nil {
			return nil, err
		}
		report.Scores = append(report.Scores, PhraseScore{
			Set:       e.set.Name(),
			Score:     score,
			Threshold: e.threshold,
			Match:     score >= e.threshold,
		})
	}
	return report, nil
}
