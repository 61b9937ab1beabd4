package heading

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/embedding"
	"github.com/hyperjump/kubun/internal/vector"
)

// Mode selects how a heading is compared with a phrase set.
type Mode int

const (
	// WholeHeading compares the embedding of the full heading.
	WholeHeading Mode = iota
	// TokenLevel compares each alphabetic word of the heading on its own; any word may match.
	TokenLevel
)

func (m Mode) String() string {
	switch m {
	case WholeHeading:
		return "whole"
	case TokenLevel:
		return "token"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Matcher scores headings against phrase sets with an Embedder.
// It is safe for concurrent use.
type Matcher struct {
	embedder embedding.Embedder
	logger   *zap.Logger

	mu   sync.RWMutex
	sets map[*PhraseSet][][]float32
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger for the matcher.
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) {
		m.logger = l
	}
}

// NewMatcher creates a Matcher over embedder.
func NewMatcher(embedder embedding.Embedder, opts ...Option) *Matcher {
	m := &Matcher{
		embedder: embedder,
		logger:   zap.NewNop(),
		sets:     make(map[*PhraseSet][][]float32),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Warm computes the embeddings of sets up front so later lookups only take the read lock.
func (m *Matcher) Warm(ctx context.Context, sets ...*PhraseSet) error {
	for _, s := range sets {
		if s == nil {
			continue
		}
		if _, err := m.setEmbeddings(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) setEmbeddings(ctx context.Context, s *PhraseSet) ([][]float32, error) {
	m.mu.RLock()
	embs, ok := m.sets[s]
	m.mu.RUnlock()
	if ok {
		return embs, nil
	}

	embs, err := m.embedder.EmbedBatch(ctx, s.phrases)
	if err != nil {
		return nil, fmt.Errorf("embed phrase set %s: %w", s.name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.sets[s]; ok {
		return cached, nil
	}
	m.sets[s] = embs
	m.logger.Debug("phrase set embedded", zap.String("set", s.name), zap.Int("phrases", len(embs)))
	return embs, nil
}

// Similarity returns the highest cosine similarity between text and any phrase in s.
// Empty text scores 0 without calling the embedder.
func (m *Matcher) Similarity(ctx context.Context, text string, s *PhraseSet) (float64, error) {
	if text == "" {
		return 0, nil
	}
	embs, err := m.setEmbeddings(ctx, s)
	if err != nil {
		return 0, err
	}
	q, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("embed heading: %w", err)
	}
	return vector.MaxCosine(q, embs), nil
}

// TokenSimilarity returns the highest similarity of any alphabetic word of text against s.
func (m *Matcher) TokenSimilarity(ctx context.Context, text string, s *PhraseSet) (float64, error) {
	tokens := uniqueTokens(text)
	if len(tokens) == 0 {
		return 0, nil
	}
	embs, err := m.setEmbeddings(ctx, s)
	if err != nil {
		return 0, err
	}
	qs, err := m.embedder.EmbedBatch(ctx, tokens)
	if err != nil {
		return 0, fmt.Errorf("embed heading tokens: %w", err)
	}
	best := 0.0
	for _, q := range qs {
		if sim := vector.MaxCosine(q, embs); sim > best {
			best = sim
		}
	}
	return best, nil
}

// Matches reports whether text reaches threshold against s in the given mode.
func (m *Matcher) Matches(ctx context.Context, text string, s *PhraseSet, threshold float64, mode Mode) (bool, error) {
	if text == "" {
		return false, nil
	}
	var (
		sim float64
		err error
	)
	switch mode {
	case TokenLevel:
		sim, err = m.TokenSimilarity(ctx, text, s)
	default:
		sim, err = m.Similarity(ctx, text, s)
	}
	if err != nil {
		return false, err
	}
	ok := sim >= threshold
	if ok {
		m.logger.Debug("heading matched",
			zap.String("heading", text),
			zap.String("set", s.name),
			zap.Stringer("mode", mode),
			zap.Float64("score", sim),
			zap.Float64("threshold", threshold))
	}
	return ok, nil
}

// ContainsOrMatches is the stopword test: a literal phrase occurrence in text
// matches without inference, otherwise whole-heading similarity decides.
func (m *Matcher) ContainsOrMatches(ctx context.Context, text string, s *PhraseSet, threshold float64) (bool, error) {
	if text == "" {
		return false, nil
	}
	if s.ContainedIn(text) {
		return true, nil
	}
	return m.Matches(ctx, text, s, threshold, WholeHeading)
}

func uniqueTokens(text string) []string {
	tokens := Tokens(text)
	seen := make(map[string]bool, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
