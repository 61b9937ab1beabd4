package heading

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/kubun/pkg/utils"
)

// ErrEmptyPhraseSet is returned when a phrase set has no usable phrases.
var ErrEmptyPhraseSet = errors.New("phrase set is empty")

// PhraseSet is an immutable, named set of lower-cased phrases. The Matcher caches
// embeddings per *PhraseSet, so build each set once and share it.
type PhraseSet struct {
	name    string
	phrases []string
}

// NewPhraseSet trims, lower-cases and de-duplicates phrases, keeping first-seen order.
func NewPhraseSet(name string, phrases ...string) (*PhraseSet, error) {
	seen := make(map[string]bool, len(phrases))
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(utils.CollapseWhitespace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyPhraseSet)
	}
	return &PhraseSet{name: name, phrases: out}, nil
}

// MustPhraseSet is NewPhraseSet for package-level built-ins; it panics on error.
func MustPhraseSet(name string, phrases ...string) *PhraseSet {
	s, err := NewPhraseSet(name, phrases...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the set name.
func (s *PhraseSet) Name() string { return s.name }

// Len returns the number of phrases.
func (s *PhraseSet) Len() int { return len(s.phrases) }

// Phrases returns a copy of the phrases.
func (s *PhraseSet) Phrases() []string {
	out := make([]string, len(s.phrases))
	copy(out, s.phrases)
	return out
}

// ContainedIn reports whether any phrase occurs literally in text, ignoring case.
func (s *PhraseSet) ContainedIn(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range s.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
