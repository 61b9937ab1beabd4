package search

import (
	"strings"

	"github.com/hyperjump/kubun/internal/embedding"
	"github.com/hyperjump/kubun/pkg/utils"
)

// Snippet picks the paragraph sharing the most words with query (the first on ties)
// and truncates it to maxLen runes.
func Snippet(paragraphs []string, query string, maxLen int) string {
	if len(paragraphs) == 0 {
		return ""
	}
	terms := make(map[string]bool)
	for _, w := range embedding.Words(query) {
		terms[w] = true
	}
	best, bestHits := 0, -1
	for i, p := range paragraphs {
		hits := 0
		for _, w := range embedding.Words(p) {
			if terms[w] {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	return utils.Truncate(strings.TrimSpace(paragraphs[best]), maxLen)
}
