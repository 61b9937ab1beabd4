// Package utils provides shared helpers for text cleanup, vector math, and logging.
package utils

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanText folds compatibility characters (ligatures, full-width digits, non-breaking
// spaces) with NFKC and collapses whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	return CollapseWhitespace(norm.NFKC.String(s))
}

// CleanParagraphs cleans each paragraph and drops the ones that end up empty.
func CleanParagraphs(paras []string) []string {
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		if c := CleanText(p); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Truncate returns s cut to at most maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
