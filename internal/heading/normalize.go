// Package heading normalizes section headings and matches them against phrase sets
// by embedding similarity.
package heading

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hyperjump/kubun/pkg/utils"
)

// outlinePrefix is a leading section number such as "3", "3.1.", "2)" or "4:".
// The number must be followed by punctuation plus optional space, or by space,
// so "3D printing" and a bare "2020" are left alone.
var outlinePrefix = regexp.MustCompile(`^\s*\d+(?:\.\d+)*(?:[.):]\s*|\s+)`)

// Normalize prepares a raw heading for matching: Unicode NFKC folding, removal of
// leading outline numbers, whitespace collapse. The raw heading stays the display form.
func Normalize(raw string) string {
	s := norm.NFKC.String(raw)
	for {
		loc := outlinePrefix.FindStringIndex(s)
		if loc == nil {
			break
		}
		s = s[loc[1]:]
	}
	return utils.CollapseWhitespace(s)
}

// Tokens returns the lower-cased alphabetic words of text.
func Tokens(text string) []string {
	return alphaRun.FindAllString(strings.ToLower(text), -1)
}

var alphaRun = regexp.MustCompile(`\p{L}+`)
