package core

import (
	"regexp"
)

// urlPattern matches an http or https scheme followed by a contiguous
// non-whitespace run.
var urlPattern = regexp.MustCompile(`https?://\S+`)

// ExtractIndicators returns every URL-like substring in the text, in order
// of first appearance, duplicates included. It never fails; text with no
// URLs yields an empty slice.
func ExtractIndicators(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}
