package pipeline

import (
	"regexp"
	"strings"
)

var (
	whitespaceRuns   = regexp.MustCompile(`\s+`)
	spaceBeforePunct = regexp.MustCompile(`\s+([.,!?])`)
	decorativeQuotes = regexp.MustCompile("[«»“”„]")
)

// CleanText normalizes a language-tagged string before it is stored in
// a processing result: whitespace runs collapse to one space, spaces
// before punctuation are removed, decorative quotes become a plain
// double quote, and the ends are trimmed. Cleaning is idempotent, which
// keeps downstream length calculations stable.
func CleanText(text string) string {
	text = whitespaceRuns.ReplaceAllString(text, " ")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = decorativeQuotes.ReplaceAllString(text, `"`)
	return strings.TrimSpace(text)
}
