package loader

import (
	"regexp"
	"strings"
)

var (
	rePageHeader  = regexp.MustCompile(`(?m)^Page \d.*$`)
	reDigitLine   = regexp.MustCompile(`(?m)^[ \t]*\d+[ \t]*$`)
	reHorizSpace  = regexp.MustCompile(`[ \t]+`)
	reManyNewline = regexp.MustCompile(`\n{3,}`)

	quoteReplacer = strings.NewReplacer(
		"“", `"`, // left double
		"”", `"`, // right double
		"‘", "'", // left single
		"’", "'", // right single
	)
)

// Normalize applies the shared post-processing pipeline to raw extracted
// text: whitespace collapsing, quote normalization and removal of page
// artifacts left behind by PDF extraction.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\f", " ")
	text = quoteReplacer.Replace(text)

	text = rePageHeader.ReplaceAllString(text, "")
	text = reDigitLine.ReplaceAllString(text, "")

	text = reHorizSpace.ReplaceAllString(text, " ")
	text = reManyNewline.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
