package filegen

import (
	"regexp"
	"strings"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

var (
	numberedItemRegex = regexp.MustCompile(`^(\d+)[.)]\s+(.*)$`)
	letteredItemRegex = regexp.MustCompile(`^([A-E])[.)]\s+(.*)$`)
)

// ParseMarkdown turns model output into the block model the PDF engine
// renders. quiz inserts a page break before the answer-key section so the
// gabarito never shares a page with the questions.
func ParseMarkdown(content string, quiz bool) []domain.PDFBlock {
	var blocks []domain.PDFBlock
	var paragraph []string

	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		text := strings.Join(paragraph, " ")
		paragraph = nil
		blocks = append(blocks, domain.PDFBlock{
			Kind:  domain.BlockParagraph,
			Spans: parseSpans(text),
		})
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			flush()

		case strings.HasPrefix(trimmed, "#"):
			flush()
			level := 0
			for level < len(trimmed) && trimmed[level] == '#' && level < 3 {
				level++
			}
			text := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if text == "" {
				continue
			}
			if quiz && isAnswerKeyHeading(text) {
				blocks = append(blocks, domain.PDFBlock{Kind: domain.BlockPageBreak})
			}
			blocks = append(blocks, domain.PDFBlock{
				Kind:  domain.BlockHeading,
				Level: level,
				Spans: parseSpans(text),
			})

		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			flush()
			blocks = append(blocks, domain.PDFBlock{
				Kind:  domain.BlockBullet,
				Spans: parseSpans(strings.TrimSpace(trimmed[2:])),
			})

		case numberedItemRegex.MatchString(trimmed):
			flush()
			m := numberedItemRegex.FindStringSubmatch(trimmed)
			blocks = append(blocks, domain.PDFBlock{
				Kind:  domain.BlockNumbered,
				Level: atoiSafe(m[1]),
				Spans: parseSpans(m[2]),
			})

		// Lettered quiz options stay one block per alternative.
		case quiz && letteredItemRegex.MatchString(trimmed):
			flush()
			blocks = append(blocks, domain.PDFBlock{
				Kind:  domain.BlockBullet,
				Spans: parseSpans(trimmed),
			})

		default:
			paragraph = append(paragraph, trimmed)
		}
	}
	flush()
	return blocks
}

func isAnswerKeyHeading(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "gabarito") || strings.Contains(lower, "answer key")
}

// parseSpans splits a line on **bold** markers. Unbalanced markers render
// literally.
func parseSpans(text string) []domain.PDFSpan {
	parts := strings.Split(text, "**")
	if len(parts)%2 == 0 {
		return []domain.PDFSpan{{Text: text}}
	}

	var spans []domain.PDFSpan
	for i, part := range parts {
		if part == "" {
			continue
		}
		spans = append(spans, domain.PDFSpan{Text: part, Bold: i%2 == 1})
	}
	if len(spans) == 0 {
		return []domain.PDFSpan{{Text: ""}}
	}
	return spans
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
