// Package pdfrender lays out generated study material as PDF.
package pdfrender

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

const (
	pageMargin = 20.0
	lineHeight = 6.0
	listIndent = 6.0
)

var headingSizes = map[int]float64{1: 16, 2: 13, 3: 11}

// Engine renders the block model produced by the file generator. It uses the
// built-in core fonts, so text is transliterated to cp1252 (covers
// Portuguese).
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Render(ctx context.Context, doc *domain.PDFDocument) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, domain.WrapError(domain.ErrCancelled, err)
	}

	p := fpdf.New("P", "mm", "A4", "")
	p.SetMargins(pageMargin, pageMargin, pageMargin)
	p.SetAutoPageBreak(true, pageMargin)
	tr := p.UnicodeTranslatorFromDescriptor("")
	p.AddPage()

	if doc.Title != "" {
		p.SetFont("Helvetica", "B", 20)
		p.MultiCell(0, 10, tr(doc.Title), "", "L", false)
	}
	if doc.Subtitle != "" {
		p.SetFont("Helvetica", "", 10)
		p.SetTextColor(110, 110, 110)
		p.MultiCell(0, 6, tr(doc.Subtitle), "", "L", false)
		p.SetTextColor(0, 0, 0)
	}
	if doc.Title != "" || doc.Subtitle != "" {
		p.Ln(4)
	}

	for _, block := range doc.Blocks {
		renderBlock(p, tr, block)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, 0, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), p.PageCount(), nil
}

func renderBlock(p *fpdf.Fpdf, tr func(string) string, block domain.PDFBlock) {
	switch block.Kind {
	case domain.BlockPageBreak:
		p.AddPage()

	case domain.BlockHeading:
		size, ok := headingSizes[block.Level]
		if !ok {
			size = headingSizes[3]
		}
		p.Ln(2)
		p.SetFont("Helvetica", "B", size)
		p.MultiCell(0, lineHeight+2, tr(spanText(block.Spans)), "", "L", false)
		p.Ln(1)

	case domain.BlockBullet:
		p.SetFont("Helvetica", "", 11)
		p.SetX(pageMargin + listIndent)
		writeSpans(p, tr, append([]domain.PDFSpan{{Text: "• "}}, block.Spans...))

	case domain.BlockNumbered:
		p.SetFont("Helvetica", "", 11)
		p.SetX(pageMargin + listIndent)
		prefix := domain.PDFSpan{Text: fmt.Sprintf("%d. ", block.Level), Bold: true}
		writeSpans(p, tr, append([]domain.PDFSpan{prefix}, block.Spans...))

	default: // paragraph
		p.SetFont("Helvetica", "", 11)
		writeSpans(p, tr, block.Spans)
		p.Ln(2)
	}
}

// writeSpans emits one logical line of mixed bold/regular runs.
func writeSpans(p *fpdf.Fpdf, tr func(string) string, spans []domain.PDFSpan) {
	for _, span := range spans {
		style := ""
		if span.Bold {
			style = "B"
		}
		p.SetFontStyle(style)
		p.Write(lineHeight, tr(span.Text))
	}
	p.Ln(lineHeight)
}

func spanText(spans []domain.PDFSpan) string {
	var b bytes.Buffer
	for _, span := range spans {
		b.WriteString(span.Text)
	}
	return b.String()
}
