package filegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentoria-ai/mentoria/pkg/domain"
)

func kinds(blocks []domain.PDFBlock) []domain.PDFBlockKind {
	out := make([]domain.PDFBlockKind, len(blocks))
	for i, b := range blocks {
		out[i] = b.Kind
	}
	return out
}

func TestParseMarkdownHeadingsAndParagraphs(t *testing.T) {
	blocks := ParseMarkdown("# Título\n\nUm parágrafo\nem duas linhas.\n\n## Seção\n\nOutro parágrafo.", false)
	require.Len(t, blocks, 4)

	assert.Equal(t, domain.BlockHeading, blocks[0].Kind)
	assert.Equal(t, 1, blocks[0].Level)
	assert.Equal(t, "Título", blocks[0].Spans[0].Text)

	assert.Equal(t, domain.BlockParagraph, blocks[1].Kind)
	assert.Equal(t, "Um parágrafo em duas linhas.", blocks[1].Spans[0].Text)

	assert.Equal(t, 2, blocks[2].Level)
}

func TestParseMarkdownLists(t *testing.T) {
	blocks := ParseMarkdown("- primeiro\n* segundo\n1. um\n2. dois", false)
	require.Len(t, blocks, 4)
	assert.Equal(t,
		[]domain.PDFBlockKind{domain.BlockBullet, domain.BlockBullet, domain.BlockNumbered, domain.BlockNumbered},
		kinds(blocks))
	assert.Equal(t, 2, blocks[3].Level)
	assert.Equal(t, "dois", blocks[3].Spans[0].Text)
}

func TestParseMarkdownBoldSpans(t *testing.T) {
	blocks := ParseMarkdown("A **fotossíntese** é essencial.", false)
	require.Len(t, blocks, 1)
	spans := blocks[0].Spans
	require.Len(t, spans, 3)
	assert.False(t, spans[0].Bold)
	assert.True(t, spans[1].Bold)
	assert.Equal(t, "fotossíntese", spans[1].Text)
	assert.False(t, spans[2].Bold)
}

func TestParseMarkdownUnbalancedBoldIsLiteral(t *testing.T) {
	blocks := ParseMarkdown("texto com ** solto", false)
	require.Len(t, blocks, 1)
	require.Len(t, blocks[0].Spans, 1)
	assert.Equal(t, "texto com ** solto", blocks[0].Spans[0].Text)
}

func TestParseMarkdownQuizPageBreakBeforeAnswerKey(t *testing.T) {
	content := `## Instructions
Responda todas as questões.

## Questions

### Question 1
Qual o produto da fotossíntese?
A. Oxigênio
B. Metano
C. Hélio
D. Ferro

## Gabarito (Answer Key)
1. A — produto principal`

	blocks := ParseMarkdown(content, true)

	breakIdx := -1
	keyIdx := -1
	for i, b := range blocks {
		if b.Kind == domain.BlockPageBreak {
			breakIdx = i
		}
		if b.Kind == domain.BlockHeading && len(b.Spans) > 0 && b.Spans[0].Text == "Gabarito (Answer Key)" {
			keyIdx = i
		}
	}
	require.NotEqual(t, -1, breakIdx)
	require.NotEqual(t, -1, keyIdx)
	assert.Equal(t, keyIdx-1, breakIdx)
}

func TestParseMarkdownNoPageBreakOutsideQuiz(t *testing.T) {
	blocks := ParseMarkdown("## Gabarito (Answer Key)\n1. A", false)
	for _, b := range blocks {
		assert.NotEqual(t, domain.BlockPageBreak, b.Kind)
	}
}

func TestRenderTemplateQuizShape(t *testing.T) {
	out := RenderTemplate("quiz", TemplateInput{
		Prompt:      "quiz sobre fotossíntese",
		ProjectName: "Biologia",
		Subject:     "Ciências",
	})
	assert.Contains(t, out, "## Instructions")
	assert.Contains(t, out, "### Question 1")
	assert.Contains(t, out, "## Gabarito (Answer Key)")
	assert.Contains(t, out, "quiz sobre fotossíntese")
	assert.Contains(t, out, `"Biologia"`)
	assert.NotContains(t, out, "{prompt}")
	assert.NotContains(t, out, "{context}")
}

func TestRenderTemplateEditTakesPrecedence(t *testing.T) {
	out := RenderTemplate("quiz", TemplateInput{
		Prompt:      "adicione mais duas questões",
		BaseContent: "## Questions\n### Question 1",
	})
	assert.Contains(t, out, "Versão atual:")
	assert.Contains(t, out, "### Question 1")
	assert.NotContains(t, out, "## Instructions\n(instruções")
}

func TestRenderTemplateEmptyContextFallback(t *testing.T) {
	out := RenderTemplate("summary", TemplateInput{Prompt: "resuma a era Vargas"})
	assert.Contains(t, out, "não possui documentos indexados")
}
