package filegen

import "strings"

// Generation templates, Brazilian Portuguese. Placeholders: {prompt},
// {context}, {projectName}, {subject}, {baseContent}. The quiz template
// mandates the exact section shape the PDF parser recognizes.

const quizTemplate = `Você é um professor criando um quiz para estudantes do projeto "{projectName}" (disciplina: {subject}).

Pedido do usuário: {prompt}

{context}

Gere o quiz em Markdown seguindo EXATAMENTE esta estrutura:

## Instructions
(instruções breves para o aluno em português)

## Questions

### Question 1
(enunciado da pergunta)
A. (alternativa)
B. (alternativa)
C. (alternativa)
D. (alternativa)

(repita "### Question N" para cada pergunta, sempre com 4 alternativas A-D)

## Gabarito (Answer Key)
1. (letra correta) — (justificativa curta)

Não adicione nenhuma outra seção.`

const studyGuideTemplate = `Você é um professor criando um guia de estudos para o projeto "{projectName}" (disciplina: {subject}).

Pedido do usuário: {prompt}

{context}

Produza um guia de estudos completo em Markdown com títulos (#, ##, ###), listas e destaques em **negrito** para termos importantes. Organize por tópicos, inclua explicações claras e termine com uma seção de revisão rápida.`

const summaryTemplate = `Você é um professor preparando um resumo para o projeto "{projectName}" (disciplina: {subject}).

Pedido do usuário: {prompt}

{context}

Produza um resumo objetivo em Markdown, organizado em seções curtas com os pontos essenciais em **negrito**.`

const lessonPlanTemplate = `Você é um professor elaborando um plano de aula para o projeto "{projectName}" (disciplina: {subject}).

Pedido do usuário: {prompt}

{context}

Produza um plano de aula em Markdown com objetivos, conteúdo programático, metodologia, recursos e avaliação, usando listas numeradas para as etapas.`

const customTemplate = `Você é um assistente educacional do projeto "{projectName}" (disciplina: {subject}).

Pedido do usuário: {prompt}

{context}

Atenda ao pedido produzindo o material em Markdown bem estruturado, em português.`

const editTemplate = `Você é um assistente educacional do projeto "{projectName}" (disciplina: {subject}).

Abaixo está a versão atual de um material didático. Aplique a alteração pedida preservando a estrutura e o que não foi mencionado.

Versão atual:
{baseContent}

Alteração pedida: {prompt}

{context}

Responda apenas com o material completo atualizado, em Markdown.`

const contextHeader = "Documentos de contexto do projeto:\n"

// TemplateInput carries everything a template can reference.
type TemplateInput struct {
	Prompt      string
	Context     string
	ProjectName string
	Subject     string
	BaseContent string
}

// RenderTemplate fills the per-type template; when BaseContent is present
// the edit template takes precedence regardless of type.
func RenderTemplate(fileType string, in TemplateInput) string {
	tpl := customTemplate
	if in.BaseContent != "" {
		tpl = editTemplate
	} else {
		switch fileType {
		case "quiz":
			tpl = quizTemplate
		case "study-guide":
			tpl = studyGuideTemplate
		case "summary":
			tpl = summaryTemplate
		case "lesson-plan":
			tpl = lessonPlanTemplate
		}
	}

	contextBlock := "O projeto não possui documentos indexados; baseie-se no seu conhecimento."
	if in.Context != "" {
		contextBlock = contextHeader + in.Context
	}

	replacer := strings.NewReplacer(
		"{prompt}", in.Prompt,
		"{context}", contextBlock,
		"{projectName}", in.ProjectName,
		"{subject}", in.Subject,
		"{baseContent}", in.BaseContent,
	)
	return replacer.Replace(tpl)
}
