// Package rag answers user queries against a project's indexed documents,
// optionally inside a conversation.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/internal/memory"
	"github.com/mentoria-ai/mentoria/pkg/domain"
	"github.com/mentoria-ai/mentoria/pkg/log"
)

// NoResultsMessage is returned verbatim when retrieval finds nothing above
// the similarity threshold.
const NoResultsMessage = "Desculpe, não encontrei informações relevantes nos documentos do projeto para responder sua pergunta."

const systemPreamble = `Você é um assistente educacional que ajuda estudantes a compreender o material de estudo do projeto. Responda sempre em português, de forma clara e didática. Baseie suas respostas nas informações dos documentos de contexto abaixo; quando a resposta não estiver nos documentos, diga isso explicitamente.`

const previewLength = 200

type Engine struct {
	projects domain.ProjectRepo
	embedder domain.Embedder
	vectors  domain.VectorStore
	chat     domain.ChatModel
	memory   *memory.Manager
	cfg      config.RAGConfig
	logger   *slog.Logger
}

func NewEngine(
	projects domain.ProjectRepo,
	embedder domain.Embedder,
	vectors domain.VectorStore,
	chat domain.ChatModel,
	mem *memory.Manager,
	cfg config.RAGConfig,
) *Engine {
	return &Engine{
		projects: projects,
		embedder: embedder,
		vectors:  vectors,
		chat:     chat,
		memory:   mem,
		cfg:      cfg,
		logger:   log.WithComponent("rag"),
	}
}

// Retrieve embeds the query and searches the project collection. A project
// without a collection handle fails with ErrNotIndexed.
func (e *Engine) Retrieve(ctx context.Context, projectID, text string) ([]domain.ScoredPoint, error) {
	project, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CollectionHandle == "" {
		return nil, domain.WrapErrorf(domain.ErrNotIndexed, "project %s has no indexed documents", projectID)
	}

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	hits, err := e.vectors.Search(ctx, project.CollectionHandle, vector, e.cfg.MaxChunks, e.cfg.SimilarityThreshold)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("retrieval complete", "project_id", projectID, "hits", len(hits))
	return hits, nil
}

// Query answers statelessly: no conversation history is consulted.
func (e *Engine) Query(ctx context.Context, projectID, text string) (*domain.QueryAnswer, error) {
	hits, err := e.Retrieve(ctx, projectID, text)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &domain.QueryAnswer{Answer: NoResultsMessage, Sources: []domain.Source{}}, nil
	}
	return e.generate(ctx, BuildMessages(nil, hits, text), hits)
}

// QueryWithMemory answers inside a conversation. With no retrieval hits the
// model still runs on memory alone, without a context preamble.
func (e *Engine) QueryWithMemory(ctx context.Context, projectID, text, conversationID string) (*domain.QueryAnswer, error) {
	memoryMessages, err := e.memory.Build(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	hits, err := e.Retrieve(ctx, projectID, text)
	if err != nil {
		return nil, err
	}
	return e.generate(ctx, BuildMessages(memoryMessages, hits, text), hits)
}

// EducationalQuery rewrites the text with a fixed per-type prefix, then
// dispatches to the conversational or stateless path.
func (e *Engine) EducationalQuery(ctx context.Context, projectID, text string, queryType domain.EducationalQueryType, conversationID string) (*domain.QueryAnswer, error) {
	rewritten := RewriteQuery(text, queryType)
	if conversationID != "" {
		return e.QueryWithMemory(ctx, projectID, rewritten, conversationID)
	}
	return e.Query(ctx, projectID, rewritten)
}

// RewriteQuery prepends the educational prompt for the query type.
func RewriteQuery(text string, queryType domain.EducationalQueryType) string {
	switch queryType {
	case domain.QueryTypeSummary:
		return "Por favor, faça um resumo detalhado sobre: " + text
	case domain.QueryTypeQuiz:
		return "Crie questões de múltipla escolha com 4 alternativas sobre: " + text
	case domain.QueryTypeExplanation:
		return "Explique detalhadamente o conceito e forneça exemplos práticos sobre: " + text
	default:
		return text
	}
}

func (e *Engine) generate(ctx context.Context, messages []domain.ChatMessage, hits []domain.ScoredPoint) (*domain.QueryAnswer, error) {
	result, err := e.chat.Chat(ctx, messages, nil)
	if err != nil {
		return nil, err
	}
	return &domain.QueryAnswer{
		Answer:     result.Content,
		Sources:    SourcesFromHits(hits),
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

// BuildMessages assembles the chat request: memory first, then (when hits
// exist) the system preamble with numbered context documents, then the user
// message.
func BuildMessages(memoryMessages []domain.ChatMessage, hits []domain.ScoredPoint, text string) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(memoryMessages)+2)
	out = append(out, memoryMessages...)
	if len(hits) > 0 {
		var b strings.Builder
		b.WriteString(systemPreamble)
		b.WriteString("\n\nContext Documents:\n")
		for i, hit := range hits {
			fmt.Fprintf(&b, "--- Document %d ---\n%s\n", i+1, hit.Payload.Content)
		}
		out = append(out, domain.ChatMessage{Role: "system", Content: b.String()})
	}
	return append(out, domain.ChatMessage{Role: "user", Content: text})
}

// SourcesFromHits maps retrieval hits to attributed sources, rank order
// preserved.
func SourcesFromHits(hits []domain.ScoredPoint) []domain.Source {
	sources := make([]domain.Source, len(hits))
	for i, hit := range hits {
		sources[i] = domain.Source{
			DocumentID:     hit.Payload.DocumentID,
			FileName:       hit.Payload.Metadata.FileName,
			ContentPreview: Preview(hit.Payload.Content),
			Score:          hit.Score,
			ChunkIndex:     hit.Payload.ChunkIndex,
		}
	}
	return sources
}

// Preview truncates content to the first 200 runes, with an ellipsis when
// truncated.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "…"
}
