// Package memory turns a conversation's message log into an LLM-ready
// context bounded by a token budget.
package memory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/pkg/domain"
	"github.com/mentoria-ai/mentoria/pkg/log"
)

const summaryPrompt = `Resuma a conversa a seguir em no máximo 200 palavras, preservando fatos, nomes e decisões importantes. Responda apenas com o resumo.

`

// EstimateTokens approximates token count as ceil(len/4). Coarse but
// language-agnostic; the budget invariant only needs an upper-bound estimate.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

type Manager struct {
	messages domain.MessageRepo
	chat     domain.ChatModel
	cfg      config.MemoryConfig
	logger   *slog.Logger
}

func NewManager(messages domain.MessageRepo, chat domain.ChatModel, cfg config.MemoryConfig) *Manager {
	return &Manager{
		messages: messages,
		chat:     chat,
		cfg:      cfg,
		logger:   log.WithComponent("memory"),
	}
}

// Build produces the ordered message list for a pending query: optional
// summary note, optional entity note, then the most recent messages that fit
// the remaining token budget.
func (m *Manager) Build(ctx context.Context, conversationID string) ([]domain.ChatMessage, error) {
	history, err := m.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}

	texts := make([]string, len(history))
	total := 0
	for i, msg := range history {
		texts[i] = msg.Content
		total += EstimateTokens(msg.Content)
	}

	note := entityNote(extractEntities(texts, m.cfg.EntityThreshold))

	var summary string
	if len(history) > m.cfg.SummaryThreshold || total > m.cfg.MaxTokens {
		summary = m.summarize(ctx, history)
	}

	budget := m.cfg.MaxTokens
	var out []domain.ChatMessage
	if summary != "" {
		content := "Previous conversation summary: " + summary
		out = append(out, domain.ChatMessage{Role: "system", Content: content})
		budget -= EstimateTokens(content)
	}
	if note != "" && EstimateTokens(note) <= budget {
		out = append(out, domain.ChatMessage{Role: "system", Content: note})
		budget -= EstimateTokens(note)
	}

	recent := history
	if summary != "" && len(history) > m.cfg.MaxMessages {
		recent = history[len(history)-m.cfg.MaxMessages:]
	}
	out = append(out, trailingFit(recent, budget)...)
	return out, nil
}

// summarize condenses the oldest messages through the chat model. Failure is
// tolerated: the caller falls back to buffer-style memory.
func (m *Manager) summarize(ctx context.Context, history []domain.Message) string {
	if len(history) <= m.cfg.MaxMessages {
		// Nothing precedes the recent window; there is nothing to condense.
		return ""
	}
	pool := history[:len(history)-m.cfg.MaxMessages]

	var b strings.Builder
	b.WriteString(summaryPrompt)
	for _, msg := range pool {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	result, err := m.chat.Chat(ctx, []domain.ChatMessage{{Role: "user", Content: b.String()}}, &domain.ChatOptions{MaxTokens: 300})
	if err != nil {
		m.logger.Debug("conversation summary failed, using buffer memory", "error", err)
		return ""
	}
	return strings.TrimSpace(result.Content)
}

// trailingFit selects the longest suffix of messages whose estimated tokens
// fit the budget, preserving order and role alternation.
func trailingFit(history []domain.Message, budget int) []domain.ChatMessage {
	start := len(history)
	remaining := budget
	for i := len(history) - 1; i >= 0; i-- {
		cost := EstimateTokens(history[i].Content)
		if cost > remaining {
			break
		}
		remaining -= cost
		start = i
	}

	out := make([]domain.ChatMessage, 0, len(history)-start)
	for _, msg := range history[start:] {
		role := "user"
		if msg.Role == domain.RoleAssistant {
			role = "assistant"
		}
		out = append(out, domain.ChatMessage{Role: role, Content: msg.Content})
	}
	return out
}
