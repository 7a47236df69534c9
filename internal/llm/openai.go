// Package llm wraps the OpenAI chat completion API behind the domain
// ChatModel contract.
package llm

import (
	"time"

	"context"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/pkg/domain"
	"github.com/mentoria-ai/mentoria/pkg/log"
)

const (
	// Streaming requests retry once before surfacing the failure.
	streamAttempts = 2
	streamBackoff  = time.Second
)

type OpenAIChatModel struct {
	client    openai.Client
	model     string
	maxTokens int
}

func NewOpenAI(cfg config.OpenAIConfig) *OpenAIChatModel {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIChatModel{
		client:    openai.NewClient(opts...),
		model:     cfg.ChatModel,
		maxTokens: cfg.MaxTokens,
	}
}

func (m *OpenAIChatModel) params(messages []domain.ChatMessage, opts *domain.ChatOptions) openai.ChatCompletionNewParams {
	converted := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			converted[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			converted[i] = openai.AssistantMessage(msg.Content)
		default:
			converted[i] = openai.UserMessage(msg.Content)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.model),
		Messages: converted,
	}

	maxTokens := m.maxTokens
	if opts != nil && opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	if opts != nil && opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	return params
}

// Chat performs a synchronous completion and captures token usage.
func (m *OpenAIChatModel) Chat(ctx context.Context, messages []domain.ChatMessage, opts *domain.ChatOptions) (*domain.ChatResult, error) {
	completion, err := m.client.Chat.Completions.New(ctx, m.params(messages, opts))
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.WrapError(domain.ErrCancelled, ctx.Err())
		}
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, domain.ErrModelReturnedEmpty
	}

	return &domain.ChatResult{
		Content: completion.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

// Stream yields incremental content deltas to fn. The first delta commits the
// attempt: retries only cover failures before any content arrived.
func (m *OpenAIChatModel) Stream(ctx context.Context, messages []domain.ChatMessage, opts *domain.ChatOptions, fn func(delta string) error) error {
	var lastErr error
	for attempt := 1; attempt <= streamAttempts; attempt++ {
		delivered, err := m.streamOnce(ctx, messages, opts, fn)
		if err == nil {
			return nil
		}
		if delivered || ctx.Err() != nil {
			if ctx.Err() != nil {
				return domain.WrapError(domain.ErrCancelled, ctx.Err())
			}
			return err
		}
		lastErr = err
		if attempt < streamAttempts {
			log.Debug("chat stream attempt failed, retrying", "attempt", attempt, "error", err)
			select {
			case <-time.After(streamBackoff):
			case <-ctx.Done():
				return domain.WrapError(domain.ErrCancelled, ctx.Err())
			}
		}
	}
	return lastErr
}

func (m *OpenAIChatModel) streamOnce(ctx context.Context, messages []domain.ChatMessage, opts *domain.ChatOptions, fn func(delta string) error) (bool, error) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, m.params(messages, opts))
	delivered := false

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		delivered = true
		if err := fn(delta); err != nil {
			return delivered, err
		}
	}
	if err := stream.Err(); err != nil {
		return delivered, err
	}
	return delivered, nil
}
