// Package embedder maps text to fixed-dimension vectors via the OpenAI
// embeddings API.
package embedder

import (
	"context"
	"fmt"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/mentoria-ai/mentoria/internal/config"
	"github.com/mentoria-ai/mentoria/pkg/domain"
	"github.com/mentoria-ai/mentoria/pkg/log"
)

const (
	// maxBatchInputs bounds one embeddings request; larger batches are sent
	// in consecutive requests and concatenated in order.
	maxBatchInputs = 100

	defaultAttempts = 3
	initialBackoff  = time.Second
)

type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
	attempts  int
	backoff   time.Duration
}

func NewOpenAI(cfg config.OpenAIConfig) *OpenAIEmbedder {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIEmbedder{
		client:    openai.NewClient(opts...),
		model:     cfg.EmbeddingModel,
		dimension: cfg.EmbeddingDimension(),
		attempts:  defaultAttempts,
		backoff:   initialBackoff,
	}
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// EmbedBatch returns one vector per input, in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchInputs {
		end := start + maxBatchInputs
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery embeds a single string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedWithRetry wraps the provider call in bounded retry with exponential
// backoff. Error paths never include the input text.
func (e *OpenAIEmbedder) embedWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	backoff := e.backoff

	for attempt := 1; attempt <= e.attempts; attempt++ {
		vectors, err := e.embed(ctx, batch)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, domain.WrapError(domain.ErrCancelled, ctx.Err())
		}
		if attempt < e.attempts {
			log.Debug("embedding attempt failed, retrying",
				"attempt", attempt, "backoff", backoff, "batch_size", len(batch))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, domain.WrapError(domain.ErrCancelled, ctx.Err())
			}
			backoff *= 2
		}
	}
	return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, lastErr)
}

func (e *OpenAIEmbedder) embed(ctx context.Context, batch []string) ([][]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: batch,
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d inputs", len(resp.Data), len(batch))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		if int(item.Index) >= len(vectors) {
			return nil, fmt.Errorf("provider returned out-of-range embedding index %d", item.Index)
		}
		vectors[item.Index] = vec
	}
	return vectors, nil
}
