package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/avelasco/answer-engine/internal/infrastructure/resilience"
)

// Client implements answer generation and embeddings on an
// OpenAI-compatible chat API. All calls go through the shared executor
// so a dead endpoint trips the breaker instead of stalling every cycle.
type Client struct {
	api        *openai.Client
	chatModel  string
	embedModel string
	executor   *resilience.Executor
}

func New(apiKey, baseURL, chatModel, embedModel string, executor *resilience.Executor) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		api:        openai.NewClientWithConfig(cfg),
		chatModel:  chatModel,
		embedModel: embedModel,
		executor:   executor,
	}
}

func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var content string
	err := c.executor.Execute(ctx, "openai_chat", func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
		})
		if err != nil {
			return fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("chat completion: no choices in response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	}, classifyAPIError)
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embeddings: empty response")
	}
	return vectors[0], nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out [][]float32
	err := c.executor.Execute(ctx, "openai_embed", func(ctx context.Context) error {
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(c.embedModel),
		})
		if err != nil {
			return fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("create embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
		}
		out = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vector := make([]float32, len(data.Embedding))
			copy(vector, data.Embedding)
			out[i] = vector
		}
		return nil
	}, classifyAPIError)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// classifyAPIError retries server-side and rate-limit failures; client
// errors (bad request, auth) are permanent and not worth a breaker trip.
func classifyAPIError(err error) resilience.ErrorClassification {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}
	// Transport-level failures (conn refused, timeout).
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
