// Package genai provides integration with LLM APIs (OpenAI and Gemini).
// This file contains the OpenAI implementation of chat completion and embeddings.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient provides chat completion and embedding generation using the
// OpenAI API. It implements the ChatClient interface.
type OpenAIClient struct {
	client     openai.Client
	chatModel  string
	embedModel string
}

// NewOpenAIClient creates a new OpenAI client.
// Returns an error if apiKey is empty.
func NewOpenAIClient(apiKey, chatModel, embedModel string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if chatModel == "" {
		return nil, errors.New("openai chat model is required")
	}
	if embedModel == "" {
		return nil, errors.New("openai embedding model is required")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &OpenAIClient{
		client:     client,
		chatModel:  chatModel,
		embedModel: embedModel,
	}, nil
}

// Complete sends a chat completion request and returns the response text.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "chat completion API call failed",
			"provider", ProviderOpenAI,
			"model", c.chatModel,
			"input_length", len(req.User),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", wrapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion text")
	}

	if resp.Usage.TotalTokens > 0 {
		slog.DebugContext(ctx, "chat completion finished",
			"provider", ProviderOpenAI,
			"model", c.chatModel,
			"input_tokens", resp.Usage.PromptTokens,
			"output_tokens", resp.Usage.CompletionTokens,
			"total_tokens", resp.Usage.TotalTokens,
			"duration_ms", duration.Milliseconds())
	}

	return text, nil
}

// Embed generates an embedding vector for the given text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty or whitespace-only text cannot be embedded")
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

// Provider returns the provider type for this client.
func (c *OpenAIClient) Provider() Provider {
	return ProviderOpenAI
}

// EmbeddingModelID identifies the embedding model in use.
func (c *OpenAIClient) EmbeddingModelID() string {
	return c.embedModel
}

// Close releases resources held by the client.
// Safe to call on nil receiver.
func (c *OpenAIClient) Close() error {
	if c == nil {
		return nil
	}
	// openai-go client doesn't require cleanup
	return nil
}

// wrapOpenAIError attaches the HTTP status code when the SDK exposes one.
func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return WrapError(fmt.Errorf("openai: %w", err), ProviderOpenAI, apiErr.StatusCode)
	}
	return WrapError(fmt.Errorf("openai: %w", err), ProviderOpenAI, 0)
}
