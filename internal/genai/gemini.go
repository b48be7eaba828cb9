// Package genai provides integration with LLM APIs (OpenAI and Gemini).
// This file contains the Gemini implementation of chat completion and embeddings.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiEmbeddingModel is the model used for generating embeddings.
const GeminiEmbeddingModel = "gemini-embedding-001"

// GeminiClient provides chat completion and embedding generation using the
// Gemini API. It implements the ChatClient interface.
type GeminiClient struct {
	client    *genai.Client
	chatModel string
}

// NewGeminiClient creates a new Gemini client.
// Returns nil if apiKey is empty (fallback disabled).
func NewGeminiClient(ctx context.Context, apiKey, chatModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // Intentional: fallback disabled when no API key
	}
	if chatModel == "" {
		return nil, errors.New("gemini chat model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		chatModel: chatModel,
	}, nil
}

// Complete sends a chat completion request and returns the response text.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client is nil")
	}

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr[float32](float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.chatModel, genai.Text(req.User), config)
	duration := time.Since(start)

	if err != nil {
		slog.WarnContext(ctx, "chat completion API call failed",
			"provider", ProviderGemini,
			"model", c.chatModel,
			"input_length", len(req.User),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", WrapError(fmt.Errorf("gemini: %w", err), ProviderGemini, 0)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from model")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", errors.New("empty completion text")
	}

	if resp.UsageMetadata != nil {
		slog.DebugContext(ctx, "chat completion finished",
			"provider", ProviderGemini,
			"model", c.chatModel,
			"input_tokens", resp.UsageMetadata.PromptTokenCount,
			"output_tokens", resp.UsageMetadata.CandidatesTokenCount,
			"total_tokens", resp.UsageMetadata.TotalTokenCount,
			"duration_ms", duration.Milliseconds())
	}

	return text, nil
}

// Embed generates an embedding vector for the given text.
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("gemini client is nil")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty or whitespace-only text cannot be embedded")
	}

	resp, err := c.client.Models.EmbedContent(ctx, GeminiEmbeddingModel,
		genai.Text(text), nil)
	if err != nil {
		return nil, WrapError(fmt.Errorf("gemini embed: %w", err), ProviderGemini, 0)
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("empty embedding returned")
	}

	return resp.Embeddings[0].Values, nil
}

// Provider returns the provider type for this client.
func (c *GeminiClient) Provider() Provider {
	return ProviderGemini
}

// EmbeddingModelID identifies the embedding model in use.
func (c *GeminiClient) EmbeddingModelID() string {
	return GeminiEmbeddingModel
}

// Close releases resources held by the client.
// Safe to call on nil receiver.
func (c *GeminiClient) Close() error {
	if c == nil {
		return nil
	}
	// Note: genai.Client does not require explicit cleanup in current SDK version
	return nil
}
