// Package genai provides integration with LLM APIs (OpenAI and Gemini).
// This file contains shared types, interfaces, and configuration for chat
// completion and embedding generation with provider fallback support.
//
// Architecture:
// - OpenAI: Uses github.com/openai/openai-go/v3 (official SDK)
// - Gemini: Uses google.golang.org/genai (official SDK)
//
// Fallback Strategy (2-layer):
// 1. Model Retry: Same provider retried with exponential backoff
// 2. Provider Chain: Next provider in the configured chain
package genai

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderOpenAI represents OpenAI's API.
	ProviderOpenAI Provider = "openai"
	// ProviderGemini represents Google's Gemini API.
	ProviderGemini Provider = "gemini"
)

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// CompletionRequest describes a single chat completion call.
type CompletionRequest struct {
	// System is the system instruction sent before the user content.
	System string

	// User is the user content of the request.
	User string

	// Temperature controls sampling randomness. Zero means provider default.
	Temperature float64

	// MaxTokens caps the response length. Zero means provider default.
	MaxTokens int64
}

// ChatClient defines the interface for LLM text generation and embeddings.
// Implementations include OpenAI (primary) and Gemini (fallback).
type ChatClient interface {
	// Complete sends a chat completion request and returns the response text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Provider returns the provider type for metrics.
	Provider() Provider
	// EmbeddingModelID identifies the embedding model, for index compatibility checks.
	EmbeddingModelID() string
	// Close releases any resources held by the client.
	Close() error
}

// RetryConfig defines retry behavior for LLM API calls.
// Uses AWS-recommended Full Jitter exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3 (1 initial + 2 retries)
	MaxAttempts int

	// InitialDelay is the base delay before first retry.
	// Default: 1s
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	// Default: 8s
	MaxDelay time.Duration
}

// Retry configuration defaults
const (
	DefaultMaxRetryAttempts  = 3
	DefaultInitialRetryDelay = time.Second
	DefaultMaxRetryDelay     = 8 * time.Second
)

// DefaultRetryConfig returns the standard retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}
