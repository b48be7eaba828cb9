// Package genai provides integration with LLM APIs (OpenAI and Gemini).
// This file contains the provider chain with retry, fallback, and metrics.
package genai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
)

// Recorder records LLM request metrics.
// Implemented by the metrics package; a nil Recorder disables recording.
type Recorder interface {
	RecordLLMRequest(provider, operation, status string, duration float64)
	RecordLLMRetry(provider string)
}

// Generator wraps a primary ChatClient and an optional fallback with retry
// logic and metrics. All LLM calls in the application go through it.
type Generator struct {
	primary  ChatClient
	fallback ChatClient
	retry    RetryConfig
	metrics  Recorder
}

// NewGenerator creates a generator over the given provider chain.
// fallback may be nil when only one provider is configured.
func NewGenerator(primary, fallback ChatClient, retry RetryConfig) (*Generator, error) {
	if primary == nil {
		return nil, errors.New("primary LLM client is required")
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Generator{
		primary:  primary,
		fallback: fallback,
		retry:    retry,
	}, nil
}

// SetMetrics attaches a metrics recorder.
func (g *Generator) SetMetrics(r Recorder) {
	g.metrics = r
}

// Complete runs a chat completion through the provider chain.
// The primary provider is retried with Full Jitter backoff; if it still
// fails and time remains, the fallback provider gets one retried pass.
func (g *Generator) Complete(ctx context.Context, operation string, req CompletionRequest) (string, error) {
	text, err := g.completeWith(ctx, g.primary, operation, req)
	if err == nil {
		return text, nil
	}

	if g.fallback == nil {
		return "", dependencyFailure(g.primary.Provider().String(), operation, err)
	}
	if ctx.Err() != nil || !HasSufficientBudget(ctx, time.Second) {
		return "", dependencyFailure(g.primary.Provider().String(), operation, err)
	}

	slog.WarnContext(ctx, "falling back to secondary LLM provider",
		"operation", operation,
		"primary", g.primary.Provider(),
		"fallback", g.fallback.Provider(),
		"error", err)

	text, fbErr := g.completeWith(ctx, g.fallback, operation, req)
	if fbErr != nil {
		return "", dependencyFailure("all", operation, errors.Join(err, fbErr))
	}
	return text, nil
}

// dependencyFailure marks a retry-exhausted provider error so the HTTP layer
// can distinguish upstream outages from internal bugs. Context expiry is the
// caller's deadline, not a provider fault, and passes through unwrapped.
func dependencyFailure(provider, operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewDependencyError(provider, operation, err)
}

// completeWith runs one retried completion against a single provider.
func (g *Generator) completeWith(ctx context.Context, client ChatClient, operation string, req CompletionRequest) (string, error) {
	provider := client.Provider().String()

	var text string
	start := time.Now()
	err := WithRetryAndMetrics(ctx, g.retry, func(attempt int, err error) {
		if g.metrics != nil {
			g.metrics.RecordLLMRetry(provider)
		}
		slog.DebugContext(ctx, "retrying LLM call",
			"provider", provider,
			"operation", operation,
			"attempt", attempt,
			"error", err)
	}, func() error {
		var callErr error
		text, callErr = client.Complete(ctx, req)
		return callErr
	})
	duration := time.Since(start)

	if g.metrics != nil {
		status := "success"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = "timeout"
		case err != nil:
			status = "error"
		}
		g.metrics.RecordLLMRequest(provider, operation, status, duration.Seconds())
	}

	return text, err
}

// CourseCodes runs a completion and parses the response into canonical
// course codes, expecting at least the given count.
// A response with too few valid codes triggers a fresh generation within the
// same attempt budget; the final ValidationError surfaces once it is spent.
func (g *Generator) CourseCodes(ctx context.Context, operation string, req CompletionRequest, expected int) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt < g.retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		text, err := g.Complete(ctx, operation, req)
		if err != nil {
			// Complete already retried transient failures per provider
			return nil, err
		}

		codes, parseErr := ParseCourseCodes(text, expected)
		if parseErr == nil {
			return codes, nil
		}
		lastErr = parseErr

		if attempt == g.retry.MaxAttempts-1 {
			break
		}
		slog.DebugContext(ctx, "regenerating after unparseable response",
			"operation", operation,
			"attempt", attempt+1,
			"error", parseErr)
		if err := Sleep(ctx, CalculateBackoff(attempt+1, g.retry.InitialDelay, g.retry.MaxDelay)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// Embed generates an embedding vector using the primary provider.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	start := time.Now()
	err := WithRetry(ctx, g.retry, func() error {
		var callErr error
		vector, callErr = g.primary.Embed(ctx, text)
		return callErr
	})
	if g.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		g.metrics.RecordLLMRequest(g.primary.Provider().String(), "embed", status, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, dependencyFailure(g.primary.Provider().String(), "embed", err)
	}
	return vector, nil
}

// EmbeddingModelID identifies the embedding model of the primary provider.
func (g *Generator) EmbeddingModelID() string {
	return g.primary.EmbeddingModelID()
}

// Close releases all provider resources.
func (g *Generator) Close() error {
	err := g.primary.Close()
	if g.fallback != nil {
		err = errors.Join(err, g.fallback.Close())
	}
	return err
}
