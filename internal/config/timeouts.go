// Package config provides centralized timeout constants for the application.
//
// These values are tuned for a request/response advising backend:
//   - LLM provider latency (chat completions dominate request time)
//   - SQLite performance characteristics (WAL mode, busy timeout)
//   - Catalog snapshot loading on first request
package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead is the HTTP server read timeout.
	// Request bodies are small JSON payloads.
	HTTPRead = 10 * time.Second

	// HTTPWrite is the HTTP server write timeout.
	// Must accommodate a full recommendation pipeline including LLM retries.
	HTTPWrite = 120 * time.Second

	// HTTPIdle is the HTTP server idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second
)

// LLM timeouts
const (
	// LLMCall is the timeout for a single LLM provider call.
	// Chat completions typically respond in 2-15s; embeddings in 1-5s.
	LLMCall = 30 * time.Second

	// LLMRetryInitial is the initial delay before retrying a failed call.
	// Exponential backoff with jitter: ~1s -> ~2s -> ~4s
	LLMRetryInitial = 1 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	// Handles concurrent write contention between chat turns.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	// Prevents stale connections and allows connection pool refresh.
	DatabaseConnMaxLifetime = time.Hour
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
