// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// LLM providers, retrieval tuning, timeouts, and server settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// LLM Configuration
	OpenAIAPIKey string // OpenAI API key (required)
	GeminiAPIKey string // Gemini API key (optional fallback chat provider)

	// LLM Model Configuration (optional, defaults apply if empty)
	OpenAIChatModel      string // Chat completion model (default: "gpt-4o-mini")
	OpenAIEmbeddingModel string // Embedding model (default: "text-embedding-3-small")
	GeminiChatModel      string // Fallback chat model (default: "gemini-2.0-flash")

	// LLM Call Behavior
	LLMTimeout     time.Duration // Per-call timeout (default: 30s)
	LLMMaxAttempts int           // Attempts per LLM operation including retries (default: 3)

	// Retrieval Tuning
	MinSimilarity          float64 // Hard floor for similarity-derived candidates (default: 0.3)
	SimilarityTopK         int     // Candidates kept by vector search (default: 20)
	MaxPromptCandidates    int     // Candidate cap before random sampling kicks in (default: 200)
	DefaultRecommendations int     // Courses returned when the caller does not ask for a count (default: 5)
	HistoryMaxPairs        int     // Conversation pairs kept for context (default: 10)
	MaxCourseLevel         int     // Drop candidates above this course level, 0 disables (default: 0)

	// Metrics Authentication
	MetricsUsername string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics endpoint Basic Auth (empty = no auth)

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir     string // Data directory for the SQLite database
	CatalogPath string // Course catalog snapshot (.json or .json.gz)

	// Error Tracking / Log Shipping
	SentryToken         string
	SentryHost          string
	BetterstackToken    string
	BetterstackEndpoint string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		// LLM Configuration
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),

		// LLM Model Configuration
		OpenAIChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OpenAIEmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		GeminiChatModel:      getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),

		// LLM Call Behavior
		LLMTimeout:     getDurationEnv("LLM_TIMEOUT", LLMCall),
		LLMMaxAttempts: getIntEnv("LLM_MAX_ATTEMPTS", 3),

		// Retrieval Tuning
		MinSimilarity:          getFloatEnv("MIN_SIMILARITY", 0.3),
		SimilarityTopK:         getIntEnv("SIMILARITY_TOP_K", 20),
		MaxPromptCandidates:    getIntEnv("MAX_PROMPT_CANDIDATES", 200),
		DefaultRecommendations: getIntEnv("DEFAULT_RECOMMENDATIONS", 5),
		HistoryMaxPairs:        getIntEnv("HISTORY_MAX_PAIRS", 10),
		MaxCourseLevel:         getIntEnv("MAX_COURSE_LEVEL", 0),

		// Metrics Authentication
		MetricsUsername: getEnv("METRICS_USERNAME", "prometheus"),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		// Server Configuration
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", GracefulShutdown),

		// Data Configuration
		DataDir:     getEnv("DATA_DIR", getDefaultDataDir()),
		CatalogPath: getEnv("CATALOG_PATH", ""),

		// Error Tracking / Log Shipping
		SentryToken:         getEnv("SENTRY_TOKEN", ""),
		SentryHost:          getEnv("SENTRY_HOST", ""),
		BetterstackToken:    getEnv("BETTERSTACK_TOKEN", ""),
		BetterstackEndpoint: getEnv("BETTERSTACK_ENDPOINT", ""),
	}

	if cfg.CatalogPath == "" {
		cfg.CatalogPath = filepath.Join(cfg.DataDir, "catalog.json")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if c.CatalogPath == "" {
		errs = append(errs, errors.New("CATALOG_PATH is required"))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, fmt.Errorf("LLM_TIMEOUT must be positive, got %v", c.LLMTimeout))
	}
	if c.LLMMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("LLM_MAX_ATTEMPTS must be at least 1, got %d", c.LLMMaxAttempts))
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("MIN_SIMILARITY must be in [0, 1], got %v", c.MinSimilarity))
	}
	if c.SimilarityTopK < 1 {
		errs = append(errs, fmt.Errorf("SIMILARITY_TOP_K must be at least 1, got %d", c.SimilarityTopK))
	}
	if c.MaxPromptCandidates < 1 {
		errs = append(errs, fmt.Errorf("MAX_PROMPT_CANDIDATES must be at least 1, got %d", c.MaxPromptCandidates))
	}
	if c.DefaultRecommendations < 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_RECOMMENDATIONS must be at least 1, got %d", c.DefaultRecommendations))
	}
	if c.HistoryMaxPairs < 0 {
		errs = append(errs, fmt.Errorf("HISTORY_MAX_PAIRS cannot be negative, got %d", c.HistoryMaxPairs))
	}
	if c.MaxCourseLevel < 0 {
		errs = append(errs, fmt.Errorf("MAX_COURSE_LEVEL cannot be negative, got %d", c.MaxCourseLevel))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "advisor.db")
}

// HasGeminiFallback returns true if the Gemini fallback provider is configured.
func (c *Config) HasGeminiFallback() bool {
	return c.GeminiAPIKey != ""
}
