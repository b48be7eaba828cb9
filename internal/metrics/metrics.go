package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec
	LLMRetriesTotal    *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Recommendation pipeline metrics
	RecommendationsTotal     *prometheus.CounterVec
	RetrievalDurationSeconds *prometheus.HistogramVec
	IntentClassifiedTotal    *prometheus.CounterVec

	// Chat metrics
	ChatMessagesTotal        *prometheus.CounterVec
	ChatDurationSeconds      *prometheus.HistogramVec
	ChatFallbackRepliesTotal prometheus.Counter

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Embedding index metrics
	EmbeddingIndexSize    prometheus.Gauge
	EmbeddingRefreshTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// LLM metrics
		LLMRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tigertalks_llm_requests_total",
				Help: "Total number of LLM requests by provider, operation and status",
			},
			[]string{"provider", "operation", "status"}, // status: success, error, timeout
		),

		LLMDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tigertalks_llm_duration_seconds",
				Help:    "LLM request duration in seconds by provider and operation",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30}, // Matches 30s call timeout
			},
			[]string{"provider", "operation"}, // operation: classify, recommend, chat, embed
		),

		LLMRetriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tigertalks_llm_retries_total",
				Help: "Total number of LLM call retries by provider",
			},
			[]string{"provider"},
		),

		// Cache metrics
		CacheHitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tigertalks_cache_hits_total",
				Help: "Total number of cache hits by module",
			},
			[]string{"module"}, // module: catalog, embeddings
		),

		CacheMissesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tigertalks_cache_misses_total",
				Help: "Total number of cache misses by module",
			},
			[]string{"module"},
		),

		// Recommendation pipeline metrics
		RecommendationsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tigertalks_recommendations_total",
				Help: "Total number of recommendation requests by intent and status",
			},
			[]string{"intent", "status"}, // status: success, validation_error, error
		),

		RetrievalDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tigertalks_retrieval_duration_seconds",
				Help:    "Candidate retrieval duration in seconds by strategy",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2}, // In-memory search is fast
			},
			[]string{"strategy"}, // strategy: requirement, similarity, subject, generic
		),

		IntentClassifiedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tigertalks_intent_classified_total",
				Help: "Total number of classified queries by intent and method",
			},
			[]string{"intent", "method"}, // method: llm, rules
		),

		// Chat metrics
		ChatMessagesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tigertalks_chat_messages_total",
				Help: "Total number of chat messages by role",
			},
			[]string{"role"}, // role: user, model
		),

		ChatDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tigertalks_chat_duration_seconds",
				Help:    "End-to-end chat turn duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"status"}, // status: success, fallback
		),

		ChatFallbackRepliesTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "tigertalks_chat_fallback_replies_total",
				Help: "Total number of apology replies sent after LLM failure",
			},
		),

		// HTTP metrics
		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tigertalks_http_errors_total",
				Help: "Total HTTP errors by type and route",
			},
			[]string{"error_type", "route"}, // error_type: not_found, invalid_input, timeout, internal
		),

		// Embedding index metrics
		EmbeddingIndexSize: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "tigertalks_embedding_index_size",
				Help: "Number of course vectors currently held in the in-memory index",
			},
		),

		EmbeddingRefreshTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "tigertalks_embedding_refresh_total",
				Help: "Total number of embedding index refreshes by status",
			},
			[]string{"status"}, // status: success, error
		),
	}

	return m
}

// RecordLLMRequest records an LLM request with status
func (m *Metrics) RecordLLMRequest(provider, operation, status string, duration float64) {
	m.LLMRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	m.LLMDurationSeconds.WithLabelValues(provider, operation).Observe(duration)
}

// RecordLLMRetry records one retried LLM call
func (m *Metrics) RecordLLMRetry(provider string) {
	m.LLMRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(module string) {
	m.CacheHitsTotal.WithLabelValues(module).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(module string) {
	m.CacheMissesTotal.WithLabelValues(module).Inc()
}

// RecordRecommendation records a recommendation request outcome
func (m *Metrics) RecordRecommendation(intent, status string) {
	m.RecommendationsTotal.WithLabelValues(intent, status).Inc()
}

// RecordRetrieval records candidate retrieval duration for one strategy
func (m *Metrics) RecordRetrieval(strategy string, duration float64) {
	m.RetrievalDurationSeconds.WithLabelValues(strategy).Observe(duration)
}

// RecordIntent records a classified query
func (m *Metrics) RecordIntent(intent, method string) {
	m.IntentClassifiedTotal.WithLabelValues(intent, method).Inc()
}

// RecordChatMessage records one persisted chat turn
func (m *Metrics) RecordChatMessage(role string) {
	m.ChatMessagesTotal.WithLabelValues(role).Inc()
}

// RecordChatTurn records the duration of a full chat round trip
func (m *Metrics) RecordChatTurn(status string, duration float64) {
	m.ChatDurationSeconds.WithLabelValues(status).Observe(duration)
}

// RecordChatFallback records an apology reply sent after LLM failure
func (m *Metrics) RecordChatFallback() {
	m.ChatFallbackRepliesTotal.Inc()
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, route string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, route).Inc()
}

// SetEmbeddingIndexSize records the current vector index size
func (m *Metrics) SetEmbeddingIndexSize(n int) {
	m.EmbeddingIndexSize.Set(float64(n))
}

// RecordEmbeddingRefresh records one vector index refresh
func (m *Metrics) RecordEmbeddingRefresh(status string) {
	m.EmbeddingRefreshTotal.WithLabelValues(status).Inc()
}
