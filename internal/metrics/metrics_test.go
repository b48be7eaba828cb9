package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}

	// Verify all metric fields are initialized
	if m.LLMRequestsTotal == nil {
		t.Error("LLMRequestsTotal is nil")
	}
	if m.LLMDurationSeconds == nil {
		t.Error("LLMDurationSeconds is nil")
	}
	if m.LLMRetriesTotal == nil {
		t.Error("LLMRetriesTotal is nil")
	}
	if m.CacheHitsTotal == nil {
		t.Error("CacheHitsTotal is nil")
	}
	if m.CacheMissesTotal == nil {
		t.Error("CacheMissesTotal is nil")
	}
	if m.RecommendationsTotal == nil {
		t.Error("RecommendationsTotal is nil")
	}
	if m.RetrievalDurationSeconds == nil {
		t.Error("RetrievalDurationSeconds is nil")
	}
	if m.IntentClassifiedTotal == nil {
		t.Error("IntentClassifiedTotal is nil")
	}
	if m.ChatMessagesTotal == nil {
		t.Error("ChatMessagesTotal is nil")
	}
	if m.ChatFallbackRepliesTotal == nil {
		t.Error("ChatFallbackRepliesTotal is nil")
	}
	if m.HTTPErrorsTotal == nil {
		t.Error("HTTPErrorsTotal is nil")
	}
	if m.EmbeddingIndexSize == nil {
		t.Error("EmbeddingIndexSize is nil")
	}
}

func TestRecordLLMRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordLLMRequest("openai", "recommend", "success", 1.5)
	m.RecordLLMRequest("gemini", "chat", "error", 2.0)
	m.RecordLLMRequest("openai", "embed", "timeout", 30.0)
}

func TestRecordCacheHitMiss(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordCacheHit("catalog")
	m.RecordCacheMiss("catalog")
	m.RecordCacheHit("embeddings")
}

func TestRecordRecommendation(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordRecommendation("requirement", "success")
	m.RecordRecommendation("similarity", "validation_error")
	m.RecordRecommendation("generic", "error")
}

func TestRecordRetrieval(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordRetrieval("requirement", 0.002)
	m.RecordRetrieval("similarity", 0.05)
}

func TestRecordChatTurn(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordChatMessage("user")
	m.RecordChatMessage("model")
	m.RecordChatTurn("success", 1.2)
	m.RecordChatTurn("fallback", 31.0)
	m.RecordChatFallback()
}

func TestRecordHTTPError(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.RecordHTTPError("not_found", "/api/chat/:id")
	m.RecordHTTPError("invalid_input", "/api/recommendations/courses")
	m.RecordHTTPError("internal", "/api/chat")
}

func TestEmbeddingIndexMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Should not panic
	m.SetEmbeddingIndexSize(1500)
	m.RecordEmbeddingRefresh("success")
	m.RecordEmbeddingRefresh("error")
}

func TestMetrics_WithDefaultRegistry(t *testing.T) {
	// Test that metrics can be created with a new registry
	// without conflicting with default registry
	registry := prometheus.NewRegistry()
	m := New(registry)

	// Record some metrics
	m.RecordLLMRequest("openai", "recommend", "success", 1.0)
	m.RecordCacheHit("catalog")
	m.RecordRecommendation("requirement", "success")

	// Gather metrics to verify they were recorded
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	// Should have metrics registered
	if len(metricFamilies) == 0 {
		t.Error("No metrics were gathered")
	}

	// Check for specific metric names
	expectedMetrics := map[string]bool{
		"tigertalks_llm_requests_total":    false,
		"tigertalks_llm_duration_seconds":  false,
		"tigertalks_cache_hits_total":      false,
		"tigertalks_recommendations_total": false,
	}

	for _, mf := range metricFamilies {
		if _, ok := expectedMetrics[mf.GetName()]; ok {
			expectedMetrics[mf.GetName()] = true
		}
	}

	for name, found := range expectedMetrics {
		if !found {
			t.Errorf("Expected metric %q not found", name)
		}
	}
}
