// Package rag provides retrieval functionality for course recommendations.
// This file contains the in-memory vector index over stored course embeddings.
package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tigertalks/tigertalks-go/internal/logger"
	"github.com/tigertalks/tigertalks-go/internal/storage"
)

// Match is one scored course from a similarity search.
type Match struct {
	Code       string
	Similarity float64
}

// EmbeddingSource loads stored course embeddings.
// Implemented by the storage layer.
type EmbeddingSource interface {
	GetAllEmbeddings(ctx context.Context) ([]*storage.CourseEmbedding, error)
}

// IndexRecorder records vector index metrics.
type IndexRecorder interface {
	SetEmbeddingIndexSize(n int)
	RecordEmbeddingRefresh(status string)
}

// VectorIndex holds course vectors in memory for brute-force cosine search.
// The catalog is a few thousand courses, so a linear scan stays well under a
// millisecond and needs no ANN structure.
type VectorIndex struct {
	source  EmbeddingSource
	modelID string
	logger  *logger.Logger
	metrics IndexRecorder

	mu      sync.RWMutex
	codes   []string
	vectors [][]float32
	byCode  map[string]int
	dims    int
}

// NewVectorIndex creates an empty index bound to an embedding source.
// modelID is the embedding model the application is configured with; rows
// produced by other models are skipped during refresh.
func NewVectorIndex(source EmbeddingSource, modelID string, log *logger.Logger) *VectorIndex {
	return &VectorIndex{
		source:  source,
		modelID: modelID,
		logger:  log,
	}
}

// SetMetrics attaches a metrics recorder.
func (idx *VectorIndex) SetMetrics(r IndexRecorder) {
	idx.metrics = r
}

// Refresh reloads all vectors from the embedding source.
// Rows from a different embedding model or with inconsistent dimensions are
// skipped with a warning; mixing them would make similarities meaningless.
func (idx *VectorIndex) Refresh(ctx context.Context) error {
	embeddings, err := idx.source.GetAllEmbeddings(ctx)
	if err != nil {
		if idx.metrics != nil {
			idx.metrics.RecordEmbeddingRefresh("error")
		}
		return fmt.Errorf("load embeddings: %w", err)
	}

	codes := make([]string, 0, len(embeddings))
	vectors := make([][]float32, 0, len(embeddings))
	dims := 0
	skipped := 0

	for _, emb := range embeddings {
		if emb.ModelID != idx.modelID {
			skipped++
			continue
		}
		if len(emb.Vector) == 0 {
			skipped++
			continue
		}
		if dims == 0 {
			dims = len(emb.Vector)
		}
		if len(emb.Vector) != dims {
			skipped++
			continue
		}
		codes = append(codes, emb.CourseCode)
		vectors = append(vectors, emb.Vector)
	}

	byCode := make(map[string]int, len(codes))
	for i, code := range codes {
		byCode[code] = i
	}

	idx.mu.Lock()
	idx.codes = codes
	idx.vectors = vectors
	idx.byCode = byCode
	idx.dims = dims
	idx.mu.Unlock()

	if skipped > 0 {
		idx.logger.WithModule("rag").WithFields(map[string]any{
			"skipped":  skipped,
			"model_id": idx.modelID,
		}).Warn("skipped incompatible embedding rows during refresh")
	}
	idx.logger.WithModule("rag").WithField("count", len(codes)).Info("vector index refreshed")

	if idx.metrics != nil {
		idx.metrics.SetEmbeddingIndexSize(len(codes))
		idx.metrics.RecordEmbeddingRefresh("success")
	}
	return nil
}

// SearchOptions narrows a similarity search.
type SearchOptions struct {
	// TopK caps the result count. Zero means no cap.
	TopK int
	// Restrict limits results to the given codes when non-empty.
	Restrict map[string]bool
	// Exclude drops a single code, typically the query course itself.
	Exclude string
	// MinSimilarity drops matches scoring below the threshold.
	MinSimilarity float64
}

// Search returns courses ranked by cosine similarity to the query vector.
func (idx *VectorIndex) Search(query []float32, opts SearchOptions) ([]Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.codes) == 0 {
		return nil, nil
	}
	if len(query) != idx.dims {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), idx.dims)
	}

	matches := make([]Match, 0, len(idx.codes))
	for i, code := range idx.codes {
		if code == opts.Exclude {
			continue
		}
		if len(opts.Restrict) > 0 && !opts.Restrict[code] {
			continue
		}
		sim, err := CosineSimilarity(query, idx.vectors[i])
		if err != nil {
			return nil, err
		}
		if sim < opts.MinSimilarity {
			continue
		}
		matches = append(matches, Match{Code: code, Similarity: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if opts.TopK > 0 && len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}
	return matches, nil
}

// SearchByCode ranks courses by similarity to a course already in the index.
// Returns false when the course has no stored vector.
func (idx *VectorIndex) SearchByCode(code string, opts SearchOptions) ([]Match, bool, error) {
	vector, ok := idx.Vector(code)
	if !ok {
		return nil, false, nil
	}
	if opts.Exclude == "" {
		opts.Exclude = code
	}
	matches, err := idx.Search(vector, opts)
	return matches, true, err
}

// Vector returns the stored vector for a course.
func (idx *VectorIndex) Vector(code string) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	i, ok := idx.byCode[code]
	if !ok {
		return nil, false
	}
	return idx.vectors[i], true
}

// Ready reports whether the index holds any vectors.
func (idx *VectorIndex) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.codes) > 0
}

// Count returns the number of indexed courses.
func (idx *VectorIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.codes)
}
