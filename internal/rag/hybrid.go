// Package rag provides retrieval functionality for course recommendations.
// This file contains the hybrid searcher combining vector and BM25 retrieval.
package rag

import (
	"context"
	"sync"

	"github.com/tigertalks/tigertalks-go/internal/logger"
)

// Embedder turns query text into a vector.
// Implemented by the genai generator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HybridSearcher combines vector similarity search and BM25 keyword search
// using Reciprocal Rank Fusion.
type HybridSearcher struct {
	index    *VectorIndex
	lexical  *LexicalIndex
	embedder Embedder
	logger   *logger.Logger
}

// NewHybridSearcher creates a new hybrid searcher.
// Either index may be nil; the other leg is then used alone.
func NewHybridSearcher(index *VectorIndex, lexical *LexicalIndex, embedder Embedder, log *logger.Logger) *HybridSearcher {
	return &HybridSearcher{
		index:    index,
		lexical:  lexical,
		embedder: embedder,
		logger:   log,
	}
}

// Search retrieves courses relevant to the free-text query.
//
// The search process:
//  1. Run BM25 keyword search in parallel with vector search
//  2. Combine results using Reciprocal Rank Fusion
//  3. Return top results sorted by combined score
//
// When only one leg is available its results are returned directly; BM25-only
// results carry rank-based confidence instead of cosine similarity.
func (h *HybridSearcher) Search(ctx context.Context, query string, topN int) ([]Match, error) {
	if h == nil {
		return nil, nil
	}

	vectorEnabled := h.index != nil && h.index.Ready() && h.embedder != nil
	lexicalEnabled := h.lexical.IsEnabled()

	if !vectorEnabled && !lexicalEnabled {
		return nil, nil
	}

	// Fetch more results than requested for better fusion
	fetchN := topN * 3
	if fetchN < 30 {
		fetchN = 30
	}

	var (
		lexicalResults []LexicalResult
		vectorResults  []Match
		lexicalErr     error
		vectorErr      error
		wg             sync.WaitGroup
	)

	if lexicalEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lexicalResults, lexicalErr = h.lexical.Search(query, fetchN)
		}()
	}

	if vectorEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var queryVec []float32
			queryVec, vectorErr = h.embedder.Embed(ctx, query)
			if vectorErr != nil {
				return
			}
			vectorResults, vectorErr = h.index.Search(queryVec, SearchOptions{TopK: fetchN})
		}()
	}

	wg.Wait()

	// Log errors but continue with whatever leg succeeded
	if lexicalErr != nil {
		h.logger.WithModule("rag").WithError(lexicalErr).Warn("BM25 search failed")
	}
	if vectorErr != nil {
		h.logger.WithModule("rag").WithError(vectorErr).Warn("vector search failed")
	}

	if len(lexicalResults) == 0 && len(vectorResults) == 0 {
		if lexicalErr != nil && vectorErr != nil {
			return nil, vectorErr
		}
		return nil, nil
	}

	if len(lexicalResults) == 0 {
		if len(vectorResults) > topN && topN > 0 {
			vectorResults = vectorResults[:topN]
		}
		return vectorResults, nil
	}

	if len(vectorResults) == 0 {
		matches := make([]Match, 0, min(len(lexicalResults), topN))
		for _, r := range lexicalResults {
			if topN > 0 && len(matches) >= topN {
				break
			}
			matches = append(matches, Match{Code: r.Code, Similarity: RankConfidence(r.Rank)})
		}
		return matches, nil
	}

	fusedMatches := FuseRRF(lexicalResults, vectorResults, DefaultLexicalWeight, topN)

	h.logger.WithModule("rag").WithFields(map[string]any{
		"lexical_count": len(lexicalResults),
		"vector_count":  len(vectorResults),
		"fused_count":   len(fusedMatches),
	}).Debug("hybrid search completed")

	return fusedMatches, nil
}

// IsEnabled returns true if at least one search leg is available.
func (h *HybridSearcher) IsEnabled() bool {
	if h == nil {
		return false
	}
	return (h.index != nil && h.index.Ready() && h.embedder != nil) || h.lexical.IsEnabled()
}
