// Package rag provides retrieval functionality for course recommendations.
// This file contains the BM25 keyword index used as a lexical fallback when
// embeddings are unavailable, and as one leg of hybrid search.
package rag

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/iwilltry42/bm25-go/bm25"

	"github.com/tigertalks/tigertalks-go/internal/logger"
)

// Document is one course entry indexed for keyword search.
type Document struct {
	Code    string
	Content string
}

// LexicalResult is one scored course from a BM25 search.
type LexicalResult struct {
	Code  string
	Score float64 // BM25 score (higher is better)
	Rank  int     // Rank position (1-indexed)
}

// LexicalIndex provides keyword-based search using the BM25 algorithm.
type LexicalIndex struct {
	okapi       *bm25.BM25Okapi
	codes       []string
	logger      *logger.Logger
	mu          sync.RWMutex
	initialized bool
}

// NewLexicalIndex creates an empty BM25 index.
func NewLexicalIndex(log *logger.Logger) *LexicalIndex {
	return &LexicalIndex{logger: log}
}

// Build indexes the given documents, replacing any previous corpus.
// BM25 needs the whole corpus for IDF, so updates are full rebuilds.
func (idx *LexicalIndex) Build(docs []Document) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	corpus := make([]string, 0, len(docs))
	codes := make([]string, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}
		corpus = append(corpus, doc.Content)
		codes = append(codes, doc.Code)
	}

	if len(corpus) == 0 {
		idx.okapi = nil
		idx.codes = nil
		idx.initialized = true
		return nil
	}

	// k1=1.5, b=0.75 are standard BM25 parameters
	okapi, err := bm25.NewBM25Okapi(corpus, tokenize, 1.5, 0.75, nil)
	if err != nil {
		return fmt.Errorf("failed to create BM25 index: %w", err)
	}

	idx.okapi = okapi
	idx.codes = codes
	idx.initialized = true

	idx.logger.WithModule("rag").WithField("docs", len(corpus)).Info("BM25 index built")
	return nil
}

// Search performs BM25 keyword search.
// Returns results sorted by score descending, dropping zero-score documents.
func (idx *LexicalIndex) Search(query string, topN int) ([]LexicalResult, error) {
	if idx == nil {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.initialized || idx.okapi == nil {
		return nil, nil
	}
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	scores, err := idx.okapi.GetScores(tokens)
	if err != nil {
		return nil, fmt.Errorf("BM25 scoring failed: %w", err)
	}

	results := make([]LexicalResult, 0, len(scores))
	for i, score := range scores {
		if score > 0 {
			results = append(results, LexicalResult{Code: idx.codes[i], Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	for i := range results {
		results[i].Rank = i + 1
	}

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// IsEnabled returns true if the index is built.
func (idx *LexicalIndex) IsEnabled() bool {
	if idx == nil {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.initialized && idx.okapi != nil
}

// Count returns the number of indexed documents.
func (idx *LexicalIndex) Count() int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.codes)
}

// RankConfidence converts a BM25 rank into a bounded confidence score.
// BM25 scores are unbounded and query-dependent, so rank position serves as
// the relevance proxy.
//
// Formula: 1 / (1 + 0.05 * rank)
//   - rank 1 → 0.95
//   - rank 5 → 0.80
//   - rank 10 → 0.67
//   - rank 20 → 0.50
func RankConfidence(rank int) float64 {
	if rank <= 0 {
		return 0
	}
	return 1.0 / (1.0 + 0.05*float64(rank))
}

// tokenize lowercases and splits text into alphanumeric word tokens.
func tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var word strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
			continue
		}
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	if word.Len() > 0 {
		tokens = append(tokens, word.String())
	}
	return tokens
}
