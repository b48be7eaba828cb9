// Package rag provides retrieval functionality for course recommendations.
// This file contains Reciprocal Rank Fusion of lexical and vector results.
package rag

import (
	"sort"
)

const (
	// RRFConstant is the constant used in the RRF formula: 1 / (k + rank).
	// Standard value is 60, which balances weight between top-ranked and
	// lower-ranked documents.
	RRFConstant = 60

	// DefaultLexicalWeight is the default weight for BM25 results in fusion.
	// 0.4 means BM25 contributes 40% and vector search contributes 60%.
	DefaultLexicalWeight = 0.4
)

// fusedResult accumulates per-course scores during fusion.
type fusedResult struct {
	code      string
	vectorSim float64
	rrfScore  float64
}

// FuseRRF combines BM25 and vector search results using Reciprocal Rank Fusion.
//
// RRF formula: score(d) = Σ (w_i / (k + rank_i))
// where k is RRFConstant, rank_i is the rank in each source, and w_i is the
// weight for each source.
//
// The returned matches carry the true cosine similarity when a course appears
// in the vector results; BM25-only courses get a normalized RRF score instead.
func FuseRRF(lexical []LexicalResult, vector []Match, lexicalWeight float64, topN int) []Match {
	if lexicalWeight < 0 {
		lexicalWeight = 0
	}
	if lexicalWeight > 1 {
		lexicalWeight = 1
	}
	vectorWeight := 1.0 - lexicalWeight

	fused := make(map[string]*fusedResult)

	for i, r := range lexical {
		rank := i + 1
		score := lexicalWeight / float64(RRFConstant+rank)
		if existing, ok := fused[r.Code]; ok {
			existing.rrfScore += score
		} else {
			fused[r.Code] = &fusedResult{code: r.Code, rrfScore: score}
		}
	}

	for i, m := range vector {
		rank := i + 1
		score := vectorWeight / float64(RRFConstant+rank)
		if existing, ok := fused[m.Code]; ok {
			existing.vectorSim = m.Similarity
			existing.rrfScore += score
		} else {
			fused[m.Code] = &fusedResult{code: m.Code, vectorSim: m.Similarity, rrfScore: score}
		}
	}

	results := make([]*fusedResult, 0, len(fused))
	for _, r := range fused {
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].rrfScore != results[j].rrfScore {
			return results[i].rrfScore > results[j].rrfScore
		}
		return results[i].code < results[j].code
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}

	maxScore := 0.0
	if len(results) > 0 {
		maxScore = results[0].rrfScore
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		sim := r.vectorSim
		if sim == 0 && maxScore > 0 {
			sim = r.rrfScore / maxScore
		}
		matches[i] = Match{Code: r.code, Similarity: sim}
	}
	return matches
}
