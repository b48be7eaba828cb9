package rag

import (
	"testing"
)

func testDocs() []Document {
	return []Document{
		{Code: "COS 126", Content: "COS 126: Computer Science: An Interdisciplinary Approach. Programming, algorithms, and machines."},
		{Code: "COS 226", Content: "COS 226: Algorithms and Data Structures. Sorting, searching, graphs, strings."},
		{Code: "ECO 100", Content: "ECO 100: Introduction to Microeconomics. Markets, supply and demand, consumer behavior."},
		{Code: "ENV 200", Content: "ENV 200: The Environmental Nexus. Climate change, biodiversity, sustainability."},
	}
}

func TestLexicalIndex_Search(t *testing.T) {
	idx := NewLexicalIndex(testLogger())
	if idx.IsEnabled() {
		t.Error("index should not be enabled before Build")
	}
	if err := idx.Build(testDocs()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !idx.IsEnabled() {
		t.Error("index should be enabled after Build")
	}
	if idx.Count() != 4 {
		t.Errorf("Count() = %d, want 4", idx.Count())
	}

	results, err := idx.Search("algorithms and data structures", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Search() returned no results")
	}
	if results[0].Code != "COS 226" {
		t.Errorf("Search() top result = %s, want COS 226", results[0].Code)
	}
	for i, r := range results {
		if r.Rank != i+1 {
			t.Errorf("results[%d].Rank = %d, want %d", i, r.Rank, i+1)
		}
		if r.Score <= 0 {
			t.Errorf("results[%d].Score = %v, want > 0", i, r.Score)
		}
	}
}

func TestLexicalIndex_TopN(t *testing.T) {
	idx := NewLexicalIndex(testLogger())
	if err := idx.Build(testDocs()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := idx.Search("introduction to science and markets", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) > 1 {
		t.Errorf("Search(topN=1) returned %d results", len(results))
	}
}

func TestLexicalIndex_EmptyQuery(t *testing.T) {
	idx := NewLexicalIndex(testLogger())
	if err := idx.Build(testDocs()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	results, err := idx.Search("   ", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results != nil {
		t.Errorf("Search(blank) = %v, want nil", results)
	}
}

func TestLexicalIndex_NilSafe(t *testing.T) {
	var idx *LexicalIndex
	if idx.IsEnabled() {
		t.Error("nil index should not be enabled")
	}
	if idx.Count() != 0 {
		t.Error("nil index count should be 0")
	}
	results, err := idx.Search("anything", 10)
	if err != nil || results != nil {
		t.Errorf("nil index Search() = %v, %v", results, err)
	}
}

func TestRankConfidence(t *testing.T) {
	tests := []struct {
		rank int
		want float64
	}{
		{0, 0},
		{-1, 0},
		{1, 1.0 / 1.05},
		{20, 0.5},
	}
	for _, tt := range tests {
		if got := RankConfidence(tt.rank); got != tt.want {
			t.Errorf("RankConfidence(%d) = %v, want %v", tt.rank, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Computer Science", []string{"computer", "science"}},
		{"COS 126", []string{"cos", "126"}},
		{"supply-and-demand!", []string{"supply", "and", "demand"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := tokenize(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("tokenize(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}
