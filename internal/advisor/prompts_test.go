package advisor

import (
	"context"
	"math/rand"
	"strings"
	"testing"
)

func TestPromptBuilder_BuildRecommendation(t *testing.T) {
	p := NewPromptBuilder(newTestCatalog(t), 0, nil, testLogger())

	profile := Profile{
		PastCourses:   map[string]string{"COS 126": "A", "ECO 100": "B+"},
		Concentration: "COS",
		ClassYear:     "Sophomore",
	}
	candidates := []Candidate{
		{Code: "COS 226", Score: 0.912, Scored: true},
		{Code: "MAT 201"},
	}

	system, contextMsg := p.BuildRecommendation(context.Background(), Classification{Intent: IntentGeneric}, profile, candidates, "what should I take", 5)

	if !strings.Contains(system, "recommend exactly 5 courses") {
		t.Errorf("system prompt missing count: %q", system)
	}
	for _, want := range []string{
		"Major: COS",
		"Class: Sophomore",
		"  - COS 126: A",
		"  - ECO 100: B+",
		"COS 226 - Algorithms and Data Structures",
		"  Instructor: Robert Sedgewick",
		"  Similarity Score: 0.912",
		"MAT 201 - Multivariable Calculus",
		"STUDENT QUERY:\nwhat should I take",
		"output exactly 5 course codes",
	} {
		if !strings.Contains(contextMsg, want) {
			t.Errorf("context message missing %q", want)
		}
	}
	// Past courses render sorted by code.
	if strings.Index(contextMsg, "COS 126") > strings.Index(contextMsg, "ECO 100") {
		t.Error("past courses not sorted by code")
	}
}

func TestPromptBuilder_EmptyProfile(t *testing.T) {
	p := NewPromptBuilder(newTestCatalog(t), 0, nil, testLogger())

	_, contextMsg := p.BuildRecommendation(context.Background(), Classification{Intent: IntentGeneric}, Profile{}, []Candidate{{Code: "HIS 201"}}, "", 3)

	for _, want := range []string{"Major: Not specified", "Class: Not specified", "Past courses: None"} {
		if !strings.Contains(contextMsg, want) {
			t.Errorf("context message missing %q", want)
		}
	}
	if strings.Contains(contextMsg, "STUDENT QUERY") {
		t.Error("empty query should not render a query section")
	}
}

func TestPromptBuilder_IntentInstructions(t *testing.T) {
	p := NewPromptBuilder(newTestCatalog(t), 0, nil, testLogger())

	t.Run("requirement", func(t *testing.T) {
		cls := Classification{Intent: IntentRequirement, RequirementCode: "SEL"}
		_, contextMsg := p.BuildRecommendation(context.Background(), cls, Profile{}, []Candidate{{Code: "ENV 200"}}, "", 3)
		if !strings.Contains(contextMsg, "COURSES THAT FULFILL SEL") {
			t.Errorf("missing exact-match header: %q", contextMsg)
		}
		if !strings.Contains(contextMsg, "A course not listed above does NOT fulfill the requirement") {
			t.Error("missing requirement instruction")
		}
	})

	t.Run("similarity", func(t *testing.T) {
		cls := Classification{Intent: IntentSimilarity, SimilarityRef: "COS 226"}
		_, contextMsg := p.BuildRecommendation(context.Background(), cls, Profile{}, []Candidate{{Code: "COS 126", Score: 0.8, Scored: true}}, "", 3)
		if !strings.Contains(contextMsg, "COURSES SIMILAR TO COS 226") {
			t.Errorf("missing similarity header: %q", contextMsg)
		}
		if !strings.Contains(contextMsg, "DO NOT reason about distribution requirements") {
			t.Error("missing similarity instruction")
		}
	})

	t.Run("subject", func(t *testing.T) {
		cls := Classification{Intent: IntentSubject, SubjectDept: "HIS"}
		_, contextMsg := p.BuildRecommendation(context.Background(), cls, Profile{}, []Candidate{{Code: "HIS 201"}}, "", 3)
		if !strings.Contains(contextMsg, "DO NOT interpret this as a distribution requirement query") {
			t.Error("missing subject instruction")
		}
	})
}

func TestPromptBuilder_SkipsUnknownCourses(t *testing.T) {
	p := NewPromptBuilder(newTestCatalog(t), 0, nil, testLogger())

	_, contextMsg := p.BuildRecommendation(context.Background(), Classification{Intent: IntentGeneric}, Profile{}, []Candidate{
		{Code: "XXX 999"},
		{Code: "HIS 201"},
	}, "", 3)

	if strings.Contains(contextMsg, "XXX 999") {
		t.Error("candidate without a catalog entry should be skipped")
	}
	if !strings.Contains(contextMsg, "HIS 201 - A History of the World") {
		t.Error("valid candidate missing from prompt")
	}
}

func TestPromptBuilder_SamplesLargeCandidateSets(t *testing.T) {
	rng := rand.New(rand.NewSource(1)) //nolint:gosec
	p := NewPromptBuilder(newTestCatalog(t), 3, rng, testLogger())

	input := []Candidate{
		{Code: "COS 126"},
		{Code: "COS 226"},
		{Code: "COS 333"},
		{Code: "HIS 201"},
		{Code: "ECO 100"},
	}
	_, contextMsg := p.BuildRecommendation(context.Background(), Classification{Intent: IntentGeneric}, Profile{}, input, "", 3)

	if !strings.Contains(contextMsg, "uniform sample of 3 from 5 matches") {
		t.Errorf("missing sampling header: %q", contextMsg)
	}
	// Sampled output keeps input order even though selection is random.
	positions := make([]int, 0, 3)
	for _, c := range input {
		if pos := strings.Index(contextMsg, c.Code+" - "); pos >= 0 {
			positions = append(positions, pos)
		}
	}
	if len(positions) != 3 {
		t.Errorf("sample rendered %d candidates, want 3", len(positions))
	}
	for i := 1; i < len(positions); i++ {
		if positions[i] < positions[i-1] {
			t.Error("sampled candidates rendered out of input order")
		}
	}
}
