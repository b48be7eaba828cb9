// Package advisor implements the course recommendation pipeline: a query is
// classified into an intent, candidate courses are retrieved by an
// intent-specific strategy, filtered and reranked against the student profile,
// rendered into a prompt, and the model's reply is parsed into course codes.
package advisor

import (
	"github.com/tigertalks/tigertalks-go/internal/coursecode"
	"github.com/tigertalks/tigertalks-go/internal/storage"
)

// Intent is the classified purpose of a student query.
type Intent string

const (
	// IntentSimilarity asks for courses like a named anchor course.
	IntentSimilarity Intent = "similarity"
	// IntentRequirement asks for courses fulfilling a distribution requirement.
	IntentRequirement Intent = "requirement"
	// IntentSubject asks for courses in a subject or department.
	IntentSubject Intent = "subject"
	// IntentGeneric is everything else.
	IntentGeneric Intent = "generic"
)

// Valid reports whether the intent is one of the four known values.
func (i Intent) Valid() bool {
	switch i {
	case IntentSimilarity, IntentRequirement, IntentSubject, IntentGeneric:
		return true
	}
	return false
}

// Classification is the result of classifying one query. Request scoped,
// never persisted.
type Classification struct {
	Intent          Intent `json:"intent"`
	SimilarityRef   string `json:"similarity_ref,omitempty"`
	RequirementCode string `json:"requirement_code,omitempty"`
	SubjectDept     string `json:"subject_dept,omitempty"`
}

// Candidate is one retrieved course before and after reranking.
// Scored marks similarity-derived scores; distribution lookups carry no
// meaningful score and are exempt from score-based filtering and boosts.
type Candidate struct {
	Code   string
	Score  float64
	Scored bool
}

// Profile is the slice of a student record the pipeline needs.
type Profile struct {
	PastCourses   map[string]string
	Concentration string
	ClassYear     string
}

// ProfileFromUser extracts the pipeline view of a stored user.
// A nil user yields an empty profile. Stored past-course keys arrive in
// whatever form the student typed ("AAS225", "aas 225"); they are canonicalized
// here so exclusion checks against catalog codes compare like with like.
func ProfileFromUser(u *storage.User) Profile {
	if u == nil {
		return Profile{}
	}
	past := make(map[string]string, len(u.PastCourses))
	for code, grade := range u.PastCourses {
		if canonical, ok := coursecode.Normalize(code); ok {
			past[canonical] = grade
			continue
		}
		past[code] = grade
	}
	return Profile{
		PastCourses:   past,
		Concentration: u.Concentration,
		ClassYear:     u.Grade,
	}
}
