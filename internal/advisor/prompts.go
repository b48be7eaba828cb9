package advisor

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/tigertalks/tigertalks-go/internal/catalog"
	"github.com/tigertalks/tigertalks-go/internal/logger"
	"github.com/tigertalks/tigertalks-go/internal/stringutil"
)

const (
	// DefaultMaxPromptCandidates caps how many candidates a prompt lists
	// before uniform random sampling kicks in.
	DefaultMaxPromptCandidates = 200
	// descriptionCap bounds each course description inside a prompt.
	descriptionCap = 250
)

const chatSystemPrompt = `You are Tiggy, an academic advising assistant. You advise undergraduate students on what courses to consider taking, based on the current term's course catalog.

Use only the course data provided in the context. Distinguish between SIMILARITY queries, REQUIREMENT queries, and SUBJECT AREA queries, in that priority order:
- SIMILARITY query (highest priority): the student wants courses semantically similar to a named course. Recommend only from the pre-selected similar courses.
- REQUIREMENT query: the student wants courses fulfilling a specific distribution requirement. Recommend ONLY courses from the exact-match list provided.
- SUBJECT AREA query: the student wants courses in a subject or department, NOT a distribution requirement.

When recommending, consider the student's class year for appropriate course levels, explain your reasoning, and acknowledge when the provided data has no relevant courses.`

const recommendSystemPrompt = `You are a knowledgeable course advisor. Your role is to recommend exactly %d courses to a student based on their academic history, major, and class year.

OUTPUT REQUIREMENTS:
- Output exactly %d course codes in the format "SUBJECT NUMBER" (e.g., "COS 126"), one per line or as a JSON array
- Do not include explanations or additional text
- Only recommend courses from the candidate list provided
- Consider the student's class year for appropriate course levels
- Prioritize courses that build on their past coursework; with no past courses, recommend foundational courses for their major`

// PromptBuilder renders system and context messages for the advising calls.
// The random source is injectable so sampling is deterministic in tests.
type PromptBuilder struct {
	catalog       *catalog.Store
	maxCandidates int
	rng           *rand.Rand
	log           *logger.Logger
}

// NewPromptBuilder creates a builder. rng may be nil for a time-seeded source.
func NewPromptBuilder(cat *catalog.Store, maxCandidates int, rng *rand.Rand, log *logger.Logger) *PromptBuilder {
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxPromptCandidates
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63())) //nolint:gosec
	}
	return &PromptBuilder{
		catalog:       cat,
		maxCandidates: maxCandidates,
		rng:           rng,
		log:           log.WithModule("prompts"),
	}
}

// BuildRecommendation renders the structured-output prompt asking for exactly
// count course codes chosen from the candidate set.
func (p *PromptBuilder) BuildRecommendation(ctx context.Context, cls Classification, profile Profile, candidates []Candidate, query string, count int) (system, contextMsg string) {
	system = fmt.Sprintf(recommendSystemPrompt, count, count)

	var b strings.Builder
	p.writeProfile(&b, profile)
	p.writeCandidates(ctx, &b, cls, candidates)
	p.writeInstructions(&b, cls)

	if query != "" {
		b.WriteString("STUDENT QUERY:\n")
		b.WriteString(query)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Based on the information above, output exactly %d course codes from the candidate list.\n", count)

	return system, b.String()
}

// BuildChat renders the conversational prompt used by the chat flow.
func (p *PromptBuilder) BuildChat(ctx context.Context, cls Classification, profile Profile, candidates []Candidate, query string) (system, contextMsg string) {
	var b strings.Builder
	p.writeProfile(&b, profile)
	p.writeCandidates(ctx, &b, cls, candidates)
	p.writeInstructions(&b, cls)

	b.WriteString("STUDENT QUERY:\n")
	b.WriteString(query)
	b.WriteString("\n\nPlease provide course recommendations based on the student's query and the courses listed above.")

	return chatSystemPrompt, b.String()
}

func (p *PromptBuilder) writeProfile(b *strings.Builder, profile Profile) {
	b.WriteString("STUDENT INFORMATION:\n")
	if profile.Concentration != "" {
		fmt.Fprintf(b, "Major: %s\n", profile.Concentration)
	} else {
		b.WriteString("Major: Not specified\n")
	}
	if profile.ClassYear != "" {
		fmt.Fprintf(b, "Class: %s\n", profile.ClassYear)
	} else {
		b.WriteString("Class: Not specified\n")
	}

	if len(profile.PastCourses) > 0 {
		b.WriteString("Past courses taken (with grades):\n")
		codes := make([]string, 0, len(profile.PastCourses))
		for code := range profile.PastCourses {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Fprintf(b, "  - %s: %s\n", code, profile.PastCourses[code])
		}
	} else {
		b.WriteString("Past courses: None\n")
	}
	b.WriteString("\n")
}

// writeCandidates renders the candidate list with hydrated details. Sets
// larger than the cap are sampled uniformly at random rather than truncated
// positionally, which would bias toward alphabetically early departments.
func (p *PromptBuilder) writeCandidates(ctx context.Context, b *strings.Builder, cls Classification, candidates []Candidate) {
	shown := candidates
	if len(candidates) > p.maxCandidates {
		shown = p.sample(candidates)
		fmt.Fprintf(b, "CANDIDATE COURSES (uniform sample of %d from %d matches):\n\n", len(shown), len(candidates))
	} else {
		switch cls.Intent {
		case IntentRequirement:
			fmt.Fprintf(b, "COURSES THAT FULFILL %s (%d courses with exact distribution match):\n", cls.RequirementCode, len(candidates))
			fmt.Fprintf(b, "ALL courses below are verified to carry '%s' in their distribution field. These are the ONLY courses that fulfill it.\n\n", cls.RequirementCode)
		case IntentSimilarity:
			fmt.Fprintf(b, "COURSES SIMILAR TO %s (found using semantic search):\n\n", cls.SimilarityRef)
		default:
			b.WriteString("CANDIDATE COURSES:\n\n")
		}
	}

	for _, c := range shown {
		details, err := p.catalog.Details(ctx, c.Code)
		if err != nil {
			p.log.WithError(err).WithField("course", c.Code).Warn("Skipping candidate without catalog entry")
			continue
		}
		fmt.Fprintf(b, "%s - %s\n", details.Code, details.Title)
		fmt.Fprintf(b, "  Instructor: %s\n", details.Instructor)
		fmt.Fprintf(b, "  Format: %s\n", details.Format)
		fmt.Fprintf(b, "  Schedule: %s\n", details.Schedule)
		if details.Description != "" {
			fmt.Fprintf(b, "  Description: %s\n", stringutil.Truncate(details.Description, descriptionCap))
		}
		if c.Scored {
			fmt.Fprintf(b, "  Similarity Score: %.3f\n", c.Score)
		}
		b.WriteString("\n")
	}
}

// sample draws maxCandidates candidates uniformly without replacement,
// preserving their original relative order.
func (p *PromptBuilder) sample(candidates []Candidate) []Candidate {
	perm := p.rng.Perm(len(candidates))
	picked := perm[:p.maxCandidates]
	sort.Ints(picked)

	out := make([]Candidate, len(picked))
	for i, idx := range picked {
		out[i] = candidates[idx]
	}
	return out
}

func (p *PromptBuilder) writeInstructions(b *strings.Builder, cls Classification) {
	b.WriteString("INSTRUCTIONS:\n")
	switch cls.Intent {
	case IntentSimilarity:
		fmt.Fprintf(b, "CRITICAL: The student is asking for courses SIMILAR TO %s.\n", cls.SimilarityRef)
		b.WriteString("ONLY recommend courses from the pre-selected similarity results above.\n")
		b.WriteString("DO NOT reason about distribution requirements or the student's major unless the query mentions them.\n")
		b.WriteString("The similarity score indicates how semantically similar each course is (higher = more similar).\n")
	case IntentRequirement:
		fmt.Fprintf(b, "CRITICAL: The student is asking about fulfilling the %s requirement.\n", cls.RequirementCode)
		fmt.Fprintf(b, "YOU MUST ONLY recommend courses from the list above; every one carries '%s' in its distribution field.\n", cls.RequirementCode)
		b.WriteString("A course not listed above does NOT fulfill the requirement, no matter how relevant it seems.\n")
		b.WriteString("The student's major and interests are secondary to exact requirement matches.\n")
	case IntentSubject:
		b.WriteString("IMPORTANT: This is a SUBJECT AREA query, NOT a requirement query.\n")
		b.WriteString("Match courses to the subject or department the student mentioned.\n")
		b.WriteString("DO NOT interpret this as a distribution requirement query.\n")
	default:
		b.WriteString("Recommend the courses from the list above that best match the student's situation.\n")
	}
	b.WriteString("\n")
}
