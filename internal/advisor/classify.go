package advisor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tigertalks/tigertalks-go/internal/catalog"
	"github.com/tigertalks/tigertalks-go/internal/coursecode"
	"github.com/tigertalks/tigertalks-go/internal/genai"
	"github.com/tigertalks/tigertalks-go/internal/logger"
)

// TextGenerator is the LLM surface the pipeline needs. Satisfied by
// *genai.Generator.
type TextGenerator interface {
	Complete(ctx context.Context, operation string, req genai.CompletionRequest) (string, error)
	CourseCodes(ctx context.Context, operation string, req genai.CompletionRequest, expected int) ([]string, error)
}

// IntentRecorder counts classification outcomes.
type IntentRecorder interface {
	RecordIntent(intent, method string)
}

const classifySystemPrompt = `You classify academic advising queries. Respond with a single JSON object and nothing else:
{"intent": "similarity"|"requirement"|"subject"|"generic", "similarity_ref": string|null, "requirement_code": string|null, "subject_dept": string|null}

Rules, in strict priority order:
1. similarity: the query asks for courses similar to, like, or related to a specific course code. Set similarity_ref to that code.
2. requirement: the query mentions a distribution requirement (CD, EC, EM, HA, LA, QCR, SA, SEL, SEN, or legacy STL/STN/QR). Set requirement_code.
3. subject: the query asks for courses in a subject or department. Set subject_dept to the department prefix.
4. generic: anything else. All other fields null.`

// similarityKeywords mark a query as asking for courses like a named course.
var similarityKeywords = []string{
	"similar to", "like", "same as", "equivalent to", "comparable to", "related to",
}

// requirementKeywords mark requirement intent even without a distribution code.
var requirementKeywords = []string{
	"distribution", "requirement", "fulfill", "prerequisite", "prereq",
}

// Classifier resolves a query to a Classification, preferring a constrained
// LLM call and degrading to deterministic rules when the call fails or
// returns something unusable.
type Classifier struct {
	llm     TextGenerator
	log     *logger.Logger
	metrics IntentRecorder
}

// NewClassifier creates a classifier. llm may be nil, in which case only the
// rule layer runs.
func NewClassifier(llm TextGenerator, log *logger.Logger) *Classifier {
	return &Classifier{
		llm: llm,
		log: log.WithModule("classifier"),
	}
}

// SetMetrics attaches an intent recorder.
func (c *Classifier) SetMetrics(r IntentRecorder) {
	c.metrics = r
}

// Classify determines the intent of a query. LLM failures never propagate;
// the rule classifier answers instead.
func (c *Classifier) Classify(ctx context.Context, query string) Classification {
	if c.llm != nil {
		if cls, ok := c.classifyLLM(ctx, query); ok {
			c.record(cls.Intent, "llm")
			return cls
		}
	}
	cls := ruleClassify(query)
	c.record(cls.Intent, "rules")
	return cls
}

func (c *Classifier) classifyLLM(ctx context.Context, query string) (Classification, bool) {
	text, err := c.llm.Complete(ctx, "classify", genai.CompletionRequest{
		System:      classifySystemPrompt,
		User:        query,
		Temperature: 0,
		MaxTokens:   150,
	})
	if err != nil {
		c.log.WithError(err).Warn("LLM classification failed, using rules")
		return Classification{}, false
	}

	var raw struct {
		Intent          string  `json:"intent"`
		SimilarityRef   *string `json:"similarity_ref"`
		RequirementCode *string `json:"requirement_code"`
		SubjectDept     *string `json:"subject_dept"`
	}
	trimmed := strings.TrimSpace(stripFence(text))
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		c.log.WithField("response", text).Warn("Malformed classification response, using rules")
		return Classification{}, false
	}

	cls := Classification{Intent: Intent(raw.Intent)}
	if !cls.Intent.Valid() {
		c.log.WithField("intent", raw.Intent).Warn("Unknown intent from LLM, using rules")
		return Classification{}, false
	}

	if raw.SimilarityRef != nil {
		if code, ok := coursecode.Normalize(*raw.SimilarityRef); ok {
			cls.SimilarityRef = code
		}
	}
	if raw.RequirementCode != nil {
		cls.RequirementCode = catalog.NormalizeDistribution(*raw.RequirementCode)
	}
	if raw.SubjectDept != nil {
		cls.SubjectDept = strings.ToUpper(strings.TrimSpace(*raw.SubjectDept))
	}

	// A similarity intent without an anchor course is unusable downstream.
	if cls.Intent == IntentSimilarity && cls.SimilarityRef == "" {
		return Classification{}, false
	}
	if cls.Intent == IntentRequirement && !catalog.IsDistribution(cls.RequirementCode) {
		return Classification{}, false
	}
	return cls, true
}

// ruleClassify is the deterministic fallback. It encodes the same strict
// priority order as the LLM prompt: similarity > requirement > subject >
// generic.
func ruleClassify(query string) Classification {
	lower := strings.ToLower(query)
	entities := ExtractEntities(query)

	if len(entities.Courses) > 0 {
		for _, kw := range similarityKeywords {
			if containsWord(lower, kw) {
				return Classification{
					Intent:        IntentSimilarity,
					SimilarityRef: entities.Courses[0],
				}
			}
		}
	}

	if len(entities.Distributions) > 0 {
		return Classification{
			Intent:          IntentRequirement,
			RequirementCode: entities.Distributions[0],
		}
	}
	if len(entities.Subjects) == 0 && len(entities.Departments) == 0 {
		for _, kw := range requirementKeywords {
			if containsWord(lower, kw) {
				// Requirement mentioned without a code; downstream treats an
				// empty code as generic retrieval.
				return Classification{Intent: IntentRequirement}
			}
		}
	}

	if len(entities.Departments) > 0 {
		return Classification{
			Intent:      IntentSubject,
			SubjectDept: entities.Departments[0],
		}
	}

	return Classification{Intent: IntentGeneric}
}

func (c *Classifier) record(intent Intent, method string) {
	if c.metrics != nil {
		c.metrics.RecordIntent(string(intent), method)
	}
}

// stripFence removes a surrounding markdown code fence, if any.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
