package advisor

import (
	"context"
	"fmt"
	"time"

	"github.com/tigertalks/tigertalks-go/internal/catalog"
	"github.com/tigertalks/tigertalks-go/internal/logger"
	"github.com/tigertalks/tigertalks-go/internal/rag"
	"github.com/tigertalks/tigertalks-go/internal/sliceutil"
)

// DefaultSimilarityTopK bounds the similarity strategy's result set.
const DefaultSimilarityTopK = 20

// scienceFocusQueries drive the vector re-prioritization of SEL/SEN
// requirement results toward science-focused courses.
var scienceFocusQueries = map[string]string{
	"SEL": "Science and engineering course with laboratory component, lab work, experiments, scientific methods",
	"SEN": "Science and engineering course without laboratory, theoretical science, mathematical science, computational science",
}

// RetrievalRecorder observes per-strategy retrieval latency.
type RetrievalRecorder interface {
	RecordRetrieval(strategy string, seconds float64)
}

// Embedder turns query text into a vector. Satisfied by *genai.Generator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine selects and runs the retrieval strategy for a classified query.
type Engine struct {
	catalog  *catalog.Store
	index    *rag.VectorIndex
	lexical  *rag.LexicalIndex
	embedder Embedder
	topK     int
	log      *logger.Logger
	metrics  RetrievalRecorder
}

// NewEngine creates a retrieval engine. index, lexical and embedder may be
// nil; the similarity strategy then degrades to whatever is available.
func NewEngine(cat *catalog.Store, index *rag.VectorIndex, lexical *rag.LexicalIndex, embedder Embedder, topK int, log *logger.Logger) *Engine {
	if topK <= 0 {
		topK = DefaultSimilarityTopK
	}
	return &Engine{
		catalog:  cat,
		index:    index,
		lexical:  lexical,
		embedder: embedder,
		topK:     topK,
		log:      log.WithModule("retrieval"),
	}
}

// SetMetrics attaches a retrieval recorder.
func (e *Engine) SetMetrics(r RetrievalRecorder) {
	e.metrics = r
}

// Retrieve returns the candidate set for a classification. The three
// strategies are mutually exclusive; a requirement classification without a
// usable code falls through to the subject/generic strategy.
func (e *Engine) Retrieve(ctx context.Context, cls Classification, profile Profile, query string) ([]Candidate, error) {
	strategy := string(cls.Intent)
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordRetrieval(strategy, time.Since(start).Seconds())
		}
	}()

	switch {
	case cls.Intent == IntentSimilarity && cls.SimilarityRef != "":
		return e.retrieveSimilar(ctx, cls.SimilarityRef, profile, query)
	case cls.Intent == IntentRequirement && catalog.IsDistribution(cls.RequirementCode):
		return e.retrieveRequirement(ctx, cls.RequirementCode, profile)
	default:
		strategy = string(IntentGeneric)
		if cls.Intent == IntentSubject {
			strategy = string(IntentSubject)
		}
		return e.retrieveSubject(ctx, cls.SubjectDept, profile)
	}
}

// retrieveRequirement returns the full exact-match set for a distribution
// code, minus courses already taken. The set is never truncated here; prompt
// assembly caps display size downstream. For the science requirements the set
// is reordered (never filtered) so science-focused courses lead.
func (e *Engine) retrieveRequirement(ctx context.Context, code string, profile Profile) ([]Candidate, error) {
	norm := catalog.NormalizeDistribution(code)
	codes, err := e.catalog.DistributionCourses(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("distribution lookup %s: %w", norm, err)
	}

	kept := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, taken := profile.PastCourses[c]; taken {
			continue
		}
		kept = append(kept, c)
	}

	if query, ok := scienceFocusQueries[norm]; ok && len(kept) > 1 {
		kept = e.reprioritize(ctx, kept, query)
	}

	candidates := make([]Candidate, len(kept))
	for i, c := range kept {
		candidates[i] = Candidate{Code: c}
	}
	return candidates, nil
}

// reprioritize reorders codes so vector matches for the focus query come
// first, preserving the relative order of the remainder. The set membership
// never changes; a failed search leaves the input order untouched.
func (e *Engine) reprioritize(ctx context.Context, codes []string, focusQuery string) []string {
	if e.index == nil || !e.index.Ready() || e.embedder == nil {
		return codes
	}

	vec, err := e.embedder.Embed(ctx, focusQuery)
	if err != nil {
		e.log.WithError(err).Warn("Science focus embedding failed, keeping catalog order")
		return codes
	}

	restrict := make(map[string]bool, len(codes))
	for _, c := range codes {
		restrict[c] = true
	}
	topK := len(codes)
	if topK > 50 {
		topK = 50
	}
	matches, err := e.index.Search(vec, rag.SearchOptions{TopK: topK, Restrict: restrict})
	if err != nil {
		e.log.WithError(err).Warn("Science focus search failed, keeping catalog order")
		return codes
	}

	prioritized := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		prioritized = append(prioritized, m.Code)
		seen[m.Code] = struct{}{}
	}
	for _, c := range codes {
		if _, ok := seen[c]; !ok {
			prioritized = append(prioritized, c)
		}
	}
	return prioritized
}

// retrieveSimilar ranks courses by semantic similarity to the query, anchored
// on a reference course which is excluded from its own results. When the
// vector index is unusable the lexical index answers instead.
func (e *Engine) retrieveSimilar(ctx context.Context, anchor string, profile Profile, query string) ([]Candidate, error) {
	restrict := e.restrictSet(ctx, profile)
	searchText := fmt.Sprintf("Course similar to %s. %s", anchor, query)

	if e.index != nil && e.index.Ready() && e.embedder != nil {
		vec, err := e.embedder.Embed(ctx, searchText)
		if err == nil {
			matches, serr := e.index.Search(vec, rag.SearchOptions{
				TopK:     e.topK,
				Exclude:  anchor,
				Restrict: restrict,
			})
			if serr == nil {
				candidates := make([]Candidate, len(matches))
				for i, m := range matches {
					candidates[i] = Candidate{Code: m.Code, Score: m.Similarity, Scored: true}
				}
				return candidates, nil
			}
			e.log.WithError(serr).Warn("Vector search failed, trying lexical fallback")
		} else {
			e.log.WithError(err).Warn("Query embedding failed, trying lexical fallback")
		}
	}

	if e.lexical == nil || !e.lexical.IsEnabled() {
		return nil, fmt.Errorf("similarity search for %s: no usable index", anchor)
	}
	results, err := e.lexical.Search(searchText, e.topK+1)
	if err != nil {
		return nil, fmt.Errorf("lexical fallback for %s: %w", anchor, err)
	}
	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		if r.Code == anchor {
			continue
		}
		if restrict != nil && !restrict[r.Code] {
			continue
		}
		candidates = append(candidates, Candidate{
			Code:   r.Code,
			Score:  rag.RankConfidence(r.Rank),
			Scored: true,
		})
		if len(candidates) == e.topK {
			break
		}
	}
	return candidates, nil
}

// retrieveSubject unions the detected department's offerings with the
// student's available-course set. The union carries no precedence between
// query department and major; exclusion of taken courses is the only scoring.
func (e *Engine) retrieveSubject(ctx context.Context, dept string, profile Profile) ([]Candidate, error) {
	base, err := e.availableCourses(ctx, profile)
	if err != nil {
		return nil, err
	}

	codes := base
	if dept != "" {
		deptCodes, err := e.catalog.DepartmentCourses(ctx, dept)
		if err != nil {
			return nil, fmt.Errorf("department lookup %s: %w", dept, err)
		}
		codes = sliceutil.Deduplicate(append(deptCodes, base...), func(c string) string { return c })
	}

	candidates := make([]Candidate, 0, len(codes))
	for _, c := range codes {
		if _, taken := profile.PastCourses[c]; taken {
			continue
		}
		candidates = append(candidates, Candidate{Code: c})
	}
	return candidates, nil
}

// availableCourses is the student's candidate universe: majors-only for
// students with no recorded coursework, otherwise the whole catalog minus
// taken courses.
func (e *Engine) availableCourses(ctx context.Context, profile Profile) ([]string, error) {
	if len(profile.PastCourses) == 0 && profile.Concentration != "" {
		return e.catalog.DepartmentCourses(ctx, profile.Concentration)
	}

	all, err := e.catalog.AllCourseCodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, c := range all {
		if _, taken := profile.PastCourses[c]; taken {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// restrictSet mirrors availableCourses as a membership set for vector search,
// or nil when no restriction applies.
func (e *Engine) restrictSet(ctx context.Context, profile Profile) map[string]bool {
	if len(profile.PastCourses) != 0 || profile.Concentration == "" {
		return nil
	}
	codes, err := e.catalog.DepartmentCourses(ctx, profile.Concentration)
	if err != nil || len(codes) == 0 {
		return nil
	}
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}
