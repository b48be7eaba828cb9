package advisor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tigertalks/tigertalks-go/internal/storage"
	"github.com/tigertalks/tigertalks-go/internal/stringutil"
)

// DefaultOverlapThreshold is the minimum weighted entity overlap for two
// queries to count as related.
const DefaultOverlapThreshold = 0.3

// DefaultHistoryPairs bounds how many conversation exchanges feed context
// fusion and chat history.
const DefaultHistoryPairs = 10

// continuationKeywords signal that a query continues or refines an earlier one.
var continuationKeywords = []string{
	"not in", "not from", "excluding", "except", "but not",
	"also", "and", "plus", "additionally", "furthermore",
	"what about", "how about", "tell me more", "more",
	"different", "other", "instead", "rather",
	"but", "however", "although", "though",
}

// referentialWords are pronouns and demonstratives that point back at
// something said earlier.
var referentialWords = []string{
	"it", "that", "this", "those", "these", "them",
	"the same", "the one", "those ones",
	"the course", "the class", "the requirement",
}

// exclusionPrefixes mark a short query as a follow-up refinement.
var exclusionPrefixes = []string{
	"not ", "not in", "not from", "excluding", "except",
	"but not", "but not in", "but not from",
}

// Turn is one conversation message in model-call order.
type Turn struct {
	Role    string
	Content string
}

// AreRelated reports whether the current query continues the conversation,
// and when it does, a context summary to splice into the enhanced query.
// Runs in time linear in the history size; history is expected to be bounded
// by the caller.
func AreRelated(current string, prevQueries, prevResponses []string) (bool, string) {
	if len(prevQueries) == 0 {
		return false, ""
	}

	lower := strings.ToLower(current)
	currentEntities := ExtractEntities(current)

	hasContinuation := false
	for _, kw := range continuationKeywords {
		if containsWord(lower, kw) {
			hasContinuation = true
			break
		}
	}

	related := hasContinuation ||
		referencesPrevious(current) ||
		entityOverlap(currentEntities, prevQueries) > DefaultOverlapThreshold

	if !related {
		return false, ""
	}
	return true, buildContextSummary(prevQueries, prevResponses, currentEntities)
}

// EnhanceQuery prepends conversation context to the query when it is a
// follow-up. With no history the query is returned unchanged.
func EnhanceQuery(current string, prevQueries, prevResponses []string) string {
	related, summary := AreRelated(current, prevQueries, prevResponses)
	if !related || summary == "" {
		return current
	}
	return summary + "\n\nCURRENT QUERY: " + current
}

func referencesPrevious(current string) bool {
	lower := strings.ToLower(current)
	for _, w := range referentialWords {
		if containsWord(lower, w) {
			return true
		}
	}
	if len(strings.Fields(current)) <= 5 {
		for _, prefix := range exclusionPrefixes {
			if strings.HasPrefix(lower, prefix) {
				return true
			}
		}
	}
	return false
}

// entityOverlap scores how much the current query's entities intersect the
// accumulated entities of the prior queries. Distribution codes carry the
// most weight, then course codes, departments, and subject keywords.
func entityOverlap(current Entities, prevQueries []string) float64 {
	if len(prevQueries) == 0 {
		return 0
	}

	var prev Entities
	for _, q := range prevQueries {
		e := ExtractEntities(q)
		prev.Distributions = append(prev.Distributions, e.Distributions...)
		prev.Courses = append(prev.Courses, e.Courses...)
		prev.Departments = append(prev.Departments, e.Departments...)
		prev.Subjects = append(prev.Subjects, e.Subjects...)
	}

	return jaccard(current.Distributions, prev.Distributions)*0.4 +
		jaccard(current.Courses, prev.Courses)*0.3 +
		jaccard(current.Departments, prev.Departments)*0.2 +
		jaccard(current.Subjects, prev.Subjects)*0.1
}

func jaccard(a, b []string) float64 {
	union := map[string]struct{}{}
	inA := map[string]struct{}{}
	for _, s := range a {
		union[s] = struct{}{}
		inA[s] = struct{}{}
	}
	both := 0
	for _, s := range b {
		if _, seen := union[s]; !seen {
			union[s] = struct{}{}
		}
	}
	seenB := map[string]struct{}{}
	for _, s := range b {
		if _, dup := seenB[s]; dup {
			continue
		}
		seenB[s] = struct{}{}
		if _, ok := inA[s]; ok {
			both++
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(both) / float64(len(union))
}

func buildContextSummary(prevQueries, prevResponses []string, current Entities) string {
	var b strings.Builder
	lastQuery := prevQueries[len(prevQueries)-1]

	b.WriteString("PREVIOUS CONVERSATION CONTEXT:\n")
	fmt.Fprintf(&b, "Previous query: %s\n", lastQuery)
	if len(prevResponses) >= len(prevQueries) {
		last := stringutil.Truncate(prevResponses[len(prevResponses)-1], 200)
		fmt.Fprintf(&b, "Previous response summary: %s\n", last)
	}
	b.WriteString("\nIMPORTANT: The current query appears to be a follow-up to the previous conversation.\n")
	b.WriteString("Use the previous query to understand what the student is referring to.\n")

	prev := ExtractEntities(lastQuery)
	if len(prev.Distributions) > 0 && len(current.Departments) > 0 {
		dists := strings.Join(prev.Distributions, ", ")
		depts := strings.Join(current.Departments, ", ")
		fmt.Fprintf(&b, "\nCONTEXT COMBINATION: The student previously asked about the %s requirement(s).\n", dists)
		fmt.Fprintf(&b, "The current query mentions department(s): %s.\n", depts)
		fmt.Fprintf(&b, "INTERPRETATION: The student likely wants %s requirement(s) NOT in %s department(s).\n", dists, depts)
	}
	if len(prev.Distributions) > 0 {
		fmt.Fprintf(&b, "\nRemember: The student is asking about the %s requirement(s) from the previous query.\n",
			strings.Join(prev.Distributions, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}

// BuildHistory merges stored messages into model-call order, keeping only the
// most recent maxPairs exchanges.
func BuildHistory(messages []*storage.Message, maxPairs int) []Turn {
	if maxPairs <= 0 {
		maxPairs = DefaultHistoryPairs
	}

	ordered := make([]*storage.Message, len(messages))
	copy(ordered, messages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	if keep := maxPairs * 2; len(ordered) > keep {
		ordered = ordered[len(ordered)-keep:]
	}

	turns := make([]Turn, 0, len(ordered))
	for _, m := range ordered {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

// SplitHistory separates turns into the user queries and model responses
// consumed by AreRelated.
func SplitHistory(turns []Turn) (queries, responses []string) {
	for _, t := range turns {
		switch t.Role {
		case storage.RoleUser:
			queries = append(queries, t.Content)
		case storage.RoleModel:
			responses = append(responses, t.Content)
		}
	}
	return queries, responses
}
