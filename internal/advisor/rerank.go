package advisor

import (
	"sort"
	"strings"

	"github.com/tigertalks/tigertalks-go/internal/coursecode"
)

// RerankOptions tune the filter/rerank stage.
type RerankOptions struct {
	// MinSimilarity drops similarity-scored candidates below this floor.
	MinSimilarity float64
	// MaxLevel drops candidates above this course level when positive.
	// Candidates without a numeric catalog prefix have no comparable level
	// and are exempt.
	MaxLevel int
}

// Rerank applies hard filters and profile-aware soft scoring, returning
// candidates in descending adjusted-score order. The sort is stable: equal
// scores keep their retrieval order, so identical inputs produce identical
// output.
func Rerank(candidates []Candidate, profile Profile, opts RerankOptions) []Candidate {
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Scored && c.Score < opts.MinSimilarity {
			continue
		}
		if _, taken := profile.PastCourses[c.Code]; taken {
			continue
		}
		if opts.MaxLevel > 0 {
			if level, ok := coursecode.Level(c.Code); ok && level > opts.MaxLevel {
				continue
			}
		}
		if c.Scored {
			c.Score = adjustScore(c, profile)
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})
	return kept
}

// adjustScore applies the multiplicative boosts for similarity-scored
// candidates. Distribution-lookup results never reach here; their membership
// is exact and their ordering is not score-driven.
func adjustScore(c Candidate, profile Profile) float64 {
	score := c.Score

	if profile.Concentration != "" {
		if subject, _, ok := coursecode.Parse(c.Code); ok && strings.EqualFold(subject, profile.Concentration) {
			score *= 1.2
		}
	}

	level, ok := coursecode.Level(c.Code)
	if !ok {
		return score
	}

	switch classYearBand(profile.ClassYear) {
	case yearFirst:
		if level == 100 {
			score *= 1.1
		} else if level >= 300 {
			score *= 0.8
		}
	case yearSophomore:
		if level == 200 {
			score *= 1.1
		} else if level >= 400 {
			score *= 0.9
		}
	case yearUpper:
		if level >= 300 {
			score *= 1.05
		}
	}
	return score
}

type yearBand int

const (
	yearUnknown yearBand = iota
	yearFirst
	yearSophomore
	yearUpper
)

// classYearBand buckets the free-form class year string from the student
// record.
func classYearBand(classYear string) yearBand {
	y := strings.ToLower(strings.TrimSpace(classYear))
	switch {
	case y == "":
		return yearUnknown
	case strings.Contains(y, "freshman"), strings.Contains(y, "first"):
		return yearFirst
	case strings.Contains(y, "sophomore"):
		return yearSophomore
	case strings.Contains(y, "junior"), strings.Contains(y, "senior"):
		return yearUpper
	}
	return yearUnknown
}
