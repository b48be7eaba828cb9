package advisor

import (
	"regexp"
	"strings"

	"github.com/tigertalks/tigertalks-go/internal/catalog"
	"github.com/tigertalks/tigertalks-go/internal/coursecode"
)

// Entities are the typed references extracted from one query.
type Entities struct {
	Distributions []string // canonical distribution codes
	Courses       []string // canonical course codes
	Departments   []string // subject prefixes
	Subjects      []string // matched subject keywords, lower case
}

var (
	distCodePattern = regexp.MustCompile(`\b(CD|EC|EM|HA|LA|QCR|SEL|SEN|SA|STL|STN|QR)\b`)
	deptPattern     = regexp.MustCompile(`\b([A-Z]{2,4})\b`)
)

// distributionPhrases maps spelled-out requirement names to canonical codes.
// Checked only when no short code is present in the query.
var distributionPhrases = []struct {
	phrase string
	code   string
}{
	{"culture and difference", "CD"},
	{"epistemology and cognition", "EC"},
	{"ethical thought", "EM"},
	{"historical analysis", "HA"},
	{"literature and the arts", "LA"},
	{"quantitative and computational reasoning", "QCR"},
	{"science and engineering", "SEN"},
	{"social analysis", "SA"},
}

// knownDepartments is the set of subject prefixes recognized as department
// mentions when they appear on their own, outside a course code.
var knownDepartments = map[string]struct{}{
	"AAS": {}, "AMS": {}, "ANT": {}, "ART": {}, "AST": {}, "ATL": {},
	"BCS": {}, "CBE": {}, "CHM": {}, "CLA": {}, "COM": {}, "COS": {},
	"CWR": {}, "EAS": {}, "ECE": {}, "ECO": {}, "EEB": {}, "EGR": {},
	"ENG": {}, "ENT": {}, "ENV": {}, "EPS": {}, "FIN": {}, "FRE": {},
	"GEO": {}, "GER": {}, "GHP": {}, "GLS": {}, "GSS": {}, "HIS": {},
	"HLS": {}, "HOS": {}, "HUM": {}, "ISC": {}, "ITA": {}, "JPN": {},
	"JRN": {}, "LAS": {}, "LAT": {}, "LIN": {}, "MAE": {}, "MAT": {},
	"MED": {}, "MOL": {}, "MUS": {}, "NES": {}, "NEU": {}, "ORF": {},
	"PAW": {}, "PER": {}, "PHI": {}, "PHY": {}, "POL": {}, "POR": {},
	"PSY": {}, "REL": {}, "RUS": {}, "SLA": {}, "SOC": {}, "SPA": {},
	"SPI": {}, "STC": {}, "THR": {}, "TUR": {}, "URB": {}, "VIS": {},
	"WWS": {},
}

// subjectKeywords maps lower-case subject mentions to department prefixes.
// Ordered so extraction is deterministic; longer phrases come before their
// substrings.
var subjectKeywords = []struct {
	keyword string
	depts   []string
}{
	{"computer science", []string{"COS"}},
	{"political science", []string{"POL"}},
	{"programming", []string{"COS"}},
	{"economics", []string{"ECO"}},
	{"history", []string{"HIS"}},
	{"philosophy", []string{"PHI"}},
	{"mathematics", []string{"MAT"}},
	{"math", []string{"MAT"}},
	{"physics", []string{"PHY"}},
	{"chemistry", []string{"CHM"}},
	{"biology", []string{"MOL", "EEB"}},
	{"english", []string{"ENG"}},
	{"literature", []string{"ENG"}},
	{"politics", []string{"POL"}},
	{"psychology", []string{"PSY"}},
	{"sociology", []string{"SOC"}},
	{"art", []string{"ART", "VIS"}},
	{"music", []string{"MUS"}},
	{"theater", []string{"THR"}},
	{"cs", []string{"COS"}},
}

// ExtractEntities pulls distribution codes, course codes, department codes
// and subject keywords out of a query. Everything is normalized: legacy
// distribution synonyms resolve to their canonical form and course codes to
// "SUBJECT NNN".
func ExtractEntities(query string) Entities {
	var e Entities
	upper := strings.ToUpper(query)
	lower := strings.ToLower(query)

	seen := map[string]struct{}{}
	for _, m := range distCodePattern.FindAllString(upper, -1) {
		norm := catalog.NormalizeDistribution(m)
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		e.Distributions = append(e.Distributions, norm)
	}
	if len(e.Distributions) == 0 {
		for _, p := range distributionPhrases {
			if strings.Contains(lower, p.phrase) {
				e.Distributions = append(e.Distributions, p.code)
			}
		}
	}

	e.Courses = coursecode.ExtractAll(upper)

	// Department mentions, excluding prefixes already consumed by a course code.
	inCourse := make(map[string]struct{}, len(e.Courses))
	for _, code := range e.Courses {
		if subject, _, ok := coursecode.Parse(code); ok {
			inCourse[subject] = struct{}{}
		}
	}
	seenDept := map[string]struct{}{}
	for _, m := range deptPattern.FindAllString(upper, -1) {
		if _, known := knownDepartments[m]; !known {
			continue
		}
		if _, taken := inCourse[m]; taken {
			continue
		}
		if _, dup := seenDept[m]; dup {
			continue
		}
		seenDept[m] = struct{}{}
		e.Departments = append(e.Departments, m)
	}

	for _, sk := range subjectKeywords {
		if !containsWord(lower, sk.keyword) {
			continue
		}
		e.Subjects = append(e.Subjects, sk.keyword)
		for _, dept := range sk.depts {
			if _, dup := seenDept[dept]; dup {
				continue
			}
			seenDept[dept] = struct{}{}
			e.Departments = append(e.Departments, dept)
		}
	}

	return e
}

// containsWord reports whether phrase occurs in text on word boundaries.
// Plain substring matching would make "cs" match "physics".
func containsWord(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
