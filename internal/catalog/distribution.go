package catalog

import "strings"

// distributionSynonyms maps legacy distribution codes to their current form.
// Snapshots and user queries mix both generations freely.
var distributionSynonyms = map[string]string{
	"STL": "SEL",
	"STN": "SEN",
	"QR":  "QCR",
}

// KnownDistributions is the set of canonical distribution requirement codes.
var KnownDistributions = map[string]struct{}{
	"CD":  {},
	"EC":  {},
	"EM":  {},
	"HA":  {},
	"LA":  {},
	"QCR": {},
	"SA":  {},
	"SEL": {},
	"SEN": {},
}

// NormalizeDistribution upper-cases a distribution code and resolves legacy
// synonyms. Returns the empty string for empty input.
func NormalizeDistribution(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return ""
	}
	if canonical, ok := distributionSynonyms[c]; ok {
		return canonical
	}
	return c
}

// IsDistribution reports whether the code (in any generation) names a known
// distribution requirement.
func IsDistribution(code string) bool {
	_, ok := KnownDistributions[NormalizeDistribution(code)]
	return ok
}
