// Package coursecode normalizes and parses course codes.
//
// The canonical form is "SUBJECT NNN": an upper-case subject prefix of 2-4
// letters, a single space, and a three digit catalog number ("COS 126").
// User and model output is messier ("cos126", "COS-126", quoted codes), so
// everything entering the pipeline goes through Normalize first.
package coursecode

import (
	"regexp"
	"strings"
)

var (
	codePattern    = regexp.MustCompile(`^([A-Za-z]{2,4})[\s-]?(\d{3})$`)
	extractPattern = regexp.MustCompile(`\b([A-Z]{2,4})\s?(\d{3})\b`)
)

// Normalize converts a raw string to canonical "SUBJECT NNN" form.
// Returns false if the input is not a recognizable course code.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	m := codePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]) + " " + m[2], true
}

// Parse splits a canonical code into subject and catalog number.
// Returns false if the code is not in canonical form.
func Parse(code string) (subject, number string, ok bool) {
	subject, number, found := strings.Cut(code, " ")
	if !found || subject == "" || number == "" {
		return "", "", false
	}
	return subject, number, true
}

// Level returns the course level derived from the first digit of the catalog
// number (e.g. "COS 333" -> 300). Returns false when the catalog number does
// not start with a digit, in which case the course has no comparable level.
func Level(code string) (int, bool) {
	_, number, ok := Parse(code)
	if !ok || number == "" {
		return 0, false
	}
	d := number[0]
	if d < '0' || d > '9' {
		return 0, false
	}
	return int(d-'0') * 100, true
}

// ExtractAll finds every course code mentioned in free text and returns them
// in canonical form, in order of appearance, without duplicates.
func ExtractAll(text string) []string {
	matches := extractPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		code := m[1] + " " + m[2]
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}
