// Package genai provides integration with LLM APIs (OpenAI and Gemini).
// This file contains parsing of course codes out of model responses.
package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tigertalks/tigertalks-go/internal/coursecode"
	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
)

// preferredListKeys are JSON object keys checked in order when the model
// wraps its answer in an object.
var preferredListKeys = []string{"courses", "recommendations", "course_codes"}

// ParseCourseCodes extracts canonical course codes from a model response.
//
// The response is tried in order as:
//  1. A JSON object holding a list of codes ("courses", "recommendations",
//     "course_codes", or any key whose value is a string list)
//  2. A JSON array of codes
//  3. Free text, scanned for course code patterns
//
// Codes are normalized and deduplicated preserving response order. Invalid
// entries are skipped. When expected > 0, fewer valid codes than expected is
// a validation error and extras beyond expected are dropped.
func ParseCourseCodes(response string, expected int) ([]string, error) {
	raw := stripCodeFences(response)

	candidates := parseJSONList(raw)
	if candidates == nil {
		candidates = coursecode.ExtractAll(raw)
	}

	codes := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		code, ok := coursecode.Normalize(cand)
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	if expected > 0 {
		if len(codes) < expected {
			return nil, &apperrors.ValidationError{
				Field:   "course_codes",
				Message: fmt.Sprintf("expected %d course codes, got %d", expected, len(codes)),
			}
		}
		codes = codes[:expected]
	}

	return codes, nil
}

// parseJSONList extracts a string list from a JSON object or array.
// Returns nil when the input is not JSON or holds no string list.
func parseJSONList(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil
		}
		for _, key := range preferredListKeys {
			if list := stringList(obj[key]); list != nil {
				return list
			}
		}
		// Fall back to any key holding a string list
		for _, value := range obj {
			if list := stringList(value); list != nil {
				return list
			}
		}
	case '[':
		return stringList(json.RawMessage(trimmed))
	}
	return nil
}

// stringList unmarshals a raw JSON value as a list of strings.
func stringList(raw json.RawMessage) []string {
	if raw == nil {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

// stripCodeFences removes a surrounding markdown code fence, if present.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop an optional language tag on the opening fence
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{}[]") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
