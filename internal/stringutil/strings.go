// Package stringutil provides common string manipulation utilities.
package stringutil

import "unicode/utf8"

// Truncate shortens s to at most max runes, appending "..." when anything was
// cut. max values below 1 return the empty string.
func Truncate(s string, max int) string {
	if max < 1 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
