package stringutil

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"shorter than cap", "short", 10, "short"},
		{"exactly at cap", "12345", 5, "12345"},
		{"over cap", "123456", 5, "12345..."},
		{"zero cap", "abc", 0, ""},
		{"multibyte runes", "héllo wörld", 5, "héllo..."},
		{"empty input", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}
