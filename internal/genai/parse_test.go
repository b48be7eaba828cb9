package genai

import (
	"errors"
	"testing"

	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
)

func TestParseCourseCodes(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected int
		want     []string
		wantErr  bool
	}{
		{
			name:     "json object with courses key",
			response: `{"courses": ["COS 126", "ECO 100", "MAT 201"]}`,
			expected: 3,
			want:     []string{"COS 126", "ECO 100", "MAT 201"},
		},
		{
			name:     "json object with recommendations key",
			response: `{"recommendations": ["COS 217", "COS 226"]}`,
			expected: 2,
			want:     []string{"COS 217", "COS 226"},
		},
		{
			name:     "json object with course_codes key",
			response: `{"course_codes": ["ENV 200"]}`,
			expected: 1,
			want:     []string{"ENV 200"},
		},
		{
			name:     "json object with arbitrary list key",
			response: `{"suggested": ["HIS 280", "ANT 201"]}`,
			expected: 2,
			want:     []string{"HIS 280", "ANT 201"},
		},
		{
			name:     "bare json array",
			response: `["COS 126", "ECO 100"]`,
			expected: 2,
			want:     []string{"COS 126", "ECO 100"},
		},
		{
			name:     "array with invalid entries skipped",
			response: `["COS 126", "ECO100", "bad"]`,
			expected: 2,
			want:     []string{"COS 126", "ECO 100"},
		},
		{
			name:     "free text extraction",
			response: "I recommend COS 126 and MAT 201 for your first year.",
			expected: 2,
			want:     []string{"COS 126", "MAT 201"},
		},
		{
			name:     "markdown fenced json",
			response: "```json\n{\"courses\": [\"COS 126\", \"COS 217\"]}\n```",
			expected: 2,
			want:     []string{"COS 126", "COS 217"},
		},
		{
			name:     "compact codes without space",
			response: `["cos126", "eco100"]`,
			expected: 2,
			want:     []string{"COS 126", "ECO 100"},
		},
		{
			name:     "duplicates collapsed",
			response: `["COS 126", "cos 126", "ECO 100"]`,
			expected: 2,
			want:     []string{"COS 126", "ECO 100"},
		},
		{
			name:     "extras truncated to expected",
			response: `["COS 126", "ECO 100", "MAT 201", "PHY 103"]`,
			expected: 2,
			want:     []string{"COS 126", "ECO 100"},
		},
		{
			name:     "too few valid codes",
			response: `["COS 126"]`,
			expected: 3,
			wantErr:  true,
		},
		{
			name:     "no codes anywhere",
			response: "I cannot help with that request.",
			expected: 1,
			wantErr:  true,
		},
		{
			name:     "zero expected returns all",
			response: `["COS 126", "ECO 100", "MAT 201"]`,
			expected: 0,
			want:     []string{"COS 126", "ECO 100", "MAT 201"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCourseCodes(tt.response, tt.expected)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCourseCodes() = %v, want error", got)
				}
				var vErr *apperrors.ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("error = %v, want *ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCourseCodes() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseCourseCodes() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseCourseCodes()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `["COS 126"]`, `["COS 126"]`},
		{"plain fence", "```\n[\"COS 126\"]\n```", `["COS 126"]`},
		{"json fence", "```json\n[\"COS 126\"]\n```", `["COS 126"]`},
		{"fence on same line", "```[\"COS 126\"]```", `["COS 126"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFences(tt.input); got != tt.want {
				t.Errorf("stripCodeFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
