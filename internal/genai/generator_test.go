package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/tigertalks/tigertalks-go/internal/errors"
)

// fakeClient is a scriptable ChatClient for tests.
type fakeClient struct {
	provider  Provider
	responses []string
	errs      []error
	calls     int
	embedVec  []float32
	embedErr  error
}

func (f *fakeClient) Complete(_ context.Context, _ CompletionRequest) (string, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return "", f.errs[idx]
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", errors.New("no scripted response")
}

func (f *fakeClient) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return f.embedVec, nil
}

func (f *fakeClient) Provider() Provider       { return f.provider }
func (f *fakeClient) EmbeddingModelID() string { return "fake-embedding-001" }
func (f *fakeClient) Close() error             { return nil }

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestGenerator_CompleteSuccess(t *testing.T) {
	primary := &fakeClient{provider: ProviderOpenAI, responses: []string{"hello"}}
	g, err := NewGenerator(primary, nil, fastRetry())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	text, err := g.Complete(context.Background(), "chat", CompletionRequest{User: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "hello" {
		t.Errorf("Complete() = %q, want hello", text)
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1", primary.calls)
	}
}

func TestGenerator_RetriesTransientErrors(t *testing.T) {
	primary := &fakeClient{
		provider:  ProviderOpenAI,
		errs:      []error{errors.New("503 service unavailable"), nil},
		responses: []string{"", "recovered"},
	}
	g, err := NewGenerator(primary, nil, fastRetry())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	text, err := g.Complete(context.Background(), "chat", CompletionRequest{User: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "recovered" {
		t.Errorf("Complete() = %q, want recovered", text)
	}
	if primary.calls != 2 {
		t.Errorf("primary called %d times, want 2", primary.calls)
	}
}

func TestGenerator_FallsBackToSecondary(t *testing.T) {
	primary := &fakeClient{
		provider: ProviderOpenAI,
		errs:     []error{errors.New("quota exceeded")},
	}
	fallback := &fakeClient{provider: ProviderGemini, responses: []string{"from gemini"}}
	g, err := NewGenerator(primary, fallback, fastRetry())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	text, err := g.Complete(context.Background(), "chat", CompletionRequest{User: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "from gemini" {
		t.Errorf("Complete() = %q, want from gemini", text)
	}
	// Quota errors skip further primary retries
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1", primary.calls)
	}
	if fallback.calls != 1 {
		t.Errorf("fallback called %d times, want 1", fallback.calls)
	}
}

func TestGenerator_AllProvidersFail(t *testing.T) {
	primary := &fakeClient{
		provider: ProviderOpenAI,
		errs:     []error{errors.New("invalid api key")},
	}
	fallback := &fakeClient{
		provider: ProviderGemini,
		errs:     []error{errors.New("401 unauthorized")},
	}
	g, err := NewGenerator(primary, fallback, fastRetry())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	_, err = g.Complete(context.Background(), "chat", CompletionRequest{User: "hi"})
	if err == nil {
		t.Fatal("Complete() should fail when all providers fail")
	}
	var derr *apperrors.DependencyError
	if !errors.As(err, &derr) {
		t.Errorf("Complete() error = %T, want *apperrors.DependencyError", err)
	}
}

func TestGenerator_ExhaustedFailureIsDependencyError(t *testing.T) {
	primary := &fakeClient{
		provider: ProviderOpenAI,
		errs:     []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
		embedErr: errors.New("boom"),
	}
	g, err := NewGenerator(primary, nil, fastRetry())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	_, err = g.Complete(context.Background(), "chat", CompletionRequest{User: "hi"})
	var derr *apperrors.DependencyError
	if !errors.As(err, &derr) {
		t.Fatalf("Complete() error = %T, want *apperrors.DependencyError", err)
	}
	if derr.Provider != ProviderOpenAI.String() || derr.Operation != "chat" {
		t.Errorf("DependencyError = %+v, want provider %q operation chat", derr, ProviderOpenAI.String())
	}

	_, err = g.Embed(context.Background(), "text")
	if !errors.As(err, &derr) {
		t.Errorf("Embed() error = %T, want *apperrors.DependencyError", err)
	}
}

func TestGenerator_ContextExpiryIsNotDependencyError(t *testing.T) {
	primary := &fakeClient{
		provider: ProviderOpenAI,
		errs:     []error{context.DeadlineExceeded, context.DeadlineExceeded, context.DeadlineExceeded},
	}
	g, err := NewGenerator(primary, nil, fastRetry())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	_, err = g.Complete(context.Background(), "chat", CompletionRequest{User: "hi"})
	if err == nil {
		t.Fatal("Complete() should surface the deadline error")
	}
	var derr *apperrors.DependencyError
	if errors.As(err, &derr) {
		t.Errorf("Complete() error = %v, deadline expiry must not be a DependencyError", err)
	}
}

func TestGenerator_CourseCodes(t *testing.T) {
	primary := &fakeClient{
		provider:  ProviderOpenAI,
		responses: []string{`{"courses": ["COS 126", "ECO 100", "MAT 201"]}`},
	}
	g, err := NewGenerator(primary, nil, fastRetry())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	codes, err := g.CourseCodes(context.Background(), "recommend", CompletionRequest{User: "recommend"}, 3)
	if err != nil {
		t.Fatalf("CourseCodes() error = %v", err)
	}
	if len(codes) != 3 || codes[0] != "COS 126" {
		t.Errorf("CourseCodes() = %v", codes)
	}
}

func TestGenerator_CourseCodesRegeneratesOnShortParse(t *testing.T) {
	// First response yields only two valid codes; the second try succeeds.
	primary := &fakeClient{
		provider: ProviderOpenAI,
		responses: []string{
			`["COS 126", "ECO100", "bad"]`,
			`["COS 126", "ECO 100", "MAT 201", "PHI 201", "ENV 200"]`,
		},
	}
	g, err := NewGenerator(primary, nil, fastRetry())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	codes, err := g.CourseCodes(context.Background(), "recommend", CompletionRequest{User: "recommend"}, 5)
	if err != nil {
		t.Fatalf("CourseCodes() error = %v", err)
	}
	if len(codes) != 5 {
		t.Errorf("CourseCodes() = %v, want 5 codes", codes)
	}
	if primary.calls != 2 {
		t.Errorf("primary called %d times, want 2", primary.calls)
	}
}

func TestGenerator_CourseCodesExhaustsAttempts(t *testing.T) {
	primary := &fakeClient{
		provider: ProviderOpenAI,
		responses: []string{
			`["COS 126"]`,
			`["COS 126"]`,
			`["COS 126"]`,
		},
	}
	g, err := NewGenerator(primary, nil, fastRetry())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	_, err = g.CourseCodes(context.Background(), "recommend", CompletionRequest{User: "recommend"}, 3)
	if err == nil {
		t.Fatal("CourseCodes() should fail when every response parses short")
	}
	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("CourseCodes() error = %T, want *apperrors.ValidationError", err)
	}
	if primary.calls != 3 {
		t.Errorf("primary called %d times, want 3", primary.calls)
	}
}

func TestGenerator_Embed(t *testing.T) {
	primary := &fakeClient{provider: ProviderOpenAI, embedVec: []float32{0.1, 0.2}}
	g, err := NewGenerator(primary, nil, fastRetry())
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	vec, err := g.Embed(context.Background(), "COS 126: Computer Science")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("Embed() = %v", vec)
	}
	if g.EmbeddingModelID() != "fake-embedding-001" {
		t.Errorf("EmbeddingModelID() = %q", g.EmbeddingModelID())
	}
}

func TestNewGenerator_RequiresPrimary(t *testing.T) {
	if _, err := NewGenerator(nil, nil, fastRetry()); err == nil {
		t.Error("NewGenerator(nil) should fail")
	}
}
