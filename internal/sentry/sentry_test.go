package sentry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInitialize_EmptyToken(t *testing.T) {
	// No t.Parallel(): IsEnabled reads the SDK's global hub, which the
	// valid-config tests mutate.
	if err := Initialize(Config{Token: ""}); err != nil {
		t.Errorf("Initialize() with empty token = %v, want nil", err)
	}
	if IsEnabled() {
		t.Error("IsEnabled() = true before any token was configured")
	}
}

func TestInitialize_MissingHost(t *testing.T) {
	t.Parallel()

	if err := Initialize(Config{Token: "test-token", Host: ""}); err == nil {
		t.Error("Initialize() with token but no host should fail")
	}
}

func TestInitialize_ValidConfig(t *testing.T) {
	// No t.Parallel(): the SDK holds global state.

	err := Initialize(Config{
		Token:       "test-token",
		Host:        "errors.betterstack.com",
		Environment: "test",
		SampleRate:  1.0,
	})
	if err != nil {
		t.Errorf("Initialize() error = %v", err)
	}
	if !IsEnabled() {
		t.Error("IsEnabled() = false after initialization")
	}

	Flush(time.Second)
}

func TestInitialize_DefaultSampleRate(t *testing.T) {
	// No t.Parallel(): the SDK holds global state.

	err := Initialize(Config{
		Token:      "test-token-2",
		Host:       "errors.betterstack.com",
		SampleRate: 0,
	})
	if err != nil {
		t.Errorf("Initialize() error = %v", err)
	}

	Flush(time.Second)
}

func TestCaptureExceptionWithContext_NoHubInContext(t *testing.T) {
	// Falls back to the current hub; must not panic on a bare context.
	CaptureExceptionWithContext(context.Background(), errors.New("boom"))
}

func TestFlush(t *testing.T) {
	t.Parallel()

	if !Flush(100 * time.Millisecond) {
		t.Error("Flush() = false with no pending events")
	}
}
