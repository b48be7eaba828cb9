package logger

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler duplicates each log record to every target handler, cloning
// the record so targets cannot observe each other's mutations. It backs the
// stdout plus Better Stack dual-sink setup.
type MultiHandler struct {
	targets []slog.Handler
}

// NewMultiHandler creates a MultiHandler. Nil targets are skipped so callers
// can pass optional sinks unconditionally.
func NewMultiHandler(targets ...slog.Handler) *MultiHandler {
	kept := make([]slog.Handler, 0, len(targets))
	for _, h := range targets {
		if h != nil {
			kept = append(kept, h)
		}
	}
	return &MultiHandler{targets: kept}
}

// Enabled reports whether any target accepts records at the given level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, target := range h.targets {
		if target.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle dispatches the record to every enabled target, collecting errors.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, target := range h.targets {
		if !target.Enabled(ctx, r.Level) {
			continue
		}
		if err := target.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// WithAttrs applies the attributes to every target.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(h.targets))
	for _, target := range h.targets {
		next = append(next, target.WithAttrs(attrs))
	}
	return &MultiHandler{targets: next}
}

// WithGroup applies the group to every target.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(h.targets))
	for _, target := range h.targets {
		next = append(next, target.WithGroup(name))
	}
	return &MultiHandler{targets: next}
}
