package logging

import (
	"context"
	"log/slog"
)

// MultiHandler dispatches each record to every target handler that
// accepts its level.
type MultiHandler struct {
	targets []slog.Handler
}

// NewMultiHandler wraps the given handlers in a fan-out handler.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{targets: handlers}
}

// Enabled reports whether at least one target would accept the level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, t := range m.targets {
		if t.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record to every enabled target. A failing target
// does not stop delivery to the others.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, t := range m.targets {
		if !t.Enabled(ctx, r.Level) {
			continue
		}
		_ = t.Handle(ctx, r.Clone())
	}
	return nil
}

// WithAttrs returns a fan-out handler whose targets all carry attrs.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.targets))
	for i, t := range m.targets {
		next[i] = t.WithAttrs(attrs)
	}
	return &MultiHandler{targets: next}
}

// WithGroup returns a fan-out handler whose targets all open group name.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.targets))
	for i, t := range m.targets {
		next[i] = t.WithGroup(name)
	}
	return &MultiHandler{targets: next}
}
