// Package logging provides the slog handler used by the gateway. It wraps
// another handler and masks credentials and image payloads before they
// reach the output.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Redacted replaces the value of every sensitive attribute.
const Redacted = "[REDACTED]"

// sensitiveKeys are matched case-insensitively against attribute keys,
// including keys inside groups.
var sensitiveKeys = map[string]bool{
	"password":         true,
	"current_password": true,
	"new_password":     true,
	"confirm_password": true,
	"token":            true,
	"authorization":    true,
	"cookie":           true,
	"image_data":       true,
	"images":           true,
}

// RedactingHandler is a slog.Handler that wraps another handler and masks
// sensitive attributes.
type RedactingHandler struct {
	inner slog.Handler
	keys  map[string]bool
}

// NewRedactingHandler creates a RedactingHandler. Extra keys are added to
// the built-in sensitive set.
func NewRedactingHandler(inner slog.Handler, extraKeys ...string) *RedactingHandler {
	keys := make(map[string]bool, len(sensitiveKeys)+len(extraKeys))
	for k := range sensitiveKeys {
		keys[k] = true
	}
	for _, k := range extraKeys {
		keys[strings.ToLower(k)] = true
	}
	return &RedactingHandler{inner: inner, keys: keys}
}

// New builds the gateway logger: a text handler on w at the given level,
// wrapped for redaction.
func New(w io.Writer, level slog.Level) *slog.Logger {
	text := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactingHandler(text))
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// yield info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redact(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.redact(a)
	}
	return &RedactingHandler{
		inner: h.inner.WithAttrs(clean),
		keys:  h.keys,
	}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{
		inner: h.inner.WithGroup(name),
		keys:  h.keys,
	}
}

func (h *RedactingHandler) redact(a slog.Attr) slog.Attr {
	if h.keys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}

	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		return slog.Attr{Key: a.Key, Value: v}
	}

	group := v.Group()
	clean := make([]slog.Attr, len(group))
	for i, ga := range group {
		clean[i] = h.redact(ga)
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
}
