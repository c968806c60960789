package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// recordingHandler captures records for inspection.
type recordingHandler struct {
	records *[]slog.Record
	attrs   []slog.Attr
}

func (h recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h recordingHandler) Handle(_ context.Context, r slog.Record) error {
	*h.records = append(*h.records, r)
	return nil
}
func (h recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return recordingHandler{records: h.records, attrs: append(h.attrs, attrs...)}
}
func (h recordingHandler) WithGroup(string) slog.Handler { return h }

func attrMap(r slog.Record) map[string]slog.Value {
	m := make(map[string]slog.Value)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	return m
}

func TestRedactingHandler_Handle(t *testing.T) {
	var records []slog.Record
	logger := slog.New(NewRedactingHandler(recordingHandler{records: &records}))

	logger.Info("login attempt", "email", "ana@example.com", "password", "Secret1!", "Token", "abc")

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	attrs := attrMap(records[0])
	if got := attrs["email"].String(); got != "ana@example.com" {
		t.Errorf("email = %q, want it untouched", got)
	}
	if got := attrs["password"].String(); got != Redacted {
		t.Errorf("password = %q, want %q", got, Redacted)
	}
	if got := attrs["Token"].String(); got != Redacted {
		t.Errorf("Token = %q, want %q (keys match case-insensitively)", got, Redacted)
	}
}

func TestRedactingHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("update", slog.Group("user", slog.String("first_name", "Ana"), slog.String("image_data", "QUJDRA==")))

	out := buf.String()
	if strings.Contains(out, "QUJDRA==") {
		t.Errorf("image payload leaked: %s", out)
	}
	if !strings.Contains(out, "user.first_name=Ana") {
		t.Errorf("group attribute missing: %s", out)
	}
}

func TestRedactingHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewTextHandler(&buf, nil))).With("authorization", "Bearer xyz")

	logger.Info("request")

	if strings.Contains(buf.String(), "xyz") {
		t.Errorf("authorization leaked through With: %s", buf.String())
	}
}

func TestRedactingHandler_ExtraKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewTextHandler(&buf, nil), "Session_ID"))

	logger.Info("request", "session_id", "s-1")

	if strings.Contains(buf.String(), "s-1") {
		t.Errorf("extra key not redacted: %s", buf.String())
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("level filtering broken: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
