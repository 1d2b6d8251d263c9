package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHandlerFormats(t *testing.T) {
	for _, f := range []string{FormatText, FormatJSON, FormatPretty, ""} {
		if _, err := NewHandler(f, slog.LevelInfo, &bytes.Buffer{}); err != nil {
			t.Fatalf("format %q: %v", f, err)
		}
	}
	if _, err := NewHandler("xml", slog.LevelInfo, nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Output: &buf}).WithComponent(ComponentChat)
	l.Info("hello", FieldSession, "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != ComponentChat || entry[FieldSession] != "abc" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Output: &buf})

	h := Middleware(l)(AccessLog(func(*http.Request) string { return "1.2.3.4" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats?x=1", nil))

	line := buf.String()
	for _, want := range []string{`"status_code":418`, `"path":"/stats"`, `"client_ip":"1.2.3.4"`, `"level":"WARN"`} {
		if !strings.Contains(line, want) {
			t.Errorf("access log %q missing %s", line, want)
		}
	}
}

func TestFromContextFallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger %+v", l)
	}
}
