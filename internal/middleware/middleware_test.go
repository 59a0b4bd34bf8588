package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"surface-tracker/internal/logging"
)

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := newStatusRecorder(w)

	if rec.statusCode != http.StatusOK {
		t.Errorf("Expected default status 200, got %d", rec.statusCode)
	}

	rec.WriteHeader(http.StatusNotFound)
	rec.WriteHeader(http.StatusInternalServerError)
	if rec.statusCode != http.StatusNotFound {
		t.Errorf("Expected the first status to stick, got %d", rec.statusCode)
	}

	if _, err := rec.Write([]byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if rec.bytesWritten != 5 {
		t.Errorf("Expected 5 bytes written, got %d", rec.bytesWritten)
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "/api/status", expected: "/api/status"},
		{name: "newline", input: "a\nb", expected: "a b"},
		{name: "carriage return", input: "a\rb", expected: "a b"},
		{name: "ansi escape", input: "\x1b[31mred", expected: "[31mred"},
		{name: "null byte", input: "a\x00b", expected: "ab"},
		{name: "tab kept", input: "a\tb", expected: "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.input); got != tt.expected {
				t.Errorf("sanitizeLogField(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestShouldSkip(t *testing.T) {
	config := DefaultLoggingConfig()

	tests := []struct {
		path     string
		expected bool
	}{
		{"/metrics", true},
		{"/health", true},
		{"/readyz", true},
		{"/api/status", false},
		{"/api/heatmap/desk", false},
	}
	for _, tt := range tests {
		if got := shouldSkip(tt.path, config); got != tt.expected {
			t.Errorf("shouldSkip(%q) = %v, expected %v", tt.path, got, tt.expected)
		}
	}

	config.LogHealthChecks = true
	if shouldSkip("/health", config) {
		t.Error("Expected health checks to be logged when enabled")
	}
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(&bytes.Buffer{}) })

	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/seek?frame=3", nil)
	req.Header.Set("User-Agent", "test agent")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"10.0.0.1 POST /api/seek frame=3 202 2", `"test agent"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in log output, got %q", want, out)
		}
	}

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if buf.Len() != 0 {
		t.Errorf("Expected health checks to be skipped, got %q", buf.String())
	}
}

func TestFormatW3CDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.RemoteAddr = "192.168.1.5:43210"
	rec := newStatusRecorder(httptest.NewRecorder())

	got := formatW3C(req, rec, 12*time.Millisecond)
	expected := "192.168.1.5 GET /api/status - 200 0 12 -"
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestRouteLabel(t *testing.T) {
	var label string
	router := mux.NewRouter()
	router.HandleFunc("/api/heatmap/{name}", func(_ http.ResponseWriter, r *http.Request) {
		label = routeLabel(r)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/heatmap/desk", nil))
	if label != "/api/heatmap/{name}" {
		t.Errorf("Expected the route template, got %q", label)
	}

	if got := routeLabel(httptest.NewRequest(http.MethodGet, "/nowhere", nil)); got != "unmatched" {
		t.Errorf("Expected unmatched, got %q", got)
	}
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))
	router.HandleFunc("/api/surfaces/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/api/surfaces/desk", http.StatusNoContent},
		{"/metrics", http.StatusTeapot},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, tt.path, nil))
		if w.Code != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.path, tt.status, w.Code)
		}
	}
}
