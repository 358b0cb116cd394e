package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain string unchanged", "GET /api/libraries", "GET /api/libraries"},
		{"newline becomes space", "a\nb", "a b"},
		{"carriage return becomes space", "a\rb", "a b"},
		{"null byte stripped", "a\x00b", "ab"},
		{"ansi escape stripped", "a\x1b[31mb", "a[31mb"},
		{"tab preserved", "a\tb", "a\tb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogField(tt.in); got != tt.want {
				t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestShouldSkip(t *testing.T) {
	config := LoggingConfig{
		SkipPaths:       []string{"/static"},
		LogHealthChecks: false,
	}

	if !shouldSkip("/static/app.css", config) {
		t.Error("configured skip path must be skipped")
	}
	if !shouldSkip("/healthz", config) {
		t.Error("health checks skipped when disabled")
	}
	if shouldSkip("/api/libraries", config) {
		t.Error("API paths must be logged")
	}

	config.LogHealthChecks = true
	if shouldSkip("/healthz", config) {
		t.Error("health checks logged when enabled")
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	if got := getClientIP(r); got != "10.0.0.1" {
		t.Errorf("remote addr ip = %q", got)
	}

	r.Header.Set("X-Real-IP", "10.0.0.2")
	if got := getClientIP(r); got != "10.0.0.2" {
		t.Errorf("x-real-ip = %q", got)
	}

	r.Header.Set("X-Forwarded-For", "10.0.0.3, 10.0.0.4")
	if got := getClientIP(r); got != "10.0.0.3" {
		t.Errorf("x-forwarded-for = %q", got)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/libraries", "/api/libraries"},
		{"/api/libraries/1/images", "/api/libraries/{id}/images"},
		{"/api/libraries/1/images/42/properties", "/api/libraries/{id}/images/{id}/properties"},
		{"/health", "/health"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/libraries", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestCompressionCompressesLargeJSON(t *testing.T) {
	payload := strings.Repeat(`{"key":"value"},`, 200)
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))

	req := httptest.NewRequest("GET", "/api/libraries", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatal("large JSON response must be gzip encoded")
	}

	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != payload {
		t.Error("decompressed body does not match original payload")
	}
}

func TestCompressionSkipsSmallResponses(t *testing.T) {
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("small responses must not be compressed")
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCompressionSkipsJPEG(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte(payload))
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("image responses must pass through uncompressed")
	}
}

func TestCompressionWithoutAcceptEncoding(t *testing.T) {
	payload := strings.Repeat(`{"key":"value"},`, 200)
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Error("clients without gzip support must get identity encoding")
	}
}
