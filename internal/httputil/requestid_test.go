package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestID_Generated(t *testing.T) {
	var fromCtx string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	got := w.Header().Get("X-Request-ID")
	if !strings.HasPrefix(got, "req_") {
		t.Errorf("expected generated req_ ID, got %q", got)
	}
	if fromCtx != got {
		t.Errorf("context ID %q does not match header %q", fromCtx, got)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-ID", "trace-abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("X-Request-ID"); got != "trace-abc" {
		t.Errorf("expected caller ID to be kept, got %q", got)
	}
}

func TestRequestID_OversizedReplaced(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("X-Request-ID", strings.Repeat("x", 500))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("X-Request-ID"); len(got) > maxRequestIDLen {
		t.Errorf("expected oversized ID to be replaced, got %d bytes", len(got))
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := RequestIDFromContext(r.Context()); id != "" {
		t.Errorf("expected empty ID, got %q", id)
	}
}
