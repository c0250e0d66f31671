package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "dompet/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf, Format: "json"})
	m := NewMiddleware(logger, func(r *http.Request) string { return "198.51.100.1" })

	var seenID string
	var seenLogger *applog.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Fatalf("expected generated request id, got %q", seenID)
	}
	if rec.Header().Get(HeaderRequestID) != seenID {
		t.Fatalf("response header %q does not match context id %q", rec.Header().Get(HeaderRequestID), seenID)
	}
	if seenLogger == nil {
		t.Fatal("expected request logger in context")
	}
	out := buf.String()
	if !strings.Contains(out, "HTTP request completed") || !strings.Contains(out, `"status_code":201`) {
		t.Fatalf("expected completion log with status, got %s", out)
	}
	if !strings.Contains(out, "198.51.100.1") {
		t.Fatalf("expected client ip in log, got %s", out)
	}
}

func TestMiddleware_HonorsInboundRequestID(t *testing.T) {
	logger := applog.New(applog.Config{Output: &bytes.Buffer{}})
	h := NewMiddleware(logger, nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		inbound string
		keep    bool
	}{
		{"abc-123_DEF", true},
		{"has space", false},
		{strings.Repeat("a", 65), false},
		{"", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		if tt.inbound != "" {
			r.Header.Set(HeaderRequestID, tt.inbound)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		got := rec.Header().Get(HeaderRequestID)
		if (got == tt.inbound) != tt.keep {
			t.Errorf("inbound %q: response id %q, keep=%v", tt.inbound, got, tt.keep)
		}
		if got == "" {
			t.Errorf("inbound %q: missing response id", tt.inbound)
		}
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	logger := applog.New(applog.Config{Output: &bytes.Buffer{}})
	m := NewMiddleware(logger, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	}
	if got := m.GetMetrics().TotalRequests; got != 3 {
		t.Fatalf("TotalRequests = %d, want 3", got)
	}
	if GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()) != "" {
		t.Fatal("expected empty id outside the middleware")
	}
}
