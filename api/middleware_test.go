package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/sahayakbot/sahayak/internal/chat"
	"github.com/sahayakbot/sahayak/internal/log"
)

func TestRequestIDAssigned(t *testing.T) {
	handler := newChatServer(&mockChat{resp: &chat.Response{Answer: "ok"}})

	rec := postChat(t, handler, `{"message": "hi"}`)

	id := rec.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("X-Request-ID not set")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID", id)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	})
	handler := requestIDMiddleware(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "upstream-id-42" {
		t.Errorf("context request id = %q", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "upstream-id-42" {
		t.Errorf("header = %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	})
	handler := recoveryMiddleware(log.NewNop())(panicky)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "exploded") {
		t.Error("panic detail leaked into response")
	}
}

func TestRateLimiting(t *testing.T) {
	pipeline := &mockChat{resp: &chat.Response{Answer: "ok"}}
	handler := NewServer(ServerConfig{
		Pipeline:      pipeline,
		Logger:        log.NewNop(),
		RatePerSecond: 0.001,
		RateBurst:     2,
	}).Handler()

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message": "hi"}`))
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}

	// A different IP still has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message": "hi"}`))
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusTooManyRequests {
		t.Error("separate IP was rate limited")
	}

	// Health probes bypass the limiter entirely.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200 despite exhausted bucket", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	handler := NewServer(ServerConfig{
		Pipeline:      &mockChat{resp: &chat.Response{Answer: "ok"}},
		Logger:        log.NewNop(),
		RatePerSecond: 1000,
		RateBurst:     1000,
		CORSOrigins:   []string{"https://portal.example.edu"},
	}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "https://portal.example.edu")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.example.edu" {
		t.Errorf("allow-origin = %q", got)
	}

	// Unlisted origins get no CORS headers.
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin for unlisted origin = %q", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "192.168.1.5:4321",
			want:       "192.168.1.5",
		},
		{
			name:       "proxy headers ignored without trust",
			remoteAddr: "192.168.1.5:4321",
			realIP:     "203.0.113.9",
			want:       "192.168.1.5",
		},
		{
			name:       "x-real-ip preferred with trust",
			remoteAddr: "192.168.1.5:4321",
			realIP:     "203.0.113.9",
			forwarded:  "198.51.100.1",
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "x-forwarded-for first entry",
			remoteAddr: "192.168.1.5:4321",
			forwarded:  "198.51.100.1, 10.0.0.1",
			trustProxy: true,
			want:       "198.51.100.1",
		},
		{
			name:       "garbage header falls back to remote addr",
			remoteAddr: "192.168.1.5:4321",
			realIP:     "not-an-ip",
			forwarded:  "also-garbage",
			trustProxy: true,
			want:       "192.168.1.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadinessWithoutPool(t *testing.T) {
	handler := newChatServer(&mockChat{})

	rec := doRequest(t, handler, http.MethodGet, "/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness without pool = %d, want 503", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("liveness = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("liveness body = %q", rec.Body.String())
	}
}
