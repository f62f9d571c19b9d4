package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected a generated request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "caller-supplied")
	out := httptest.NewRecorder()
	env.handler.ServeHTTP(out, req)
	if got := out.Header().Get("X-Request-Id"); got != "caller-supplied" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Fatalf("header %s: expected %q, got %q", header, want, got)
		}
	}
}

func TestErrorBodyCarriesRequestID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/auth/me", "", "")
	var body struct {
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}
	decodeBody(t, rec, &body)
	if body.RequestID == "" {
		t.Fatalf("expected request_id in error body, got %s", rec.Body.String())
	}
}

func TestRateLimitBounds(t *testing.T) {
	hits := 0
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	})
	limited := RateLimit(inner, 2, 1)

	var last int
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader("{}"))
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected burst to exhaust into 429, got %d", last)
	}
	if hits > 3 {
		t.Fatalf("expected at most burst+refill requests through, got %d", hits)
	}

	// A different client keeps its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader("{}"))
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected fresh client to pass, got %d", rec.Code)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	if got := clientIP(req); got != "10.0.0.9" {
		t.Fatalf("expected remote addr host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	env := newTestEnv(t)
	roleID := env.addRole(t, "clerk", []string{"product.read"})
	env.addUser(t, "kate@example.com", "pw123456", roleID)
	bundle := env.login(t, "kate@example.com", "pw123456")

	rec := env.do(t, http.MethodGet, "/v1/unknown", bundle.AccessToken, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
