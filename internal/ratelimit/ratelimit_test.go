package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLimiterAllowsWithinBurst(t *testing.T) {
	l := NewLimiter(60, 3)
	for i := 0; i < 3; i++ {
		if allowed, _ := l.Allow("client-a"); !allowed {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
}

func TestLimiterRejectsBeyondBurstAndReportsRetryAfter(t *testing.T) {
	l := NewLimiter(60, 1)
	if allowed, _ := l.Allow("client-a"); !allowed {
		t.Fatal("first request should be allowed")
	}
	allowed, retryAfter := l.Allow("client-a")
	if allowed {
		t.Fatal("second immediate request should be rejected")
	}
	if retryAfter <= 0 {
		t.Errorf("expected a positive retry-after hint, got %v", retryAfter)
	}
}

func TestLimiterTracksKeysIndependently(t *testing.T) {
	l := NewLimiter(60, 1)
	l.Allow("client-a")
	if allowed, _ := l.Allow("client-b"); !allowed {
		t.Fatal("a different client key must have its own bucket")
	}
	if got := l.Count(); got != 2 {
		t.Errorf("expected 2 tracked keys, got %d", got)
	}
}

func TestMiddlewareSets429AndRetryAfter(t *testing.T) {
	l := NewLimiter(60, 1)
	handler := l.Middleware(func(r *http.Request) string { return "fixed-key" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)

	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", rec.Code)
	}

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", rec2.Code)
	}
	if rec2.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header on a 429 response")
	}
}

func TestIPKeyFuncHonorsTrustXFFOnlyWhenEnabled(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/meta", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	untrusted := IPKeyFunc(false)
	if got := untrusted(req); got != req.RemoteAddr {
		t.Errorf("trustXFF=false should use RemoteAddr, got %q", got)
	}

	trusted := IPKeyFunc(true)
	if got := trusted(req); got != "203.0.113.5" {
		t.Errorf("trustXFF=true should use the first forwarded entry, got %q", got)
	}
}

func TestAPIKeyFuncPrefersPresentedKeyOverIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/jobs", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-API-Key", "abc123")

	keyFn := APIKeyFunc(false)
	if got := keyFn(req); got != "key:abc123" {
		t.Errorf("expected key:abc123, got %q", got)
	}
}
