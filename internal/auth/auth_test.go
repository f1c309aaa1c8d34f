package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKeyManagerValidMembership(t *testing.T) {
	km := NewKeyManager()
	km.Reload([]string{"key-a", "key-b"})

	if !km.Valid("key-a") {
		t.Error("expected key-a to be valid")
	}
	if km.Valid("key-c") {
		t.Error("expected key-c to be invalid")
	}
	if km.Valid("") {
		t.Error("expected empty candidate to be invalid")
	}
}

func TestKeyManagerEmptySetRejectsEverything(t *testing.T) {
	km := NewKeyManager()
	if km.Valid("anything") {
		t.Error("an empty key set must reject every candidate, there is no auth-disabled mode")
	}
}

func TestKeyManagerCount(t *testing.T) {
	km := NewKeyManager()
	km.Reload([]string{"a", "b", "c"})
	if got := km.Count(); got != 3 {
		t.Errorf("expected count 3, got %d", got)
	}
}

func TestMiddlewareRejectsMissingOrWrongKey(t *testing.T) {
	km := NewKeyManager()
	km.Reload([]string{"good-key"})
	handler := Middleware(km)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs/abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with no key, got %d", rec.Code)
	}

	req.Header.Set("X-API-Key", "wrong-key")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", rec.Code)
	}
}

func TestMiddlewareAcceptsHeaderOrBearerToken(t *testing.T) {
	km := NewKeyManager()
	km.Reload([]string{"good-key"})
	handler := Middleware(km)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs/abc", nil)
	req.Header.Set("X-API-Key", "good-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with X-API-Key, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/jobs/abc", nil)
	req2.Header.Set("Authorization", "Bearer good-key")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Errorf("expected 200 with Bearer token, got %d", rec2.Code)
	}
}
