package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// =============================================================================
// RateLimiter Tests
// =============================================================================

func TestRateLimiter_AllowsUpToMax(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, newTestLogger())

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Errorf("attempt %d was denied, want allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("attempt 4 was allowed, want denied")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, newTestLogger())

	if !rl.Allow("1.1.1.1") {
		t.Error("first key denied")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("second key denied, limits must be per key")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("first key allowed past its limit")
	}
}

func TestRateLimiter_ResetClearsKey(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, newTestLogger())

	rl.Allow("1.2.3.4")
	if rl.Allow("1.2.3.4") {
		t.Fatal("expected key to be limited before reset")
	}

	rl.Reset("1.2.3.4")
	if !rl.Allow("1.2.3.4") {
		t.Error("key still limited after reset")
	}
}

func TestRateLimiter_WindowExpiryAllowsAgain(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond, newTestLogger())

	rl.Allow("1.2.3.4")
	if rl.Allow("1.2.3.4") {
		t.Fatal("expected key to be limited inside the window")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("1.2.3.4") {
		t.Error("key still limited after the window expired")
	}
}

// =============================================================================
// Limit Middleware Tests
// =============================================================================

func TestLimit_Returns429JSONWithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, newTestLogger())
	mw := NewRateLimitMiddleware(rl, newTestLogger())

	handler := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/auth/signin", nil)
	req.RemoteAddr = "9.9.9.9:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected an error message in the body")
	}
}

func TestLimit_UsesForwardedForHeader(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, newTestLogger())
	mw := NewRateLimitMiddleware(rl, newTestLogger())

	handler := mw.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	// Two clients behind the same proxy must be limited independently.
	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest("POST", "/auth/signin", nil)
		req.RemoteAddr = "172.16.0.1:80"
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("client %s status = %d, want 200", ip, rec.Code)
		}
	}
}
