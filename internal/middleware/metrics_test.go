package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsAuth_DisabledPassesThrough(t *testing.T) {
	mw := NewMetricsAuthMiddleware("", "")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want 200 when auth is disabled", rec.Code)
	}
}

func TestMetricsAuth_MissingCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("prom", "secret")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status code = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("WWW-Authenticate header missing")
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("body = %q, want a JSON error envelope", rec.Body.String())
	}
}

func TestMetricsAuth_Credentials(t *testing.T) {
	testCases := []struct {
		name     string
		user     string
		pass     string
		wantCode int
	}{
		{"valid", "prom", "secret", http.StatusOK},
		{"wrong password", "prom", "nope", http.StatusUnauthorized},
		{"wrong username", "grafana", "secret", http.StatusUnauthorized},
	}

	mw := NewMetricsAuthMiddleware("prom", "secret")

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/metrics", nil)
			req.SetBasicAuth(tc.user, tc.pass)
			rec := httptest.NewRecorder()

			mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(rec, req)

			if rec.Code != tc.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tc.wantCode)
			}
		})
	}
}
