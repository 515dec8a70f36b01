package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DukeRupert/medbank/internal/domain"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	testCases := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.ESESSIONEXPIRED, http.StatusUnauthorized},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EUPSTREAM, http.StatusInternalServerError},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"unknown", http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tc.code); got != tc.want {
				t.Errorf("status = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestErrorResponse_MessageShape(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/qbank/summary", nil)

	ErrorResponse(rec, req, newTestLogger(), domain.Conflict("auth.signup", "An account with this email already exists. Please sign in instead."))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status code = %d, want 409", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["error"] != "An account with this email already exists. Please sign in instead." {
		t.Errorf("error = %q, want the conflict message", body["error"])
	}
}

func TestErrorResponse_ValidationShape(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/signup", nil)

	ve := domain.NewValidationError("auth.signup", "email", "must be a valid email address")
	ErrorResponse(rec, req, newTestLogger(), ve)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", rec.Code)
	}

	var body struct {
		Error struct {
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Error.Fields["email"] != "must be a valid email address" {
		t.Errorf("fields = %v, want the email message", body.Error.Fields)
	}
}

func TestErrorResponse_InternalHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/me", nil)

	ErrorResponse(rec, req, newTestLogger(), errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status code = %d, want 500", rec.Code)
	}

	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] == "" || body["error"] == "pq: connection refused" {
		t.Errorf("error = %q, internal details must be replaced with a generic message", body["error"])
	}
}
