package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func newClients(t *testing.T, srv *httptest.Server) (*AuthClient, *DataClient) {
	t.Helper()
	cfg := Config{
		BaseURL:    srv.URL,
		AnonKey:    "anon-key",
		ServiceKey: "service-key",
		Timeout:    2 * time.Second,
	}
	auth, err := NewAuthClient(cfg, testLogger())
	require.NoError(t, err)
	data, err := NewDataClient(cfg, testLogger())
	require.NoError(t, err)
	return auth, data
}

func TestNewClient_RequiresConfig(t *testing.T) {
	_, err := NewDataClient(Config{AnonKey: "x"}, testLogger())
	assert.Error(t, err, "base URL is required")

	_, err = NewDataClient(Config{BaseURL: "http://x"}, testLogger())
	assert.Error(t, err, "anon key is required")
}

func TestDoJSON_SendsAuthHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-jwt", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	_, data := newClients(t, srv)

	var rows []any
	require.NoError(t, data.Select(context.Background(), "user-jwt", "questions", "select=id", &rows))
}

func TestDoJSON_EmptyTokenFallsBackToAnonKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	_, data := newClients(t, srv)

	var rows []any
	require.NoError(t, data.Select(context.Background(), "", "specialties", "select=id", &rows))
}

func TestExecute_RetriesReadsOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	_, data := newClients(t, srv)

	var rows []any
	err := data.Select(context.Background(), "", "questions", "select=id", &rows)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecute_DoesNotRetryWrites(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
	}))
	defer srv.Close()

	_, data := newClients(t, srv)

	err := data.Insert(context.Background(), "user-jwt", "attempts", map[string]any{"x": 1}, nil)

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "writes must be attempted exactly once")
}

func TestDecodeAPIError_MessageFields(t *testing.T) {
	testCases := []struct {
		name string
		body string
		want string
	}{
		{"auth msg field", `{"msg":"invalid JWT"}`, "invalid JWT"},
		{"rest message field", `{"message":"permission denied"}`, "permission denied"},
		{"grant error_description", `{"error_description":"Invalid login credentials"}`, "Invalid login credentials"},
		{"bare error field", `{"error":"invalid_grant"}`, "invalid_grant"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			auth, _ := newClients(t, srv)

			_, err := auth.SignInWithPassword(context.Background(), "a@b.c", "pw")

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Message)
		})
	}
}

func TestSelectSingle_NoRowsIsErrNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNotAcceptable)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code":    "PGRST116",
			"message": "JSON object requested, multiple (or no) rows returned",
		})
	}))
	defer srv.Close()

	_, data := newClients(t, srv)

	var row struct{}
	err := data.SelectSingle(context.Background(), "", "users", "id=eq.x", &row)

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInsert_PreferHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	_, data := newClients(t, srv)

	require.NoError(t, data.Insert(context.Background(), "t", "attempts", map[string]any{"a": 1}, nil))
}

func TestGetUser_EmptyIDIsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	auth, _ := newClients(t, srv)

	_, err := auth.GetUser(context.Background(), "some-token")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestAdminGetUserByEmail_NoMatchIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"users": []any{}})
	}))
	defer srv.Close()

	auth, _ := newClients(t, srv)

	user, err := auth.AdminGetUserByEmail(context.Background(), "ghost@example.com")

	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestAuthUser_Username(t *testing.T) {
	testCases := []struct {
		name string
		user AuthUser
		want string
	}{
		{"metadata username", AuthUser{Email: "a@b.c", UserMetadata: map[string]any{"username": "doc"}}, "doc"},
		{"email local part fallback", AuthUser{Email: "jane@example.com"}, "jane"},
		{"no at sign", AuthUser{Email: "odd"}, "odd"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.user.Username())
		})
	}
}
