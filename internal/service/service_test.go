package service

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DukeRupert/medbank/internal/supabase"
	"github.com/stretchr/testify/require"
)

// testLogger discards everything below error level.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testConfig(baseURL string) supabase.Config {
	return supabase.Config{
		BaseURL:    baseURL,
		AnonKey:    "anon-key",
		ServiceKey: "service-key",
		Timeout:    2 * time.Second,
	}
}

// newTestDataClient points a DataClient at a fake upstream.
func newTestDataClient(t *testing.T, srv *httptest.Server) *supabase.DataClient {
	t.Helper()
	client, err := supabase.NewDataClient(testConfig(srv.URL), testLogger())
	require.NoError(t, err)
	return client
}

// newTestAuthClient points an AuthClient at a fake upstream.
func newTestAuthClient(t *testing.T, srv *httptest.Server) *supabase.AuthClient {
	t.Helper()
	client, err := supabase.NewAuthClient(testConfig(srv.URL), testLogger())
	require.NoError(t, err)
	return client
}

// fixedRand always picks the same index so selection tests are
// deterministic.
type fixedRand struct{ pick int }

func (r fixedRand) Intn(n int) int {
	return r.pick % n
}
