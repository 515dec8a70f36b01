package middleware

import (
	"crypto/subtle"
	"net/http"
)

// MetricsAuthMiddleware gates the metrics endpoint behind basic auth.
// With no credentials configured the gate is open, which is only
// acceptable when the endpoint is not reachable from the public network.
type MetricsAuthMiddleware struct {
	username string
	password string
}

// NewMetricsAuthMiddleware creates the gate from the configured
// credential pair.
func NewMetricsAuthMiddleware(username, password string) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{
		username: username,
		password: password,
	}
}

func (m *MetricsAuthMiddleware) enabled() bool {
	return m.username != "" || m.password != ""
}

// authorize compares the presented pair in constant time. Both halves
// are always compared so a username mismatch costs the same as a
// password mismatch.
func (m *MetricsAuthMiddleware) authorize(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(m.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(m.password)) == 1
	return userOK && passOK
}

// Handler returns middleware enforcing the configured credentials.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled() {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !m.authorize(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="medbank metrics"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}` + "\n"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
