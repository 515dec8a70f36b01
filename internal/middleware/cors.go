package middleware

import (
	"net/http"
)

// CORSMiddleware implements the origin allow-list with credentials. The
// frontend authenticates with cookies, so Allow-Credentials is always on
// and the allowed origin is echoed back rather than wildcarded.
type CORSMiddleware struct {
	// origins is the allow-list. Empty reflects any origin (development).
	origins map[string]struct{}
}

// NewCORSMiddleware creates a new CORS middleware from the configured
// allow-list.
func NewCORSMiddleware(origins []string) *CORSMiddleware {
	m := &CORSMiddleware{origins: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		m.origins[o] = struct{}{}
	}
	return m
}

// Handler returns middleware that answers preflights and stamps CORS
// headers on allowed cross-origin requests.
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		w.Header().Add("Vary", "Origin")

		if origin != "" && m.allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (m *CORSMiddleware) allowed(origin string) bool {
	if len(m.origins) == 0 {
		return true
	}
	_, ok := m.origins[origin]
	return ok
}
