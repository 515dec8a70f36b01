// Package middleware contains HTTP middleware for the medbank API.
//
// Middleware functions follow the standard Go pattern of wrapping
// http.Handler and are composed with Stack.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/medbank/internal/auth"
	"github.com/DukeRupert/medbank/internal/domain"
	"github.com/DukeRupert/medbank/internal/handler"
	"github.com/DukeRupert/medbank/internal/metrics"
	"github.com/DukeRupert/medbank/internal/service"
	"github.com/DukeRupert/medbank/internal/session"
)

// AuthMiddleware is the request authenticator: it resolves the caller's
// identity for protected routes, transparently refreshing an expired
// access token when a refresh cookie is present.
type AuthMiddleware struct {
	authService service.AuthService
	policy      session.Policy
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(authService service.AuthService, policy session.Policy, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		policy:      policy,
		logger:      logger,
	}
}

// WithIdentity attempts to resolve the caller's identity.
//
// 1. Extract the access token: session cookie first, then a bearer header.
// 2. Resolve the identity against the auth provider.
// 3. On an invalid/expired token with a refresh cookie present, refresh
//    and rotate both cookies on this response. The provider is the source
//    of truth for refresh-token validity; a raced or stale refresh fails
//    closed as session_expired and clears the cookie pair.
// 4. Always continues to the next handler; RequireIdentity enforces.
func (m *AuthMiddleware) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.accessToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ident, err := m.authService.Resolve(r.Context(), token)
		if err == nil {
			next.ServeHTTP(w, r.WithContext(auth.SetIdentity(r.Context(), ident)))
			return
		}

		if domain.ErrorCode(err) != domain.EUNAUTHORIZED {
			// The provider itself failed; don't mistake that for a bad
			// session.
			next.ServeHTTP(w, r.WithContext(auth.SetAuthError(r.Context(), asDomainError(err))))
			return
		}

		refreshCookie, cookieErr := r.Cookie(m.policy.RefreshName)
		if cookieErr != nil || refreshCookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, sess, refreshErr := m.authService.Refresh(r.Context(), refreshCookie.Value)
		if refreshErr != nil || user == nil || sess == nil {
			metrics.SilentRefreshes.WithLabelValues("failed").Inc()
			m.logger.Info("silent refresh failed", "error", refreshErr, "path", r.URL.Path)
			// Dead session: clear the pair so the browser stops sending it.
			session.Write(w, m.policy.Cleared())
			expired := domain.SessionExpired("auth.middleware", "Session expired")
			next.ServeHTTP(w, r.WithContext(auth.SetAuthError(r.Context(), expired)))
			return
		}

		metrics.SilentRefreshes.WithLabelValues("ok").Inc()
		// Rotated cookies ride this response. Remember state is not
		// recoverable here; refreshed sessions are persistent, matching
		// the refresh endpoint's default.
		session.Write(w, m.policy.Pair(sess.AccessToken, sess.RefreshToken, true))

		ident = &domain.Identity{
			ID:       user.ID,
			Email:    user.Email,
			Username: user.Username,
			Token:    sess.AccessToken,
		}
		next.ServeHTTP(w, r.WithContext(auth.SetIdentity(r.Context(), ident)))
	})
}

// RequireIdentity rejects requests that WithIdentity left unauthenticated.
// Must run after WithIdentity.
func (m *AuthMiddleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetIdentity(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		if authErr := auth.GetAuthError(r.Context()); authErr != nil {
			handler.ErrorResponse(w, r, m.logger, authErr)
			return
		}
		handler.ErrorResponse(w, r, m.logger, domain.Unauthorized("auth.middleware", "Not authenticated"))
	})
}

// accessToken pulls the access token from the session cookie, falling back
// to an Authorization bearer header for non-browser clients.
func (m *AuthMiddleware) accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(m.policy.AccessName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func asDomainError(err error) *domain.Error {
	if e, ok := err.(*domain.Error); ok {
		return e
	}
	return domain.Internal(err, "auth.middleware", "Authentication failed")
}

// Stack composes multiple middleware functions into a single middleware.
// The first middleware in the slice is the outermost.
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
