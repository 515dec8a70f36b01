// Package auth provides request-scoped identity context helpers.
//
// This package is imported by both middleware and handler packages without
// causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/medbank/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	identityContextKey  contextKey = "identity"
	authErrorContextKey contextKey = "auth_error"
)

// GetIdentity retrieves the authenticated identity from the context.
//
// Returns nil if no caller is authenticated.
func GetIdentity(ctx context.Context) *domain.Identity {
	ident, ok := ctx.Value(identityContextKey).(*domain.Identity)
	if !ok {
		return nil
	}
	return ident
}

// GetIdentityFromRequest retrieves the identity from the request context.
func GetIdentityFromRequest(r *http.Request) *domain.Identity {
	return GetIdentity(r.Context())
}

// SetIdentity stores an identity in the context. Called by the request
// authenticator after resolving or refreshing a session.
func SetIdentity(ctx context.Context, ident *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

// SetAuthError records why authentication failed (expired session vs.
// missing credentials) so the gate can answer with the right error.
func SetAuthError(ctx context.Context, err *domain.Error) context.Context {
	return context.WithValue(ctx, authErrorContextKey, err)
}

// GetAuthError retrieves the recorded authentication failure, if any.
func GetAuthError(ctx context.Context) *domain.Error {
	err, ok := ctx.Value(authErrorContextKey).(*domain.Error)
	if !ok {
		return nil
	}
	return err
}
