// Package service contains the business logic layer.
//
// Services orchestrate calls against the hosted backend and are
// responsible for:
// - Input validation
// - Error translation (upstream errors -> domain errors)
// - Reshaping upstream rows into response types
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/DukeRupert/medbank/internal/domain"
	"github.com/DukeRupert/medbank/internal/metrics"
	"github.com/DukeRupert/medbank/internal/supabase"
)

const (
	// MinPasswordLength matches the auth provider's own minimum.
	MinPasswordLength = 6
)

// AuthService owns the session lifecycle against the auth provider:
// issuance, rotation and identity resolution. Cookie handling lives in the
// session package; this service never touches the response writer.
type AuthService interface {
	// SignUp creates an account. The returned session is nil when email
	// confirmation is pending. Returns domain.ECONFLICT for duplicate
	// accounts and a *domain.ValidationError for malformed input.
	SignUp(ctx context.Context, params domain.SignUpParams) (*domain.User, *domain.Session, error)

	// SignIn authenticates with email and password.
	// Returns domain.EUNAUTHORIZED for bad credentials.
	SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Session, error)

	// Refresh exchanges a refresh token for a rotated pair.
	// Returns domain.ESESSIONEXPIRED when the provider rejects the token.
	Refresh(ctx context.Context, refreshToken string) (*domain.User, *domain.Session, error)

	// Resolve returns the identity behind an access token.
	// Returns domain.EUNAUTHORIZED for an invalid or expired token.
	Resolve(ctx context.Context, accessToken string) (*domain.Identity, error)

	// AdoptSession validates a token pair that arrived out-of-band (email
	// confirmation link) by resolving the access token before trusting it.
	AdoptSession(ctx context.Context, accessToken, refreshToken string) (*domain.Identity, error)
}

type authService struct {
	client *supabase.AuthClient
	// frontendURL, when set, routes confirmation emails back to the
	// frontend's callback page.
	frontendURL string
	logger      *slog.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(client *supabase.AuthClient, frontendURL string, logger *slog.Logger) AuthService {
	return &authService{
		client:      client,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

func (s *authService) SignUp(ctx context.Context, params domain.SignUpParams) (*domain.User, *domain.Session, error) {
	const op = "auth.signup"

	if err := validateSignUp(op, params); err != nil {
		metrics.AuthOperations.WithLabelValues("signup", "invalid").Inc()
		return nil, nil, err
	}

	// Best-effort duplicate probe. The provider hides duplicates behind a
	// 200 with empty identities, so an admin lookup gives the client a
	// clean 409 up front. Failures here are logged and ignored.
	if existing, err := s.client.AdminGetUserByEmail(ctx, params.Email); err == nil && existing != nil {
		metrics.AuthOperations.WithLabelValues("signup", "conflict").Inc()
		return nil, nil, domain.Conflict(op, "An account with this email already exists. Please sign in instead.")
	} else if err != nil {
		s.logger.Debug("duplicate probe skipped", "error", err)
	}

	redirectTo := ""
	if s.frontendURL != "" {
		redirectTo = s.frontendURL + "/auth/callback"
	}

	result, err := s.client.SignUp(ctx, params.Email, params.Password, params.Username, redirectTo)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) {
			msg := strings.ToLower(apiErr.Message)
			if strings.Contains(msg, "already registered") || strings.Contains(msg, "user already") {
				metrics.AuthOperations.WithLabelValues("signup", "conflict").Inc()
				return nil, nil, domain.Conflict(op, "An account with this email already exists. Please sign in instead.")
			}
			if apiErr.Status >= 400 && apiErr.Status < 500 {
				metrics.AuthOperations.WithLabelValues("signup", "rejected").Inc()
				return nil, nil, domain.Wrap(err, domain.EINVALID, op, apiErr.Message)
			}
		}
		metrics.AuthOperations.WithLabelValues("signup", "upstream_error").Inc()
		return nil, nil, domain.Upstream(err, op, "Sign up failed")
	}

	// The provider signals an existing confirmed account by returning a
	// user with an empty identities array instead of an error.
	if result.Session == nil && result.User != nil && len(result.User.Identities) == 0 {
		metrics.AuthOperations.WithLabelValues("signup", "conflict").Inc()
		return nil, nil, domain.Conflict(op, "An account with this email already exists. Please sign in instead.")
	}

	metrics.AuthOperations.WithLabelValues("signup", "ok").Inc()
	return userFromAuth(result.User), sessionFromPayload(result.Session), nil
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*domain.User, *domain.Session, error) {
	const op = "auth.signin"

	payload, err := s.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			metrics.AuthOperations.WithLabelValues("signin", "rejected").Inc()
			return nil, nil, domain.Wrap(err, domain.EUNAUTHORIZED, op, apiErr.Message)
		}
		metrics.AuthOperations.WithLabelValues("signin", "upstream_error").Inc()
		return nil, nil, domain.Upstream(err, op, "Sign in failed")
	}

	metrics.AuthOperations.WithLabelValues("signin", "ok").Inc()
	return userFromAuth(payload.User), sessionFromPayload(payload), nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *domain.Session, error) {
	const op = "auth.refresh"

	if refreshToken == "" {
		return nil, nil, domain.Unauthorized(op, "Missing refresh token")
	}

	payload, err := s.client.RefreshSession(ctx, refreshToken)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			metrics.AuthOperations.WithLabelValues("refresh", "rejected").Inc()
			return nil, nil, domain.Wrap(err, domain.ESESSIONEXPIRED, op, "Could not refresh session")
		}
		metrics.AuthOperations.WithLabelValues("refresh", "upstream_error").Inc()
		return nil, nil, domain.Upstream(err, op, "Could not refresh session")
	}

	metrics.AuthOperations.WithLabelValues("refresh", "ok").Inc()
	return userFromAuth(payload.User), sessionFromPayload(payload), nil
}

func (s *authService) Resolve(ctx context.Context, accessToken string) (*domain.Identity, error) {
	const op = "auth.resolve"

	user, err := s.client.GetUser(ctx, accessToken)
	if err != nil {
		var apiErr *supabase.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return nil, domain.Wrap(err, domain.EUNAUTHORIZED, op, "Invalid session")
		}
		return nil, domain.Upstream(err, op, "Could not resolve session")
	}

	return &domain.Identity{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username(),
		Token:    accessToken,
	}, nil
}

func (s *authService) AdoptSession(ctx context.Context, accessToken, refreshToken string) (*domain.Identity, error) {
	const op = "auth.adopt"

	if accessToken == "" || refreshToken == "" {
		return nil, domain.Unauthorized(op, "Invalid tokens")
	}

	ident, err := s.Resolve(ctx, accessToken)
	if err != nil {
		if domain.ErrorCode(err) == domain.EUNAUTHORIZED {
			return nil, domain.Unauthorized(op, "Invalid tokens")
		}
		return nil, err
	}
	return ident, nil
}

func validateSignUp(op string, params domain.SignUpParams) error {
	var verr error
	if _, err := mail.ParseAddress(params.Email); err != nil {
		verr = domain.AddFieldError(verr, "email", "must be a valid email address")
	}
	if len(params.Password) < MinPasswordLength {
		verr = domain.AddFieldError(verr, "password", "must be at least 6 characters")
	}
	if strings.TrimSpace(params.Username) == "" {
		verr = domain.AddFieldError(verr, "username", "must not be empty")
	}
	if verr != nil {
		if ve, ok := verr.(*domain.ValidationError); ok {
			ve.Op = op
		}
		return verr
	}
	return nil
}

func userFromAuth(u *supabase.AuthUser) *domain.User {
	if u == nil {
		return nil
	}
	return &domain.User{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username(),
	}
}

func sessionFromPayload(p *supabase.SessionPayload) *domain.Session {
	if p == nil || p.AccessToken == "" {
		return nil
	}
	return &domain.Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.ExpiresIn,
		TokenType:    p.TokenType,
	}
}
