package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// AuthUser is the provider's user record.
type AuthUser struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	UserMetadata map[string]any    `json:"user_metadata"`
	Identities   []json.RawMessage `json:"identities"`
	CreatedAt    string            `json:"created_at"`
}

// Username returns the username stored in the user metadata, falling back
// to the local part of the email address.
func (u *AuthUser) Username() string {
	if u.UserMetadata != nil {
		if name, ok := u.UserMetadata["username"].(string); ok && name != "" {
			return name
		}
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// SessionPayload is a token pair as issued by the auth provider.
type SessionPayload struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	TokenType    string    `json:"token_type"`
	User         *AuthUser `json:"user"`
}

// SignUpResult carries the provider's signup response. Session is nil when
// email confirmation is pending.
type SignUpResult struct {
	User    *AuthUser
	Session *SessionPayload
}

// AuthClient talks to the hosted auth surface.
type AuthClient struct {
	*client
}

// NewAuthClient creates a client for the auth surface.
func NewAuthClient(config Config, logger *slog.Logger) (*AuthClient, error) {
	c, err := newClient(config, "auth", logger)
	if err != nil {
		return nil, err
	}
	return &AuthClient{client: c}, nil
}

// SignUp registers a new account. The username lands in the user metadata.
// redirectTo, when non-empty, is where the confirmation email links back to.
func (c *AuthClient) SignUp(ctx context.Context, email, password, username, redirectTo string) (*SignUpResult, error) {
	endpoint := c.config.BaseURL + "/auth/v1/signup"
	if redirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(redirectTo)
	}

	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]any{"username": username},
	}

	// The provider answers with a session when no confirmation is pending,
	// and with the bare user object otherwise. Decode the superset.
	var payload struct {
		SessionPayload
		AuthUser
	}
	if err := c.doJSON(ctx, http.MethodPost, endpoint, "", nil, body, &payload); err != nil {
		return nil, err
	}

	result := &SignUpResult{}
	if payload.SessionPayload.AccessToken != "" {
		session := payload.SessionPayload
		result.Session = &session
		result.User = session.User
	} else {
		user := payload.AuthUser
		result.User = &user
	}
	if result.User == nil || result.User.ID == "" {
		return nil, fmt.Errorf("signup response carried no user")
	}
	return result, nil
}

// SignInWithPassword exchanges credentials for a token pair.
func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*SessionPayload, error) {
	endpoint := c.config.BaseURL + "/auth/v1/token?grant_type=password"
	body := map[string]string{"email": email, "password": password}

	var session SessionPayload
	if err := c.doJSON(ctx, http.MethodPost, endpoint, "", nil, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RefreshSession exchanges a refresh token for a new pair. The provider
// invalidates the old pair as a side effect; a raced or reused token fails
// here and nowhere else.
func (c *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*SessionPayload, error) {
	endpoint := c.config.BaseURL + "/auth/v1/token?grant_type=refresh_token"
	body := map[string]string{"refresh_token": refreshToken}

	var session SessionPayload
	if err := c.doJSON(ctx, http.MethodPost, endpoint, "", nil, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetUser resolves the user behind an access token. An invalid or expired
// token surfaces as an *APIError with a 4xx status.
func (c *AuthClient) GetUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	endpoint := c.config.BaseURL + "/auth/v1/user"

	var user AuthUser
	if err := c.doJSON(ctx, http.MethodGet, endpoint, accessToken, nil, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "invalid token"}
	}
	return &user, nil
}

// AdminGetUserByEmail looks up an account by email using the service-role
// key. Returns (nil, nil) when no account matches. Requires ServiceKey;
// callers treat errors as best-effort.
func (c *AuthClient) AdminGetUserByEmail(ctx context.Context, email string) (*AuthUser, error) {
	if c.config.ServiceKey == "" {
		return nil, fmt.Errorf("admin lookup requires a service role key")
	}

	endpoint := c.config.BaseURL + "/auth/v1/admin/users?filter=" + url.QueryEscape(email)

	var payload struct {
		Users []AuthUser `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, c.config.ServiceKey, nil, nil, &payload); err != nil {
		return nil, err
	}
	for i := range payload.Users {
		if strings.EqualFold(payload.Users[i].Email, email) {
			return &payload.Users[i], nil
		}
	}
	return nil, nil
}
