// Package domain contains the core types and error taxonomy shared across
// the service, handler and middleware layers. Rows live in the hosted
// backend; these types only describe their wire shape.
package domain

import "time"

// Identity is the resolved caller for a single request. It is recomputed
// per-request from the access token and never persisted locally. Token is
// the access token the identity was resolved with (possibly rotated by a
// silent refresh) and is used for row-level-secured data reads.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"-"`
}

// User is the profile shape returned to clients.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Session is the credential pair issued by the auth provider. Expiry is
// owned by the provider; ExpiresIn is advisory.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

// SignUpParams carries validated signup input.
type SignUpParams struct {
	Email    string
	Password string
	Username string
	Remember bool
}
