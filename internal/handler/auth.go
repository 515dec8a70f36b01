package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/medbank/internal/domain"
	"github.com/DukeRupert/medbank/internal/service"
	"github.com/DukeRupert/medbank/internal/session"
)

// AuthHandler serves the session lifecycle endpoints. The auth service
// talks to the provider; this handler owns request decoding and the
// cookie side effects via the shared policy.
type AuthHandler struct {
	authService service.AuthService
	policy      session.Policy
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService, policy session.Policy, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		policy:      policy,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth routes. signupLimit and signinLimit
// wrap the credential-accepting endpoints (pass nil to skip limiting).
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, signupLimit, signinLimit func(http.Handler) http.Handler) {
	wrap := func(limit func(http.Handler) http.Handler, fn http.HandlerFunc) http.Handler {
		if limit == nil {
			return fn
		}
		return limit(fn)
	}

	mux.Handle("POST /auth/signup", wrap(signupLimit, h.SignUp))
	mux.Handle("POST /auth/signin", wrap(signinLimit, h.SignIn))
	mux.HandleFunc("POST /auth/signout", h.SignOut)
	mux.HandleFunc("POST /auth/refresh", h.Refresh)
	mux.HandleFunc("POST /auth/set-session", h.SetSession)
}

// SignUp creates an account. Cookies are set only when the provider
// returns an active session (no email confirmation pending).
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
		Remember bool   `json:"remember"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, sess, err := h.authService.SignUp(r.Context(), domain.SignUpParams{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Remember: req.Remember,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CacheNoStore)
	body := map[string]any{"user": user}
	if sess != nil {
		session.Write(w, h.policy.Pair(sess.AccessToken, sess.RefreshToken, req.Remember))
		body["access_token"] = sess.AccessToken
		body["refresh_token"] = sess.RefreshToken
	}
	WriteJSON(w, http.StatusCreated, body)
}

// SignIn authenticates and sets the cookie pair.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, sess, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session.Write(w, h.policy.Pair(sess.AccessToken, sess.RefreshToken, req.Remember))
	w.Header().Set("Cache-Control", CacheNoStore)
	WriteJSON(w, http.StatusOK, map[string]any{
		"user":          user,
		"access_token":  sess.AccessToken,
		"refresh_token": sess.RefreshToken,
	})
}

// SignOut clears the cookie pair with the exact attributes it was set
// with. The provider invalidates tokens on its own schedule; ending the
// session here is purely a cookie operation.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	session.Write(w, h.policy.Cleared())
	w.Header().Set("Cache-Control", CacheNoStore)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh rotates the token pair. The refresh token comes from the body
// when present, otherwise from the refresh cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
		Remember     *bool  `json:"remember"`
	}
	if err := DecodeJSONOptional(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		if cookie, err := r.Cookie(h.policy.RefreshName); err == nil {
			refreshToken = cookie.Value
		}
	}
	if refreshToken == "" {
		ErrorResponse(w, r, h.logger, domain.Unauthorized("auth.refresh", "Missing refresh token"))
		return
	}

	// Explicit refreshes default to a persistent pair.
	remember := true
	if req.Remember != nil {
		remember = *req.Remember
	}

	user, sess, err := h.authService.Refresh(r.Context(), refreshToken)
	if err != nil {
		// A dead refresh token ends the session: clear the pair.
		if domain.ErrorCode(err) == domain.ESESSIONEXPIRED {
			session.Write(w, h.policy.Cleared())
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session.Write(w, h.policy.Pair(sess.AccessToken, sess.RefreshToken, remember))
	w.Header().Set("Cache-Control", CacheNoStore)
	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token":  sess.AccessToken,
		"refresh_token": sess.RefreshToken,
		"user":          user,
	})
}

// SetSession turns a token pair that arrived out-of-band (email
// confirmation link) into cookies. The access token is validated by
// resolving its identity before anything is trusted.
func (h *AuthHandler) SetSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		Remember     bool   `json:"remember"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if _, err := h.authService.AdoptSession(r.Context(), req.AccessToken, req.RefreshToken); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session.Write(w, h.policy.Pair(req.AccessToken, req.RefreshToken, req.Remember))
	w.Header().Set("Cache-Control", CacheNoStore)
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
