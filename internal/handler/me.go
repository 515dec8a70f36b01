package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/medbank/internal/auth"
	"github.com/DukeRupert/medbank/internal/service"
)

// MeHandler serves the caller's own profile.
type MeHandler struct {
	profiles service.ProfileService
	logger   *slog.Logger
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(profiles service.ProfileService, logger *slog.Logger) *MeHandler {
	return &MeHandler{profiles: profiles, logger: logger}
}

// Me returns the resolved identity merged with the users row. Identity
// data never hits shared caches.
func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident := auth.GetIdentityFromRequest(r)
	if ident == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	user, err := h.profiles.Profile(r.Context(), ident)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", CacheNoStore)
	WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}
