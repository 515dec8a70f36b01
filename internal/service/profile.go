package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/DukeRupert/medbank/internal/domain"
	"github.com/DukeRupert/medbank/internal/supabase"
)

// ProfileService serves /me: the auth identity merged with the caller's
// users row.
type ProfileService interface {
	// Profile returns the caller's profile. A missing users row is not an
	// error; the profile is synthesized from the auth identity instead.
	Profile(ctx context.Context, ident *domain.Identity) (*domain.User, error)
}

type profileService struct {
	data   *supabase.DataClient
	logger *slog.Logger
}

// NewProfileService creates the profile service.
func NewProfileService(data *supabase.DataClient, logger *slog.Logger) ProfileService {
	return &profileService{data: data, logger: logger}
}

func (s *profileService) Profile(ctx context.Context, ident *domain.Identity) (*domain.User, error) {
	const op = "profile.get"

	var row domain.User
	query := "select=id,email,username,created_at,updated_at&id=eq." + url.QueryEscape(ident.ID)
	err := s.data.SelectSingle(ctx, ident.Token, "users", query, &row)
	if err != nil {
		if errors.Is(err, supabase.ErrNotFound) {
			// No profile row yet (e.g., trigger not run). Fall back to the
			// auth identity so the client always gets a user object.
			s.logger.Debug("profile row missing, synthesizing", "user_id", ident.ID)
			return &domain.User{
				ID:       ident.ID,
				Email:    ident.Email,
				Username: ident.Username,
			}, nil
		}
		return nil, domain.Upstream(err, op, "Failed to fetch user data")
	}

	// The auth identity wins for id/email; the row carries the rest.
	row.ID = ident.ID
	if row.Email == "" {
		row.Email = ident.Email
	}
	if row.Username == "" {
		row.Username = ident.Username
	}
	return &row, nil
}
