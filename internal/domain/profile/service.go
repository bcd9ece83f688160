package profile

import (
	"context"
	"errors"

	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
	"github.com/healthhub/api/internal/platform/validation"
)

type Service struct {
	profiles ProfileRepository
}

var _ auth.RoleResolver = (*Service)(nil)

func NewService(profiles ProfileRepository) *Service {
	return &Service{profiles: profiles}
}

var validRoles = map[string]bool{
	auth.RolePatient: true, auth.RoleAdmin: true,
}

func (s *Service) CreateProfile(ctx context.Context, p *Profile) error {
	if p.ID == "" || p.Name == "" {
		return apperr.InvalidInput("id and name are required")
	}
	if p.Role == "" {
		p.Role = auth.RolePatient
	}
	if !validRoles[p.Role] {
		return apperr.InvalidInput("invalid role")
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return apperr.Persistence("failed to create profile", err)
	}
	return nil
}

// GetProfile returns the profile for id, or nil when the user has none.
func (s *Service) GetProfile(ctx context.Context, id string) (*Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("failed to fetch profile", err)
	}
	return p, nil
}

func (s *Service) UpdateName(ctx context.Context, id string, req UpdateRequest) (*Profile, error) {
	if err := validation.Struct(req); err != nil {
		return nil, apperr.InvalidInput("name is required")
	}
	p, err := s.profiles.UpdateName(ctx, id, req.Name)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("profile not found")
	}
	if err != nil {
		return nil, apperr.Persistence("failed to update profile", err)
	}
	return p, nil
}

// RoleOf implements auth.RoleResolver.
func (s *Service) RoleOf(ctx context.Context, userID string) (string, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return "", auth.ErrNoProfile
	}
	if err != nil {
		return "", err
	}
	return p.Role, nil
}
