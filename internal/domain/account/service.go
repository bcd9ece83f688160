package account

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthhub/api/internal/domain/profile"
	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
	"github.com/healthhub/api/internal/platform/validation"
)

// defaultRevocationTTL applies when a logged out token carries no expiry.
const defaultRevocationTTL = time.Hour

type Service struct {
	authSvc          AuthService
	profiles         *profile.Service
	revoked          *auth.Revocations
	allowAdminSignup bool
	now              func() time.Time
}

func NewService(authSvc AuthService, profiles *profile.Service, revoked *auth.Revocations, allowAdminSignup bool) *Service {
	return &Service{
		authSvc:          authSvc,
		profiles:         profiles,
		revoked:          revoked,
		allowAdminSignup: allowAdminSignup,
		now:              time.Now,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, apperr.InvalidInput("email, password, and name are required")
	}
	if req.Role == "" {
		req.Role = auth.RolePatient
	}
	switch req.Role {
	case auth.RolePatient:
	case auth.RoleAdmin:
		if !s.allowAdminSignup {
			return nil, apperr.Forbidden("admin sign-up is disabled")
		}
	default:
		return nil, apperr.InvalidInput("invalid role")
	}

	user, session, err := s.authSvc.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		if re, ok := isRejected(err); ok {
			return nil, apperr.InvalidInput(re.Message)
		}
		return nil, apperr.UpstreamUnavailable("registration failed", err)
	}
	if user == nil || user.ID == "" {
		return nil, apperr.InvalidInput("registration failed")
	}

	if err := s.profiles.CreateProfile(ctx, &profile.Profile{ID: user.ID, Name: req.Name, Role: req.Role}); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", user.ID).Msg("auth account created without profile")
		return nil, err
	}
	return &RegisterResponse{User: user, Session: session, Message: "registration successful"}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, apperr.InvalidInput("email and password are required")
	}
	user, session, err := s.authSvc.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if re, ok := isRejected(err); ok {
			return nil, apperr.Unauthorized(re.Message)
		}
		return nil, apperr.UpstreamUnavailable("login failed", err)
	}
	if user == nil {
		return nil, apperr.Unauthorized("login failed")
	}

	// A missing profile does not block login.
	prof, err := s.profiles.GetProfile(ctx, user.ID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", user.ID).Msg("profile lookup failed during login")
	}
	return &LoginResponse{User: user, Profile: prof, Session: session, Message: "login successful"}, nil
}

// Logout revokes the caller's session locally and asks the auth service to
// end it. Upstream failures are logged; the local revocation still holds.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	claims, err := auth.ParseUnverified(accessToken)
	if err != nil {
		return apperr.Unauthorized("invalid token")
	}
	expires := s.now().Add(defaultRevocationTTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if s.revoked != nil {
		s.revoked.Revoke(claims.RevocationKey(), expires)
	}

	if err := s.authSvc.SignOut(ctx, accessToken); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("auth service logout failed")
	}
	return nil
}

func (s *Service) Me(ctx context.Context, p auth.Principal) (*MeResponse, error) {
	if p.ID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	prof, err := s.profiles.GetProfile(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &MeResponse{User: User{ID: p.ID, Email: p.Email}, Profile: prof}, nil
}
