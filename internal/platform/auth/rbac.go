package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthhub/api/internal/platform/apperr"
)

const (
	RolePatient = "patient"
	RoleAdmin   = "admin"
)

// ErrNoProfile is returned by a RoleResolver when the user has no profile.
var ErrNoProfile = errors.New("auth: profile not found")

// RoleResolver looks up the application role of a user.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

// IsAdmin reports whether userID resolves to the admin role. A missing
// profile or a failed lookup is not an admin.
func IsAdmin(ctx context.Context, roles RoleResolver, userID string) bool {
	role, err := roles.RoleOf(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNoProfile) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("role lookup failed")
		}
		return false
	}
	return role == RoleAdmin
}

// OwnerOrAdmin allows p when it owns the resource or is an admin.
func OwnerOrAdmin(ctx context.Context, roles RoleResolver, p Principal, ownerID string) error {
	if p.ID != "" && p.ID == ownerID {
		return nil
	}
	if IsAdmin(ctx, roles, p.ID) {
		return nil
	}
	return apperr.Forbidden("access denied")
}

// RequireAdmin rejects callers whose profile role is not admin.
func RequireAdmin(roles RoleResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !IsAdmin(c.Request().Context(), roles, p.ID) {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}
