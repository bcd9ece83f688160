package account

import (
	"time"

	"github.com/healthhub/api/internal/domain/profile"
)

// User is the auth service's view of an account.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Session is the token pair issued by the auth service. It is nil when the
// account still needs email confirmation.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
	Message string   `json:"message"`
}

type LoginResponse struct {
	User    *User            `json:"user"`
	Profile *profile.Profile `json:"profile"`
	Session *Session         `json:"session"`
	Message string           `json:"message"`
}

type MeResponse struct {
	User    User             `json:"user"`
	Profile *profile.Profile `json:"profile"`
}
