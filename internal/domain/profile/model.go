package profile

import "time"

const Table = "profiles"

// Profile is the application-side record of a user. Its id is the auth
// service's user id.
type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type UpdateRequest struct {
	Name string `json:"name" validate:"required"`
}
