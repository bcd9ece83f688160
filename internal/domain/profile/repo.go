package profile

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("profile not found")

type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	UpdateName(ctx context.Context, id, name string) (*Profile, error)
}
