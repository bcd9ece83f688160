package doctor

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("doctor not found")

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id string) (*Doctor, error)
	Search(ctx context.Context, params SearchParams) ([]Doctor, error)
	Update(ctx context.Context, id string, values map[string]any) (*Doctor, error)
	Delete(ctx context.Context, id string) error
}
