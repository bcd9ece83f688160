package product

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("product not found")

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, available *bool) ([]Product, error)
	Update(ctx context.Context, id string, values map[string]any) (*Product, error)
	Delete(ctx context.Context, id string) error
	// Lookup returns the catalog entries for ids in one read. Unknown ids
	// are simply absent from the result.
	Lookup(ctx context.Context, ids []string) ([]CatalogEntry, error)
}
