package product

import (
	"context"
	"errors"

	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/validation"
)

type Service struct {
	products ProductRepository
}

func NewService(products ProductRepository) *Service {
	return &Service{products: products}
}

func (s *Service) CreateProduct(ctx context.Context, req CreateRequest) (*Product, error) {
	if err := validation.Struct(req); err != nil {
		return nil, apperr.InvalidInput("title, description, and price are required")
	}
	if req.Price.IsNegative() {
		return nil, apperr.InvalidInput("price must be non-negative")
	}
	p := &Product{
		Title:       req.Title,
		Description: req.Description,
		Price:       *req.Price,
		ImageURL:    req.ImageURL,
		Available:   true,
	}
	if req.Available != nil {
		p.Available = *req.Available
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, apperr.Persistence("failed to create product", err)
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("product not found")
	}
	if err != nil {
		return nil, apperr.Persistence("failed to fetch product", err)
	}
	return p, nil
}

// ListProducts returns products newest first, optionally filtered by
// availability.
func (s *Service) ListProducts(ctx context.Context, available *bool) ([]Product, error) {
	items, err := s.products.List(ctx, available)
	if err != nil {
		return nil, apperr.Persistence("failed to fetch products", err)
	}
	return items, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req UpdateRequest) (*Product, error) {
	if req.Price != nil && req.Price.IsNegative() {
		return nil, apperr.InvalidInput("price must be non-negative")
	}
	p, err := s.products.Update(ctx, id, req.values())
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("product not found")
	}
	if err != nil {
		return nil, apperr.Persistence("failed to update product", err)
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return apperr.Persistence("failed to delete product", err)
	}
	return nil
}

// LookupForOrder resolves the authoritative price and availability for ids
// in a single read. Missing products are absent from the result; the caller
// decides what that means. Errors are returned unclassified.
func (s *Service) LookupForOrder(ctx context.Context, ids []string) ([]CatalogEntry, error) {
	if len(ids) == 0 {
		return []CatalogEntry{}, nil
	}
	return s.products.Lookup(ctx, ids)
}
