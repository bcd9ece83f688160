package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthhub/api/internal/platform/store"
)

type productRepoStore struct{ db store.Client }

func NewProductRepo(db store.Client) ProductRepository {
	return &productRepoStore{db: db}
}

func (r *productRepoStore) Create(ctx context.Context, p *Product) error {
	var out []Product
	if err := r.db.Insert(ctx, Table, p, &out); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	if len(out) == 1 {
		*p = out[0]
	}
	return nil
}

func (r *productRepoStore) GetByID(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.db.SelectOne(ctx, Table, store.Where(store.Eq("id", id)), &p)
	if errors.Is(err, store.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
}

func (r *productRepoStore) List(ctx context.Context, available *bool) ([]Product, error) {
	q := store.Query{}
	if available != nil {
		q = store.Where(store.Eq("available", *available))
	}
	out := []Product{}
	if err := r.db.Select(ctx, Table, q.OrderBy(store.Desc("created_at")), &out); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	return out, nil
}

func (r *productRepoStore) Update(ctx context.Context, id string, values map[string]any) (*Product, error) {
	if len(values) == 0 {
		return r.GetByID(ctx, id)
	}
	var out []Product
	if err := r.db.Update(ctx, Table, values, []store.Filter{store.Eq("id", id)}, &out); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (r *productRepoStore) Delete(ctx context.Context, id string) error {
	if err := r.db.Delete(ctx, Table, []store.Filter{store.Eq("id", id)}); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (r *productRepoStore) Lookup(ctx context.Context, ids []string) ([]CatalogEntry, error) {
	q := store.Where(store.In("id", ids)).Select("id", "price", "available")
	out := []CatalogEntry{}
	if err := r.db.Select(ctx, Table, q, &out); err != nil {
		return nil, fmt.Errorf("lookup products: %w", err)
	}
	return out, nil
}
