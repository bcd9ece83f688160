package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthhub/api/internal/platform/store"
)

type profileRepoStore struct{ db store.Client }

func NewProfileRepo(db store.Client) ProfileRepository {
	return &profileRepoStore{db: db}
}

func (r *profileRepoStore) Create(ctx context.Context, p *Profile) error {
	var out []Profile
	if err := r.db.Insert(ctx, Table, p, &out); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	if len(out) == 1 {
		*p = out[0]
	}
	return nil
}

func (r *profileRepoStore) GetByID(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	err := r.db.SelectOne(ctx, Table, store.Where(store.Eq("id", id)), &p)
	if errors.Is(err, store.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return &p, nil
}

func (r *profileRepoStore) UpdateName(ctx context.Context, id, name string) (*Profile, error) {
	var out []Profile
	err := r.db.Update(ctx, Table, map[string]any{"name": name}, []store.Filter{store.Eq("id", id)}, &out)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}
