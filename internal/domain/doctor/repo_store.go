package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthhub/api/internal/platform/store"
)

type doctorRepoStore struct{ db store.Client }

func NewDoctorRepo(db store.Client) DoctorRepository {
	return &doctorRepoStore{db: db}
}

func (r *doctorRepoStore) Create(ctx context.Context, d *Doctor) error {
	var out []Doctor
	if err := r.db.Insert(ctx, Table, d, &out); err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	if len(out) == 1 {
		*d = out[0]
	}
	return nil
}

func (r *doctorRepoStore) GetByID(ctx context.Context, id string) (*Doctor, error) {
	var d Doctor
	err := r.db.SelectOne(ctx, Table, store.Where(store.Eq("id", id)), &d)
	if errors.Is(err, store.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select doctor: %w", err)
	}
	return &d, nil
}

func (r *doctorRepoStore) Search(ctx context.Context, params SearchParams) ([]Doctor, error) {
	var filters []store.Filter
	if params.Specialty != "" {
		filters = append(filters, store.ILike("specialty", store.Contains(params.Specialty)))
	}
	if params.Hospital != "" {
		filters = append(filters, store.ILike("hospital", store.Contains(params.Hospital)))
	}
	out := []Doctor{}
	q := store.Where(filters...).OrderBy(store.Asc("name"))
	if err := r.db.Select(ctx, Table, q, &out); err != nil {
		return nil, fmt.Errorf("search doctors: %w", err)
	}
	return out, nil
}

func (r *doctorRepoStore) Update(ctx context.Context, id string, values map[string]any) (*Doctor, error) {
	if len(values) == 0 {
		return r.GetByID(ctx, id)
	}
	var out []Doctor
	if err := r.db.Update(ctx, Table, values, []store.Filter{store.Eq("id", id)}, &out); err != nil {
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (r *doctorRepoStore) Delete(ctx context.Context, id string) error {
	if err := r.db.Delete(ctx, Table, []store.Filter{store.Eq("id", id)}); err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	return nil
}
