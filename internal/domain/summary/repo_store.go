package summary

import (
	"context"
	"fmt"

	"github.com/healthhub/api/internal/platform/store"
)

type summaryRepoStore struct{ db store.Client }

func NewSummaryRepo(db store.Client) SummaryRepository {
	return &summaryRepoStore{db: db}
}

func (r *summaryRepoStore) Create(ctx context.Context, s newSummary) (*Summary, error) {
	var out []Summary
	if err := r.db.Insert(ctx, Table, s, &out); err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("insert summary: expected 1 row, got %d", len(out))
	}
	return &out[0], nil
}

func (r *summaryRepoStore) ListForUser(ctx context.Context, userID string) ([]Summary, error) {
	q := store.Where(store.Eq("user_id", userID)).OrderBy(store.Desc("created_at"))
	out := []Summary{}
	if err := r.db.Select(ctx, Table, q, &out); err != nil {
		return nil, fmt.Errorf("select summaries: %w", err)
	}
	return out, nil
}
