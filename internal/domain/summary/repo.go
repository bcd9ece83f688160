package summary

import "context"

type SummaryRepository interface {
	Create(ctx context.Context, s newSummary) (*Summary, error)
	ListForUser(ctx context.Context, userID string) ([]Summary, error)
}
