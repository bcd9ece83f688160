package summary

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
)

type Service struct {
	summaries  SummaryRepository
	summarizer Summarizer
}

func NewService(summaries SummaryRepository, summarizer Summarizer) *Service {
	return &Service{summaries: summaries, summarizer: summarizer}
}

// Summarize sends the report upstream and stores the result for the caller.
func (s *Service) Summarize(ctx context.Context, p auth.Principal, reportText string) (*Summary, error) {
	if p.ID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	if strings.TrimSpace(reportText) == "" {
		return nil, apperr.InvalidInput("report text or file is required")
	}

	text, err := s.summarizer.Summarize(ctx, reportText)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("summarizer call failed")
		return nil, apperr.UpstreamUnavailable("failed to get summary from AI service", err)
	}

	out, err := s.summaries.Create(ctx, newSummary{
		UserID:         p.ID,
		OriginalReport: reportText,
		Summary:        text,
	})
	if err != nil {
		return nil, apperr.Persistence("failed to save summary", err)
	}
	return out, nil
}

func (s *Service) ListForUser(ctx context.Context, p auth.Principal) ([]Summary, error) {
	if p.ID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	items, err := s.summaries.ListForUser(ctx, p.ID)
	if err != nil {
		return nil, apperr.Persistence("failed to fetch summaries", err)
	}
	return items, nil
}
