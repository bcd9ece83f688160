package summary

import "time"

const Table = "report_summaries"

type Summary struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	OriginalReport string     `json:"original_report"`
	Summary        string     `json:"summary"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

type newSummary struct {
	UserID         string `json:"user_id"`
	OriginalReport string `json:"original_report"`
	Summary        string `json:"summary"`
}

// SummarizeRequest is bound from JSON or form bodies. A multipart file named
// "report" takes precedence over ReportText.
type SummarizeRequest struct {
	ReportText string `json:"report_text" form:"report_text"`
}
