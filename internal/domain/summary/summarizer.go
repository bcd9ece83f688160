package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Summarizer turns report text into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// StatusError is a non-2xx answer from the summarizer service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("summarizer returned %d: %s", e.StatusCode, e.Body)
}

// ClientOption configures an HTTPSummarizer.
type ClientOption func(*HTTPSummarizer)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(s *HTTPSummarizer) { s.httpClient = c }
}

// WithLogger sets the logger used for breaker state changes.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(s *HTTPSummarizer) { s.logger = l }
}

// WithBreaker overrides the trip threshold and how long the breaker stays
// open before letting a probe through.
func WithBreaker(consecutiveFailures uint32, openFor time.Duration) ClientOption {
	return func(s *HTTPSummarizer) {
		s.tripAfter = consecutiveFailures
		s.openFor = openFor
	}
}

// HTTPSummarizer calls POST {baseURL}/summarize behind a circuit breaker.
type HTTPSummarizer struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	tripAfter  uint32
	openFor    time.Duration
	cb         *gobreaker.CircuitBreaker[string]
}

func NewHTTPSummarizer(baseURL string, timeout time.Duration, opts ...ClientOption) *HTTPSummarizer {
	s := &HTTPSummarizer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zerolog.Nop(),
		tripAfter:  5,
		openFor:    30 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	s.cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "summarizer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     s.openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.tripAfter
		},
		// A 4xx means the service is up and rejected this report.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return s
}

// State reports the breaker state, for health output and tests.
func (s *HTTPSummarizer) State() gobreaker.State {
	return s.cb.State()
}

func (s *HTTPSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	return s.cb.Execute(func() (string, error) {
		return s.call(ctx, text)
	})
}

type summarizeResponse struct {
	Summary string `json:"summary"`
	Result  string `json:"result"`
}

func (s *HTTPSummarizer) call(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/summarize", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode summarizer response: %w", err)
	}
	if out.Summary != "" {
		return out.Summary, nil
	}
	return out.Result, nil
}
