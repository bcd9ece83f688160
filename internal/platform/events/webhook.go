package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Webhook delivery headers.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEventID   = "X-Webhook-ID"
	HeaderEventType = "X-Webhook-Event"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// SignPayload returns the hex HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches payload under secret.
func VerifySignature(payload []byte, secret, signature string) bool {
	return hmac.Equal([]byte(SignPayload(payload, secret)), []byte(signature))
}

// WebhookOption configures a WebhookPublisher.
type WebhookOption func(*WebhookPublisher)

func WithHTTPClient(c *http.Client) WebhookOption {
	return func(p *WebhookPublisher) { p.httpClient = c }
}

// WithRetryDelays sets the waits between attempts; its length is the number
// of retries.
func WithRetryDelays(delays ...time.Duration) WebhookOption {
	return func(p *WebhookPublisher) { p.retryDelays = delays }
}

// WebhookPublisher POSTs each event as JSON to a fixed URL. When a secret is
// set the body is signed in HeaderSignature as "sha256=<hex>".
type WebhookPublisher struct {
	url         string
	secret      string
	httpClient  *http.Client
	retryDelays []time.Duration
}

func NewWebhookPublisher(url, secret string, opts ...WebhookOption) *WebhookPublisher {
	p := &WebhookPublisher{
		url:         url,
		secret:      secret,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		retryDelays: []time.Duration{200 * time.Millisecond, time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Publish retries transport failures and 5xx answers. 4xx answers are final.
func (p *WebhookPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		retry, err := p.deliver(ctx, evt, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt >= len(p.retryDelays) {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("webhook delivery: %w", ctx.Err())
		case <-time.After(p.retryDelays[attempt]):
		}
	}
	return fmt.Errorf("webhook delivery: %w", lastErr)
}

func (p *WebhookPublisher) deliver(ctx context.Context, evt Event, payload []byte) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventID, evt.ID)
	req.Header.Set(HeaderEventType, evt.Type)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(evt.OccurredAt.Unix(), 10))
	if p.secret != "" {
		req.Header.Set(HeaderSignature, "sha256="+SignPayload(payload, p.secret))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}
	return resp.StatusCode >= 500, fmt.Errorf("non-2xx response: %d", resp.StatusCode)
}

func (p *WebhookPublisher) Close() error { return nil }
