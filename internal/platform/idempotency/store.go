// Package idempotency replays responses for retried POST requests carrying
// an Idempotency-Key header. Records live in Redis.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Record is what the store keeps per key.
type Record struct {
	Status      string    `json:"status"`
	Fingerprint string    `json:"fingerprint"`
	StatusCode  int       `json:"status_code,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store claims, completes and releases keys. A key is claimed with SET NX so
// exactly one request runs the handler.
type Store struct {
	client  redis.UniversalClient
	ttl     time.Duration
	prefix  string
	nowFunc func() time.Time
}

func NewStore(client redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		client:  client,
		ttl:     ttl,
		prefix:  "idem:",
		nowFunc: time.Now,
	}
}

// Claim creates an in-progress record for key. When the key already exists
// the stored record is returned with claimed=false.
func (s *Store) Claim(ctx context.Context, key, fingerprint string) (*Record, bool, error) {
	rec := Record{
		Status:      StatusInProgress,
		Fingerprint: fingerprint,
		CreatedAt:   s.nowFunc().UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, false, fmt.Errorf("marshal record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.prefix+key, data, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx: %w", err)
	}
	if ok {
		return &rec, true, nil
	}

	existing, err := s.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// Expired or released between SETNX and GET.
		return s.Claim(ctx, key, fingerprint)
	}
	return existing, false, nil
}

// Get returns the record for key, or nil when there is none.
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// Complete stores the final response for key, keeping the original TTL
// window from the claim.
func (s *Store) Complete(ctx context.Context, key string, rec Record) error {
	rec.Status = StatusDone
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Release deletes key so the client may retry.
func (s *Store) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
