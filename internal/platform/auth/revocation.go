package auth

import (
	"sync"
	"time"
)

// Revocations remembers sessions logged out through this API until their
// tokens would have expired anyway. The auth service revokes the refresh
// token on logout, but already issued access tokens stay valid until expiry.
type Revocations struct {
	mu      sync.RWMutex
	entries map[string]time.Time // session id -> token expiry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewRevocations starts a background sweep every interval.
func NewRevocations(interval time.Duration) *Revocations {
	r := &Revocations{
		entries: make(map[string]time.Time),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if interval > 0 {
		go r.cleanupLoop(interval)
	}
	return r
}

// Revoke marks id as logged out until expiresAt.
func (r *Revocations) Revoke(id string, expiresAt time.Time) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = expiresAt
}

func (r *Revocations) IsRevoked(id string) bool {
	if id == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	exp, ok := r.entries[id]
	return ok && r.now().Before(exp)
}

func (r *Revocations) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close stops the sweep. Safe to call more than once.
func (r *Revocations) Close() {
	r.once.Do(func() { close(r.done) })
}

func (r *Revocations) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

func (r *Revocations) cleanup() {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, exp := range r.entries {
		if !now.Before(exp) {
			delete(r.entries, id)
		}
	}
}
