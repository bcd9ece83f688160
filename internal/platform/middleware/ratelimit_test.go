package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/healthhub/api/internal/platform/auth"
)

func newLimited(cfg RateLimitConfig) echo.HandlerFunc {
	return RateLimit(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

func requestAs(e *echo.Echo, userID string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != "" {
		req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{ID: userID}))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	e := echo.New()
	handler := newLimited(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})

	for i := 0; i < 5; i++ {
		c, rec := requestAs(e, "")
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit '10', got %q", i+1, got)
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	e := echo.New()
	handler := newLimited(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})

	for i := 0; i < 2; i++ {
		c, _ := requestAs(e, "")
		if err := handler(c); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
	}

	c, rec := requestAs(e, "")
	err := handler(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", httpErr.Code)
	}

	retry, parseErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if parseErr != nil || retry < 1 {
		t.Errorf("expected Retry-After >= 1, got %q", rec.Header().Get("Retry-After"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected X-RateLimit-Remaining '0', got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_PerUserIsolation(t *testing.T) {
	e := echo.New()
	handler := newLimited(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	c, _ := requestAs(e, "user-a")
	if err := handler(c); err != nil {
		t.Fatalf("user-a first request: expected no error, got %v", err)
	}
	c, _ = requestAs(e, "user-a")
	if err := handler(c); err == nil {
		t.Fatal("user-a second request: expected rate limit error")
	}
	c, _ = requestAs(e, "user-b")
	if err := handler(c); err != nil {
		t.Fatalf("user-b first request: expected no error, got %v", err)
	}
}

func TestRateLimit_RemainingCountsDown(t *testing.T) {
	e := echo.New()
	handler := newLimited(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3})

	for _, want := range []string{"2", "1", "0"} {
		c, rec := requestAs(e, "user-a")
		if err := handler(c); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != want {
			t.Errorf("expected X-RateLimit-Remaining %q, got %q", want, got)
		}
	}
}

func TestLimiter_ZeroRateRetriesAfterOneSecond(t *testing.T) {
	l := newLimiter(RateLimitConfig{RequestsPerSecond: 0, BurstSize: 1})
	if ok, _, _ := l.take("k"); !ok {
		t.Fatal("expected first take to pass")
	}
	ok, _, retry := l.take("k")
	if ok || retry != 1 {
		t.Errorf("expected refusal with retry 1, got ok=%v retry=%d", ok, retry)
	}
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := newLimiter(RateLimitConfig{RequestsPerSecond: 2, BurstSize: 1})
	l.now = func() time.Time { return clock }

	if ok, _, _ := l.take("k"); !ok {
		t.Fatal("expected first take to pass")
	}
	if ok, _, _ := l.take("k"); ok {
		t.Fatal("expected empty bucket")
	}
	clock = clock.Add(500 * time.Millisecond)
	if ok, _, _ := l.take("k"); !ok {
		t.Error("expected a token after half a second at 2/s")
	}
}

func TestLimiter_DropsIdleBuckets(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	l := newLimiter(DefaultRateLimitConfig())
	l.now = func() time.Time { return clock }

	l.take("a")
	l.take("b")
	if n := l.size(); n != 2 {
		t.Fatalf("expected 2 buckets, got %d", n)
	}

	clock = clock.Add(idleAfter)
	l.take("c")
	if n := l.size(); n != 1 {
		t.Errorf("expected idle buckets dropped, got %d", n)
	}
}
