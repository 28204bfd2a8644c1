package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockLimiter struct {
	allow bool
	retry time.Duration
	err   error
}

func (m mockLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return m.allow, m.retry, m.err
}

type recordingLimiter struct {
	lastKey string
}

func (r *recordingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	r.lastKey = key
	return true, 0, nil
}

func serveThrough(rl *RateLimiter, remoteAddr string) *httptest.ResponseRecorder {
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLocalFixedWindowLimiter(t *testing.T) {
	limiter := NewLocalFixedWindowLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "ip-1", 3, time.Minute)
		if err != nil || !allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, allowed, err)
		}
	}
	allowed, retryAfter, err := limiter.Allow(ctx, "ip-1", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatal("expected fourth request to be rejected")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retryAfter = %v", retryAfter)
	}

	// A different key has its own window.
	if allowed, _, _ := limiter.Allow(ctx, "ip-2", 3, time.Minute); !allowed {
		t.Fatal("independent key must be allowed")
	}
}

func TestRateLimiterMiddlewareRejects(t *testing.T) {
	rl := NewDistributedRateLimiter(mockLimiter{allow: false, retry: 30 * time.Second}, 10, time.Minute, FailClosed, "auth")
	rr := serveThrough(rl, "203.0.113.9:1234")

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After = %q", got)
	}
}

func TestRateLimiterMiddlewareAllows(t *testing.T) {
	rl := NewDistributedRateLimiter(mockLimiter{allow: true}, 10, time.Minute, FailClosed, "auth")
	if rr := serveThrough(rl, "203.0.113.9:1234"); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}

func TestRateLimiterFailureModes(t *testing.T) {
	backendErr := errors.New("backend unavailable")

	t.Run("fail open allows", func(t *testing.T) {
		rl := NewDistributedRateLimiter(mockLimiter{err: backendErr}, 10, time.Minute, FailOpen, "api")
		if rr := serveThrough(rl, "203.0.113.9:1234"); rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
	})

	t.Run("fail closed rejects", func(t *testing.T) {
		rl := NewDistributedRateLimiter(mockLimiter{err: backendErr}, 10, time.Minute, FailClosed, "api")
		rr := serveThrough(rl, "203.0.113.9:1234")
		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rr.Code)
		}
		if rr.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After header")
		}
	})
}

func TestRateLimiterKeysByClientIP(t *testing.T) {
	rec := &recordingLimiter{}
	rl := NewDistributedRateLimiter(rec, 10, time.Minute, FailClosed, "api")
	serveThrough(rl, "203.0.113.9:1234")

	if rec.lastKey != "203.0.113.9" {
		t.Fatalf("key = %q, want bare host", rec.lastKey)
	}
}
