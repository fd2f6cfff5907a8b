package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
)

func TestFixedWindowLimiter(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	t.Cleanup(func() { _ = limiter.Close() })

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "ip-1")
		if err != nil || !ok {
			t.Fatalf("request %d should pass: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := limiter.Allow(ctx, "ip-1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatalf("third request should be blocked")
	}
	if ok, _ := limiter.Allow(ctx, "ip-2"); !ok {
		t.Fatalf("other keys keep their own quota")
	}
}

func TestFixedWindowLimiterReportsRedisErrors(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	redis.Close()
	if ok, err := limiter.Allow(context.Background(), "ip-1"); ok || err == nil {
		t.Fatalf("expected error when redis is down, got ok=%v err=%v", ok, err)
	}
}

func TestNewFixedWindowLimiterValidates(t *testing.T) {
	if _, err := NewFixedWindowLimiter("", "", "", 1, time.Second); err == nil {
		t.Fatalf("expected error for empty addr")
	}
	if _, err := NewFixedWindowLimiter("localhost:6379", "", "", 0, time.Second); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	for _, window := range []time.Duration{0, time.Microsecond, 999 * time.Microsecond} {
		if _, err := NewFixedWindowLimiter("localhost:6379", "", "", 1, window); err == nil {
			t.Fatalf("expected error for window %s", window)
		}
	}
	l, err := NewFixedWindowLimiter("localhost:6379", "", "", 1, time.Millisecond)
	if err != nil {
		t.Fatalf("1ms window should be accepted: %v", err)
	}
	l.Close()
}

func TestMiddleware(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	h := Middleware(limiter, "login", zap.NewNop().Sugar())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := do(); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", code)
	}
	redis.Close()
	if code := do(); code != http.StatusServiceUnavailable {
		t.Fatalf("redis down: expected 503, got %d", code)
	}
}

func TestMiddlewareNilLimiterPassesThrough(t *testing.T) {
	called := false
	h := Middleware(nil, "login", zap.NewNop().Sugar())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil))
	if !called {
		t.Fatalf("expected handler to run without a limiter")
	}
}
