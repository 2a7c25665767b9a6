package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestAllowConsumesBurstThenRefills(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := New(60, 2, WithClock(clock.Now))

	require.True(t, limiter.Allow("10.0.0.1"))
	require.True(t, limiter.Allow("10.0.0.1"))
	require.False(t, limiter.Allow("10.0.0.1"))
	require.True(t, limiter.Allow("10.0.0.2"), "buckets are per client")

	clock.Advance(time.Second)
	require.True(t, limiter.Allow("10.0.0.1"))
}

func TestIdleClientsArePruned(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := New(60, 1, WithClock(clock.Now), WithIdleTTL(time.Minute))

	limiter.Allow("a")
	limiter.Allow("b")
	require.Equal(t, 2, limiter.Size())

	clock.Advance(2 * time.Minute)
	limiter.Allow("c")
	require.Equal(t, 1, limiter.Size())
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var limiter *Limiter
	require.Nil(t, New(0, 10))
	require.True(t, limiter.Allow("anyone"))
}

func TestMiddlewareRejectsWithRetryAfter(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := New(30, 1, WithClock(clock.Now))
	handler := Middleware(limiter, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	req.RemoteAddr = "192.0.2.10:4321"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	require.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Equal(t, "2", second.Header().Get("Retry-After"))
}

func TestClientIPStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	require.Equal(t, "198.51.100.7", ClientIP(req))
}
