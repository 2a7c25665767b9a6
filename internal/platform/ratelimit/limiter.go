// Package ratelimit throttles requests per client with token buckets.
package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

// Limiter keeps one token bucket per client key. Buckets idle for longer than the idle TTL
// are pruned lazily on access.
type Limiter struct {
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
	clock   func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithIdleTTL overrides how long an unused bucket is kept.
func WithIdleTTL(ttl time.Duration) Option {
	return func(l *Limiter) {
		if ttl > 0 {
			l.idleTTL = ttl
		}
	}
}

// New returns a limiter refilling perMinute tokens per minute with the given burst. A
// non-positive perMinute yields nil, which allows everything.
func New(perMinute, burst int, opts ...Option) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	l := &Limiter{
		rate:    rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		idleTTL: defaultIdleTTL,
		clock:   time.Now,
		clients: make(map[string]*client),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Allow consumes one token for key.
func (l *Limiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	entry, ok := l.clients[key]
	if !ok {
		l.pruneLocked(now)
		entry = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// RetryAfter is the wait before a rejected client regains one token, rounded up to seconds.
func (l *Limiter) RetryAfter() time.Duration {
	if l == nil || l.rate <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(1/float64(l.rate))) * time.Second
}

func (l *Limiter) pruneLocked(now time.Time) {
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.clients, key)
		}
	}
}

// Size reports the number of tracked clients.
func (l *Limiter) Size() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// KeyFunc derives the client key of a request.
type KeyFunc func(*http.Request) string

// ClientIP keys requests by remote address. It expects chi's RealIP middleware to have
// rewritten RemoteAddr from forwarding headers.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// Middleware rejects requests over the limit by calling onLimited, after setting Retry-After.
func Middleware(limiter *Limiter, key KeyFunc, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	if onLimited == nil {
		onLimited = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(key(r)) {
				if wait := limiter.RetryAfter(); wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(wait/time.Second)))
				}
				onLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
