package ratelimit

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	apphttp "MarketThermo/pkg/http"
)

type bucket struct {
	tokens float64
	last   time.Time
}

// idleWithoutRefill bounds how long a bucket that never refills is kept.
const idleWithoutRefill = time.Hour

// Limiter is a per-key token bucket with a shared capacity and refill rate.
// Buckets that have refilled to capacity are dropped by a periodic sweep; a
// fresh bucket starts full, so dropping one changes no decision.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	sweepEvery time.Duration
	lastSweep  time.Time
	now        func() time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	sweep := idleWithoutRefill
	if refillPerSec > 0 {
		sweep = time.Duration(capacity / refillPerSec * float64(time.Second))
		if sweep < time.Minute {
			sweep = time.Minute
		}
	}
	return &Limiter{
		m:          make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillPerSec,
		sweepEvery: sweep,
		now:        time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastSweep.IsZero() {
		l.lastSweep = now
	} else if now.Sub(l.lastSweep) >= l.sweepEvery {
		l.sweepLocked(now)
	}

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Len reports how many client buckets are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) sweepLocked(now time.Time) {
	for k, b := range l.m {
		if l.idle(b, now) {
			delete(l.m, k)
		}
	}
	l.lastSweep = now
}

// idle reports whether b would be back at capacity by now.
func (l *Limiter) idle(b *bucket, now time.Time) bool {
	elapsed := now.Sub(b.last)
	if l.refillRate <= 0 {
		return elapsed >= idleWithoutRefill
	}
	return b.tokens+elapsed.Seconds()*l.refillRate >= l.capacity
}

// Middleware rejects requests with 429 once the client's bucket is empty.
// Clients are keyed by their real IP. Paths in skip are never limited.
func (l *Limiter) Middleware(skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := skipped[c.Path()]; ok {
				return next(c)
			}
			if !l.Allow(c.RealIP()) {
				return apphttp.TooManyRequestsResponse(c)
			}
			return next(c)
		}
	}
}
