package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestAllowRefills(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(2, 1).WithClock(func() time.Time { return now })

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per key")

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(time.Hour)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "refill is capped at capacity")
}

func TestIdleBucketsAreReclaimed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(20, 1).WithClock(func() time.Time { return now })

	for i := 0; i < 100_000; i++ {
		l.Allow(fmt.Sprintf("10.%d.%d.%d", i>>16, (i>>8)&0xff, i&0xff))
	}
	assert.Equal(t, 100_000, l.Len())

	now = now.Add(24 * time.Hour)
	assert.True(t, l.Allow("192.168.0.1"))
	assert.Equal(t, 1, l.Len())
}

func TestSweepKeepsDrainedBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(100, 1).WithClock(func() time.Time { return now })

	l.Allow("oneshot")
	now = now.Add(60 * time.Second)
	for l.Allow("busy") {
	}

	// the sweep runs at +101s: "oneshot" has refilled, "busy" holds 41 tokens
	now = now.Add(41 * time.Second)
	assert.True(t, l.Allow("other"))
	assert.Equal(t, 2, l.Len())

	allowed := 0
	for l.Allow("busy") {
		allowed++
	}
	assert.Equal(t, 41, allowed)
}

func TestBucketsWithoutRefillExpire(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 0).WithClock(func() time.Time { return now })

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(30 * time.Minute)
	assert.False(t, l.Allow("a"))

	now = now.Add(2 * time.Hour)
	assert.True(t, l.Allow("a"))
}

func TestMiddleware(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(1, 0.001).WithClock(func() time.Time { return now })

	e := echo.New()
	e.Use(l.Middleware("/healthz"))
	e.GET("/api/report", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	do := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("/api/report"))
	assert.Equal(t, http.StatusTooManyRequests, do("/api/report"))
	assert.Equal(t, http.StatusOK, do("/healthz"))
	assert.Equal(t, http.StatusOK, do("/healthz"))
}
