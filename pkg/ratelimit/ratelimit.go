// Package ratelimit implements the per-source connection rate limiter,
// keyed by source address, returning 429 with Retry-After once a source
// exceeds its request budget. Each source gets a golang.org/x/time/rate
// token bucket holding RequestsPerWindow tokens and refilling at
// RequestsPerWindow per Window, wrapped here in a per-key registry with idle
// eviction (EvictIdle). It is not a sliding window of request timestamps:
// after a full burst a source regains one request every
// Window/RequestsPerWindow, not its whole budget once a Window has passed.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	echo "github.com/labstack/echo/v5"
)

// Config bundles the limiter's tunables.
type Config struct {
	RequestsPerWindow int
	Window            time.Duration
}

// entry pairs a per-source limiter with the last time it was touched, so
// idle sources can be evicted instead of accumulating forever.
type entry struct {
	limiter   *rate.Limiter
	lastTouch time.Time
}

// Limiter is a per-source-address token-bucket rate limiter.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	sources map[string]*entry
}

// New returns a Limiter configured for cfg.RequestsPerWindow requests per
// cfg.Window, per distinct source key.
func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, sources: make(map[string]*entry)}
}

// Allow reports whether a request from key is permitted right now, creating
// that source's bucket on first use.
func (l *Limiter) Allow(key string) bool {
	return l.limiterFor(key).Allow()
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.sources[key]
	if !ok {
		perSecond := rate.Limit(float64(l.cfg.RequestsPerWindow) / l.cfg.Window.Seconds())
		e = &entry{limiter: rate.NewLimiter(perSecond, l.cfg.RequestsPerWindow)}
		l.sources[key] = e
	}
	e.lastTouch = time.Now()
	return e.limiter
}

// EvictIdle drops any source bucket untouched for longer than idleAfter,
// bounding the registry's memory for long-running processes.
func (l *Limiter) EvictIdle(idleAfter time.Duration) {
	cutoff := time.Now().Add(-idleAfter)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.sources {
		if e.lastTouch.Before(cutoff) {
			delete(l.sources, key)
		}
	}
}

// Middleware returns Echo middleware that rejects requests from a source
// address past its rate budget with 429 and a Retry-After header, keyed by
// the host part of RemoteAddr (the whole RemoteAddr if it has no port).
func Middleware(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			key := c.Request().RemoteAddr
			if host, _, err := net.SplitHostPort(key); err == nil {
				key = host
			}
			if !l.Allow(key) {
				retryAfter := int(l.cfg.Window.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}
