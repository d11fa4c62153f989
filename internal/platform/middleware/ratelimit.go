package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL is how long a client's bucket survives without requests.
	IdleTTL time.Duration
	// Skipper exempts requests, e.g. health checks.
	Skipper func(c echo.Context) bool
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		IdleTTL:           10 * time.Minute,
	}
}

type limiterEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// limiterStore holds one token bucket per client key. Buckets idle for
// longer than idle are dropped, at most once per idle interval.
type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = DefaultRateLimitConfig().IdleTTL
	}
	return &limiterStore{
		limiters:  make(map[string]*limiterEntry),
		limit:     rate.Limit(cfg.RequestsPerSecond),
		burst:     cfg.BurstSize,
		idle:      idle,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		s.sweep(now)
	}
	e, ok := s.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = e
	}
	e.seen = now
	return e.limiter
}

// sweep drops buckets not seen since now-idle. Callers hold mu.
func (s *limiterStore) sweep(now time.Time) {
	for key, e := range s.limiters {
		if now.Sub(e.seen) >= s.idle {
			delete(s.limiters, key)
		}
	}
	s.lastSweep = now
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimit limits requests per clinic and client IP.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			key := c.RealIP()
			if clinic := c.Request().Header.Get("X-Clinic-ID"); clinic != "" {
				key = clinic + ":" + key
			}

			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)

			r := store.get(key).Reserve()
			if !r.OK() {
				return tooManyRequests(c, 1)
			}
			if delay := r.Delay(); delay > 0 {
				r.Cancel()
				return tooManyRequests(c, int(math.Ceil(delay.Seconds())))
			}
			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, retryAfter int) error {
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
	c.Response().Header().Set("X-RateLimit-Remaining", "0")
	return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
}
