package middleware

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the limit for a specific route or group. Max requests
// may burst at once; the bucket refills at Max per Window.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	KeyFn  func(c fiber.Ctx) string
}

// clientBucket is the token bucket of one key and when it was last used.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is an in-memory token-bucket limiter keyed per client.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	config  RateLimitConfig
	every   rate.Limit
}

// NewRateLimiter creates a rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*clientBucket),
		config:  cfg,
		every:   rate.Every(cfg.Window / time.Duration(max(cfg.Max, 1))),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) bucket(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	l := rate.NewLimiter(rl.every, rl.config.Max)
	rl.buckets[key] = &clientBucket{limiter: l, lastSeen: now}
	return l
}

// Handler returns a Fiber middleware handler that enforces the rate limit.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		now := time.Now()
		l := rl.bucket(rl.config.KeyFn(c), now)
		allowed := l.AllowN(now, 1)
		tokens := l.TokensAt(now)

		// Reset is when the next whole token is available.
		wait := time.Duration(0)
		if tokens < 1 {
			wait = time.Duration((1 - tokens) / float64(rl.every) * float64(time.Second))
		}
		setRateLimitHeaders(c, rl.config.Max, int(math.Floor(tokens)), now.Add(wait))

		if !allowed {
			retryAfter := int(math.Ceil(wait.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{
					"code":       "RATE_LIMITED",
					"message":    fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
					"retryAfter": retryAfter,
				},
			})
		}
		return c.Next()
	}
}

// Allow consumes a token for key and reports whether one was available.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()
	return rl.bucket(key, now).AllowN(now, 1)
}

func setRateLimitHeaders(c fiber.Ctx, limit, remaining int, resetAt time.Time) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// cleanup drops buckets idle long enough to have refilled completely.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		for key, b := range rl.buckets {
			if time.Since(b.lastSeen) > rl.config.Window {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// KeyByIP returns the client IP as the rate limit key.
func KeyByIP(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

func perMinute(n int) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{Max: n, Window: time.Minute, KeyFn: KeyByIP})
}

// NewReadRateLimiter allows 100 req/min per IP for listings, details and catalogues.
func NewReadRateLimiter() *RateLimiter { return perMinute(100) }

// NewSearchRateLimiter allows 20 req/min per IP. A search scores the whole corpus.
func NewSearchRateLimiter() *RateLimiter { return perMinute(20) }

// NewDiscoverRateLimiter allows 5 req/min per IP. Discovery spends YouTube API quota.
func NewDiscoverRateLimiter() *RateLimiter { return perMinute(5) }

// NewRefreshRateLimiter allows 10 req/min per IP.
func NewRefreshRateLimiter() *RateLimiter { return perMinute(10) }
