package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Strava rate limits (defaults, updated from response headers):
// - 100 requests per 15 minutes
// - 1000 requests per day
//
// Exceeding a window yields 429, which the transport waits out.
// The limiter only spaces requests and tracks usage for logging.

// usageWarnRatio is the share of the 15-minute window that triggers a warning
const usageWarnRatio = 0.9

// RateLimiter tracks Strava API usage
type RateLimiter struct {
	mu sync.Mutex

	shortLimit int
	shortUsage int
	dailyLimit int
	dailyUsage int
	warned     bool

	// Minimum interval between requests
	minInterval time.Duration
	lastRequest time.Time

	log zerolog.Logger
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter(minInterval time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		shortLimit:  100,
		dailyLimit:  1000,
		minInterval: minInterval,
		log:         log,
	}
}

// Wait blocks until minInterval has passed since the previous request
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	elapsed := time.Since(r.lastRequest)
	if elapsed < r.minInterval {
		waitTime := r.minInterval - elapsed
		r.mu.Unlock()
		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
		r.mu.Lock()
	}
	r.lastRequest = time.Now()
	r.mu.Unlock()
	return nil
}

// UpdateFromHeaders updates rate limit state from Strava response headers
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strava returns: X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512"
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit, r.dailyLimit = short, daily
	}
	short, daily, ok := parsePair(h.Get("X-RateLimit-Usage"))
	if !ok {
		return
	}
	r.shortUsage, r.dailyUsage = short, daily

	nearLimit := r.shortLimit > 0 && float64(r.shortUsage) >= usageWarnRatio*float64(r.shortLimit)
	if nearLimit && !r.warned {
		r.log.Warn().
			Int("short_usage", r.shortUsage).
			Int("short_limit", r.shortLimit).
			Int("daily_usage", r.dailyUsage).
			Int("daily_limit", r.dailyLimit).
			Msg("Strava rate limit nearly exhausted")
	}
	r.warned = nearLimit
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}
