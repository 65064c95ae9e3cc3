// Package transport provides the retrying HTTP transport shared by every
// upstream client, plus helpers to build resty clients on top of it.
package transport

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"strava-notion-sync/internal/logging"
)

// Policy configures retries for one upstream API
type Policy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // first backoff; doubles per attempt
	MaxJitter  time.Duration

	// RateLimitDelay, when set, makes 429 responses back off linearly
	// (RateLimitDelay × attempt) instead of exponentially.
	RateLimitDelay time.Duration

	// Timeout bounds each individual attempt
	Timeout time.Duration
}

// DefaultPolicy is used for the destination store and weather providers
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxJitter:  250 * time.Millisecond,
		Timeout:    30 * time.Second,
	}
}

// SourcePolicy waits out Strava's 15-minute rate-limit windows on 429
func SourcePolicy() Policy {
	p := DefaultPolicy()
	p.RateLimitDelay = 60 * time.Second
	return p
}

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// RetryTransport is an http.RoundTripper that retries transient failures
type RetryTransport struct {
	Base   http.RoundTripper
	Policy Policy

	// Sleep and Jitter are replaceable so tests do not wait
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(max time.Duration) time.Duration

	// OnRetry is called before each backoff with the status that
	// triggered it (0 for connection errors)
	OnRetry func(host string, status int)

	log zerolog.Logger
}

// NewRetryTransport wraps base (http.DefaultTransport when nil)
func NewRetryTransport(base http.RoundTripper, p Policy) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{
		Base:   base,
		Policy: p,
		Sleep:  sleepContext,
		Jitter: randomJitter,
		log:    logging.Component("transport"),
	}
}

// RoundTrip sends req, retrying on retryable statuses and connection
// errors. Non-retryable responses are returned untouched.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var lastErr error

	for attempt := 1; ; attempt++ {
		status := 0
		resp, err := t.attempt(req, attempt)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
		case retryableStatus[resp.StatusCode]:
			status = resp.StatusCode
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = &StatusError{
				StatusCode: status,
				Method:     req.Method,
				URL:        redactURL(req.URL),
				Snippet:    Snippet(body),
			}
		default:
			return resp, nil
		}

		if attempt > t.Policy.MaxRetries {
			return nil, &ExhaustedError{Attempts: attempt, Last: lastErr}
		}
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			// Body cannot be replayed
			return nil, lastErr
		}

		delay := t.backoff(attempt, status)
		t.log.Warn().
			Str("method", req.Method).
			Str("url", redactURL(req.URL)).
			Int("status", status).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("Retrying request")
		if t.OnRetry != nil {
			t.OnRetry(req.URL.Host, status)
		}
		if err := t.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// attempt performs one round trip under its own timeout. The timeout is
// released when the response body is closed.
func (t *RetryTransport) attempt(req *http.Request, n int) (*http.Response, error) {
	ctx, cancel := req.Context(), context.CancelFunc(func() {})
	if t.Policy.Timeout > 0 {
		ctx, cancel = context.WithTimeout(req.Context(), t.Policy.Timeout)
	}

	r := req.Clone(ctx)
	if n > 1 && req.GetBody != nil && req.Body != nil && req.Body != http.NoBody {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, err
		}
		r.Body = body
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(r)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func (t *RetryTransport) backoff(attempt, status int) time.Duration {
	p := t.Policy
	if status == http.StatusTooManyRequests && p.RateLimitDelay > 0 {
		return p.RateLimitDelay * time.Duration(attempt)
	}
	d := p.BaseDelay << (attempt - 1)
	if p.MaxJitter > 0 {
		jitter := t.Jitter
		if jitter == nil {
			jitter = randomJitter
		}
		d += jitter(p.MaxJitter)
	}
	return d
}

func (t *RetryTransport) sleep(ctx context.Context, d time.Duration) error {
	if t.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return t.Sleep(ctx, d)
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

// redactURL drops the query string, which may carry API keys
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	c.RawQuery = ""
	c.User = nil
	return c.String()
}
