package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"imgfetch/pkg/logger"
)

var (
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may proceed right now
	Allow() bool
	// Wait blocks until a request may proceed or ctx ends
	Wait(ctx context.Context) error
}

// TokenBucket limits requests with a token bucket refilled at a fixed rate
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a limiter allowing requestsPerMinute with the given
// burst. Zero requests per minute returns an unlimited limiter.
func NewTokenBucket(requestsPerMinute, burst int) Limiter {
	if requestsPerMinute <= 0 {
		return Unlimited{}
	}
	if burst <= 0 {
		burst = 1
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &TokenBucket{limiter: rate.NewLimiter(rate.Every(every), burst)}
}

// Allow consumes a token if one is available. A refused call consumes
// nothing.
func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

// throttle is an http.RoundTripper that waits on a Limiter before every
// outbound request.
type throttle struct {
	limiter Limiter
	next    http.RoundTripper
	log     logger.Logger
}

// NewRoundTripper wraps next so that every request first waits on limiter
func NewRoundTripper(limiter Limiter, log logger.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &throttle{limiter: limiter, next: next, log: log}
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	if !t.limiter.Allow() {
		start := time.Now()
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
		}
		logger.LogRateLimit(t.log, r.URL.Host, time.Since(start))
	}

	return t.next.RoundTrip(r)
}
