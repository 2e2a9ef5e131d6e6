package ratelimiter

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket wrapper around golang.org/x/time/rate.
//
// restd uses it to throttle how fast the event loop accepts new
// connections. Tokens are added at a constant rate and each accept consumes
// one; the burst capacity absorbs short spikes.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing perSecond events on average and up to
// burst at once.
//
// A perSecond of 0 disables limiting: every call is allowed.
//
// Example:
//
//	// 500 accepts/s sustained, bursts of 1000
//	limiter := New(500, 1000)
func New(perSecond, burst uint) *RateLimiter {
	if perSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(burst)),
	}
}

// Allow consumes one token if available and reports whether it did.
// It never blocks.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// RetryAfter returns how long until the next token is available, or 0 when
// one is available now. Callers use it to stop watching a source of events
// they could not admit anyway.
func (r *RateLimiter) RetryAfter() time.Duration {
	limit := r.limiter.Limit()
	if limit == rate.Inf {
		return 0
	}

	tokens := r.limiter.Tokens()
	if tokens >= 1 {
		return 0
	}
	if limit <= 0 {
		return time.Duration(math.MaxInt64)
	}

	seconds := (1 - tokens) / float64(limit)
	return time.Duration(math.Ceil(seconds * float64(time.Second)))
}

// SetLimit changes the sustained rate. 0 disables limiting.
func (r *RateLimiter) SetLimit(perSecond uint) {
	if perSecond == 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Limit(perSecond))
}

// SetBurst changes the bucket capacity.
func (r *RateLimiter) SetBurst(burst uint) {
	r.limiter.SetBurst(int(burst))
}

// Tokens returns the number of tokens currently in the bucket.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
