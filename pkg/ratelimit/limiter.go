package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound actions such as login attempts.
type Limiter interface {
	// Allow reports whether an action may run now and consumes a token if so.
	Allow() bool
	// Wait blocks until an action may run or ctx ends.
	Wait(ctx context.Context) error
	// Reset refills the limiter.
	Reset()
}

// TokenBucket is a Limiter over golang.org/x/time/rate.
type TokenBucket struct {
	limiter *rate.Limiter
	every   time.Duration
	burst   int
}

// NewTokenBucket allows burst actions at once and one more every period.
func NewTokenBucket(burst int, every time.Duration) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(every), burst),
		every:   every,
		burst:   burst,
	}
}

// PerMinute allows n actions per minute with no burst. n <= 0 disables pacing.
func PerMinute(n int) Limiter {
	if n <= 0 {
		return Unlimited{}
	}
	return NewTokenBucket(1, time.Minute/time.Duration(n))
}

func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

func (tb *TokenBucket) Reset() {
	tb.limiter = rate.NewLimiter(rate.Every(tb.every), tb.burst)
}

// Unlimited never blocks.
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}
