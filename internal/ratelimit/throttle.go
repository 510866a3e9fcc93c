// Package ratelimit adapts gcsfuse's token-bucket Throttle to pace the
// sequential single-range GETs the simulated-multirange fallback issues one
// at a time.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle limits the rate at which tokens (here: successive fallback
// requests) may be acquired. Safe for concurrent access.
type Throttle interface {
	// Capacity returns the maximum number of tokens obtainable in one Wait.
	Capacity() uint64

	// Wait acquires n tokens, blocking until the limiter admits them or ctx
	// is done.
	Wait(ctx context.Context, n uint64) error
}

type limiter struct {
	*rate.Limiter
}

// New returns a Throttle admitting at most burst tokens at once, refilling
// at rateHz tokens/sec. A burst of 0 or less disables throttling entirely
// (every Wait call returns immediately).
func New(rateHz float64, burst int) Throttle {
	if burst <= 0 {
		return unlimited{}
	}
	return &limiter{rate.NewLimiter(rate.Limit(rateHz), burst)}
}

func (l *limiter) Capacity() uint64 {
	return uint64(l.Burst())
}

func (l *limiter) Wait(ctx context.Context, n uint64) error {
	return l.WaitN(ctx, int(n))
}

type unlimited struct{}

func (unlimited) Capacity() uint64                      { return ^uint64(0) }
func (unlimited) Wait(ctx context.Context, n uint64) error { return ctx.Err() }
