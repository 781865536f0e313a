package fetch

import (
	"context"
	"time"
)

// Backoff returns how long to wait after the given failed attempt (1-based).
type Backoff func(attempt int) time.Duration

// LinearBackoff waits base, 2*base, 3*base, ...
func LinearBackoff(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base * time.Duration(attempt)
	}
}

// ExponentialBackoff waits base, 2*base, 4*base, ... capped at limit.
func ExponentialBackoff(base, limit time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if limit > 0 && d >= limit {
				return limit
			}
		}
		if limit > 0 && d > limit {
			return limit
		}
		return d
	}
}

// Sleeper waits for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d).
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// RealSleeper sleeps on a timer.
type RealSleeper struct{}

// Sleep blocks for d. It returns ctx.Err() if ctx ends first.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
