package ingest

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter is the request budget shared by every caller of a Client.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter allows requestsPerSecond requests with no bursting.
func NewLimiter(requestsPerSecond float64) *Limiter {
	return &Limiter{rl: rate.NewLimiter(rate.Limit(requestsPerSecond), 1)}
}

// Acquire blocks until a request slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.rl.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return nil
}
