// Package ratelimit caps how often one client may hit the write endpoints.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidLimit is returned for a non-positive limit or window.
var ErrInvalidLimit = errors.New("ratelimit: limit and window must be positive")

// Result describes one decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long the caller should wait, rounded up to whole seconds.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || !r.ResetAt.After(now) {
		return 0
	}
	d := r.ResetAt.Sub(now)
	return ((d + time.Second - 1) / time.Second) * time.Second
}

// Limiter decides whether a request keyed by key may proceed and counts it
// if so.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
