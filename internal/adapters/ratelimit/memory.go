package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a per-process sliding-window limiter.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string][]time.Time
}

// NewMemory allows limit requests per key in any window-long span.
func NewMemory(limit int, window time.Duration) (*Memory, error) {
	if limit <= 0 || window <= 0 {
		return nil, ErrInvalidLimit
	}
	return &Memory{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string][]time.Time),
	}, nil
}

// WithClock replaces the clock, for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	stamps := prune(m.buckets[key], now.Add(-m.window))
	if len(stamps) >= m.limit {
		m.buckets[key] = stamps
		return Result{
			Allowed: false,
			Limit:   m.limit,
			ResetAt: stamps[0].Add(m.window),
		}, nil
	}

	stamps = append(stamps, now)
	m.buckets[key] = stamps
	return Result{
		Allowed:   true,
		Limit:     m.limit,
		Remaining: m.limit - len(stamps),
		ResetAt:   stamps[0].Add(m.window),
	}, nil
}

// Sweep drops keys with no request inside the window.
func (m *Memory) Sweep() {
	cutoff := m.now().Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, stamps := range m.buckets {
		if stamps = prune(stamps, cutoff); len(stamps) == 0 {
			delete(m.buckets, k)
		} else {
			m.buckets[k] = stamps
		}
	}
}

// Run sweeps every window until ctx ends.
func (m *Memory) Run(ctx context.Context) {
	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Keys returns how many clients are tracked.
func (m *Memory) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// prune drops timestamps at or before cutoff. stamps is ordered.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}
