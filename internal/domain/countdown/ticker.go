package countdown

import (
	"context"
	"sync"
	"time"
)

const defaultInterval = time.Second

// TickFunc receives every recomputed value.
type TickFunc func(Remaining)

// Option configures a countdown loop.
type Option func(*runner)

// WithInterval overrides the refresh interval (default one second).
func WithInterval(d time.Duration) Option {
	return func(r *runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *runner) {
		if now != nil {
			r.now = now
		}
	}
}

type runner struct {
	interval time.Duration
	now      func() time.Time
}

// Handle controls a running countdown loop.
type Handle struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Start calls onTick with the current value before returning and then once
// per interval until the handle is cancelled or ctx ends. Ticks are delivered
// one at a time from a single goroutine.
func Start(ctx context.Context, target time.Time, onTick TickFunc, opts ...Option) *Handle {
	r := &runner{
		interval: defaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	h := &Handle{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	onTick(Compute(target, r.now()))
	if h.cancelled() || ctx.Err() != nil {
		close(h.done)
		return h
	}

	go r.run(ctx, h, target, onTick)
	return h
}

func (r *runner) run(ctx context.Context, h *Handle, target time.Time, onTick TickFunc) {
	defer close(h.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case <-ticker.C:
			// A cancel may race with the tick; it wins.
			if h.cancelled() || ctx.Err() != nil {
				return
			}
			onTick(Compute(target, r.now()))
		}
	}
}

// Cancel stops future ticks. A tick already running finishes. Safe to call
// more than once and from inside the tick callback.
func (h *Handle) Cancel() {
	h.once.Do(func() { close(h.stop) })
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func (h *Handle) cancelled() bool {
	select {
	case <-h.stop:
		return true
	default:
		return false
	}
}
