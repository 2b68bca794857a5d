// Package worker drains the submission queue into the delivery transport.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tes/internal/delivery"
	"github.com/okian/tes/pkg/logger"
	"github.com/okian/tes/pkg/metrics"
)

const (
	defaultAttempts        = 3
	defaultBackoff         = 100 * time.Millisecond
	defaultDeliveryTimeout = 10 * time.Second
	poolShutdownTimeout    = 30 * time.Second
)

// Queue is the part of the queue workers read from.
type Queue interface {
	Dequeue(ctx context.Context) <-chan delivery.Submission
}

// tally is notified once per submission with the final result.
type tally interface {
	delivered()
	failed()
}

// InMemoryWorker delivers submissions one at a time.
type InMemoryWorker struct {
	queue     Queue
	transport delivery.Transport
	name      string
	attempts  int
	backoff   time.Duration
	timeout   time.Duration
	counters  tally

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading q and delivering through t.
func NewInMemoryWorker(q Queue, t delivery.Transport, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		transport: t,
		name:      "worker",
		attempts:  defaultAttempts,
		backoff:   defaultBackoff,
		timeout:   defaultDeliveryTimeout,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run processes submissions until the queue channel closes or ctx ends.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "delivery failed",
					logger.String("reference", s.Reference),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, s delivery.Submission) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var err error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		err = w.deliverOnce(ctx, s)
		if err == nil {
			metrics.RecordDelivery(true, float64(time.Since(start).Milliseconds()))
			if w.counters != nil {
				w.counters.delivered()
			}
			return nil
		}
		if attempt == w.attempts || ctx.Err() != nil {
			break
		}
		w.logger.Warn(ctx, "delivery attempt failed",
			logger.String("reference", s.Reference),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		select {
		case <-ctx.Done():
		case <-time.After(w.backoff):
		}
	}

	metrics.RecordDelivery(false, float64(time.Since(start).Milliseconds()))
	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", "delivery_failed")
	if w.counters != nil {
		w.counters.failed()
	}
	return fmt.Errorf("deliver %s: %w", s.Reference, err)
}

func (w *InMemoryWorker) deliverOnce(ctx context.Context, s delivery.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.transport.Deliver(ctx, s)
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	deliveredN atomic.Int64
	failedN    atomic.Int64
	started    sync.Once

	logger logger.Logger
}

// NewPool creates workerCount workers. A count below one means one worker
// per CPU.
func NewPool(workerCount int, q Queue, t delivery.Transport, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, t, wopts...)
		w.counters = p
		p.workers[i] = w
	}
	return p
}

func (p *Pool) delivered() { p.deliveredN.Add(1) }
func (p *Pool) failed()    { p.failedN.Add(1) }

// Start launches every worker. Calling it again has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.started.Do(func() {
		for _, w := range p.workers {
			go w.Run(ctx)
		}
		metrics.UpdateWorkerActiveCount(len(p.workers))
		p.logger.Info(ctx, "workers started", logger.Int("count", len(p.workers)))
	})
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Delivered returns how many submissions reached the transport.
func (p *Pool) Delivered() int64 { return p.deliveredN.Load() }

// Failed returns how many submissions exhausted their attempts.
func (p *Pool) Failed() int64 { return p.failedN.Load() }

// Shutdown closes the queue, if it can be closed, and waits for workers to
// drain what is buffered. It gives up when ctx ends or after thirty seconds.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
