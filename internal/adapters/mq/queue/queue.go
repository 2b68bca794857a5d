// Package queue buffers accepted registrations between the HTTP handler and
// the delivery workers.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/tes/internal/delivery"
	"github.com/okian/tes/pkg/metrics"
)

const defaultCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds s or returns ErrFull / ErrClosed without blocking.
	Enqueue(ctx context.Context, s delivery.Submission) error

	// Dequeue returns the channel workers read from. It is closed by Close
	// once every buffered submission has been received.
	Dequeue(ctx context.Context) <-chan delivery.Submission

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	items    chan delivery.Submission
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan delivery.Submission, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0, q.capacity)
	return q
}

// Enqueue adds s to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s delivery.Submission) error {
	const op = "queue.Enqueue"

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("cancelled")
		return fmt.Errorf("%s: %w", op, err)
	}

	select {
	case q.items <- s:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items), q.capacity)
		return nil
	default:
		metrics.RecordQueueEnqueueError("full")
		return fmt.Errorf("%s: %w", op, ErrFull)
	}
}

// Dequeue returns the shared receive channel.
func (q *InMemoryQueue) Dequeue(context.Context) <-chan delivery.Submission {
	return q.items
}

// Len returns the number of buffered submissions and refreshes the gauges.
func (q *InMemoryQueue) Len(context.Context) int {
	n := len(q.items)
	metrics.UpdateQueueSize(n, q.capacity)
	return n
}

// Close stops new submissions. Buffered ones remain readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
