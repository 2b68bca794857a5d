// Package service wires the site's components together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tes/internal/adapters/mq/queue"
	"github.com/okian/tes/internal/adapters/mq/worker"
	"github.com/okian/tes/internal/adapters/repository"
	"github.com/okian/tes/internal/delivery"
	"github.com/okian/tes/internal/domain/dedupe"
	"github.com/okian/tes/internal/domain/event"
	"github.com/okian/tes/internal/domain/registration"
	"github.com/okian/tes/pkg/logger"
)

// Sentinel errors for service lifecycle.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrStoreClosed = errors.New("subscription store was closed by Stop")
)

// Service implements the API dependencies for the event site.
type Service struct {
	mu sync.RWMutex

	// Core components
	event     event.Event
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	transport delivery.Transport
	pool      *worker.Pool
	store     repository.Store

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	deliveryAttempts int
	deliveryLatency  time.Duration
	now              func() time.Time

	// State
	started     bool
	ownsStore   bool
	storeClosed bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of delivery workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many registrant emails are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDeliveryAttempts sets how many times a submission is tried.
func WithDeliveryAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.deliveryAttempts = n
		}
	}
}

// WithDeliveryLatency sets the simulated transport latency. It has no effect
// when WithTransport is used.
func WithDeliveryLatency(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.deliveryLatency = d
		}
	}
}

// WithTransport replaces the simulated transport.
func WithTransport(t delivery.Transport) Option {
	return func(s *Service) {
		if t != nil {
			s.transport = t
		}
	}
}

// WithStore sets the subscription store. The service closes it on Stop, so a
// service given its own store cannot be started again afterwards.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithEvent sets the event catalogue.
func WithEvent(ev event.Event) Option {
	return func(s *Service) {
		s.event = ev
	}
}

// WithClock replaces the clock used to stamp submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		event:            event.Default(),
		workerCount:      4,
		queueSize:        1024,
		dedupeSize:       50_000,
		deliveryAttempts: 3,
		deliveryLatency:  250 * time.Millisecond,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	if s.storeClosed {
		return fmt.Errorf("service start: %w", ErrStoreClosed)
	}

	s.logger.Info(ctx, "starting event site service...")

	if s.store == nil {
		st, err := repository.Open(ctx, repository.DriverMemory, "")
		if err != nil {
			return fmt.Errorf("service start: %w", err)
		}
		s.store = st
		s.ownsStore = true
	}
	if s.transport == nil {
		s.transport = delivery.NewSimulated(delivery.WithLatency(s.deliveryLatency))
	}

	s.deduper = dedupe.NewInMemory(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.transport,
		worker.WithAttempts(s.deliveryAttempts),
		worker.WithLogger(s.logger.Named("worker")),
	)
	// Workers outlive the request that started them; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "event site service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("target", s.event.StartsAt.Format(time.RFC3339)),
	)
	return nil
}

// Stop closes the queue, waits for workers to drain it and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping event site service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	// An owned store is reopened by the next Start.
	if s.ownsStore {
		s.store = nil
		s.ownsStore = false
	} else {
		s.storeClosed = true
	}

	s.started = false
	s.logger.Info(ctx, "event site service stopped",
		logger.Int64("delivered", s.pool.Delivered()),
		logger.Int64("failed", s.pool.Failed()),
	)
	return errors.Join(errs...)
}

// Event returns the event catalogue.
func (s *Service) Event() event.Event {
	return s.event
}

// SubmitRegistration claims the registrant email and enqueues the draft for
// delivery. A claimed email reports duplicate. If the queue refuses the
// draft the claim is released so the visitor can retry.
func (s *Service) SubmitRegistration(ctx context.Context, d registration.Draft) (delivery.Submission, bool, error) {
	const op = "service.SubmitRegistration"

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return delivery.Submission{}, false, fmt.Errorf("%s: %w", op, ErrNotStarted)
	}

	key := d.EmailKey()
	if !s.deduper.Claim(ctx, key) {
		s.logger.Debug(ctx, "duplicate registration", logger.String("email", key))
		return delivery.Submission{}, true, nil
	}

	sub := delivery.Submission{
		Reference:  uuid.NewString(),
		Draft:      d,
		ReceivedAt: s.now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, sub); err != nil {
		s.deduper.Release(ctx, key)
		s.logger.Warn(ctx, "registration not queued", logger.String("reference", sub.Reference), logger.Error(err))
		return delivery.Submission{}, false, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info(ctx, "registration queued",
		logger.String("reference", sub.Reference),
		logger.String("ticket", string(d.TicketType)),
	)
	return sub, false, nil
}

// Subscribe stores an address for the newsletter or early access list.
func (s *Service) Subscribe(ctx context.Context, email string, source repository.Source) (repository.Subscription, bool, error) {
	const op = "service.Subscribe"

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return repository.Subscription{}, false, fmt.Errorf("%s: %w", op, ErrNotStarted)
	}

	sub, created, err := s.store.Add(ctx, email, source)
	if err != nil {
		return repository.Subscription{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return sub, created, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"target":      s.event.StartsAt,
	}
	if !s.started {
		return stats
	}

	stats["queueLength"] = s.queue.Len(ctx)
	stats["registrantsSeen"] = s.deduper.Size()
	stats["delivered"] = s.pool.Delivered()
	stats["deliveryFailed"] = s.pool.Failed()
	if n, err := s.store.Count(ctx); err == nil {
		stats["subscriptions"] = n
	} else {
		s.logger.Warn(ctx, "subscription count failed", logger.Error(err))
	}
	return stats
}
