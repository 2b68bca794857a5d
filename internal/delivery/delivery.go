// Package delivery hands accepted registrations to whatever is on the other
// side of the form. The only transport shipped is simulated: it logs and
// acknowledges without storing anything.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/tes/internal/domain/registration"
	"github.com/okian/tes/pkg/logger"
)

// ErrNoReference is returned for a submission that was never assigned a reference.
var ErrNoReference = errors.New("delivery: submission has no reference")

// Submission is an accepted registration on its way out.
type Submission struct {
	Reference  string             `json:"reference"`
	Draft      registration.Draft `json:"draft"`
	ReceivedAt time.Time          `json:"received_at"`
}

// Transport delivers one submission. Implementations must be safe for
// concurrent use by the worker pool.
type Transport interface {
	Deliver(ctx context.Context, s Submission) error
}

// Simulated stands in for a registration backend.
type Simulated struct {
	latency time.Duration
	log     logger.Logger
}

// Option configures Simulated.
type Option func(*Simulated)

// WithLatency makes every delivery wait d before acknowledging.
func WithLatency(d time.Duration) Option {
	return func(s *Simulated) {
		if d > 0 {
			s.latency = d
		}
	}
}

// WithLogger replaces the named global logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulated) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSimulated builds the simulated transport.
func NewSimulated(opts ...Option) *Simulated {
	s := &Simulated{}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("delivery")
	}
	return s
}

// Deliver logs a confirmation for s. It returns ctx.Err() if the context
// ends during the simulated latency.
func (s *Simulated) Deliver(ctx context.Context, sub Submission) error {
	const op = "delivery.Deliver"
	if sub.Reference == "" {
		return fmt.Errorf("%s: %w", op, ErrNoReference)
	}

	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-t.C:
		}
	}

	s.log.Info(ctx, "registration confirmed",
		logger.String("reference", sub.Reference),
		logger.String("ticket_type", string(sub.Draft.TicketType)),
		logger.String("dietary", string(sub.Draft.DietaryPreferences)),
		logger.Duration("queued_for", time.Since(sub.ReceivedAt)),
	)
	return nil
}
