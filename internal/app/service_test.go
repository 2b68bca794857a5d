package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	service "github.com/okian/tes/internal/app"
	"github.com/okian/tes/internal/adapters/mq/queue"
	"github.com/okian/tes/internal/adapters/repository"
	"github.com/okian/tes/internal/delivery"
	"github.com/okian/tes/internal/domain/event"
	"github.com/okian/tes/internal/domain/registration"
	"github.com/okian/tes/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

var epoch = time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)

// recordingTransport remembers every delivered submission.
type recordingTransport struct {
	mu  sync.Mutex
	got []delivery.Submission
}

func (r *recordingTransport) Deliver(_ context.Context, s delivery.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, s)
	return nil
}

func (r *recordingTransport) delivered() []delivery.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery.Submission(nil), r.got...)
}

// blockingTransport holds every delivery until open is called.
type blockingTransport struct {
	release chan struct{}
	once    sync.Once
}

func (b *blockingTransport) Deliver(ctx context.Context, _ delivery.Submission) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingTransport) open() {
	b.once.Do(func() { close(b.release) })
}

func draft(email string) registration.Draft {
	return registration.Draft{
		FirstName:  "Asha",
		LastName:   "Verma",
		Email:      email,
		Phone:      "9876543210",
		Company:    "Acme",
		JobTitle:   "CTO",
		AgreeTerms: true,
	}.WithDefaults()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it serves the default catalogue", func() {
			So(svc.Event().StartsAt, ShouldEqual, event.DefaultStart)
			So(svc.GetStats(context.Background())["started"], ShouldEqual, false)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		target := time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC)
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(64),
			service.WithDedupeSize(100),
			service.WithEvent(event.Default().WithTarget(target)),
		)

		Convey("Then the options are reflected in stats", func() {
			stats := svc.GetStats(context.Background())
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 64)
			So(stats["target"], ShouldEqual, target)
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then submissions and subscriptions are refused", func() {
			_, _, err := svc.SubmitRegistration(ctx, draft("a@b.c"))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			_, _, err = svc.Subscribe(ctx, "a@b.c", repository.SourceNewsletter)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("And stopping is a no-op", func() {
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := service.New(service.WithDeliveryLatency(0))
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then it reports running stats", func() {
			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldEqual, true)
			So(stats, ShouldContainKey, "queueLength")
			So(stats["subscriptions"], ShouldEqual, 0)
		})

		Convey("When stopping the service", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})

			Convey("And starting again opens a fresh store", func() {
				So(svc.Start(ctx), ShouldBeNil)
				defer func() { _ = svc.Stop(ctx) }()

				_, created, err := svc.Subscribe(ctx, "again@example.com", repository.SourceNewsletter)
				So(err, ShouldBeNil)
				So(created, ShouldBeTrue)
				So(svc.GetStats(ctx)["subscriptions"], ShouldEqual, 1)
			})
		})
	})

	Convey("Given a service running on a caller-supplied store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := service.New(
			service.WithDeliveryLatency(0),
			service.WithStore(repository.NewMemoryStore()),
		)
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("When it is started after Stop closed that store", func() {
			err := svc.Start(ctx)

			Convey("Then it refuses instead of running on a closed store", func() {
				So(errors.Is(err, service.ErrStoreClosed), ShouldBeTrue)
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_SubmitRegistration(t *testing.T) {
	Convey("Given a started service with a recording transport", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		tr := &recordingTransport{}
		svc := service.New(
			service.WithTransport(tr),
			service.WithWorkerCount(2),
			service.WithClock(func() time.Time { return epoch }),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a registration is submitted", func() {
			sub, dup, err := svc.SubmitRegistration(ctx, draft("asha@example.com"))

			Convey("Then it gets a reference and reaches the transport", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
				So(sub.Reference, ShouldNotBeEmpty)
				So(sub.ReceivedAt, ShouldEqual, epoch)

				So(svc.Stop(ctx), ShouldBeNil)
				got := tr.delivered()
				So(got, ShouldHaveLength, 1)
				So(got[0].Reference, ShouldEqual, sub.Reference)
			})

			Convey("And the same email in another case is a duplicate", func() {
				again, dup, err := svc.SubmitRegistration(ctx, draft(" ASHA@Example.com "))
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)
				So(again.Reference, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a service whose queue fills up", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		tr := &blockingTransport{release: make(chan struct{})}
		svc := service.New(
			service.WithTransport(tr),
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() {
			tr.open()
			_ = svc.Stop(ctx)
		}()

		Convey("When more registrations arrive than fit", func() {
			var full error
			var fullEmail string
			for _, email := range []string{"a1@x.io", "a2@x.io", "a3@x.io", "a4@x.io"} {
				if _, _, err := svc.SubmitRegistration(ctx, draft(email)); err != nil {
					full, fullEmail = err, email
					break
				}
			}

			Convey("Then the overflow is refused with ErrFull and its email stays free", func() {
				So(errors.Is(full, queue.ErrFull), ShouldBeTrue)
				tr.open()
				So(eventually(func() bool {
					_, dup, err := svc.SubmitRegistration(ctx, draft(fullEmail))
					return err == nil && !dup
				}), ShouldBeTrue)
			})
		})
	})
}

func TestService_Subscribe(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When an address subscribes twice", func() {
			first, created, err := svc.Subscribe(ctx, "Fan@Example.com", repository.SourceEarlyAccess)
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)
			second, created2, err := svc.Subscribe(ctx, "fan@example.com", repository.SourceEarlyAccess)

			Convey("Then the second call returns the stored row", func() {
				So(err, ShouldBeNil)
				So(created2, ShouldBeFalse)
				So(second.ID, ShouldEqual, first.ID)
				So(svc.GetStats(ctx)["subscriptions"], ShouldEqual, 1)
			})
		})
	})
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
