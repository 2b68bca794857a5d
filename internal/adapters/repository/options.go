package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/tes/pkg/metrics"
)

// instrumented records the latency of every call and counts failures.
type instrumented struct {
	Store
	driver string
}

func instrument(s Store, driver string) Store {
	return &instrumented{Store: s, driver: driver}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(i.driver, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordErrorByComponent("store", op)
	}
}

func (i *instrumented) Add(ctx context.Context, email string, source Source) (Subscription, bool, error) {
	start := time.Now()
	sub, created, err := i.Store.Add(ctx, email, source)
	i.observe("add", start, err)
	return sub, created, err
}

func (i *instrumented) Get(ctx context.Context, email string, source Source) (Subscription, error) {
	start := time.Now()
	sub, err := i.Store.Get(ctx, email, source)
	i.observe("get", start, err)
	return sub, err
}

func (i *instrumented) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := i.Store.Count(ctx)
	i.observe("count", start, err)
	return n, err
}
