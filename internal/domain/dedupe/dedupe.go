// Package dedupe remembers which registrant emails were already accepted so
// a double submit is acknowledged instead of delivered twice.
package dedupe

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 50000

// Deduper tracks claimed keys.
type Deduper interface {
	// Claim records key and reports whether it was already claimed.
	Claim(ctx context.Context, key string) bool

	// Release forgets key so the same registrant can try again, for example
	// after the queue refused the submission.
	Release(ctx context.Context, key string)

	Size() int64
}

// memory is a bounded claim set. When full, the oldest claim is evicted.
// maxSize <= 0 disables the bound.
type memory struct {
	mu      sync.Mutex
	keys    map[string]*list.Element
	order   *list.List // front is newest
	maxSize int
	size    atomic.Int64
}

// NewInMemory builds an in-memory deduper.
func NewInMemory(opts ...Option) Deduper {
	d := &memory{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.keys = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

// Key normalizes an email into the form claims are stored under.
func Key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *memory) Claim(_ context.Context, key string) bool {
	key = Key(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.keys[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.keys) >= d.maxSize {
		d.evictOldest()
	}
	d.keys[key] = d.order.PushFront(key)
	d.size.Add(1)
	return false
}

func (d *memory) Release(_ context.Context, key string) {
	key = Key(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.keys[key]
	if !ok {
		return
	}
	d.order.Remove(el)
	delete(d.keys, key)
	d.size.Add(-1)
}

// evictOldest must be called with d.mu held.
func (d *memory) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.keys, el.Value.(string))
	d.size.Add(-1)
}

func (d *memory) Size() int64 {
	return d.size.Load()
}
