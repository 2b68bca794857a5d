package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryKey struct {
	email  string
	source Source
}

// MemoryStore keeps subscriptions in a map. Contents vanish on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[memoryKey]Subscription
	now  func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[memoryKey]Subscription),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Add(_ context.Context, email string, source Source) (Subscription, bool, error) {
	if err := checkInput(email, source); err != nil {
		return Subscription{}, false, err
	}
	k := memoryKey{email: normalize(email), source: source}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sub, ok := m.rows[k]; ok {
		return sub, false, nil
	}
	sub := Subscription{
		ID:        uuid.NewString(),
		Email:     k.email,
		Source:    source,
		CreatedAt: m.now(),
	}
	m.rows[k] = sub
	return sub, true, nil
}

func (m *MemoryStore) Get(_ context.Context, email string, source Source) (Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.rows[memoryKey{email: normalize(email), source: source}]
	if !ok {
		return Subscription{}, ErrNotFound
	}
	return sub, nil
}

func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows), nil
}

func (m *MemoryStore) Close() error { return nil }
