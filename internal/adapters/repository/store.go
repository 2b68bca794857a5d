// Package repository stores newsletter and early-access subscriptions.
// Registrations themselves are never persisted.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Source says which form an address came from.
type Source string

const (
	SourceNewsletter  Source = "newsletter"
	SourceEarlyAccess Source = "early_access"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceNewsletter || s == SourceEarlyAccess
}

// Subscription is one stored address.
type Subscription struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists subscriptions. An address is unique per source.
type Store interface {
	// Add stores email for source. When the pair already exists it returns
	// the stored row and created=false.
	Add(ctx context.Context, email string, source Source) (sub Subscription, created bool, err error)

	// Get returns ErrNotFound for an unknown pair.
	Get(ctx context.Context, email string, source Source) (Subscription, error)

	Count(ctx context.Context) (int, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open builds the store for driver. dsn is ignored by the memory driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	const op = "repository.Open"

	var (
		s   Store
		err error
	)
	switch driver {
	case "", DriverMemory:
		driver = DriverMemory
		s = NewMemoryStore()
	case DriverSQLite:
		s, err = NewSQLiteStore(ctx, dsn)
	case DriverPostgres:
		s, err = NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return instrument(s, driver), nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkInput(email string, source Source) error {
	if normalize(email) == "" {
		return ErrEmptyEmail
	}
	if !source.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	return nil
}
