package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS subscriptions (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL,
	source     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (email, source)
)`

const (
	pgMaxConns        = 10
	pgMinConns        = 1
	pgMaxConnLifetime = 30 * time.Minute
	pgMaxConnIdleTime = 5 * time.Minute
	pgConnectAttempts = 5
	pgRetryDelay      = 2 * time.Second
)

// PostgresStore keeps subscriptions in postgres through a pgx pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects to dsn, retrying while the database starts,
// and creates the table.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = pgMaxConns
	cfg.MinConns = pgMinConns
	cfg.MaxConnLifetime = pgMaxConnLifetime
	cfg.MaxConnIdleTime = pgMaxConnIdleTime

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= pgConnectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
		}
		if attempt == pgConnectAttempts {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to postgres: %w", ctx.Err())
		case <-time.After(pgRetryDelay):
		}
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create subscriptions table: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

func (s *PostgresStore) Add(ctx context.Context, email string, source Source) (Subscription, bool, error) {
	if err := checkInput(email, source); err != nil {
		return Subscription{}, false, err
	}
	sub := Subscription{
		ID:     uuid.NewString(),
		Email:  normalize(email),
		Source: source,
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO subscriptions (id, email, source)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email, source) DO NOTHING
		 RETURNING created_at`,
		sub.ID, sub.Email, string(sub.Source),
	).Scan(&sub.CreatedAt)
	switch {
	case err == nil:
		return sub, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		existing, err := s.Get(ctx, email, source)
		if err != nil {
			return Subscription{}, false, err
		}
		return existing, false, nil
	default:
		return Subscription{}, false, fmt.Errorf("insert subscription: %w", err)
	}
}

func (s *PostgresStore) Get(ctx context.Context, email string, source Source) (Subscription, error) {
	var (
		sub Subscription
		src string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, email, source, created_at FROM subscriptions WHERE email = $1 AND source = $2`,
		normalize(email), string(source),
	).Scan(&sub.ID, &sub.Email, &src, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, fmt.Errorf("select subscription: %w", err)
	}
	sub.Source = Source(src)
	return sub, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// Truncate removes every subscription. Used by tests sharing one database.
func (s *PostgresStore) Truncate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `TRUNCATE subscriptions`); err != nil {
		return fmt.Errorf("truncate subscriptions: %w", err)
	}
	return nil
}
