package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS subscriptions (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL,
	source     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (email, source)
);`

// SQLiteStore keeps subscriptions in a single sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens path (":memory:" works) and creates the table.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "tes.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: sqlite serializes writers and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create subscriptions table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Add(ctx context.Context, email string, source Source) (Subscription, bool, error) {
	if err := checkInput(email, source); err != nil {
		return Subscription{}, false, err
	}
	sub := Subscription{
		ID:        uuid.NewString(),
		Email:     normalize(email),
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, email, source, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (email, source) DO NOTHING`,
		sub.ID, sub.Email, string(sub.Source), sub.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Subscription{}, false, fmt.Errorf("insert subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Subscription{}, false, fmt.Errorf("insert subscription: %w", err)
	}
	if n == 1 {
		return sub, true, nil
	}

	existing, err := s.Get(ctx, email, source)
	if err != nil {
		return Subscription{}, false, err
	}
	return existing, false, nil
}

func (s *SQLiteStore) Get(ctx context.Context, email string, source Source) (Subscription, error) {
	var (
		sub     Subscription
		src     string
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, source, created_at FROM subscriptions WHERE email = ? AND source = ?`,
		normalize(email), string(source),
	).Scan(&sub.ID, &sub.Email, &src, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, fmt.Errorf("select subscription: %w", err)
	}
	sub.Source = Source(src)
	if sub.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Subscription{}, fmt.Errorf("parse created_at: %w", err)
	}
	return sub, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
