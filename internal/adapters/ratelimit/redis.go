package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tes:rl:"

// Redis is a fixed-window limiter shared by every instance pointing at the
// same redis.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedis allows limit requests per key per window.
func NewRedis(client *redis.Client, limit int, window time.Duration) (*Redis, error) {
	if limit <= 0 || window <= 0 {
		return nil, ErrInvalidLimit
	}
	return &Redis{client: client, limit: limit, window: window, now: time.Now}, nil
}

func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	now := r.now()
	start := now.Truncate(r.window)
	resetAt := start.Add(r.window)
	k := redisKeyPrefix + key + ":" + strconv.FormatInt(start.UnixMilli(), 10)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.PExpireAt(ctx, k, resetAt.Add(time.Second))
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit incr: %w", err)
	}

	n := int(incr.Val())
	if n > r.limit {
		return Result{Allowed: false, Limit: r.limit, ResetAt: resetAt}, nil
	}
	return Result{
		Allowed:   true,
		Limit:     r.limit,
		Remaining: r.limit - n,
		ResetAt:   resetAt,
	}, nil
}

// Health pings redis.
func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
