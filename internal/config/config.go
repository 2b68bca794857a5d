// Package config defines service configuration and how it is loaded.
//
// Conventions:
// - New returns a Config holding every default.
// - Load layers a YAML file and TES_ environment variables on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/tes/internal/adapters/repository"
	"github.com/okian/tes/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// PublicURL is where visitors reach the site; the QR code points here.
	PublicURL string `koanf:"public_url"`

	// EventTarget overrides the countdown target (RFC3339). Empty keeps the
	// catalogue value.
	EventTarget string `koanf:"event_target"`

	// EventFile is an optional HCL file with event content.
	EventFile string `koanf:"event_file"`

	// QueueSize bounds the submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of delivery workers.
	WorkerCount int `koanf:"worker_count"`

	// DeliveryAttempts is how many times a submission is tried.
	DeliveryAttempts int `koanf:"delivery_attempts"`

	// DeliveryLatencyMS simulates the registration backend round trip.
	DeliveryLatencyMS int `koanf:"delivery_latency_ms"`

	// DedupeSize sets how many registrant emails are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver selects the subscription store: memory, sqlite, postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the sqlite path or postgres connection string.
	StoreDSN string `koanf:"store_dsn"`

	// RedisURL switches rate limiting to redis when set.
	RedisURL string `koanf:"redis_url"`

	// RateLimit requests per RateWindow per client on write endpoints.
	RateLimit  int           `koanf:"rate_limit"`
	RateWindow time.Duration `koanf:"rate_window"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":8080",
		PublicURL:         "http://localhost:8080",
		QueueSize:         1024,
		WorkerCount:       4,
		DeliveryAttempts:  3,
		DeliveryLatencyMS: 250,
		DedupeSize:        50_000,
		StoreDriver:       repository.DriverMemory,
		RateLimit:         10,
		RateWindow:        time.Minute,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Target parses EventTarget. ok is false when it is empty.
func (c *Config) Target() (t time.Time, ok bool, err error) {
	if strings.TrimSpace(c.EventTarget) == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RFC3339, c.EventTarget)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: event_target %q is not RFC3339", ErrInvalidConfig, c.EventTarget)
	}
	return t, true, nil
}

// DeliveryLatency returns DeliveryLatencyMS as a duration.
func (c *Config) DeliveryLatency() time.Duration {
	return time.Duration(c.DeliveryLatencyMS) * time.Millisecond
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, _, err := c.Target(); err != nil {
		return err
	}
	if _, err := logger.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.StoreDriver {
	case repository.DriverMemory, repository.DriverSQLite:
	case repository.DriverPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("%w: store_dsn is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		return fmt.Errorf("%w: rate_limit and rate_window must be positive", ErrInvalidConfig)
	}
	return nil
}
