// Package api declares the HTTP routes of the event site.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/okian/tes/internal/adapters/ratelimit"
	"github.com/okian/tes/internal/adapters/repository"
	"github.com/okian/tes/internal/delivery"
	"github.com/okian/tes/internal/domain/event"
	"github.com/okian/tes/internal/domain/registration"
	"github.com/okian/tes/pkg/logger"
)

const maxBodyBytes = 64 << 10

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Event returns the catalogue; StartsAt is the countdown target.
	Event() event.Event

	// SubmitRegistration hands a valid draft on for delivery. duplicate is
	// true when the email was already accepted. Queue refusals wrap
	// queue.ErrFull or queue.ErrClosed.
	SubmitRegistration(ctx context.Context, d registration.Draft) (sub delivery.Submission, duplicate bool, err error)

	// Subscribe stores an early-access or newsletter address.
	Subscribe(ctx context.Context, email string, source repository.Source) (sub repository.Subscription, created bool, err error)
}

// StatsProvider exposes service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the site API.
type Server struct {
	health        *HealthHandler
	stats         *StatsHandler
	event         *EventHandler
	countdown     *CountdownHandler
	registrations *RegistrationsHandler
	subscriptions *SubscriptionsHandler
	qr            *QRHandler
	limiter       ratelimit.Limiter
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	now            func() time.Time
	streamInterval time.Duration
	publicURL      string
	limiter        ratelimit.Limiter
}

// WithClock replaces the wall clock used by countdown routes.
func WithClock(now func() time.Time) Option {
	return func(c *serverConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithStreamInterval sets the countdown stream refresh interval.
func WithStreamInterval(d time.Duration) Option {
	return func(c *serverConfig) {
		if d > 0 {
			c.streamInterval = d
		}
	}
}

// WithPublicURL sets the base URL encoded into the registration QR code.
func WithPublicURL(u string) Option {
	return func(c *serverConfig) {
		if u != "" {
			c.publicURL = u
		}
	}
}

// WithLimiter throttles the POST routes per client.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *serverConfig) {
		c.limiter = l
	}
}

// NewServer creates the API server with all handlers.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{
		now:            time.Now,
		streamInterval: time.Second,
		publicURL:      "http://localhost:8080",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Server{
		health:        NewHealthHandler(),
		stats:         NewStatsHandler(stats),
		event:         NewEventHandler(deps),
		countdown:     NewCountdownHandler(deps, cfg.now, cfg.streamInterval),
		registrations: NewRegistrationsHandler(deps),
		subscriptions: NewSubscriptionsHandler(deps),
		qr:            NewQRHandler(cfg.publicURL),
		limiter:       cfg.limiter,
	}
}

// Register attaches all API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.health.HandleMetrics)
	mux.HandleFunc("GET /api/stats", MetricsMiddleware(s.stats.HandleStats, "stats"))
	mux.HandleFunc("GET /api/event", MetricsMiddleware(s.event.HandleGetEvent, "event"))
	mux.HandleFunc("GET /api/countdown", MetricsMiddleware(s.countdown.HandleGetCountdown, "countdown"))
	mux.HandleFunc("GET /api/countdown/stream", MetricsMiddleware(s.countdown.HandleStream, "countdown_stream"))
	mux.HandleFunc("GET /api/register/qr.png", MetricsMiddleware(s.qr.HandleQR, "register_qr"))

	mux.HandleFunc("POST /api/registrations/validate", MetricsMiddleware(
		RateLimitMiddleware(s.limiter, s.registrations.HandleValidate, "registrations_validate"), "registrations_validate"))
	mux.HandleFunc("POST /api/registrations", MetricsMiddleware(
		RateLimitMiddleware(s.limiter, s.registrations.HandleSubmit, "registrations"), "registrations"))
	mux.HandleFunc("POST /api/subscriptions", MetricsMiddleware(
		RateLimitMiddleware(s.limiter, s.subscriptions.HandleSubscribe, "subscriptions"), "subscriptions"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded JSON body into v. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty body")
		}
		return err
	}
	return nil
}

// logInternal records the cause behind a 5xx.
func logInternal(ctx context.Context, op string, err error) {
	logger.Named("api").Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
}
