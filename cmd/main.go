package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/okian/tes/internal/adapters/http/api"
	"github.com/okian/tes/internal/adapters/http/site"
	"github.com/okian/tes/internal/adapters/http/swagger"
	"github.com/okian/tes/internal/adapters/ratelimit"
	"github.com/okian/tes/internal/adapters/repository"
	app "github.com/okian/tes/internal/app"
	"github.com/okian/tes/internal/config"
	"github.com/okian/tes/internal/domain/event"
	"github.com/okian/tes/pkg/logger"
	"github.com/okian/tes/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// run owns the process lifetime: it builds every component from cfg, serves
// until ctx ends and shuts down in reverse order.
func run(ctx context.Context, cfg *config.Config) error {
	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(format)); err != nil {
		return err
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	ev, err := loadEvent(cfg)
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return fmt.Errorf("open subscription store: %w", err)
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithEvent(ev),
		app.WithStore(store),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithDeliveryAttempts(cfg.DeliveryAttempts),
		app.WithDeliveryLatency(cfg.DeliveryLatency()),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg)
	if err != nil {
		_ = svc.Stop(context.Background())
		return err
	}
	defer closeLimiter()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(svc, cfg, limiter),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("public_url", cfg.PublicURL),
			logger.String("target", ev.StartsAt.Format(time.RFC3339)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = svc.Stop(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("service stop: %w", err))
	}
	log.Info(ctx, "server stopped")
	return errors.Join(errs...)
}

// loadEvent reads the optional event file and applies the target override.
func loadEvent(cfg *config.Config) (event.Event, error) {
	ev := event.Default()
	if cfg.EventFile != "" {
		loaded, err := event.LoadFile(cfg.EventFile)
		if err != nil {
			return event.Event{}, fmt.Errorf("load event file: %w", err)
		}
		ev = loaded
	}
	target, ok, err := cfg.Target()
	if err != nil {
		return event.Event{}, err
	}
	if ok {
		ev = ev.WithTarget(target)
	}
	return ev, nil
}

// newLimiter returns the redis limiter when redis_url is set and the
// in-process one otherwise.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(), error) {
	if cfg.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
		rl, err := ratelimit.NewRedis(client, cfg.RateLimit, cfg.RateWindow)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
		return rl, func() { _ = rl.Close() }, nil
	}

	mem, err := ratelimit.NewMemory(cfg.RateLimit, cfg.RateWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("rate limiter: %w", err)
	}
	go mem.Run(ctx)
	return mem, func() {}, nil
}

// newRouter mounts the API, docs and landing page behind chi's middleware.
func newRouter(svc *app.Service, cfg *config.Config, limiter ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()

	api.NewServer(svc, svc,
		api.WithPublicURL(cfg.PublicURL),
		api.WithLimiter(limiter),
	).Register(mux)
	swagger.Register(mux)
	site.Register(mux)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(api.AccessLog)
	r.Mount("/", mux)
	return r
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
