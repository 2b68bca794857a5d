package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	app "github.com/okian/tes/internal/app"
	"github.com/okian/tes/internal/config"
	"github.com/okian/tes/internal/domain/event"
	"github.com/smartystreets/goconvey/convey"
)

func TestLoadEvent(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New()

		convey.Convey("Then the built-in catalogue is used", func() {
			ev, err := loadEvent(cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(ev.StartsAt, convey.ShouldEqual, event.DefaultStart)
		})

		convey.Convey("When a target override is set", func() {
			cfg.EventTarget = "2027-01-02T03:04:05Z"
			ev, err := loadEvent(cfg)

			convey.Convey("Then it replaces the catalogue start", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ev.StartsAt.Equal(time.Date(2027, 1, 2, 3, 4, 5, 0, time.UTC)), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the event file is missing", func() {
			cfg.EventFile = filepath.Join(t.TempDir(), "missing.hcl")
			_, err := loadEvent(cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When an event file is given", func() {
			path := filepath.Join(t.TempDir(), "event.hcl")
			convey.So(os.WriteFile(path, []byte(`name = "TES 5.0"`+"\n"), 0o600), convey.ShouldBeNil)
			cfg.EventFile = path
			ev, err := loadEvent(cfg)

			convey.Convey("Then its values are merged over the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ev.Name, convey.ShouldEqual, "TES 5.0")
				convey.So(ev.Sessions, convey.ShouldNotBeEmpty)
			})
		})
	})
}

func TestNewLimiter(t *testing.T) {
	convey.Convey("Given a configuration without redis", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		cfg := config.New()

		convey.Convey("Then the in-process limiter is built", func() {
			lim, closeFn, err := newLimiter(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(lim, convey.ShouldNotBeNil)
			closeFn()
		})

		convey.Convey("When the redis URL is malformed", func() {
			cfg.RedisURL = "not-a-url"
			_, _, err := newLimiter(ctx, cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestRouter(t *testing.T) {
	convey.Convey("Given the full router over a started service", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := config.New()
		cfg.RateLimit = 2
		svc := app.New(app.WithDeliveryLatency(0))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		lim, closeFn, err := newLimiter(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer closeFn()

		srv := httptest.NewServer(newRouter(svc, cfg, lim))
		defer srv.Close()

		convey.Convey("Then the landing page, docs and API are reachable", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/healthz", "/api/event", "/api/countdown", "/metrics"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("And stats come from the running service", func() {
			resp, err := http.Get(srv.URL + "/api/stats")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			var stats map[string]any
			convey.So(json.NewDecoder(resp.Body).Decode(&stats), convey.ShouldBeNil)
			convey.So(stats["started"], convey.ShouldEqual, true)
		})

		convey.Convey("And write routes are rate limited per client", func() {
			codes := make([]int, 0, 3)
			for i := 0; i < 3; i++ {
				resp, err := http.Post(srv.URL+"/api/subscriptions", "application/json",
					strings.NewReader(`{"email":"fan@example.com"}`))
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				codes = append(codes, resp.StatusCode)
			}
			convey.So(codes, convey.ShouldResemble, []int{http.StatusCreated, http.StatusOK, http.StatusTooManyRequests})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a configuration on a free port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.ShutdownTimeout = 2 * time.Second

		convey.Convey("When the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(run(ctx, cfg), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"
			convey.So(run(context.Background(), cfg), convey.ShouldNotBeNil)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
	})
}
