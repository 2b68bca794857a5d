package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/tes/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"TES_CONFIG",
	"TES_ADDR",
	"TES_QUEUE_SIZE",
	"TES_WORKER_COUNT",
	"TES_EVENT_TARGET",
	"TES_STORE_DRIVER",
	"TES_STORE_DSN",
	"TES_RATE_WINDOW",
	"TES_LOG_FORMAT",
}

func clearConfigEnvVars(t *testing.T) {
	for _, k := range configEnvVars {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "tes.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNew(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("Then it is valid and has sensible values", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
			convey.So(cfg.RateWindow, convey.ShouldEqual, time.Minute)
			convey.So(cfg.DeliveryLatency(), convey.ShouldEqual, 250*time.Millisecond)

			_, ok, err := cfg.Target()
			convey.So(err, convey.ShouldBeNil)
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given no file and no environment", t, func() {
		clearConfigEnvVars(t)

		cfg, err := config.Load(ctx)

		convey.Convey("Then the defaults are returned", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		})
	})

	convey.Convey("Given environment overrides", t, func() {
		clearConfigEnvVars(t)
		t.Setenv("TES_ADDR", ":9999")
		t.Setenv("TES_QUEUE_SIZE", "12")
		t.Setenv("TES_RATE_WINDOW", "30s")
		t.Setenv("TES_EVENT_TARGET", "2026-02-21T09:00:00+05:30")

		cfg, err := config.Load(ctx)

		convey.Convey("Then they win over the defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9999")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 12)
			convey.So(cfg.RateWindow, convey.ShouldEqual, 30*time.Second)

			target, ok, err := cfg.Target()
			convey.So(err, convey.ShouldBeNil)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(target.UTC(), convey.ShouldEqual, time.Date(2026, 2, 21, 3, 30, 0, 0, time.UTC))
		})
	})

	convey.Convey("Given a YAML file and an env override", t, func() {
		clearConfigEnvVars(t)
		t.Setenv("TES_CONFIG", writeConfigFile(t, `
addr: ":7000"
worker_count: 9
store_driver: sqlite
store_dsn: /tmp/tes.db
`))
		t.Setenv("TES_WORKER_COUNT", "2")

		cfg, err := config.Load(ctx)

		convey.Convey("Then the file applies and env wins over it", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":7000")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Given a missing config file", t, func() {
		clearConfigEnvVars(t)
		t.Setenv("TES_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

		_, err := config.Load(ctx)

		convey.Convey("Then loading fails", func() {
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given invalid values", t, func() {
		cases := []struct {
			name, key, value string
		}{
			{"bad target", "TES_EVENT_TARGET", "tomorrow"},
			{"unknown driver", "TES_STORE_DRIVER", "mongo"},
			{"postgres without dsn", "TES_STORE_DRIVER", "postgres"},
			{"bad log format", "TES_LOG_FORMAT", "xml"},
			{"zero queue", "TES_QUEUE_SIZE", "0"},
		}

		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				clearConfigEnvVars(t)
				t.Setenv(tc.key, tc.value)

				_, err := config.Load(ctx)

				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
