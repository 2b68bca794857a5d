package smoketest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/tes/internal/adapters/http/api"
	service "github.com/okian/tes/internal/app"
	"github.com/okian/tes/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func newSite(ctx context.Context) (*httptest.Server, func()) {
	svc := service.New(service.WithDeliveryLatency(time.Millisecond), service.WithWorkerCount(4))
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(mux)
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		_ = svc.Stop(context.Background())
	}
}

func TestGenerateDrafts(t *testing.T) {
	Convey("Given a generator config", t, func() {
		cfg := &Config{Registrations: 30, InvalidEvery: 10, DuplicateEvery: 7}
		stats := &Stats{}
		drafts := generateDrafts(context.Background(), cfg, stats)

		Convey("Then the planted outcomes are where they should be", func() {
			So(stats.Generated, ShouldEqual, 30)
			counts := expected(drafts)
			So(counts[OutcomeInvalid], ShouldEqual, 3)
			// n=21 follows an invalid draft so it stays a fresh email
			So(counts[OutcomeDuplicate], ShouldEqual, 3)
			So(counts[OutcomeAccepted], ShouldEqual, 24)
			So(drafts[6].Email, ShouldEqual, drafts[5].Email)
			So(drafts[9].AgreeTerms, ShouldBeFalse)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a live site", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		srv, stop := newSite(ctx)
		defer stop()

		out := filepath.Join(t.TempDir(), "drafts.json")
		cfg := &Config{
			BaseURL:        srv.URL,
			Registrations:  40,
			InvalidEvery:   10,
			DuplicateEvery: 7,
			Workers:        4,
			Timeout:        5 * time.Second,
			DrainTimeout:   10 * time.Second,
			OutputFile:     out,
		}

		Convey("When the smoke test runs", func() {
			stats, err := Run(ctx, cfg)

			Convey("Then every outcome matches and all accepted drafts are delivered", func() {
				So(err, ShouldBeNil)
				So(stats.Submitted, ShouldEqual, 40)
				So(stats.Invalid, ShouldEqual, 4)
				So(stats.Duplicate, ShouldEqual, 4)
				So(stats.Accepted, ShouldEqual, 32)
				So(stats.Delivered, ShouldEqual, 32)
				So(stats.Subscriptions, ShouldEqual, 2)

				_, statErr := os.Stat(out)
				So(statErr, ShouldBeNil)
			})
		})
	})

	Convey("Given no site at the URL", t, func() {
		cfg := &Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second, Workers: 1}

		Convey("Then the health check fails", func() {
			_, err := Run(context.Background(), cfg)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestVerifyResults(t *testing.T) {
	Convey("Given drafts with a throttled original", t, func() {
		drafts := []Draft{{Expect: OutcomeAccepted}, {Expect: OutcomeDuplicate}}
		drafts[0].Email = "x@y.z"
		drafts[1].Email = "x@y.z"

		Convey("Then its duplicate may be accepted", func() {
			err := verifyResults(context.Background(), drafts,
				[]string{OutcomeThrottled, OutcomeAccepted}, &Stats{Throttled: 1})
			So(err, ShouldBeNil)
		})

		Convey("And a genuine mismatch is reported", func() {
			err := verifyResults(context.Background(), drafts,
				[]string{OutcomeAccepted, OutcomeAccepted}, &Stats{})
			So(err, ShouldNotBeNil)
		})
	})
}
