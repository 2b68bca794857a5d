package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(registry),
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10}),
			WithConstLabels(map[string]string{"edition": "4.0"}),
		)
		m.submissions.WithLabelValues("accepted").Inc()

		Convey("Then collectors are registered with the configured names", func() {
			families, err := registry.Gather()
			So(err, ShouldBeNil)

			var found bool
			for _, mf := range families {
				if mf.GetName() == "test_unit_registration_submissions_total" {
					found = true
					So(mf.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "4.0")
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("And registering a second manager on the same registry panics", func() {
			So(func() { NewManager(WithPrometheusRegistry(registry), WithNamespace("test"), WithSubsystem("unit")) }, ShouldPanic)
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When a valid and an invalid draft are validated", func() {
			valid := testutil.ToFloat64(globalManager.validations.WithLabelValues("valid"))
			phone := testutil.ToFloat64(globalManager.validationFailures.WithLabelValues("phone"))

			RecordValidation(nil)
			RecordValidation([]string{"phone", "email"})

			Convey("Then both results and the failing fields are counted", func() {
				So(testutil.ToFloat64(globalManager.validations.WithLabelValues("valid")), ShouldEqual, valid+1)
				So(testutil.ToFloat64(globalManager.validationFailures.WithLabelValues("phone")), ShouldEqual, phone+1)
			})
		})

		Convey("When countdown streams open and close", func() {
			before := testutil.ToFloat64(globalManager.countdownStreams)
			CountdownStreamOpened()
			CountdownStreamOpened()
			CountdownStreamClosed()

			Convey("Then the gauge tracks the open ones", func() {
				So(testutil.ToFloat64(globalManager.countdownStreams), ShouldEqual, before+1)
				CountdownStreamClosed()
			})
		})

		Convey("When the queue gauges are updated", func() {
			UpdateQueueCapacity(10)
			UpdateQueueSize(5, 10)

			Convey("Then utilization is size over capacity", func() {
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.5)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
			})
		})

		Convey("When the remaining recorders are called", func() {
			So(func() {
				RecordSubmission("accepted")
				RecordDelivery(true, 3)
				RecordDelivery(false, 7)
				RecordCountdownTick()
				RecordSubscription("newsletter", "created")
				RecordStoreLatency("memory", "add", 0.1)
				RecordRateLimited("registrations")
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError("full")
				UpdateWorkerActiveCount(4)
				RecordWorkerProcessingLatency(12)
				RecordWorkerError()
				RecordHTTPRequest("healthz", "GET", "200", 1)
				RecordErrorByComponent("store", "timeout")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given the metrics handler", t, func() {
		RecordSubmission("duplicate")
		rec := httptest.NewRecorder()
		Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		Convey("Then it exposes the service collectors", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := rec.Body.String()
			So(body, ShouldContainSubstring, `tes_site_registration_submissions_total{outcome="duplicate"}`)
			So(strings.Contains(body, "go_goroutines"), ShouldBeFalse)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
