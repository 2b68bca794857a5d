// Package metrics provides Prometheus metrics for the TES event site.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Registration form
	validations        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	submissions        *prometheus.CounterVec
	deliveries         *prometheus.CounterVec
	deliveryLatency    prometheus.Histogram

	// Countdown
	countdownStreams prometheus.Gauge
	countdownTicks   prometheus.Counter

	// Subscriptions and abuse control
	subscriptions *prometheus.CounterVec
	storeLatency  *prometheus.HistogramVec
	rateLimited   *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerActive            prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton manager

// customRegistry keeps the default Go collectors out of /metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tes",
		subsystem:        "site",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.validations = auto.NewCounterVec(
		m.counterOpts("registration_validations_total", "Registration drafts validated, by result"),
		[]string{"result"},
	)
	m.validationFailures = auto.NewCounterVec(
		m.counterOpts("registration_field_failures_total", "Failing registration fields"),
		[]string{"field"},
	)
	m.submissions = auto.NewCounterVec(
		m.counterOpts("registration_submissions_total", "Registration submissions, by outcome"),
		[]string{"outcome"},
	)
	m.deliveries = auto.NewCounterVec(
		m.counterOpts("registration_deliveries_total", "Submissions handed to the transport, by result"),
		[]string{"result"},
	)
	m.deliveryLatency = auto.NewHistogram(
		m.histogramOpts("registration_delivery_latency_milliseconds", "Transport delivery latency"),
	)

	m.countdownStreams = auto.NewGauge(
		m.gaugeOpts("countdown_streams", "Open countdown streams"),
	)
	m.countdownTicks = auto.NewCounter(
		m.counterOpts("countdown_ticks_total", "Countdown ticks sent to clients"),
	)

	m.subscriptions = auto.NewCounterVec(
		m.counterOpts("subscriptions_total", "Subscription requests, by source and outcome"),
		[]string{"source", "outcome"},
	)
	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Subscription store latency"),
		[]string{"driver", "op"},
	)
	m.rateLimited = auto.NewCounterVec(
		m.counterOpts("rate_limited_total", "Requests refused by the rate limiter"),
		[]string{"endpoint"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Submissions waiting for a worker"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Submissions enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Submissions dequeued"))
	m.queueEnqueueErrors = auto.NewCounterVec(
		m.counterOpts("queue_enqueue_errors_total", "Enqueue refusals, by reason"),
		[]string{"reason"},
	)

	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active", "Running delivery workers"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Time a worker spends on one submission"),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Failed deliveries"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds", "Last GC pause"))
}

// RecordValidation counts one validation and each failing field.
func RecordValidation(failedFields []string) {
	if len(failedFields) == 0 {
		globalManager.validations.WithLabelValues("valid").Inc()
		return
	}
	globalManager.validations.WithLabelValues("invalid").Inc()
	for _, f := range failedFields {
		globalManager.validationFailures.WithLabelValues(f).Inc()
	}
}

// RecordSubmission counts a submission outcome: accepted, duplicate,
// invalid or backpressure.
func RecordSubmission(outcome string) {
	globalManager.submissions.WithLabelValues(outcome).Inc()
}

// RecordDelivery counts a transport result and its latency.
func RecordDelivery(ok bool, latencyMs float64) {
	result := "delivered"
	if !ok {
		result = "failed"
	}
	globalManager.deliveries.WithLabelValues(result).Inc()
	globalManager.deliveryLatency.Observe(latencyMs)
}

// CountdownStreamOpened and CountdownStreamClosed track open SSE streams.
func CountdownStreamOpened() { globalManager.countdownStreams.Inc() }
func CountdownStreamClosed() { globalManager.countdownStreams.Dec() }

// RecordCountdownTick counts one tick written to a client.
func RecordCountdownTick() { globalManager.countdownTicks.Inc() }

// RecordSubscription counts a subscription request.
func RecordSubscription(source, outcome string) {
	globalManager.subscriptions.WithLabelValues(source, outcome).Inc()
}

// RecordStoreLatency observes one subscription store call.
func RecordStoreLatency(driver, op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(driver, op).Observe(latencyMs)
}

// RecordRateLimited counts a refused request.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// UpdateQueueSize sets the queue gauges.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a refusal: closed, full or cancelled.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

func UpdateWorkerActiveCount(count int) { globalManager.workerActive.Set(float64(count)) }

func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest counts a request and observes its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent counts an error raised by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry behind /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
