// Package metrics provides Prometheus metrics for the publisher and the
// gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "blgate"

	subsystemGateway   = "gateway"
	subsystemPublisher = "publisher"
)

var (
	// DurationBuckets for request durations. Streams can run long.
	DurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

	// RequestsTotal counts gateway requests.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemGateway,
			Name:      "requests_total",
			Help:      "Total number of gateway requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// RequestDuration measures gateway request latency.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemGateway,
			Name:      "request_duration_seconds",
			Help:      "Request latency in seconds",
			Buckets:   DurationBuckets,
		},
		[]string{"method", "path"},
	)

	// StreamFragments counts text fragments relayed to clients.
	StreamFragments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemGateway,
			Name:      "stream_fragments_total",
			Help:      "Total number of streamed text fragments",
		},
	)

	// StreamErrors counts agent runs that ended in error.
	StreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemGateway,
			Name:      "stream_errors_total",
			Help:      "Total number of failed agent runs",
		},
		[]string{"phase"},
	)

	// StartupAttempts counts gateway initialization attempts.
	StartupAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemGateway,
			Name:      "startup_attempts_total",
			Help:      "Total number of gateway initialization attempts",
		},
		[]string{"result"},
	)

	// PublishesTotal counts manifest publishes.
	PublishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemPublisher,
			Name:      "publishes_total",
			Help:      "Total number of manifest publishes",
		},
		[]string{"type", "result"},
	)

	// PublishDuration measures publish latency.
	PublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemPublisher,
			Name:      "publish_duration_seconds",
			Help:      "Publish latency in seconds",
			Buckets:   DurationBuckets,
		},
		[]string{"type"},
	)

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamFragments,
		StreamErrors,
		StartupAttempts,
		PublishesTotal,
		PublishDuration,
	)

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler returns an HTTP handler for metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordRequest records a finished gateway request.
func RecordRequest(method, path string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordFragment records one streamed fragment.
func RecordFragment() {
	StreamFragments.Inc()
}

// RecordStreamError records a failed agent run. started tells whether any
// output had reached the client.
func RecordStreamError(started bool) {
	phase := "before_stream"
	if started {
		phase = "mid_stream"
	}
	StreamErrors.WithLabelValues(phase).Inc()
}

// RecordStartupAttempt records one initialization attempt.
func RecordStartupAttempt(err error) {
	StartupAttempts.WithLabelValues(result(err)).Inc()
}

// ObservePublish records a publish outcome.
func ObservePublish(kind string, err error, duration time.Duration) {
	PublishesTotal.WithLabelValues(kind, result(err)).Inc()
	PublishDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
