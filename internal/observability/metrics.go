// Package observability holds the Prometheus collectors shared by the HTTP
// middleware and the post stores. They register on the default registry,
// which promhttp.Handler serves at /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts finished requests by route pattern, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fileblog_http_requests_total",
		Help: "Total number of HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	// HTTPRequestDuration records request latency by route pattern and method.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fileblog_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// StoreOperationDuration records post store latency by backend and operation.
	StoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fileblog_store_operation_duration_seconds",
		Help:    "Post store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// StoreLockWait records how long mutations waited for the store lock.
	StoreLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fileblog_store_lock_wait_seconds",
		Help:    "Time spent waiting for the exclusive post store lock",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	})

	// StoreLockTimeouts counts mutations that gave up waiting for the lock.
	StoreLockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fileblog_store_lock_timeouts_total",
		Help: "Total number of post store mutations rejected because the lock was busy",
	})

	// StoreErrors counts failed store operations by backend and operation.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fileblog_store_errors_total",
		Help: "Total number of failed post store operations",
	}, []string{"backend", "operation"})
)

// TrackStore returns a function that records the latency of a store
// operation when called (e.g. defer).
func TrackStore(backend, operation string) func() {
	start := time.Now()
	return func() {
		StoreOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	}
}
