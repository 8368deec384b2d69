// Package metrics provides Prometheus instrumentation for decentradns.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Domain store metrics
	domainOperationTotal *prometheus.CounterVec
	domainOperationTime  *prometheus.HistogramVec
	historyEntriesTotal  *prometheus.CounterVec

	// Collaborator metrics
	pinOperationTotal *prometheus.CounterVec
	resolverQueries   *prometheus.CounterVec
)

// Init initializes the metrics system.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	constLabels := prometheus.Labels{"service": svcName}

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"method", "path"},
	)

	// One series per store operation (register, transfer, delete, ...)
	domainOperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "domain_operation_total",
			Help:        "Total number of domain store operations",
			ConstLabels: constLabels,
		},
		[]string{"operation", "status"},
	)

	domainOperationTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "domain_operation_duration_seconds",
			Help:        "Domain store operation latency in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)

	historyEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "history_entries_total",
			Help:        "Total number of history entries appended",
			ConstLabels: constLabels,
		},
		[]string{"action"},
	)

	pinOperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "pin_operation_total",
			Help:        "Total number of content pinning operations",
			ConstLabels: constLabels,
		},
		[]string{"operation", "status"},
	)

	resolverQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "resolver_queries_total",
			Help:        "Total number of resolver lookups",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)

	// Go runtime metrics (goroutines, memory, GC) are collected by
	// prometheus/client_golang already
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
