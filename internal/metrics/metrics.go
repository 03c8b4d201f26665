// Package metrics provides Prometheus metrics for the lookup server:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - npi_lookups_total: Counter of batch rows by status
//   - npi_registry_request_duration_seconds: Histogram of registry round trips
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	LookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "npi_lookups_total",
			Help: "NPI lookups by resulting row status",
		},
		[]string{"status"},
	)

	RegistryRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "npi_registry_request_duration_seconds",
			Help:    "NPI registry request latency",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(LookupsTotal)
	prometheus.MustRegister(RegistryRequestDuration)
}
