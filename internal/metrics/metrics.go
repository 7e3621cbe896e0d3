// Package metrics holds the Prometheus collectors for the gateway and the
// transport layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "zpu",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight gateway requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zpu",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of gateway requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zpu",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of gateway requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "route"},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zpu",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Calls made to the zpu API by status; status 0 is a transport failure.",
		},
		[]string{"method", "status"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zpu",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of calls to the zpu API.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"method"},
	)

	strategyAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zpu",
			Subsystem: "transport",
			Name:      "strategy_attempts_total",
			Help:      "Transport strategy outcomes per operation.",
		},
		[]string{"op", "strategy", "outcome"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zpu",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the OTP rate limiter.",
		},
		[]string{"route"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpInFlight,
		httpRequests,
		httpDuration,
		upstreamRequests,
		upstreamDuration,
		strategyAttempts,
		rateLimited,
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func IncInFlight() { httpInFlight.Inc() }
func DecInFlight() { httpInFlight.Dec() }

// ObserveHTTP records one gateway request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveUpstream records one call to the zpu API.
func ObserveUpstream(method string, status int, d time.Duration) {
	upstreamRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	upstreamDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveStrategy records whether a transport strategy answered.
func ObserveStrategy(op, strategy string, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "ok"
	}
	strategyAttempts.WithLabelValues(op, strategy, outcome).Inc()
}

func IncRateLimited(route string) { rateLimited.WithLabelValues(route).Inc() }
