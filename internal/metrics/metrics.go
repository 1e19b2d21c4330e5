// Package metrics declares the Prometheus instruments the server records
// and serves them on a separate scrape listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "http"
	subsystem = "server"
)

// ServerStartedTotal counts requests as they enter the handler chain.
// Routing has not run at that point, so only the method is labelled.
var ServerStartedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "started_total",
		Help:      "Requests started on the server.",
	},
	[]string{"http_method"},
)

// ServerHandledTotal counts completed requests by route, method and status
// code, whatever the outcome.
var ServerHandledTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handled_total",
		Help:      "Requests completed on the server, regardless of status.",
	},
	[]string{"http_route", "http_method", "http_code"},
)

// ServerHandlingSeconds observes response latency per route and method.
var ServerHandlingSeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handling_seconds",
		Help:      "Response latency in seconds of requests handled by the server.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"http_route", "http_method"},
)

// AuthAttemptsTotal counts authentication attempts by mechanism and result.
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Authentication attempts by mechanism and result.",
	},
	[]string{"auth_type", "result"},
)
