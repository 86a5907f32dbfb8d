package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "monitoria",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitoria",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "monitoria",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	projectTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitoria",
			Subsystem: "projects",
			Name:      "transitions_total",
			Help:      "Project status transitions committed.",
		},
		[]string{"to"},
	)

	selections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitoria",
			Subsystem: "selection",
			Name:      "rounds_total",
			Help:      "Selection rounds attempted, by mode and result.",
		},
		[]string{"mode", "result"},
	)

	signatures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitoria",
			Subsystem: "signing",
			Name:      "signatures_total",
			Help:      "Signatures recorded, by document kind.",
		},
		[]string{"kind"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitoria",
			Subsystem: "notifier",
			Name:      "deliveries_total",
			Help:      "Notification delivery attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	collaboratorRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monitoria",
			Subsystem: "collaborators",
			Name:      "retries_total",
			Help:      "Retries issued against external collaborators.",
		},
		[]string{"collaborator"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		projectTransitions,
		selections,
		signatures,
		notifications,
		collaboratorRetries,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted tracks an in-flight request and returns its completion hook.
func RequestStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// ObserveRequest records a completed HTTP request.
func ObserveRequest(method, path, status string, seconds float64) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordTransition counts a committed project status change.
func RecordTransition(to string) {
	projectTransitions.WithLabelValues(to).Inc()
}

// RecordSelection counts a selection attempt.
func RecordSelection(mode, result string) {
	selections.WithLabelValues(mode, result).Inc()
}

// RecordSignature counts a stored signature.
func RecordSignature(kind string) {
	signatures.WithLabelValues(kind).Inc()
}

// RecordNotification counts a delivery outcome (sent, failed, skipped).
func RecordNotification(outcome string) {
	notifications.WithLabelValues(outcome).Inc()
}

// RecordRetry counts a retry against a collaborator.
func RecordRetry(collaborator string) {
	collaboratorRetries.WithLabelValues(collaborator).Inc()
}
