package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "posada_backoffice",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by handler.",
		},
		[]string{"handler"},
	)

	windowFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "posada_backoffice",
			Name:      "window_fetches_total",
			Help:      "Count of timeline window fetches by outcome.",
		},
		[]string{"outcome"},
	)

	staleResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "posada_backoffice",
			Name:      "stale_responses_dropped_total",
			Help:      "Count of superseded window fetch responses dropped.",
		},
	)

	conflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "posada_backoffice",
			Name:      "occupancy_conflicts_total",
			Help:      "Count of reservation attempts rejected by the overlap check.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "posada_backoffice",
			Name:      "reservation_transitions_total",
			Help:      "Count of reservation write operations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, windowFetches, staleResponses, conflicts, transitions)
	})
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

func IncWindowFetch(outcome string) {
	windowFetches.WithLabelValues(outcome).Inc()
}

func IncStaleResponse() {
	staleResponses.Inc()
}

func IncConflict() {
	conflicts.Inc()
}

func IncTransition(op, outcome string) {
	transitions.WithLabelValues(op, outcome).Inc()
}
