// Package metrics exposes the mediator's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "didcomm_mediator"

// Registry is the private registry all mediator collectors attach to,
// so importing this package never pollutes the global default registry.
var Registry = prometheus.NewRegistry()

var (
	// MessagesDecrypted counts inbound envelope decryption attempts.
	MessagesDecrypted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "decrypt_total",
			Help:      "Total number of inbound envelope decryption attempts",
		},
		[]string{"status"}, // success, failure
	)

	// DispatchDuration tracks end-to-end dispatch latency.
	DispatchDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent decrypting and dispatching one inbound message",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// HandlerOutcomes counts each outcome a protocol handler produces.
	HandlerOutcomes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handler",
			Name:      "outcomes_total",
			Help:      "Total handler outcomes by protocol and outcome kind",
		},
		[]string{"protocol", "outcome"},
	)

	// StoreDepth reports the number of queued messages observed at insert
	// time for a given DID (as a histogram, since cardinality on the DID
	// label itself would be unbounded).
	StoreDepth = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "queue_depth",
			Help:      "Queue depth for a DID observed at message insertion",
			Buckets:   []float64{0, 1, 2, 5, 10, 50, 100},
		},
	)

	// ResolverLookups counts DID resolution attempts by method and result.
	ResolverLookups = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "lookups_total",
			Help:      "Total DID resolution attempts by method and result",
		},
		[]string{"method", "status"},
	)
)

// Handler returns the HTTP handler that exposes Registry in the
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
