// Package metrics holds the prometheus collectors of the resolver and the service
// locator. They are registered with the controller-runtime registry, which the
// manager's metrics endpoint serves.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// Lookup outcomes.
const (
	OutcomeFound       = "found"
	OutcomeAmbiguous   = "ambiguous"
	OutcomeUnsatisfied = "unsatisfied"
)

var (
	ResolutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kiln_resolver_duration_seconds",
			Help:    "Time taken by resolver operations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	ResolutionErrorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_resolver_error_total",
			Help: "Number of failed resolver operations.",
		},
		[]string{"op"},
	)
	RepositoryCallTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_resolver_repository_call_total",
			Help: "Number of artifact repository calls made by the resolver.",
		},
		[]string{"call"},
	)

	ServiceLookupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_services_lookup_total",
			Help: "Number of single-service lookups by outcome.",
		},
		[]string{"outcome"},
	)
	ServiceSnapshotTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kiln_services_snapshot_total",
			Help: "Number of registry snapshots taken by service locators.",
		},
	)
	ServiceHandlesOutstanding = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kiln_services_handles_outstanding",
			Help: "Number of handed-out service instances not yet released.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		ResolutionDuration,
		ResolutionErrorTotal,
		RepositoryCallTotal,
		ServiceLookupTotal,
		ServiceSnapshotTotal,
		ServiceHandlesOutstanding,
	)
}
