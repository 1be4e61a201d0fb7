package controllers

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	kilnControllerReconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_controller_reconcile_total",
			Help: "Number of reconciliations by controller.",
		},
		[]string{"controller"},
	)
	kilnControllerReconcileErrorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kiln_controller_reconcile_error_total",
			Help: "Number of reconciliation errors by controller.",
		},
		[]string{"controller"},
	)

	addonInstallationResolvedAddons = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kiln_addoninstallation_resolved_addons",
			Help: "Number of addons in the last resolved graph of an AddonInstallation.",
		},
		[]string{"namespace", "name"},
	)
	addonInstallationResolutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kiln_addoninstallation_resolution_duration_seconds",
			Help:    "Time taken to resolve an AddonInstallation.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		kilnControllerReconcileTotal,
		kilnControllerReconcileErrorTotal,
		addonInstallationResolvedAddons,
		addonInstallationResolutionDuration,
	)
}
