// Package metrics exposes Prometheus instrumentation for the bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FactsAdded counts base facts accepted into sessions.
	FactsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "factbridge",
		Name:      "facts_added_total",
		Help:      "Base facts accepted into sessions.",
	}, []string{"program", "relation"})

	// Runs counts engine evaluations by outcome.
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "factbridge",
		Name:      "runs_total",
		Help:      "Engine evaluations, by program, mode and outcome.",
	}, []string{"program", "mode", "status"})

	// RunDuration observes evaluation wall time.
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "factbridge",
		Name:      "run_duration_seconds",
		Help:      "Engine evaluation wall time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"program", "mode"})

	// ActiveSessions tracks sessions between init and shutdown.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "factbridge",
		Name:      "active_sessions",
		Help:      "Sessions currently initialized and not shut down.",
	})
)
