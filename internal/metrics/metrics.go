// Package metrics exposes the daemon's Prometheus metrics: one
// promauto-registered CounterVec per failure kind, labeled by environment
// and cause, plus a setup-duration histogram and an HTTP request counter,
// so a single /metrics endpoint covers every environment's reconciliation
// loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CollectorFailuresTotal counts collector module runs that returned an
	// error, by environment and module type.
	CollectorFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_failures_total",
			Help: "Total collector module runs that failed, by environment and module type.",
		},
		[]string{"environment", "module"},
	)

	// BuilderFailuresTotal counts plan-executor action dispatches whose
	// builder callable returned an error, by environment and action.
	BuilderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "builder_failures_total",
			Help: "Total builder action dispatches that failed, by environment and action.",
		},
		[]string{"environment", "action"},
	)

	// QueueDropsTotal counts environment-scan requests dropped because the
	// bounded scheduler queue was full.
	QueueDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_drops_total",
			Help: "Total scan requests dropped due to a full scheduler queue, by environment.",
		},
		[]string{"environment"},
	)

	// PlannerFailuresTotal counts planner subprocess invocations that
	// returned an error or produced no plan file.
	PlannerFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_failures_total",
			Help: "Total planner invocations that failed or produced no plan, by environment.",
		},
		[]string{"environment"},
	)

	// SetupDuration observes how long a full applyConfiguration run takes,
	// from diff through the last executed plan step.
	SetupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "setup_duration_seconds",
			Help:    "Duration of a full setup run (diff, plan, execute), by environment.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"environment"},
	)

	// RequestsTotal counts command server HTTP requests, by route and
	// status class.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total command server HTTP requests, by route and status.",
		},
		[]string{"route", "status"},
	)
)
