// Package telemetry exposes Prometheus metrics for the workflow engine and
// the lifecycle hooks that feed them.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/pledge/pkg/domain"
)

var (
	Registry = prometheus.NewRegistry()

	ProposalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pledge",
			Name:      "proposals_total",
			Help:      "Proposals created, labeled by kind.",
		},
		[]string{"kind"},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pledge",
			Name:      "resolutions_total",
			Help:      "Terminal resolutions, labeled by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	PendingAge = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pledge",
			Name:      "pending_age_seconds",
			Help:      "Time a proposal spent pending before resolution.",
			// Covers 1s .. ~4.5h; proposals usually live minutes.
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"kind"},
	)

	SweepExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pledge",
			Name:      "sweep_expired_total",
			Help:      "Proposals force-expired by the sweep.",
		},
	)

	SweepPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pledge",
			Name:      "sweep_pruned_total",
			Help:      "Terminal proposals pruned past retention.",
		},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "pledge",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(ProposalsTotal, ResolutionsTotal, PendingAge, SweepExpired, SweepPruned, uptime)
}

// MetricsHandler exposes /metrics. Mount it with mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record engine activity.
// Compose with logging hooks in the host if both are wanted.
func Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnProposed: func(_ context.Context, e *domain.ProposalEvent) {
			ProposalsTotal.WithLabelValues(string(e.Proposal.Kind)).Inc()
		},
		OnResolved: func(_ context.Context, e *domain.ProposalEvent) {
			ResolutionsTotal.WithLabelValues(string(e.Proposal.Kind), string(e.Code)).Inc()
			if !e.Proposal.ResolvedAt.IsZero() {
				age := e.Proposal.ResolvedAt.Sub(e.Proposal.CreatedAt).Seconds()
				PendingAge.WithLabelValues(string(e.Proposal.Kind)).Observe(age)
			}
		},
		OnSweep: func(_ context.Context, e *domain.SweepEvent) {
			SweepExpired.Add(float64(e.Expired))
			SweepPruned.Add(float64(e.Pruned))
		},
	}
}
