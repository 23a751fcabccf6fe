package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cascadesTotal counts cascades by command and outcome
	// (ok, partial, rejected, error).
	cascadesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkcast_cascades_total",
		Help: "Total cascades by command and outcome",
	}, []string{"command", "outcome"})

	// cascadeChildrenTotal counts per-child results inside cascades.
	cascadeChildrenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkcast_cascade_children_total",
		Help: "Total children visited by cascades, by command and result",
	}, []string{"command", "result"})

	// cascadeDuration tracks cascade latency.
	cascadeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linkcast_cascade_duration_seconds",
		Help:    "Cascade duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	}, []string{"command"})

	// resolutionsTotal counts resolver answers by source
	// (same_node, cache, link, hook, duplicated, error).
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkcast_resolutions_total",
		Help: "Total equivalence resolutions by source",
	}, []string{"source"})

	// scanOutcomesTotal counts per-node scanner outcomes.
	scanOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkcast_scan_outcomes_total",
		Help: "Total unlinked-child scan outcomes per target node",
	}, []string{"outcome"})

	// guardRejectionsTotal counts re-entrant calls absorbed by the guard.
	guardRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkcast_guard_rejections_total",
		Help: "Total re-entrant dispatches rejected by the reentrancy guard",
	}, []string{"command"})
)
