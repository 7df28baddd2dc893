// This file exposes Prometheus instrumentation for interaction traffic.
// Label cardinality is kept bounded: route keys carry user-generated
// suffixes (e.g. "giveaway_enter:<id>"), so counters are labelled with the
// registered prefix, never the raw custom id.
package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// interactionsTotal counts handled interactions by kind and route prefix.
	interactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildkeeper_interactions_total",
			Help: "Total number of interactions dispatched to a handler.",
		},
		[]string{"kind", "route"},
	)

	// interactionsDeduped counts duplicate deliveries dropped by the guard.
	interactionsDeduped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guildkeeper_interactions_deduplicated_total",
			Help: "Duplicate interaction deliveries dropped by the dedup guard.",
		},
	)

	// interactionsUnrouted counts interactions with no matching route.
	interactionsUnrouted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guildkeeper_interactions_unrouted_total",
			Help: "Interactions whose route key matched no registered handler.",
		},
	)

	// interactionsFailed counts handler failures by route prefix.
	interactionsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guildkeeper_interactions_failed_total",
			Help: "Interactions whose handler returned a non-benign error or panicked.",
		},
		[]string{"route"},
	)

	// guardSwept counts guard entries removed by the TTL sweep.
	guardSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guildkeeper_interaction_guard_swept_total",
			Help: "Stale dedup-guard entries removed by the periodic sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		interactionsTotal,
		interactionsDeduped,
		interactionsUnrouted,
		interactionsFailed,
		guardSwept,
	)
}
