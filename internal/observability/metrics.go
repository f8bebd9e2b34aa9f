// Package observability exposes the engine's prometheus instrumentation.
// Metrics register on the default registry; the host process decides
// whether and where to serve them.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts completed torus cycles.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multiverse",
		Name:      "torus_cycles_total",
		Help:      "Completed torus enrichment cycles.",
	})

	// EnrichmentsApplied counts applied enrichments by story element.
	EnrichmentsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "multiverse",
		Name:      "enrichments_applied_total",
		Help:      "Enrichments applied to entities, by story element.",
	}, []string{"element"})

	// QueriesTotal counts npc queries by retrieval path.
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "multiverse",
		Name:      "npc_queries_total",
		Help:      "NPC dialogue queries, by retrieval path taken.",
	}, []string{"path"})

	// QueryFallbacks counts queries that fell through to the default template.
	QueryFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "multiverse",
		Name:      "npc_query_fallbacks_total",
		Help:      "Queries answered by the default fallback template.",
	})

	// BigBangDuration observes multiverse initialization time.
	BigBangDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "multiverse",
		Name:      "bigbang_duration_seconds",
		Help:      "Wall time of multiverse initialization.",
		Buckets:   prometheus.DefBuckets,
	})
)
