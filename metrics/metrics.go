// Package metrics exposes the ambient observability surface: prometheus
// collectors for search latency and calibration cost, following the
// teacher's direct client_golang dependency (spec §5 observability is
// explicitly ambient, carried regardless of any feature-level Non-goal).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles the metrics a Vamana-backed service registers once
// at startup and threads through its search/calibration call sites.
type Collectors struct {
	SearchLatency        prometheus.Histogram
	SearchResultsTotal   prometheus.Counter
	CalibrationIterations prometheus.Counter
	ConsolidateDuration  prometheus.Histogram
	DispatchMisses       *prometheus.CounterVec
}

// NewCollectors builds a fresh set of collectors under the given
// namespace, ready to pass to prometheus.Registerer.MustRegister.
func NewCollectors(namespace string) *Collectors {
	return &Collectors{
		SearchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_latency_seconds",
			Help:      "Latency of a single Vamana graph search call.",
			Buckets:   prometheus.DefBuckets,
		}),
		SearchResultsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_results_total",
			Help:      "Total neighbors returned across all search calls.",
		}),
		CalibrationIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calibration_iterations_total",
			Help:      "Binary-search steps spent converging on a recall target.",
		}),
		ConsolidateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "consolidate_duration_seconds",
			Help:      "Wall time spent resolving tombstones in consolidate().",
			Buckets:   prometheus.DefBuckets,
		}),
		DispatchMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_misses_total",
			Help:      "Lookup calls that found no registered specialization, by dataset kind.",
		}, []string{"dataset_kind"}),
	}
}

// MustRegister registers every collector against reg.
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.SearchLatency,
		c.SearchResultsTotal,
		c.CalibrationIterations,
		c.ConsolidateDuration,
		c.DispatchMisses,
	)
}
