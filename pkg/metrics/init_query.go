package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initQueryMetrics() {
	r.QueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "semnet_queries_total",
			Help: "Total number of inference queries executed",
		},
		[]string{"query_type", "status"},
	)

	r.QueryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semnet_query_duration_seconds",
			Help:    "Query execution duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 1.0},
		},
		[]string{"query_type"},
	)

	r.QuerySteps = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semnet_query_steps",
			Help:    "Number of trace steps recorded per query",
			Buckets: []float64{2, 5, 10, 25, 50, 100, 500},
		},
		[]string{"query_type"},
	)

	r.SlowQueries = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "semnet_slow_queries_total",
			Help: "Total number of slow queries (>100ms)",
		},
		[]string{"query_type"},
	)
}
