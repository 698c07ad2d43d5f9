package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStoreMetrics() {
	r.StoreNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "semnet_store_nodes",
			Help: "Number of nodes in the knowledge store",
		},
	)

	r.StoreRelationsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "semnet_store_relations",
			Help: "Number of relations in the knowledge store",
		},
	)

	r.StoreNodesByType = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "semnet_store_nodes_by_type",
			Help: "Number of nodes per node type",
		},
		[]string{"type"},
	)
}

func (r *Registry) initSnapshotMetrics() {
	r.SnapshotOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "semnet_snapshot_operations_total",
			Help: "Snapshot saves and loads by backend",
		},
		[]string{"operation", "backend", "status"},
	)

	r.SnapshotOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semnet_snapshot_operation_duration_seconds",
			Help:    "Snapshot operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation", "backend"},
	)

	r.SnapshotSizeBytes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "semnet_snapshot_size_bytes",
			Help: "Encoded size of the last snapshot per backend",
		},
		[]string{"backend"},
	)
}
