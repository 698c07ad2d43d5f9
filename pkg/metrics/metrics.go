package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// SlowQueryThreshold marks a query as slow in SlowQueries.
const SlowQueryThreshold = 100 * time.Millisecond

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of a response body.
func (r *Registry) RecordResponseSize(method, path string, size int) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(float64(size))
}

// RecordQuery records an inference query. It satisfies inference.Recorder.
func (r *Registry) RecordQuery(queryType, status string, duration time.Duration, steps int) {
	r.QueriesTotal.WithLabelValues(queryType, status).Inc()
	r.QueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
	r.QuerySteps.WithLabelValues(queryType).Observe(float64(steps))

	if duration > SlowQueryThreshold {
		r.SlowQueries.WithLabelValues(queryType).Inc()
	}
}

// RecordSnapshot records a snapshot save or load against a backend.
func (r *Registry) RecordSnapshot(operation, backend string, size int, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.SnapshotOperationsTotal.WithLabelValues(operation, backend, status).Inc()
	r.SnapshotOperationDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
	if err == nil && size > 0 {
		r.SnapshotSizeBytes.WithLabelValues(backend).Set(float64(size))
	}
}

// UpdateStoreMetrics publishes the store's size gauges.
func (r *Registry) UpdateStoreMetrics(st knowledge.Statistics) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.StoreNodesTotal.Set(float64(st.Nodes))
	r.StoreRelationsTotal.Set(float64(st.Relations))
	r.StoreNodesByType.Reset()
	for typ, n := range st.NodesByType {
		r.StoreNodesByType.WithLabelValues(string(typ)).Set(float64(n))
	}
}

// UpdateSystemMetrics refreshes uptime, goroutine and memory gauges.
func (r *Registry) UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
