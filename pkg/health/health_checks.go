package health

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// PingTimeout bounds BackendCheck pings.
const PingTimeout = 2 * time.Second

// KnowledgeBaseCheck reports the loaded store. An empty store is degraded:
// every query answers "not found".
func KnowledgeBaseCheck(stats func() knowledge.Statistics) CheckFunc {
	return func() Check {
		st := stats()
		check := Check{
			Name: "knowledge_base",
			Details: map[string]any{
				"nodes":     st.Nodes,
				"relations": st.Relations,
			},
		}
		if st.Nodes == 0 {
			check.Status = StatusDegraded
			check.Message = "Knowledge base is empty"
		} else {
			check.Status = StatusHealthy
			check.Message = "Loaded"
		}
		return check
	}
}

// BackendCheck pings a snapshot backend such as Postgres.
func BackendCheck(name string, ping func(ctx context.Context) error) CheckFunc {
	return func() Check {
		check := Check{Name: name}

		ctx, cancel := context.WithTimeout(context.Background(), PingTimeout)
		defer cancel()
		if err := ping(ctx); err != nil {
			// queries keep working off the in-memory store
			check.Status = StatusDegraded
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()
		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		if sys > 0 && float64(alloc)/float64(sys)*100 > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}
