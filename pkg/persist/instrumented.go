package persist

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
	"github.com/dd0wney/cluso-semnet/pkg/metrics"
)

// Instrumented wraps a Snapshotter with logging and metrics.
type Instrumented struct {
	next    Snapshotter
	metrics *metrics.Registry
	logger  logging.Logger
}

// Instrument wraps s. A nil registry or logger disables that side.
func Instrument(s Snapshotter, reg *metrics.Registry, logger logging.Logger) *Instrumented {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Instrumented{
		next:    s,
		metrics: reg,
		logger:  logger.With(logging.Component("persist"), logging.String("backend", s.Backend())),
	}
}

func (i *Instrumented) Backend() string { return i.next.Backend() }

// Unwrap returns the wrapped Snapshotter.
func (i *Instrumented) Unwrap() Snapshotter { return i.next }

func (i *Instrumented) Save(ctx context.Context, store *knowledge.Store) (int, error) {
	start := time.Now()
	n, err := i.next.Save(ctx, store)
	i.observe("save", n, err, time.Since(start))
	return n, err
}

func (i *Instrumented) Load(ctx context.Context) (*knowledge.Store, error) {
	start := time.Now()
	s, err := i.next.Load(ctx)
	i.observe("load", 0, err, time.Since(start))
	if err == nil {
		i.logger.Info("snapshot loaded", logging.Int("nodes", s.NodeCount()), logging.Int("relations", s.RelationCount()))
	}
	return s, err
}

func (i *Instrumented) observe(op string, size int, err error, d time.Duration) {
	if i.metrics != nil {
		i.metrics.RecordSnapshot(op, i.next.Backend(), size, err, d)
	}
	if err != nil {
		i.logger.Error("snapshot "+op+" failed", logging.Error(err), logging.Latency(d))
		return
	}
	if op == "save" {
		i.logger.Info("snapshot saved", logging.Int("bytes", size), logging.Latency(d))
	}
}
