// Package inference answers questions over a knowledge.Store and records how
// each answer was reached.
//
// Every query method returns its result together with a *Trace describing the
// steps taken. A query that names an unknown concept is not an error: it
// returns the zero value and its trace carries a StepError step. The engine
// keeps no per-query state beyond a copy of the last completed trace, so one
// Engine may serve concurrent callers.
package inference

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
)

// QueryKind names a query class; it labels traces, logs and metrics.
type QueryKind string

const (
	KindSubtype    QueryKind = "subtype"
	KindSymptoms   QueryKind = "symptoms"
	KindDiagnose   QueryKind = "diagnose"
	KindTreatments QueryKind = "treatments"
	KindCategory   QueryKind = "category"
	KindRelated    QueryKind = "related"
	KindConnection QueryKind = "connection"
)

// Query outcome labels passed to the Recorder.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
)

// Recorder receives one observation per completed query.
type Recorder interface {
	RecordQuery(kind, status string, duration time.Duration, steps int)
}

// Engine is a query processor bound to one store.
type Engine struct {
	store    *knowledge.Store
	logger   logging.Logger
	recorder Recorder

	mu   sync.Mutex
	last *Trace
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger; queries are logged at debug level.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets where query metrics go.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// New creates an engine over store.
func New(store *knowledge.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logging.Component("inference"))
	return e
}

// Store returns the store the engine reads.
func (e *Engine) Store() *knowledge.Store {
	return e.store
}

// LastTrace returns a copy of the trace of the most recently completed query,
// or nil before the first query.
func (e *Engine) LastTrace() *Trace {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last.Clone()
}

func (e *Engine) begin(kind QueryKind, params Payload) *Trace {
	t := newTrace(kind)
	t.add(StepStart, params)
	return t
}

// fail records a not-found condition; callers return their zero value.
func (e *Engine) fail(t *Trace, format string, args ...any) {
	t.add(StepError, Text(format, args...))
}

func (e *Engine) finish(t *Trace, result Payload) *Trace {
	t.add(StepResult, result)
	t.Duration = time.Since(t.Started)

	status := StatusOK
	if t.Failed() {
		status = StatusNotFound
	}

	e.logger.Debug("query completed",
		logging.QueryID(t.QueryID),
		logging.QueryKind(string(t.Kind)),
		logging.String("status", status),
		logging.Int("steps", t.Len()),
		logging.Latency(t.Duration),
	)
	if e.recorder != nil {
		e.recorder.RecordQuery(string(t.Kind), status, t.Duration, t.Len())
	}

	e.mu.Lock()
	e.last = t.Clone()
	e.mu.Unlock()
	return t
}
