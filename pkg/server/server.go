// Package server serves the inference engine over HTTP: GraphQL queries,
// health, Prometheus metrics, token exchange and admin operations.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-semnet/pkg/audit"
	"github.com/dd0wney/cluso-semnet/pkg/auth"
	"github.com/dd0wney/cluso-semnet/pkg/graphql"
	"github.com/dd0wney/cluso-semnet/pkg/health"
	"github.com/dd0wney/cluso-semnet/pkg/inference"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
	"github.com/dd0wney/cluso-semnet/pkg/metrics"
	"github.com/dd0wney/cluso-semnet/pkg/persist"
)

// LoadFunc produces a fresh store for Reload.
type LoadFunc func(ctx context.Context) (*knowledge.Store, error)

// Pinger is implemented by snapshot backends that hold a connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure a Server. Only Store is required.
type Options struct {
	Store         *knowledge.Store
	Logger        logging.Logger
	Metrics       *metrics.Registry
	MaxQueryDepth int

	// AuthEnabled guards /graphql and /admin with bearer tokens checked by
	// JWT and APIKeys. /token exchanges an API key for a JWT.
	AuthEnabled bool
	JWT         *auth.JWTManager
	APIKeys     *auth.APIKeyStore

	// Loader backs Reload and /admin/reload.
	Loader LoadFunc
	// Snapshots backs /admin/snapshot.
	Snapshots persist.Snapshotter

	// Audit receives token, admin and rejected-request events. A logger
	// with the default buffer is created when nil.
	Audit *audit.AuditLogger
}

// Server routes HTTP requests to the current engine. Reload swaps the engine
// atomically; queries in flight finish against the engine they started on.
type Server struct {
	opts    Options
	logger  logging.Logger
	metrics *metrics.Registry
	health  *health.HealthChecker
	auth    auth.TokenValidator
	audit   *audit.AuditLogger

	current  atomic.Pointer[backend]
	reloadMu sync.Mutex
	handler  http.Handler
}

type backend struct {
	engine  *inference.Engine
	graphql *graphql.GraphQLHandler
}

// New builds a server around opts.Store.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	if opts.MaxQueryDepth <= 0 {
		opts.MaxQueryDepth = graphql.DefaultMaxQueryDepth
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewAuditLogger(audit.DefaultBufferSize)
	}

	s := &Server{
		opts:    opts,
		logger:  opts.Logger.With(logging.Component("server")),
		metrics: opts.Metrics,
		health:  health.NewHealthChecker(),
		audit:   opts.Audit,
	}

	if opts.AuthEnabled {
		var validators []auth.TokenValidator
		if opts.JWT != nil {
			validators = append(validators, opts.JWT)
		}
		if opts.APIKeys != nil {
			validators = append(validators, opts.APIKeys)
		}
		if len(validators) == 0 {
			return nil, errors.New("server: auth enabled without JWT or API keys")
		}
		s.auth = auth.NewCompositeTokenValidator(validators...)
	}

	if err := s.install(opts.Store); err != nil {
		return nil, err
	}

	s.health.RegisterCheck("knowledge_base", health.KnowledgeBaseCheck(func() knowledge.Statistics {
		return s.Engine().Store().Statistics()
	}))
	s.health.RegisterReadinessCheck("knowledge_base", health.KnowledgeBaseCheck(func() knowledge.Statistics {
		return s.Engine().Store().Statistics()
	}))
	s.health.RegisterCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))
	if p, ok := pinger(opts.Snapshots); ok {
		s.health.RegisterCheck(opts.Snapshots.Backend(), health.BackendCheck(opts.Snapshots.Backend(), p.Ping))
	}

	s.handler = s.routes()
	return s, nil
}

// pinger finds a Pinger in snap or, for wrappers, the Snapshotter it wraps.
func pinger(snap persist.Snapshotter) (Pinger, bool) {
	for snap != nil {
		if p, ok := snap.(Pinger); ok {
			return p, true
		}
		u, ok := snap.(interface{ Unwrap() persist.Snapshotter })
		if !ok {
			break
		}
		snap = u.Unwrap()
	}
	return nil, false
}

// install builds an engine and schema over store and makes them current.
func (s *Server) install(store *knowledge.Store) error {
	engine := inference.New(store,
		inference.WithLogger(s.opts.Logger),
		inference.WithRecorder(s.metrics),
	)
	schema, err := graphql.GenerateSchema(engine)
	if err != nil {
		return fmt.Errorf("failed to build schema: %w", err)
	}
	s.current.Store(&backend{
		engine: engine,
		graphql: graphql.NewGraphQLHandler(schema,
			graphql.WithMaxDepth(s.opts.MaxQueryDepth),
			graphql.WithLogger(s.logger),
		),
	})
	s.metrics.UpdateStoreMetrics(store.Statistics())
	return nil
}

// Engine returns the engine currently serving queries.
func (s *Server) Engine() *inference.Engine {
	return s.current.Load().engine
}

// AuditLog returns the server's audit trail.
func (s *Server) AuditLog() *audit.AuditLogger {
	return s.audit
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Reload replaces the knowledge base with a fresh one from the loader.
func (s *Server) Reload(ctx context.Context) error {
	if s.opts.Loader == nil {
		return errors.New("no loader configured")
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	timer := logging.StartTimer(s.logger, "reload knowledge base")
	store, err := s.opts.Loader(ctx)
	if err != nil {
		timer.EndError(err)
		return err
	}
	if err := s.install(store); err != nil {
		timer.EndError(err)
		return err
	}
	timer.End(logging.Int("nodes", store.NodeCount()), logging.Int("relations", store.RelationCount()))
	return nil
}

// Snapshot saves the current store to the configured backend.
func (s *Server) Snapshot(ctx context.Context) (int, error) {
	if s.opts.Snapshots == nil {
		return 0, errors.New("no snapshot backend configured")
	}
	return s.opts.Snapshots.Save(ctx, s.Engine().Store())
}

// StartMetricsUpdater refreshes system gauges every interval until ctx ends.
func (s *Server) StartMetricsUpdater(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.metrics.UpdateSystemMetrics()
			}
		}
	}()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", s.health.HTTPHandler())
	mux.Handle("GET /ready", s.health.ReadinessHandler())
	mux.Handle("GET /metrics", s.metrics.Handler())

	gql := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.current.Load().graphql.ServeHTTP(w, r)
	})
	reload := http.HandlerFunc(s.handleReload)
	snapshot := http.HandlerFunc(s.handleSnapshot)
	auditLog := http.HandlerFunc(s.handleAudit)

	if s.auth != nil {
		guard := auth.Middleware(s.auth, s.logger, func(r *http.Request, reason string) {
			s.metrics.AuthFailuresTotal.Inc()
			event := audit.NewFailedEvent("", audit.ActionAuth, audit.ResourceEndpoint, errors.New(reason))
			event.ResourceID = r.URL.Path
			s.record(r, event)
		})
		mux.Handle("/graphql", guard(gql))
		mux.Handle("POST /admin/reload", guard(auth.RequireRole(auth.RoleAdmin, reload)))
		mux.Handle("POST /admin/snapshot", guard(auth.RequireRole(auth.RoleAdmin, snapshot)))
		mux.Handle("GET /admin/audit", guard(auth.RequireRole(auth.RoleAdmin, auditLog)))
		if s.opts.JWT != nil && s.opts.APIKeys != nil {
			mux.HandleFunc("POST /token", s.handleToken)
		}
	} else {
		mux.Handle("/graphql", gql)
		mux.Handle("POST /admin/reload", reload)
		mux.Handle("POST /admin/snapshot", snapshot)
		mux.Handle("GET /admin/audit", auditLog)
	}

	var h http.Handler = mux
	h = s.metricsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.panicRecoveryMiddleware(h)
	return h
}
