package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dd0wney/cluso-semnet/pkg/audit"
	"github.com/dd0wney/cluso-semnet/pkg/auth"
	"github.com/dd0wney/cluso-semnet/pkg/dataset"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/persist"
)

const testSecret = "server-test-secret-with-at-least-32-chars"

func newServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Store == nil {
		opts.Store = dataset.Medical()
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func query(q string) map[string]any {
	return map[string]any{"query": q}
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := New(Options{Store: knowledge.NewStore(), AuthEnabled: true}); err == nil {
		t.Fatal("expected error for auth without validators")
	}
}

func TestServer_GraphQL(t *testing.T) {
	s := newServer(t, Options{})

	rr := do(t, s.Handler(), http.MethodPost, "/graphql", "", query(`{ symptoms(disease: "Gastritis") { names } }`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if !strings.Contains(rr.Body.String(), `"names":["AbdominalPain","Nausea"]`) {
		t.Errorf("body = %s", rr.Body)
	}
	if s.Engine().LastTrace() == nil {
		t.Error("engine recorded no trace")
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := newServer(t, Options{})
	h := s.Handler()

	rr := do(t, h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}
	var health struct {
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q", health.Status)
	}
	if _, ok := health.Checks["knowledge_base"]; !ok {
		t.Errorf("checks = %v", health.Checks)
	}

	if rr := do(t, h, http.MethodGet, "/ready", "", nil); rr.Code != http.StatusOK {
		t.Errorf("ready status = %d", rr.Code)
	}

	do(t, h, http.MethodPost, "/graphql", "", query(`{ isSubtypeOf(concept: "Flu", ancestor: "Disease") { result } }`))

	rr = do(t, h, http.MethodGet, "/metrics", "", nil)
	body := rr.Body.String()
	for _, want := range []string{
		`semnet_queries_total{query_type="subtype",status="ok"} 1`,
		`semnet_store_nodes 26`,
		`semnet_http_requests_total{method="POST",path="/graphql",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestServer_EmptyStoreNotReady(t *testing.T) {
	s := newServer(t, Options{Store: knowledge.NewStore()})
	if rr := do(t, s.Handler(), http.MethodGet, "/ready", "", nil); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", rr.Code)
	}
	if rr := do(t, s.Handler(), http.MethodGet, "/health", "", nil); rr.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200 (degraded)", rr.Code)
	}
}

func TestServer_Auth(t *testing.T) {
	jwtm, err := auth.NewJWTManager(testSecret, "semnet", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	keys, _ := auth.NewAPIKeyStore(nil)
	readerKey, _ := auth.GenerateAPIKey()
	adminKey, _ := auth.GenerateAPIKey()
	_ = keys.Add("dashboard", readerKey, auth.RoleReader)
	_ = keys.Add("ops", adminKey, auth.RoleAdmin)

	s := newServer(t, Options{
		AuthEnabled: true,
		JWT:         jwtm,
		APIKeys:     keys,
		Loader: func(context.Context) (*knowledge.Store, error) {
			return dataset.Medical(), nil
		},
	})
	h := s.Handler()
	q := query(`{ health }`)

	if rr := do(t, h, http.MethodPost, "/graphql", "", q); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rr.Code)
	}

	rr := do(t, h, http.MethodPost, "/token", "", TokenRequest{APIKey: readerKey})
	if rr.Code != http.StatusOK {
		t.Fatalf("token status = %d, body %s", rr.Code, rr.Body)
	}
	var tok TokenResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &tok); err != nil {
		t.Fatal(err)
	}
	if tok.TokenType != "Bearer" || tok.ExpiresIn != 3600 {
		t.Errorf("token response = %+v", tok)
	}

	if rr := do(t, h, http.MethodPost, "/graphql", tok.AccessToken, q); rr.Code != http.StatusOK {
		t.Errorf("JWT status = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/graphql", readerKey, q); rr.Code != http.StatusOK {
		t.Errorf("API key status = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/admin/reload", tok.AccessToken, nil); rr.Code != http.StatusForbidden {
		t.Errorf("reader reload status = %d, want 403", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/admin/reload", adminKey, nil); rr.Code != http.StatusOK {
		t.Errorf("admin reload status = %d, body %s", rr.Code, rr.Body)
	}
	if rr := do(t, h, http.MethodPost, "/token", "", TokenRequest{APIKey: "smk_not_a_registered_key_at_all"}); rr.Code != http.StatusUnauthorized {
		t.Errorf("bad key token status = %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/token", "", map[string]string{}); rr.Code != http.StatusBadRequest {
		t.Errorf("empty token request status = %d", rr.Code)
	}

	metrics := do(t, h, http.MethodGet, "/metrics", "", nil).Body.String()
	if !strings.Contains(metrics, "semnet_auth_failures_total 2") {
		t.Errorf("auth failures not counted:\n%s", metrics)
	}
}

func TestServer_Reload(t *testing.T) {
	calls := 0
	s := newServer(t, Options{
		Store: knowledge.NewStore(),
		Loader: func(context.Context) (*knowledge.Store, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("dataset unreadable")
			}
			return dataset.Medical(), nil
		},
	})
	before := s.Engine()

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if s.Engine() == before {
		t.Error("engine not replaced")
	}
	if got := s.Engine().Store().NodeCount(); got != 26 {
		t.Errorf("nodes after reload = %d", got)
	}

	current := s.Engine()
	rr := do(t, s.Handler(), http.MethodPost, "/admin/reload", "", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("failed reload status = %d", rr.Code)
	}
	if s.Engine() != current {
		t.Error("failed reload replaced the engine")
	}

	noLoader := newServer(t, Options{})
	if err := noLoader.Reload(context.Background()); err == nil {
		t.Error("expected error without loader")
	}
}

func TestServer_Snapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	fs, err := persist.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	s := newServer(t, Options{Snapshots: fs})

	rr := do(t, s.Handler(), http.MethodPost, "/admin/snapshot", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d, body %s", rr.Code, rr.Body)
	}
	restored, err := persist.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if restored.RelationCount() != 38 {
		t.Errorf("restored relations = %d", restored.RelationCount())
	}

	if _, err := newServer(t, Options{}).Snapshot(context.Background()); err == nil {
		t.Error("expected error without backend")
	}
}

func TestServer_AuditTrail(t *testing.T) {
	jwtm, err := auth.NewJWTManager(testSecret, "semnet", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	keys, _ := auth.NewAPIKeyStore(nil)
	readerKey, _ := auth.GenerateAPIKey()
	adminKey, _ := auth.GenerateAPIKey()
	_ = keys.Add("dashboard", readerKey, auth.RoleReader)
	_ = keys.Add("ops", adminKey, auth.RoleAdmin)

	fs, err := persist.NewFileStore(filepath.Join(t.TempDir(), "kb.json"))
	if err != nil {
		t.Fatal(err)
	}
	s := newServer(t, Options{
		AuthEnabled: true,
		JWT:         jwtm,
		APIKeys:     keys,
		Snapshots:   fs,
		Loader: func(context.Context) (*knowledge.Store, error) {
			return dataset.Medical(), nil
		},
	})
	h := s.Handler()

	do(t, h, http.MethodPost, "/graphql", "", query(`{ health }`))
	do(t, h, http.MethodPost, "/token", "", TokenRequest{APIKey: readerKey})
	do(t, h, http.MethodPost, "/token", "", TokenRequest{APIKey: "smk_not_a_registered_key_at_all"})
	do(t, h, http.MethodPost, "/admin/reload", adminKey, nil)
	do(t, h, http.MethodPost, "/admin/snapshot", adminKey, nil)

	tests := []struct {
		name   string
		filter audit.Filter
		want   int
	}{
		{"all", audit.Filter{}, 5},
		{"rejected requests", audit.Filter{Action: audit.ActionAuth}, 1},
		{"failures", audit.Filter{Status: audit.StatusFailure}, 2},
		{"tokens", audit.Filter{ResourceType: audit.ResourceToken}, 2},
		{"by admin", audit.Filter{Subject: "ops"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(s.AuditLog().GetEvents(&tt.filter)); got != tt.want {
				t.Errorf("events = %d, want %d", got, tt.want)
			}
		})
	}

	rejected := s.AuditLog().GetEvents(&audit.Filter{Action: audit.ActionAuth})[0]
	if rejected.ResourceID != "/graphql" || rejected.ErrorMessage != "missing_token" {
		t.Errorf("rejected event = %+v", rejected)
	}
	snap := s.AuditLog().GetRecentEvents(1)[0]
	if snap.Action != audit.ActionSnapshot || snap.ResourceID != "file" || snap.Role != auth.RoleAdmin {
		t.Errorf("snapshot event = %+v", snap)
	}

	if rr := do(t, h, http.MethodGet, "/admin/audit", readerKey, nil); rr.Code != http.StatusForbidden {
		t.Errorf("reader audit status = %d, want 403", rr.Code)
	}
	rr := do(t, h, http.MethodGet, "/admin/audit?status=success&limit=2", adminKey, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("audit status = %d, body %s", rr.Code, rr.Body)
	}
	var resp AuditResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || resp.Total != 5 {
		t.Errorf("audit response count=%d total=%d", resp.Count, resp.Total)
	}
	if resp.Events[0].Action != audit.ActionReload || resp.Events[1].Action != audit.ActionSnapshot {
		t.Errorf("audit events = %v, %v", resp.Events[0].Action, resp.Events[1].Action)
	}
	if rr := do(t, h, http.MethodGet, "/admin/audit?limit=-1", adminKey, nil); rr.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rr.Code)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/graphql":      "/graphql",
		"/metrics":      "/metrics",
		"/nodes/123":    "other",
		"/admin/reload": "/admin/reload",
	}
	for path, want := range tests {
		if got := routeLabel(path); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestPanicRecovery(t *testing.T) {
	s := newServer(t, Options{})
	h := s.panicRecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := do(t, h, http.MethodGet, "/", "", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

type pingingStore struct {
	err error
}

func (p *pingingStore) Backend() string { return "postgres" }
func (p *pingingStore) Save(context.Context, *knowledge.Store) (int, error) {
	return 0, nil
}
func (p *pingingStore) Load(context.Context) (*knowledge.Store, error) {
	return nil, errors.New("empty")
}
func (p *pingingStore) Ping(context.Context) error { return p.err }

func TestServer_BackendHealthThroughWrapper(t *testing.T) {
	backend := &pingingStore{err: errors.New("connection refused")}
	s := newServer(t, Options{Snapshots: persist.Instrument(backend, nil, nil)})

	rr := do(t, s.Handler(), http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a degraded backend", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"degraded"`) || !strings.Contains(rr.Body.String(), "connection refused") {
		t.Errorf("body = %s", rr.Body)
	}

	if _, ok := pinger(persist.Instrument(backend, nil, nil)); !ok {
		t.Error("pinger should look through Instrumented")
	}
	fs, err := persist.NewFileStore(filepath.Join(t.TempDir(), "kb.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pinger(fs); ok {
		t.Error("file store has no Ping")
	}
}
