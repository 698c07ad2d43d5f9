package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-semnet/pkg/auth"
	"github.com/dd0wney/cluso-semnet/pkg/dataset"
	"github.com/dd0wney/cluso-semnet/pkg/explain"
	"github.com/dd0wney/cluso-semnet/pkg/inference"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
	"github.com/dd0wney/cluso-semnet/pkg/metrics"
	"github.com/dd0wney/cluso-semnet/pkg/persist"
	"github.com/dd0wney/cluso-semnet/pkg/server"
)

const secret = "e2e-test-secret-with-at-least-32-characters"

const smallDataset = `
nodes:
  - name: Disease
    type: category
  - name: Migraine
    type: disease
    severity: medium
  - name: Headache
    type: symptom
  - name: Painkillers
    type: treatment
relations:
  - [Migraine, is-subtype-of, Disease]
  - [Migraine, has-symptom, Headache]
  - [Migraine, treated-by, Painkillers]
`

type testEnv struct {
	url      string
	adminKey string
	readKey  string
	dataPath string
	snapPath string
}

func startServer(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dataPath: filepath.Join(dir, "dataset.yaml"),
		snapPath: filepath.Join(dir, "snapshot.json.sz"),
	}
	require.NoError(t, os.WriteFile(env.dataPath, dataset.MedicalYAML(), 0o644))

	store, err := dataset.LoadFile(env.dataPath, nil)
	require.NoError(t, err)

	jwtManager, err := auth.NewJWTManager(secret, "semnet-e2e", time.Hour)
	require.NoError(t, err)
	keys, err := auth.NewAPIKeyStore(nil)
	require.NoError(t, err)

	env.adminKey, err = auth.GenerateAPIKey()
	require.NoError(t, err)
	env.readKey, err = auth.GenerateAPIKey()
	require.NoError(t, err)
	require.NoError(t, keys.Add("ops", env.adminKey, auth.RoleAdmin))
	require.NoError(t, keys.Add("clinic", env.readKey, auth.RoleReader))

	snapshots, err := persist.NewFileStore(env.snapPath)
	require.NoError(t, err)

	logger := logging.NewNopLogger()
	reg := metrics.NewRegistry()
	srv, err := server.New(server.Options{
		Store:       store,
		Logger:      logger,
		Metrics:     reg,
		AuthEnabled: true,
		JWT:         jwtManager,
		APIKeys:     keys,
		Loader: func(ctx context.Context) (*knowledge.Store, error) {
			return dataset.LoadFile(env.dataPath, logger)
		},
		Snapshots: persist.Instrument(snapshots, reg, logger),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	env.url = ts.URL
	return env
}

func post(t *testing.T, url, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func login(t *testing.T, env *testEnv, key string) string {
	t.Helper()
	status, body := post(t, env.url+"/token", "", server.TokenRequest{APIKey: key})
	require.Equal(t, http.StatusOK, status, string(body))

	var tok server.TokenResponse
	require.NoError(t, json.Unmarshal(body, &tok))
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, 3600, tok.ExpiresIn)
	require.NotEmpty(t, tok.AccessToken)
	return tok.AccessToken
}

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func graphQL(t *testing.T, env *testEnv, token, query string) gqlResponse {
	t.Helper()
	status, body := post(t, env.url+"/graphql", token, map[string]any{"query": query})
	require.Equal(t, http.StatusOK, status, string(body))
	var resp gqlResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

// TestDiagnosticSession walks a clinician through login, diagnosis and
// follow-up questions over HTTP.
func TestDiagnosticSession(t *testing.T) {
	env := startServer(t)

	status, _ := post(t, env.url+"/graphql", "", map[string]any{"query": "{ health }"})
	assert.Equal(t, http.StatusUnauthorized, status, "queries need a token")

	token := login(t, env, env.readKey)

	resp := graphQL(t, env, token, `{
		diagnose(symptoms: ["Fever", "Cough", "ChestPain"]) {
			results { disease confidence matched total }
			trace { kind failed }
		}
	}`)
	require.Empty(t, resp.Errors)

	var diag struct {
		Results []struct {
			Disease    string   `json:"disease"`
			Confidence float64  `json:"confidence"`
			Matched    []string `json:"matched"`
			Total      int      `json:"total"`
		} `json:"results"`
		Trace struct {
			Kind   string `json:"kind"`
			Failed bool   `json:"failed"`
		} `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(resp.Data["diagnose"], &diag))
	require.NotEmpty(t, diag.Results)
	assert.Equal(t, "Pneumonia", diag.Results[0].Disease)
	assert.InDelta(t, 0.6, diag.Results[0].Confidence, 1e-9)
	assert.Equal(t, 5, diag.Results[0].Total)
	assert.ElementsMatch(t, []string{"Fever", "Cough", "ChestPain"}, diag.Results[0].Matched)
	assert.False(t, diag.Trace.Failed)

	resp = graphQL(t, env, token, `{ treatments(disease: "Pneumonia") { names } isSubtypeOf(concept: "Pneumonia", ancestor: "Disease") { result } }`)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"names":["Antibiotics","BedRest"]}`, string(resp.Data["treatments"]))
	assert.JSONEq(t, `{"result":true}`, string(resp.Data["isSubtypeOf"]))

	// Readers cannot touch admin endpoints
	status, _ = post(t, env.url+"/admin/snapshot", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

// TestAdminLifecycle snapshots the base, edits the dataset on disk, reloads
// it, and checks that the snapshot still holds the old base.
func TestAdminLifecycle(t *testing.T) {
	env := startServer(t)
	admin := login(t, env, env.adminKey)

	status, body := post(t, env.url+"/admin/snapshot", admin, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"backend":"file"`)

	require.NoError(t, os.WriteFile(env.dataPath, []byte(smallDataset), 0o644))
	status, body = post(t, env.url+"/admin/reload", admin, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"nodes":4`)

	resp := graphQL(t, env, admin, `{ symptoms(disease: "Migraine") { names } statistics { nodes relations } }`)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"names":["Headache"]}`, string(resp.Data["symptoms"]))
	assert.JSONEq(t, `{"nodes":4,"relations":3}`, string(resp.Data["statistics"]))

	// A broken dataset leaves the running base alone
	require.NoError(t, os.WriteFile(env.dataPath, []byte("relations:\n  - [Ghost, has-symptom, Nothing]\n"), 0o644))
	status, _ = post(t, env.url+"/admin/reload", admin, nil)
	assert.Equal(t, http.StatusInternalServerError, status)
	resp = graphQL(t, env, admin, `{ statistics { nodes } }`)
	assert.JSONEq(t, `{"nodes":4}`, string(resp.Data["statistics"]))

	restored, err := persist.LoadFile(env.snapPath)
	require.NoError(t, err)
	assert.Equal(t, 26, restored.NodeCount())
	assert.Equal(t, 38, restored.RelationCount())
	assert.Equal(t, dataset.Medical().Export(), restored.Export())
}

// TestConcurrentQueries runs queries from several clients at once.
func TestConcurrentQueries(t *testing.T) {
	env := startServer(t)
	token := login(t, env, env.readKey)

	queries := []string{
		`{ symptoms(disease: "Flu") { names } }`,
		`{ diseasesByCategory(category: "RespiratoryDisease") { names } }`,
		`{ findConnection(from: "Flu", to: "Disease") { paths { text } } }`,
		`{ relatedInfo(concept: "Fever") { found } }`,
	}

	var wg sync.WaitGroup
	errs := make(chan string, 40)
	for i := 0; i < 10; i++ {
		for _, q := range queries {
			wg.Add(1)
			go func(q string) {
				defer wg.Done()
				if msg := queryOnce(env, token, q); msg != "" {
					errs <- msg
				}
			}(q)
		}
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Errorf("query error: %s", msg)
	}
}

// queryOnce runs q and returns the first failure, or "" on success. It does
// not touch *testing.T so it is safe to call from any goroutine.
func queryOnce(env *testEnv, token, q string) string {
	data, _ := json.Marshal(map[string]any{"query": q})
	req, err := http.NewRequest(http.MethodPost, env.url+"/graphql", bytes.NewReader(data))
	if err != nil {
		return err.Error()
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err.Error()
	}
	defer resp.Body.Close()
	var out gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err.Error()
	}
	if resp.StatusCode != http.StatusOK {
		return resp.Status
	}
	if len(out.Errors) > 0 {
		return out.Errors[0].Message
	}
	return ""
}

// TestExplainedConsultation drives the engine and explainer directly, the way
// the console does.
func TestExplainedConsultation(t *testing.T) {
	engine := inference.New(dataset.Medical())
	explainer := explain.New(engine)

	observed := []string{"Nausea", "Vomiting", "Diarrhea"}
	results, trace := engine.Diagnose(observed)
	require.NotEmpty(t, results)
	assert.Equal(t, "FoodPoisoning", results[0].Disease)
	assert.InDelta(t, 0.75, results[0].Confidence, 1e-9)
	assert.Equal(t, trace.QueryID, engine.LastTrace().QueryID)

	report := explainer.Diagnosis(observed, results)
	assert.Contains(t, report, "FoodPoisoning")
	assert.NotEmpty(t, explainer.LastInference())

	paths, _ := engine.FindConnection("Flu", "Disease")
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.Equal(t, "Flu", p.Nodes()[0])
		assert.Equal(t, "Disease", p.Nodes()[len(p.Nodes())-1])
		assert.NotEmpty(t, inference.FormatPath(p))
	}
}
