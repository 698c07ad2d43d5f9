package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
	"github.com/dd0wney/cluso-semnet/pkg/logging"
)

func TestMedical(t *testing.T) {
	s := Medical()

	st := s.Statistics()
	if st.Nodes != 26 {
		t.Errorf("nodes = %d, want 26", st.Nodes)
	}
	if st.Relations != 38 {
		t.Errorf("relations = %d, want 38", st.Relations)
	}

	wantTypes := map[knowledge.NodeType]int{
		knowledge.TypeCategory:  4,
		knowledge.TypeDisease:   5,
		knowledge.TypeSymptom:   12,
		knowledge.TypeTreatment: 5,
	}
	for typ, want := range wantTypes {
		if got := st.NodesByType[typ]; got != want {
			t.Errorf("%s nodes = %d, want %d", typ, got, want)
		}
	}

	diseases := s.NodesByType(knowledge.TypeDisease)
	wantDiseases := []string{"Flu", "ColdLikeViralInfection", "Pneumonia", "Gastritis", "FoodPoisoning"}
	for i := range wantDiseases {
		if diseases[i] != wantDiseases[i] {
			t.Fatalf("diseases = %v, want %v", diseases, wantDiseases)
		}
	}

	flu := s.Get("Flu")
	if flu.Severity != "medium" || flu.Contagious == nil || !*flu.Contagious {
		t.Errorf("Flu attributes = %+v", flu.Attributes)
	}
	pneumonia := s.Get("Pneumonia")
	if pneumonia.Contagious == nil || *pneumonia.Contagious {
		t.Error("Pneumonia should be explicitly non-contagious")
	}
}

func TestMedical_FreshCopies(t *testing.T) {
	a := Medical()
	b := Medical()
	a.AddNode("Extra", knowledge.TypeSymptom, knowledge.Attributes{})
	if b.Has("Extra") {
		t.Error("Medical() returned a shared store")
	}
}

func TestMedicalYAML_Copy(t *testing.T) {
	src := MedicalYAML()
	src[0] = 'X'
	if MedicalYAML()[0] == 'X' {
		t.Error("MedicalYAML exposed the embedded bytes")
	}
}

func TestLoad(t *testing.T) {
	doc := `
nodes:
  - name: Flu
    type: disease
    severity: medium
  - name: Fever
    type: symptom
  - name: Lung
    type: organ
relations:
  - [Flu, has-symptom, Fever]
  - [Flu, affects, Lung]
  - [Flu, has-symptom, Fever]
`
	s, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.NodeCount() != 3 || s.RelationCount() != 3 {
		t.Errorf("counts = %d nodes, %d relations", s.NodeCount(), s.RelationCount())
	}
	if s.Get("Lung").Type != "organ" {
		t.Errorf("custom type not kept: %q", s.Get("Lung").Type)
	}
}

func TestLoad_Empty(t *testing.T) {
	s, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.NodeCount() != 0 {
		t.Errorf("expected empty store, got %d nodes", s.NodeCount())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "unknown endpoint",
			doc:     "nodes:\n  - name: Flu\n    type: disease\nrelations:\n  - [Flu, has-symptom, Fever]\n",
			wantErr: "relation 0",
		},
		{
			name:    "invalid node name",
			doc:     "nodes:\n  - name: \"Sore throat\"\n    type: symptom\n",
			wantErr: "node 0",
		},
		{
			name:    "unknown field",
			doc:     "nodes:\n  - name: Flu\n    colour: red\n",
			wantErr: "decode dataset",
		},
		{
			name:    "short relation",
			doc:     "nodes:\n  - name: Flu\nrelations:\n  - [Flu, has-symptom]\n",
			wantErr: "decode dataset",
		},
		{
			name:    "bad severity",
			doc:     "nodes:\n  - name: Flu\n    severity: extreme\n",
			wantErr: "Severity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if s != nil {
				t.Error("a failed load must not return a store")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_MatchesLoad(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"unknown node field", "nodes:\n  - name: Flu\n    colour: red\n", "decode dataset"},
		{"unknown top-level field", "nodes: []\nedges: []\n", "decode dataset"},
		{"bad severity", "nodes:\n  - name: Flu\n    severity: extreme\n", "Severity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, parseErr := Parse([]byte(tt.doc))
			_, loadErr := Load(strings.NewReader(tt.doc))
			if parseErr == nil || loadErr == nil {
				t.Fatalf("Parse() error = %v, Load() error = %v, want both to fail", parseErr, loadErr)
			}
			if !strings.Contains(parseErr.Error(), tt.wantErr) {
				t.Errorf("Parse() error %q does not mention %q", parseErr, tt.wantErr)
			}
			if parseErr.Error() != loadErr.Error() {
				t.Errorf("Parse() error %q differs from Load() error %q", parseErr, loadErr)
			}
		})
	}

	s, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if s.NodeCount() != 0 {
		t.Errorf("Parse(nil) has %d nodes, want 0", s.NodeCount())
	}
}

func TestLoad_UnknownEndpointIsTyped(t *testing.T) {
	_, err := Load(strings.NewReader("nodes:\n  - name: Flu\nrelations:\n  - [Ghost, has-symptom, Flu]\n"))
	if !errors.Is(err, knowledge.ErrUnknownEndpoint) {
		t.Errorf("expected ErrUnknownEndpoint, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.DebugLevel)

	builtin, err := LoadFile(BuiltinMedical, logger)
	if err != nil {
		t.Fatalf("LoadFile(builtin): %v", err)
	}
	if builtin.NodeCount() != Medical().NodeCount() {
		t.Error("builtin path should load the medical base")
	}
	if !strings.Contains(buf.String(), `"msg":"load dataset"`) {
		t.Errorf("expected a load log line, got %s", buf.String())
	}

	path := filepath.Join(t.TempDir(), "kb.yaml")
	if err := os.WriteFile(path, MedicalYAML(), 0o600); err != nil {
		t.Fatal(err)
	}
	fromDisk, err := LoadFile(path, nil)
	if err != nil {
		t.Fatalf("LoadFile(%s): %v", path, err)
	}
	if fromDisk.RelationCount() != builtin.RelationCount() {
		t.Errorf("disk copy has %d relations, want %d", fromDisk.RelationCount(), builtin.RelationCount())
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("expected an error for a missing file")
	}
}
