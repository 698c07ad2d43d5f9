package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-semnet/pkg/persist"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(&app{})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"diagnose", []string{"diagnose", "Fever", "Cough,ChestPain"}, []string{"DIAGNOSIS EXPLANATION", "Pneumonia", "ChestPain"}},
		{"subtype yes", []string{"subtype", "Flu", "Disease"}, []string{"Answer: YES"}},
		{"subtype no", []string{"subtype", "Gastritis", "RespiratoryDisease"}, []string{"Answer: NO"}},
		{"symptoms", []string{"symptoms", "Gastritis"}, []string{"• AbdominalPain", "• Nausea"}},
		{"treatments none", []string{"treatments", "Gastritis"}, []string{"(none found)"}},
		{"category", []string{"category", "GastrointestinalDisease"}, []string{"Gastritis, FoodPoisoning"}},
		{"info", []string{"info", "Fever"}, []string{"CONCEPT: Fever", "← Flu"}},
		{"connect", []string{"connect", "Flu", "Disease"}, []string{"Paths from Flu to Disease (2)", "1. Flu -[is-subtype-of]-> InfectiousDisease"}},
		{"summary", []string{"summary"}, []string{"Nodes: 26", "Relations: 38"}},
		{"report", []string{"report"}, []string{"SEMANTIC NETWORK REPORT", "└── [Category] Disease"}},
		{"export dot", []string{"export", "--format", "dot"}, []string{"digraph semnet {"}},
		{"export json", []string{"export", "--layout", "circular"}, []string{`"name":"Flu"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "", tt.args...)
			if err != nil {
				t.Fatalf("Execute() error = %v\n%s", err, out)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q\n%s", want, out)
				}
			}
		})
	}
}

func TestCommands_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"diagnose without symptoms", []string{"diagnose"}},
		{"subtype one arg", []string{"subtype", "Flu"}},
		{"connect bad depth", []string{"connect", "Flu", "Disease", "--depth", "0"}},
		{"export bad format", []string{"export", "--format", "png"}},
		{"export bad layout", []string{"export", "--layout", "force"}},
		{"snapshot export without out", []string{"export", "--format", "snapshot"}},
		{"missing dataset", []string{"summary", "--dataset", "/nonexistent/kb.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, "", tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestExportSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.yaml")

	if out, err := run(t, "", "export", "--format", "snapshot", "--out", path); err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	store, err := persist.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if store.NodeCount() != 26 {
		t.Errorf("nodes = %d, want 26", store.NodeCount())
	}

	out, err := run(t, "", "symptoms", "Flu", "--snapshot", path)
	if err != nil {
		t.Fatalf("symptoms from snapshot: %v", err)
	}
	if !strings.Contains(out, "• Headache") {
		t.Errorf("output = %s", out)
	}
}

func TestReportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	out, err := run(t, "", "report", "--out", path)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, "Report saved to") {
		t.Errorf("output = %s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "KNOWLEDGE BASE STATISTICS") {
		t.Error("report file is incomplete")
	}
}

func TestREPL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"diagnose by number", "1\n1,2\n0\n", []string{"Selected symptoms: Fever, Cough", "DIAGNOSIS EXPLANATION"}},
		{"diagnose all", "1\nall\n0\n", []string{"Selected symptoms: Fever, Cough, RunnyNose"}},
		{"diagnose bad input", "1\nx\n0\n", []string{"Error: invalid input!"}},
		{"subtype", "2\nPneumonia\nDisease\n0\n", []string{"Answer: YES"}},
		{"subtype empty", "2\n\nDisease\n0\n", []string{"both concepts are required"}},
		{"symptoms", "3\n1\n0\n", []string{"Flu:", "• Fever"}},
		{"treatments bad number", "4\n42\n0\n", []string{"Error: invalid number!"}},
		{"category", "5\n3\n0\n", []string{"Diseases in RespiratoryDisease:", "• Pneumonia"}},
		{"info", "6\nCough\n0\n", []string{"CONCEPT: Cough"}},
		{"summary", "7\n0\n", []string{"KNOWLEDGE BASE SUMMARY"}},
		{"list diseases", "8\n0\n", []string{"1. Flu - Acute infectious disease of the airways"}},
		{"list symptoms", "9\n0\n", []string{"12. Diarrhea"}},
		{"unknown choice", "x\n0\n", []string{"Invalid choice"}},
		{"eof exits", "", []string{"Shutting down"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.input, "repl")
			if err != nil {
				t.Fatalf("repl: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q", want)
				}
			}
		})
	}
}

func TestSplitNames(t *testing.T) {
	got := strings.Join(splitNames([]string{"Fever, Cough", "", "Nausea"}), "|")
	if got != "Fever|Cough|Nausea" {
		t.Errorf("splitNames = %s", got)
	}
}
