package knowledge

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	s.AddNode("Disease", TypeCategory, Attributes{Description: "root"})
	s.AddNode("Flu", TypeDisease, Attributes{Severity: "medium", Contagious: Bool(true)})
	s.AddNode("Gastritis", TypeDisease, Attributes{Severity: "medium", Contagious: Bool(false)})
	s.AddNode("Fever", TypeSymptom, Attributes{})
	s.AddNode("Cough", TypeSymptom, Attributes{})
	s.AddNode("Nausea", TypeSymptom, Attributes{})

	for _, r := range [][3]string{
		{"Flu", LabelSubtypeOf, "Disease"},
		{"Gastritis", LabelSubtypeOf, "Disease"},
		{"Flu", LabelHasSymptom, "Fever"},
		{"Flu", LabelHasSymptom, "Cough"},
		{"Gastritis", LabelHasSymptom, "Nausea"},
	} {
		if err := s.AddRelation(r[0], r[1], r[2]); err != nil {
			t.Fatalf("AddRelation(%v) failed: %v", r, err)
		}
	}
	return s
}

func TestAddNode_Upsert(t *testing.T) {
	s := NewStore()
	s.AddNode("A", TypeCategory, Attributes{Description: "first"})
	s.AddNode("B", TypeSymptom, Attributes{})
	s.AddNode("A", TypeDisease, Attributes{Severity: "high"})

	if got := s.NodeCount(); got != 2 {
		t.Fatalf("NodeCount() = %d, want 2", got)
	}
	a := s.Get("A")
	if a.Type != TypeDisease || a.Severity != "high" || a.Description != "" {
		t.Errorf("overwritten node = %+v, want disease/high with no description", a)
	}
	if got := s.Names(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("Names() = %v, overwrite must keep the original position", got)
	}
}

func TestAddNode_EmptyTypeDefaultsToConcept(t *testing.T) {
	s := NewStore()
	s.AddNode("X", "", Attributes{})
	if got := s.Get("X").Type; got != TypeConcept {
		t.Errorf("Type = %q, want %q", got, TypeConcept)
	}
}

func TestAddNode_CopiesAttributes(t *testing.T) {
	s := NewStore()
	extra := map[string]any{"icd": "J11"}
	s.AddNode("Flu", TypeDisease, Attributes{Extra: extra})
	extra["icd"] = "changed"

	if got := s.Get("Flu").Extra["icd"]; got != "J11" {
		t.Errorf("stored Extra mutated through caller map: %v", got)
	}
}

func TestAddRelation_UnknownEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		target  string
		missing string
	}{
		{"missing source", "Ghost", "Disease", "Ghost"},
		{"missing target", "Flu", "Ghost", "Ghost"},
		{"both missing", "Nope", "Ghost", "Nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			nodes, rels := s.NodeCount(), s.RelationCount()

			err := s.AddRelation(tt.source, LabelSubtypeOf, tt.target)
			if !errors.Is(err, ErrUnknownEndpoint) {
				t.Fatalf("AddRelation() error = %v, want ErrUnknownEndpoint", err)
			}
			var kerr *KnowledgeError
			if !errors.As(err, &kerr) || kerr.Name != tt.missing {
				t.Errorf("error should name %q, got %v", tt.missing, err)
			}
			if s.NodeCount() != nodes || s.RelationCount() != rels {
				t.Errorf("store changed on failure: nodes %d->%d, relations %d->%d",
					nodes, s.NodeCount(), rels, s.RelationCount())
			}
		})
	}
}

func TestGet_Absent(t *testing.T) {
	s := newTestStore(t)
	n := s.Get("Nothing")
	if n.Exists() || !n.Attributes.Empty() {
		t.Errorf("Get(absent) = %+v, want zero node", n)
	}
	if _, ok := s.Lookup("Nothing"); ok {
		t.Error("Lookup(absent) reported ok")
	}
	if s.Has("Nothing") {
		t.Error("Has(absent) = true")
	}
}

func TestRelationLookups(t *testing.T) {
	s := newTestStore(t)

	from := s.RelationsFrom("Flu")
	want := []Relation{
		{"Flu", LabelSubtypeOf, "Disease"},
		{"Flu", LabelHasSymptom, "Fever"},
		{"Flu", LabelHasSymptom, "Cough"},
	}
	if !reflect.DeepEqual(from, want) {
		t.Errorf("RelationsFrom(Flu) = %v, want %v", from, want)
	}

	to := s.RelationsTo("Disease")
	if len(to) != 2 || to[0].Source != "Flu" || to[1].Source != "Gastritis" {
		t.Errorf("RelationsTo(Disease) = %v", to)
	}

	if got := s.RelationsByLabel(LabelHasSymptom); len(got) != 3 {
		t.Errorf("RelationsByLabel(has-symptom) returned %d relations, want 3", len(got))
	}
	if got := s.RelationsFrom("Nobody"); len(got) != 0 {
		t.Errorf("RelationsFrom(unknown) = %v, want empty", got)
	}
}

func TestRelationDuplicatesKept(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddRelation("Flu", LabelHasSymptom, "Fever"); err != nil {
		t.Fatal(err)
	}

	got := s.TargetsFrom("Flu", LabelHasSymptom)
	want := []string{"Fever", "Cough", "Fever"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TargetsFrom() = %v, want %v", got, want)
	}
	if got := len(s.RelationsTo("Fever")); got != 2 {
		t.Errorf("RelationsTo(Fever) has %d entries, want 2", got)
	}
}

func TestNodesByType(t *testing.T) {
	s := newTestStore(t)
	if got := s.NodesByType(TypeDisease); !reflect.DeepEqual(got, []string{"Flu", "Gastritis"}) {
		t.Errorf("NodesByType(disease) = %v", got)
	}
	if got := s.NodesByType(TypeSymptom); !reflect.DeepEqual(got, []string{"Fever", "Cough", "Nausea"}) {
		t.Errorf("NodesByType(symptom) = %v", got)
	}
	if got := s.NodesByType("organ"); len(got) != 0 {
		t.Errorf("NodesByType(organ) = %v, want empty", got)
	}
}

func TestStatistics(t *testing.T) {
	st := newTestStore(t).Statistics()
	if st.Nodes != 6 || st.Relations != 5 {
		t.Errorf("counts = %d/%d, want 6/5", st.Nodes, st.Relations)
	}
	if st.NodesByType[TypeSymptom] != 3 || st.NodesByType[TypeDisease] != 2 {
		t.Errorf("NodesByType = %v", st.NodesByType)
	}
	if st.RelationsByLabel[LabelSubtypeOf] != 2 || st.RelationsByLabel[LabelHasSymptom] != 3 {
		t.Errorf("RelationsByLabel = %v", st.RelationsByLabel)
	}
}

func TestConcurrentReads(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RelationsFrom("Flu")
				s.NodesByType(TypeDisease)
				s.FindPaths("Flu", "Disease", DefaultMaxDepth)
			}
		}()
	}
	wg.Wait()
}
