package inference

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// Diagnosis is one candidate disease for a set of observed symptoms.
type Diagnosis struct {
	Disease    string   `json:"disease"`
	Confidence float64  `json:"confidence"`
	Matched    []string `json:"matched"`
	// Total is the number of has-symptom relations the disease carries.
	Total int `json:"total"`
}

// Diagnose ranks every disease by the share of its symptoms that appear in
// observed. Diseases with no overlap are omitted. Results are ordered by
// confidence, highest first; ties keep disease insertion order.
//
// Repeated names in observed count once. Matched lists the overlap in the
// order the symptoms were observed.
func (e *Engine) Diagnose(observed []string) ([]Diagnosis, *Trace) {
	observed = dedupe(observed)
	t := e.begin(KindDiagnose, List(observed))

	diseases := e.store.NodesByType(knowledge.TypeDisease)
	t.add(StepCandidates, List(diseases))

	results := make([]Diagnosis, 0)
	for _, disease := range diseases {
		symptoms := e.targets(disease, knowledge.LabelHasSymptom, nil, "")
		matched := intersect(observed, symptoms)
		if len(matched) == 0 {
			continue
		}

		d := Diagnosis{
			Disease:    disease,
			Confidence: confidence(len(matched), len(symptoms)),
			Matched:    matched,
			Total:      len(symptoms),
		}
		results = append(results, d)
		t.add(StepMatch, Pairs(
			"disease", disease,
			"confidence", Percent(d.Confidence),
			"matched", fmt.Sprint(matched),
		))
	}

	slices.SortStableFunc(results, func(a, b Diagnosis) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})

	return results, e.finish(t, Text("possible diseases: %d", len(results)))
}

// Percent formats a confidence ratio with two decimals, e.g. "60.00%".
func Percent(c float64) string {
	return strconv.FormatFloat(c*100, 'f', 2, 64) + "%"
}

func confidence(matched, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}

func intersect(observed, symptoms []string) []string {
	out := make([]string, 0)
	for _, s := range observed {
		if slices.Contains(symptoms, s) {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
