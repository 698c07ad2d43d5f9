// Package explain turns query results and traces into readable reports.
package explain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-semnet/pkg/inference"
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// Confidence thresholds for the diagnosis recommendation.
const (
	HighConfidence   = 0.8
	MediumConfidence = 0.5
)

var rule = strings.Repeat("=", 60)

// Explainer renders explanations for one engine. It reads the engine's store
// directly and never issues queries, so explaining does not replace the
// engine's last trace.
type Explainer struct {
	engine *inference.Engine
}

// New creates an Explainer for engine.
func New(engine *inference.Engine) *Explainer {
	return &Explainer{engine: engine}
}

type report struct {
	b strings.Builder
}

func newReport(title string) *report {
	r := &report{}
	r.text(rule)
	r.text(title)
	r.text(rule)
	return r
}

func (r *report) text(s string) {
	r.b.WriteString(s)
	r.b.WriteByte('\n')
}

func (r *report) line(format string, args ...any) {
	fmt.Fprintf(&r.b, format, args...)
	r.b.WriteByte('\n')
}

func (r *report) close() string {
	r.text("")
	r.b.WriteString(rule)
	return r.b.String()
}

// LastInference renders the engine's most recent trace.
func (x *Explainer) LastInference() string {
	return Trace(x.engine.LastTrace())
}

// Trace renders every step of t, numbered from 1.
func Trace(t *inference.Trace) string {
	if t.Len() == 0 {
		return "No inference has been recorded."
	}

	r := newReport("INFERENCE EXPLANATION")
	for i, step := range t.Steps {
		r.line("")
		r.line("Step %d: %s", i+1, step.Label)
		writePayload(r, step.Payload)
	}
	return r.close()
}

func writePayload(r *report, p inference.Payload) {
	switch p.Kind {
	case inference.PayloadList:
		for _, item := range p.Items {
			r.line("  - %s", item)
		}
	case inference.PayloadPairs:
		for _, pair := range p.Pairs {
			r.line("  %s: %s", pair.Key, pair.Value)
		}
	default:
		r.line("  %s", p.Text)
	}
}

// Recommendation classifies the best diagnosis confidence.
func Recommendation(confidence float64) string {
	switch {
	case confidence >= HighConfidence:
		return "high"
	case confidence >= MediumConfidence:
		return "medium"
	default:
		return "low"
	}
}

// Diagnosis explains a ranked diagnosis: matched and missing symptoms per
// disease, treatments, and a recommendation based on the best match.
func (x *Explainer) Diagnosis(observed []string, results []inference.Diagnosis) string {
	store := x.engine.Store()
	r := newReport("DIAGNOSIS EXPLANATION")

	r.line("")
	r.line("Observed symptoms (%d):", len(observed))
	for _, s := range observed {
		r.line("  • %s", s)
	}

	if len(results) == 0 {
		r.line("")
		r.line("Result: no disease in the knowledge base matches these symptoms.")
		r.line("")
		r.line("Possible reasons:")
		r.line("  - the symptoms do not belong to any known disease")
		r.line("  - further examination is needed")
		return r.close()
	}

	r.line("")
	r.line("Possible diseases: %d", len(results))
	r.line("")
	r.line("Analysis per disease:")
	r.line("")

	for i, d := range results {
		r.line("%d. %s", i+1, d.Disease)
		r.line("   Confidence: %s", inference.Percent(d.Confidence))
		r.line("   Matched symptoms (%d):", len(d.Matched))
		for _, s := range d.Matched {
			r.line("     ✓ %s", s)
		}

		var missing []string
		for _, s := range store.TargetsFrom(d.Disease, knowledge.LabelHasSymptom) {
			if !slices.Contains(d.Matched, s) {
				missing = append(missing, s)
			}
		}
		if len(missing) > 0 {
			r.line("   Missing symptoms (%d):", len(missing))
			for _, s := range missing {
				r.line("     ✗ %s", s)
			}
		}

		if treatments := store.TargetsFrom(d.Disease, knowledge.LabelTreatedBy); len(treatments) > 0 {
			r.line("   Recommended treatment:")
			for _, t := range treatments {
				r.line("     → %s", t)
			}
		}
		r.line("")
	}

	best := results[0]
	r.line("RECOMMENDATION:")
	switch Recommendation(best.Confidence) {
	case "high":
		r.line("  High likelihood: %s", best.Disease)
		r.line("  Start the corresponding treatment.")
	case "medium":
		r.line("  Medium likelihood: %s", best.Disease)
		r.line("  Further examination is recommended.")
	default:
		r.line("  Low confidence in the diagnosis.")
		r.line("  Consult a specialist.")
	}
	return r.close()
}

// Subtype explains a subtype check using the hierarchy links in its trace.
func Subtype(a, b string, result bool, t *inference.Trace) string {
	r := newReport("SUBTYPE CHECK EXPLANATION")
	r.line("")
	r.line("Question: is %q a subtype of %q?", a, b)
	if result {
		r.line("Answer: YES")
	} else {
		r.line("Answer: NO")
	}

	r.line("")
	r.line("Justification:")
	if result {
		r.line("  A chain of %q relations links %q to %q:", knowledge.LabelSubtypeOf, a, b)
		for _, step := range t.Find(inference.StepFoundLink) {
			r.line("    • %s", step.Payload.Text)
		}
	} else {
		r.line("  No chain of %q relations links %q to %q.", knowledge.LabelSubtypeOf, a, b)
	}
	return r.close()
}

// Concept renders the attributes and relations gathered by RelatedInfo.
func Concept(name string, info inference.ConceptInfo) string {
	r := newReport("CONCEPT: " + name)
	if info.Empty() {
		r.line("")
		r.line("Concept not found in the knowledge base.")
		return r.close()
	}

	r.line("")
	r.line("Attributes:")
	fields := info.Node.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		r.line("  %s: %v", k, fields[k])
	}

	if len(info.Outgoing) > 0 {
		r.line("")
		r.line("Outgoing relations:")
		for _, g := range info.Outgoing {
			r.line("  %s:", g.Label)
			for _, n := range g.Names {
				r.line("    → %s", n)
			}
		}
	}
	if len(info.Incoming) > 0 {
		r.line("")
		r.line("Incoming relations:")
		for _, g := range info.Incoming {
			r.line("  %s:", g.Label)
			for _, n := range g.Names {
				r.line("    ← %s", n)
			}
		}
	}
	return r.close()
}

// Summary describes the store: counts per node type and relation label, and
// the sorted names of its diseases and symptoms.
func Summary(store *knowledge.Store) string {
	st := store.Statistics()
	r := newReport("KNOWLEDGE BASE SUMMARY")

	r.line("")
	r.line("Nodes: %d", st.Nodes)
	r.line("By type:")
	types := make([]string, 0, len(st.NodesByType))
	for typ := range st.NodesByType {
		types = append(types, string(typ))
	}
	slices.Sort(types)
	for _, typ := range types {
		r.line("  %s: %d", typ, st.NodesByType[knowledge.NodeType(typ)])
	}

	r.line("")
	r.line("Relations: %d", st.Relations)
	r.line("By label:")
	labels := make([]string, 0, len(st.RelationsByLabel))
	for l := range st.RelationsByLabel {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	for _, l := range labels {
		r.line("  %s: %d", l, st.RelationsByLabel[l])
	}

	for _, section := range []struct {
		title string
		typ   knowledge.NodeType
	}{
		{"Diseases", knowledge.TypeDisease},
		{"Symptoms", knowledge.TypeSymptom},
	} {
		names := store.NodesByType(section.typ)
		if len(names) == 0 {
			continue
		}
		slices.Sort(names)
		r.line("")
		r.line("%s (%d):", section.title, len(names))
		for _, n := range names {
			r.line("  • %s", n)
		}
	}
	return r.close()
}

// Why answers a free-form question by listing the working steps of t, that
// is every step other than the start and the result.
func Why(question string, answer any, t *inference.Trace) string {
	r := newReport("EXPLANATION")
	r.line("")
	r.line("Question: %s", question)
	r.line("Answer: %v", answer)
	r.line("")
	r.line("Justification:")

	if t.Len() == 0 {
		r.line("  The answer was read directly from the knowledge base.")
		return r.close()
	}

	r.line("  The conclusion rests on these steps:")
	for i, step := range t.Steps {
		if step.Label == inference.StepStart || step.Label == inference.StepResult {
			continue
		}
		r.line("  %d. %s: %s", i+1, step.Label, step.Payload.String())
	}
	return r.close()
}
