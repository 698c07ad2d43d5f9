package inference

import (
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// Symptoms returns the targets of disease's has-symptom relations in
// insertion order, duplicates included.
func (e *Engine) Symptoms(disease string) ([]string, *Trace) {
	return e.oneHop(KindSymptoms, disease, knowledge.LabelHasSymptom, StepFoundSymptom)
}

// Treatments returns the targets of disease's treated-by relations.
func (e *Engine) Treatments(disease string) ([]string, *Trace) {
	return e.oneHop(KindTreatments, disease, knowledge.LabelTreatedBy, StepFoundTreatment)
}

func (e *Engine) oneHop(kind QueryKind, name, label, step string) ([]string, *Trace) {
	t := e.begin(kind, Pairs("disease", name))
	if !e.store.Has(name) {
		e.fail(t, "disease %q not found", name)
		return []string{}, e.finish(t, Text("found 0"))
	}

	out := e.targets(name, label, t, step)
	return out, e.finish(t, Text("found %d", len(out)))
}

// targets collects name's label targets, adding one step per hit.
func (e *Engine) targets(name, label string, t *Trace, step string) []string {
	out := make([]string, 0)
	for _, r := range e.store.RelationsFrom(name) {
		if r.Label == label {
			out = append(out, r.Target)
			t.add(step, Text("%s", r.Target))
		}
	}
	return out
}

// LabelGroup is the set of neighbours reached through one relation label.
type LabelGroup struct {
	Label string   `json:"label"`
	Names []string `json:"names"`
}

// ConceptInfo is everything the store records about one concept.
type ConceptInfo struct {
	Name     string         `json:"name"`
	Node     knowledge.Node `json:"node"`
	Outgoing []LabelGroup   `json:"outgoing"`
	Incoming []LabelGroup   `json:"incoming"`
}

// Empty reports whether the info is the zero value returned for unknown names.
func (c ConceptInfo) Empty() bool {
	return c.Name == ""
}

// OutgoingMap returns the outgoing groups keyed by label.
func (c ConceptInfo) OutgoingMap() map[string][]string {
	return groupMap(c.Outgoing)
}

// IncomingMap returns the incoming groups keyed by label.
func (c ConceptInfo) IncomingMap() map[string][]string {
	return groupMap(c.Incoming)
}

func groupMap(groups []LabelGroup) map[string][]string {
	m := make(map[string][]string, len(groups))
	for _, g := range groups {
		m[g.Label] = g.Names
	}
	return m
}

// RelatedInfo gathers concept's attributes with its outgoing relations grouped
// by label (targets) and incoming relations grouped by label (sources). Groups
// appear in order of each label's first occurrence.
func (e *Engine) RelatedInfo(concept string) (ConceptInfo, *Trace) {
	t := e.begin(KindRelated, Pairs("concept", concept))
	node, ok := e.store.Lookup(concept)
	if !ok {
		e.fail(t, "concept %q not found", concept)
		return ConceptInfo{}, e.finish(t, Text("no information"))
	}

	info := ConceptInfo{
		Name:     concept,
		Node:     node,
		Outgoing: groupBy(e.store.RelationsFrom(concept), func(r knowledge.Relation) string { return r.Target }),
		Incoming: groupBy(e.store.RelationsTo(concept), func(r knowledge.Relation) string { return r.Source }),
	}
	return info, e.finish(t, Pairs(
		"outgoing labels", itoa(len(info.Outgoing)),
		"incoming labels", itoa(len(info.Incoming)),
	))
}

func groupBy(rels []knowledge.Relation, pick func(knowledge.Relation) string) []LabelGroup {
	groups := make([]LabelGroup, 0)
	index := make(map[string]int)
	for _, r := range rels {
		i, ok := index[r.Label]
		if !ok {
			i = len(groups)
			index[r.Label] = i
			groups = append(groups, LabelGroup{Label: r.Label})
		}
		groups[i].Names = append(groups[i].Names, pick(r))
	}
	return groups
}
