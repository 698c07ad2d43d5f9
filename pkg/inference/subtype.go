package inference

import (
	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// IsSubtypeOf reports whether a reaches b over is-subtype-of relations.
//
// The search is breadth-first from a, following outgoing hierarchy edges in
// insertion order. Each node is examined at most once and the match is tested
// when a node is dequeued, so IsSubtypeOf(a, a) holds for any known a and the
// search ends on cyclic hierarchies.
func (e *Engine) IsSubtypeOf(a, b string) (bool, *Trace) {
	t := e.begin(KindSubtype, Pairs("concept", a, "ancestor", b))

	for _, name := range []string{a, b} {
		if !e.store.Has(name) {
			e.fail(t, "node %q not found", name)
			return false, e.finish(t, Text("%q is NOT a subtype of %q", a, b))
		}
	}

	ok := e.reaches(a, b, t)
	if ok {
		return true, e.finish(t, Text("%q IS a subtype of %q", a, b))
	}
	return false, e.finish(t, Text("%q is NOT a subtype of %q", a, b))
}

// reaches runs the hierarchy search, writing check/link steps to t when t is
// non-nil.
func (e *Engine) reaches(a, b string, t *Trace) bool {
	visited := make(map[string]bool)
	var q queue[string]
	q.push(a)

	for !q.empty() {
		current, _ := q.pop()
		if visited[current] {
			continue
		}
		visited[current] = true
		t.add(StepCheckNode, Text("%s", current))

		if current == b {
			return true
		}

		for _, r := range e.store.RelationsFrom(current) {
			if r.Label != knowledge.LabelSubtypeOf {
				continue
			}
			t.add(StepFoundLink, Text("%s", r.String()))
			if !visited[r.Target] {
				q.push(r.Target)
			}
		}
	}
	return false
}
