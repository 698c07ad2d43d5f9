package inference

import (
	"strings"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// FindConnection lists every simple directed path from a to b of at most
// knowledge.DefaultMaxDepth relations.
func (e *Engine) FindConnection(a, b string) ([]knowledge.Path, *Trace) {
	return e.FindConnectionDepth(a, b, knowledge.DefaultMaxDepth)
}

// FindConnectionDepth is FindConnection with an explicit depth bound, capped
// at knowledge.MaxAllowedDepth. The trace records the bound actually used.
func (e *Engine) FindConnectionDepth(a, b string, maxDepth int) ([]knowledge.Path, *Trace) {
	maxDepth = min(maxDepth, knowledge.MaxAllowedDepth)
	t := e.begin(KindConnection, Pairs("from", a, "to", b, "max depth", itoa(maxDepth)))

	for _, name := range []string{a, b} {
		if !e.store.Has(name) {
			e.fail(t, "node %q not found", name)
			return []knowledge.Path{}, e.finish(t, Text("paths found: 0"))
		}
	}

	paths := e.store.FindPaths(a, b, maxDepth)
	for _, p := range paths {
		t.add(StepPath, Text("%s", FormatPath(p)))
	}
	return paths, e.finish(t, Text("paths found: %d", len(paths)))
}

// FormatPath renders a path as "A -[label]-> B -[label]-> C".
func FormatPath(p knowledge.Path) string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p[0].Source)
	for _, r := range p {
		b.WriteString(" -[")
		b.WriteString(r.Label)
		b.WriteString("]-> ")
		b.WriteString(r.Target)
	}
	return b.String()
}
