package inference

import (
	"strconv"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// DiseasesByCategory returns, in insertion order, every disease node that is a
// subtype of category.
//
// The returned trace covers the whole query: one "subtype verdict" step per
// disease examined, then a "found disease" step per member. The hierarchy walk
// of each disease is not copied into it.
func (e *Engine) DiseasesByCategory(category string) ([]string, *Trace) {
	t := e.begin(KindCategory, Pairs("category", category))
	if !e.store.Has(category) {
		e.fail(t, "category %q not found", category)
		return []string{}, e.finish(t, Text("found 0"))
	}

	out := make([]string, 0)
	for _, disease := range e.store.NodesByType(knowledge.TypeDisease) {
		ok := e.reaches(disease, category, nil)
		t.add(StepVerdict, Pairs("disease", disease, "member", strconv.FormatBool(ok)))
		if ok {
			out = append(out, disease)
			t.add(StepFoundDisease, Text("%s", disease))
		}
	}
	return out, e.finish(t, Text("found %d", len(out)))
}
